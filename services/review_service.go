package services

import (
	"context"
	"math"
	"strings"
	"time"

	"journal-api/models"
	"journal-api/notify"
	"journal-api/repository"
	"journal-api/utils"
)

type AssignReviewerInput struct {
	ManuscriptID int        `json:"manuscriptId" validate:"required,gt=0"`
	ReviewerID   int        `json:"reviewerId" validate:"required,gt=0"`
	DueDate      *time.Time `json:"dueDate" validate:"required"`
	// AssignedBy names the handling editor when an editor-in-chief assigns
	// on their behalf. It defaults to the caller.
	AssignedBy int `json:"assignedBy"`
}

type ScoresInput struct {
	Originality  int `json:"originality" validate:"required,gte=1,lte=5"`
	Methodology  int `json:"methodology" validate:"required,gte=1,lte=5"`
	Contribution int `json:"contribution" validate:"required,gte=1,lte=5"`
	Clarity      int `json:"clarity" validate:"required,gte=1,lte=5"`
	References   int `json:"references" validate:"required,gte=1,lte=5"`
}

func (s ScoresInput) model() models.ReviewScores {
	return models.ReviewScores{
		Originality:  s.Originality,
		Methodology:  s.Methodology,
		Contribution: s.Contribution,
		Clarity:      s.Clarity,
		References:   s.References,
	}
}

type ReviewInput struct {
	Scores               ScoresInput `json:"scores"`
	Recommendation       string      `json:"recommendation" validate:"required,oneof=accept minor_revisions major_revisions reject"`
	CommentsToAuthor     string      `json:"commentsToAuthor" validate:"required,min=50"`
	CommentsToEditor     string      `json:"commentsToEditor"`
	ConfidentialComments string      `json:"confidentialComments"`
}

type ReviewUpdateInput struct {
	Scores               *ScoresInput `json:"scores"`
	Recommendation       *string      `json:"recommendation" validate:"omitempty,oneof=accept minor_revisions major_revisions reject"`
	CommentsToAuthor     *string      `json:"commentsToAuthor" validate:"omitempty,min=10"`
	CommentsToEditor     *string      `json:"commentsToEditor"`
	ConfidentialComments *string      `json:"confidentialComments"`
}

type ReviewService struct {
	Deps
}

func NewReviewService(deps Deps) *ReviewService {
	return &ReviewService{Deps: deps.withDefaults()}
}

// AssignReviewer creates a pending assignment for the current round.
func (s *ReviewService) AssignReviewer(ctx context.Context, actor *models.User, in AssignReviewerInput) (*models.Assignment, error) {
	if err := RequireRole(actor, models.RoleEditor); err != nil {
		observeAction(ActionAssignReviewer, err)
		return nil, err
	}
	if fields := utils.ValidateStruct(in); fields != nil {
		return nil, ValidationError(fields)
	}
	if !in.DueDate.After(s.Now()) {
		return nil, fieldError("dueDate", "must be in the future")
	}
	reviewer, err := s.Store.Users().Get(ctx, in.ReviewerID)
	if err != nil {
		return nil, fieldError("reviewerId", "unknown reviewer")
	}
	if !HasCapability(reviewer, models.RoleReviewer) {
		return nil, fieldError("reviewerId", "user does not hold the reviewer role")
	}
	assignedBy := actor.UserID
	if in.AssignedBy > 0 && in.AssignedBy != actor.UserID {
		editor, err := s.Store.Users().Get(ctx, in.AssignedBy)
		if err != nil || !HasCapability(editor, models.RoleEditor) {
			return nil, fieldError("assignedBy", "must be an editor")
		}
		assignedBy = in.AssignedBy
	}

	var created *models.Assignment
	_, err = s.mutateManuscript(ctx, in.ManuscriptID, ActionAssignReviewer, func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		if !IsManuscriptEditor(actor, m) {
			return Forbidden("you are not an editor of this manuscript")
		}
		if m.IsAuthor(reviewer.UserID) {
			return fieldError("reviewerId", "authors cannot review their own manuscript")
		}
		to, err := NextStage(ActionAssignReviewer, m.Stage)
		if err != nil {
			return err
		}
		existing, err := tx.Assignments().List(ctx, repository.AssignmentFilter{
			ManuscriptID: m.ManuscriptID,
			ReviewerID:   reviewer.UserID,
			Round:        m.CurrentRound,
			Statuses:     []string{models.AssignmentPending, models.AssignmentAccepted, models.AssignmentCompleted},
		})
		if err != nil {
			return storeErr(err, "assignment")
		}
		if len(existing) > 0 {
			return Conflict("reviewer is already assigned to this manuscript for the current round", nil)
		}
		a := &models.Assignment{
			ManuscriptID: m.ManuscriptID,
			ReviewerID:   reviewer.UserID,
			Round:        m.CurrentRound,
			AssignedBy:   assignedBy,
			PerformedBy:  actor.UserID,
			DueDate:      in.DueDate.UTC(),
			Status:       models.AssignmentPending,
		}
		if err := tx.Assignments().Create(ctx, a); err != nil {
			return storeErr(err, "assignment")
		}
		if err := s.moveStage(ctx, tx, m, to, ActionAssignReviewer, actor.UserID, ""); err != nil {
			return err
		}
		a.Reviewer = reviewer
		created = a
		out.add(notify.New(notify.ReviewerAssigned,
			withData(manuscriptData(m), "dueDate", formatDate(a.DueDate)),
			recipientOf(reviewer)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// loadOwnAssignment fetches an assignment inside tx and checks the caller is
// its reviewer.
func loadOwnAssignment(ctx context.Context, tx repository.Store, actor *models.User, id int) (*models.Assignment, error) {
	a, err := tx.Assignments().Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "assignment")
	}
	if a.ReviewerID != actor.UserID {
		return nil, Forbidden("this assignment belongs to another reviewer")
	}
	return a, nil
}

func (s *ReviewService) manuscriptOf(ctx context.Context, assignmentID int) (int, error) {
	a, err := s.Store.Assignments().Get(ctx, assignmentID)
	if err != nil {
		return 0, storeErr(err, "assignment")
	}
	return a.ManuscriptID, nil
}

// AcceptAssignment starts the review: the assignment is accepted and an
// in-progress Review is opened for the round.
func (s *ReviewService) AcceptAssignment(ctx context.Context, actor *models.User, assignmentID int) (*models.Assignment, error) {
	if err := RequireRole(actor, models.RoleReviewer); err != nil {
		observeAction(ActionAcceptAssignment, err)
		return nil, err
	}
	manuscriptID, err := s.manuscriptOf(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	var result *models.Assignment
	_, err = s.mutateManuscript(ctx, manuscriptID, ActionAcceptAssignment, func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		a, err := loadOwnAssignment(ctx, tx, actor, assignmentID)
		if err != nil {
			return err
		}
		if a.Status != models.AssignmentPending {
			return InvalidState("assignment is not pending")
		}
		if a.Round != m.CurrentRound {
			return InvalidState("assignment belongs to a previous review round")
		}
		to, err := NextStage(ActionAcceptAssignment, m.Stage)
		if err != nil {
			return err
		}
		now := s.Now()
		review := &models.Review{
			ManuscriptID: m.ManuscriptID,
			ReviewerID:   actor.UserID,
			Round:        a.Round,
			AssignmentID: a.AssignmentID,
			Status:       models.ReviewInProgress,
			DueDate:      a.DueDate,
		}
		if err := tx.Reviews().Create(ctx, review); err != nil {
			return storeErr(err, "review")
		}
		a.Status = models.AssignmentAccepted
		a.RespondedAt = &now
		a.ReviewID = &review.ReviewID
		if err := tx.Assignments().Update(ctx, a); err != nil {
			return storeErr(err, "assignment")
		}
		if err := s.moveStage(ctx, tx, m, to, ActionAcceptAssignment, actor.UserID, ""); err != nil {
			return err
		}
		result = a
		out.add(notify.New(notify.AssignmentAccepted,
			withData(manuscriptData(m), "reviewer", actor.DisplayName()),
			s.recipientsByID(ctx, tx, a.AssignedBy)...))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeclineAssignment records the refusal and re-evaluates the round: the
// remaining reviewers may already have finished.
func (s *ReviewService) DeclineAssignment(ctx context.Context, actor *models.User, assignmentID int, reason string) (*models.Assignment, error) {
	if err := RequireRole(actor, models.RoleReviewer); err != nil {
		observeAction(ActionDeclineAssignment, err)
		return nil, err
	}
	manuscriptID, err := s.manuscriptOf(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	reason = utils.SanitizeInput(reason)

	var result *models.Assignment
	_, err = s.mutateManuscript(ctx, manuscriptID, ActionDeclineAssignment, func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		a, err := loadOwnAssignment(ctx, tx, actor, assignmentID)
		if err != nil {
			return err
		}
		if a.Status != models.AssignmentPending {
			return InvalidState("assignment is not pending")
		}
		now := s.Now()
		a.Status = models.AssignmentDeclined
		a.RespondedAt = &now
		if reason != "" {
			a.DeclineReason = &reason
		}
		if err := tx.Assignments().Update(ctx, a); err != nil {
			return storeErr(err, "assignment")
		}
		result = a

		shown := reason
		if shown == "" {
			shown = "none given"
		}
		out.add(notify.New(notify.AssignmentDeclined,
			withData(manuscriptData(m), "reviewer", actor.DisplayName(), "reason", shown),
			s.recipientsByID(ctx, tx, a.AssignedBy)...))

		if a.Round != m.CurrentRound {
			return nil
		}
		if _, err := NextStage(ActionDeclineAssignment, m.Stage); err != nil {
			return nil
		}
		return s.settleRound(ctx, tx, m, actor.UserID, ActionDeclineAssignment, out)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// settleRound moves the manuscript to REVIEW_ACCEPTED once every live
// assignment of the current round is completed.
func (s *ReviewService) settleRound(ctx context.Context, tx repository.Store, m *models.Manuscript, actorID int, action Action, out *outbox) error {
	round, err := tx.Assignments().List(ctx, repository.AssignmentFilter{ManuscriptID: m.ManuscriptID, Round: m.CurrentRound})
	if err != nil {
		return storeErr(err, "assignment")
	}
	if !RoundComplete(round, m.CurrentRound) {
		return nil
	}
	if err := s.moveStage(ctx, tx, m, models.StageReviewAccepted, action, actorID, "all reviews received"); err != nil {
		return err
	}
	out.add(notify.New(notify.RoundCompleted, manuscriptData(m), s.editorRecipients(ctx, tx, m)...))
	return nil
}

// SubmitReview finalises the caller's review for the current round.
func (s *ReviewService) SubmitReview(ctx context.Context, actor *models.User, manuscriptID int, in ReviewInput) (*models.Review, error) {
	if err := RequireRole(actor, models.RoleReviewer); err != nil {
		observeAction(ActionSubmitReview, err)
		return nil, err
	}
	in.CommentsToAuthor = strings.TrimSpace(in.CommentsToAuthor)
	if fields := utils.ValidateStruct(in); fields != nil {
		return nil, ValidationError(fields)
	}

	var result *models.Review
	_, err := s.mutateManuscript(ctx, manuscriptID, ActionSubmitReview, func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		assignments, err := tx.Assignments().List(ctx, repository.AssignmentFilter{
			ManuscriptID: m.ManuscriptID,
			ReviewerID:   actor.UserID,
			Round:        m.CurrentRound,
			Statuses:     []string{models.AssignmentPending, models.AssignmentAccepted, models.AssignmentCompleted},
		})
		if err != nil {
			return storeErr(err, "assignment")
		}
		if len(assignments) == 0 {
			return Forbidden("you are not assigned to review this manuscript")
		}
		a := assignments[0]
		switch a.Status {
		case models.AssignmentCompleted:
			return Conflict("a review for this manuscript and round was already submitted", repository.ErrDuplicate)
		case models.AssignmentPending:
			return InvalidState("accept the assignment before submitting a review")
		}
		to, err := NextStage(ActionSubmitReview, m.Stage)
		if err != nil {
			return err
		}

		now := s.Now()
		review, err := tx.Reviews().GetByRound(ctx, m.ManuscriptID, actor.UserID, m.CurrentRound)
		fresh := false
		switch {
		case err == nil:
			if review.Status == models.ReviewSubmitted {
				return Conflict("a review for this manuscript and round was already submitted", repository.ErrDuplicate)
			}
		case KindOf(err) == KindNotFound:
			fresh = true
			review = &models.Review{
				ManuscriptID: m.ManuscriptID,
				ReviewerID:   actor.UserID,
				Round:        m.CurrentRound,
				AssignmentID: a.AssignmentID,
				DueDate:      a.DueDate,
			}
		default:
			return storeErr(err, "review")
		}
		review.Scores = in.Scores.model()
		review.OverallScore = OverallScore(review.Scores)
		review.Recommendation = in.Recommendation
		review.CommentsToAuthor = in.CommentsToAuthor
		review.CommentsToEditor = strings.TrimSpace(in.CommentsToEditor)
		review.ConfidentialComments = strings.TrimSpace(in.ConfidentialComments)
		review.Status = models.ReviewSubmitted
		review.SubmittedAt = &now
		if fresh {
			err = tx.Reviews().Create(ctx, review)
		} else {
			err = tx.Reviews().Update(ctx, review)
		}
		if err != nil {
			return storeErr(err, "review")
		}

		a.Status = models.AssignmentCompleted
		a.ReviewID = &review.ReviewID
		if err := tx.Assignments().Update(ctx, &a); err != nil {
			return storeErr(err, "assignment")
		}
		if err := s.moveStage(ctx, tx, m, to, ActionSubmitReview, actor.UserID, ""); err != nil {
			return err
		}
		out.add(notify.New(notify.ReviewSubmitted,
			withData(manuscriptData(m),
				"reviewer", actor.DisplayName(),
				"recommendation", strings.ReplaceAll(review.Recommendation, "_", " ")),
			s.recipientsByID(ctx, tx, a.AssignedBy)...))
		result = review
		return s.settleRound(ctx, tx, m, actor.UserID, ActionSubmitReview, out)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// reviewEditable lists the stages in which a submitted review can still be
// corrected.
var reviewEditable = map[models.Stage]bool{
	models.StageUnderReview:      true,
	models.StageReviewInProgress: true,
	models.StageReviewAccepted:   true,
}

// UpdateReview edits the caller's own review while the round is open.
func (s *ReviewService) UpdateReview(ctx context.Context, actor *models.User, reviewID int, in ReviewUpdateInput) (*models.Review, error) {
	if err := RequireRole(actor, models.RoleReviewer); err != nil {
		return nil, err
	}
	if in.CommentsToAuthor != nil {
		trimmed := strings.TrimSpace(*in.CommentsToAuthor)
		in.CommentsToAuthor = &trimmed
	}
	if fields := utils.ValidateStruct(in); fields != nil {
		return nil, ValidationError(fields)
	}
	current, err := s.Store.Reviews().Get(ctx, reviewID)
	if err != nil {
		return nil, storeErr(err, "review")
	}
	if current.ReviewerID != actor.UserID {
		return nil, Forbidden("you can only edit your own reviews")
	}

	var result *models.Review
	_, err = s.mutateManuscript(ctx, current.ManuscriptID, "update_review", func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		review, err := tx.Reviews().Get(ctx, reviewID)
		if err != nil {
			return storeErr(err, "review")
		}
		if review.Round != m.CurrentRound || !reviewEditable[m.Stage] {
			return InvalidState("review can no longer be edited")
		}
		if in.Scores != nil {
			review.Scores = in.Scores.model()
			review.OverallScore = OverallScore(review.Scores)
		}
		if in.Recommendation != nil {
			review.Recommendation = *in.Recommendation
		}
		if in.CommentsToAuthor != nil {
			review.CommentsToAuthor = *in.CommentsToAuthor
		}
		if in.CommentsToEditor != nil {
			review.CommentsToEditor = strings.TrimSpace(*in.CommentsToEditor)
		}
		if in.ConfidentialComments != nil {
			review.ConfidentialComments = strings.TrimSpace(*in.ConfidentialComments)
		}
		if err := tx.Reviews().Update(ctx, review); err != nil {
			return storeErr(err, "review")
		}
		result = review
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ReviewService) MyReviews(ctx context.Context, actor *models.User) ([]models.Review, error) {
	if err := RequireRole(actor, models.RoleReviewer); err != nil {
		return nil, err
	}
	rows, err := s.Store.Reviews().List(ctx, repository.ReviewFilter{ReviewerID: actor.UserID})
	if err != nil {
		return nil, storeErr(err, "review")
	}
	return rows, nil
}

// AssignmentView pairs an assignment with the blinded manuscript.
type AssignmentView struct {
	models.Assignment
	Manuscript *models.Manuscript `json:"manuscript,omitempty"`
	Overdue    bool               `json:"overdue"`
}

func (s *ReviewService) MyAssignments(ctx context.Context, actor *models.User, status string) ([]AssignmentView, error) {
	if err := RequireRole(actor, models.RoleReviewer); err != nil {
		return nil, err
	}
	filter := repository.AssignmentFilter{ReviewerID: actor.UserID}
	if status = strings.TrimSpace(status); status != "" {
		filter.Statuses = strings.Split(status, ",")
	}
	rows, err := s.Store.Assignments().List(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "assignment")
	}
	now := s.Now()
	out := make([]AssignmentView, 0, len(rows))
	for _, a := range rows {
		view := AssignmentView{Assignment: a, Overdue: a.Overdue(now)}
		if m, err := s.Store.Manuscripts().Get(ctx, a.ManuscriptID); err == nil {
			view.Manuscript = Blind(m)
		}
		out = append(out, view)
	}
	return out, nil
}

// ReviewerStats summarises a reviewer's history.
type ReviewerStats struct {
	TotalAssignments      int            `json:"totalAssignments"`
	Pending               int            `json:"pending"`
	Accepted              int            `json:"accepted"`
	Declined              int            `json:"declined"`
	Completed             int            `json:"completed"`
	Overdue               int            `json:"overdue"`
	AverageOverallScore   float64        `json:"averageOverallScore"`
	AverageTurnaroundDays float64        `json:"averageTurnaroundDays"`
	Recommendations       map[string]int `json:"recommendations"`
}

func (s *ReviewService) Statistics(ctx context.Context, actor *models.User) (*ReviewerStats, error) {
	if err := RequireRole(actor, models.RoleReviewer); err != nil {
		return nil, err
	}
	assignments, err := s.Store.Assignments().List(ctx, repository.AssignmentFilter{ReviewerID: actor.UserID})
	if err != nil {
		return nil, storeErr(err, "assignment")
	}
	reviews, err := s.Store.Reviews().List(ctx, repository.ReviewFilter{ReviewerID: actor.UserID, Statuses: []string{models.ReviewSubmitted}})
	if err != nil {
		return nil, storeErr(err, "review")
	}

	now := s.Now()
	stats := &ReviewerStats{TotalAssignments: len(assignments), Recommendations: map[string]int{}}
	assignedAt := make(map[int]time.Time, len(assignments))
	for _, a := range assignments {
		assignedAt[a.AssignmentID] = a.CreatedAt
		switch a.Status {
		case models.AssignmentPending:
			stats.Pending++
		case models.AssignmentAccepted:
			stats.Accepted++
		case models.AssignmentDeclined:
			stats.Declined++
		case models.AssignmentCompleted:
			stats.Completed++
		}
		if a.Overdue(now) {
			stats.Overdue++
		}
	}

	var scoreSum, daySum float64
	turnarounds := 0
	for _, r := range reviews {
		scoreSum += r.OverallScore
		stats.Recommendations[r.Recommendation]++
		if start, ok := assignedAt[r.AssignmentID]; ok && r.SubmittedAt != nil && !start.IsZero() {
			daySum += r.SubmittedAt.Sub(start).Hours() / 24
			turnarounds++
		}
	}
	if len(reviews) > 0 {
		stats.AverageOverallScore = math.Round(scoreSum/float64(len(reviews))*100) / 100
	}
	if turnarounds > 0 {
		stats.AverageTurnaroundDays = math.Round(daySum/float64(turnarounds)*10) / 10
	}
	return stats, nil
}

// GetReview is open to the reviewer who wrote it and to the manuscript's
// editors. Authors see the redacted form of a submitted review.
func (s *ReviewService) GetReview(ctx context.Context, actor *models.User, reviewID int) (*models.Review, error) {
	if actor == nil {
		return nil, Unauthenticated()
	}
	r, err := s.Store.Reviews().Get(ctx, reviewID)
	if err != nil {
		return nil, storeErr(err, "review")
	}
	if r.ReviewerID == actor.UserID && actor.IsActive {
		return r, nil
	}
	m, err := s.loadManuscript(ctx, r.ManuscriptID)
	if err != nil {
		return nil, err
	}
	if IsManuscriptEditor(actor, m) {
		return r, nil
	}
	if actor.IsActive && m.IsAuthor(actor.UserID) && r.Status == models.ReviewSubmitted {
		redacted := r.ForAuthor()
		return &redacted, nil
	}
	return nil, Forbidden("")
}

// ForManuscript lists the reviews of a manuscript: everything for editors,
// submitted reviews without reviewer identity for authors.
func (s *ReviewService) ForManuscript(ctx context.Context, actor *models.User, manuscriptID int) ([]models.Review, error) {
	if actor == nil {
		return nil, Unauthenticated()
	}
	m, err := s.loadManuscript(ctx, manuscriptID)
	if err != nil {
		return nil, err
	}
	switch {
	case IsManuscriptEditor(actor, m):
		rows, err := s.Store.Reviews().List(ctx, repository.ReviewFilter{ManuscriptID: manuscriptID})
		return rows, storeErr(err, "review")
	case actor.IsActive && m.IsAuthor(actor.UserID):
		rows, err := s.Store.Reviews().List(ctx, repository.ReviewFilter{ManuscriptID: manuscriptID, Statuses: []string{models.ReviewSubmitted}})
		if err != nil {
			return nil, storeErr(err, "review")
		}
		out := make([]models.Review, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ForAuthor())
		}
		return out, nil
	}
	return nil, Forbidden("")
}

// ReviewPacket is what a reviewer needs to work on an assignment.
type ReviewPacket struct {
	Manuscript      *models.Manuscript          `json:"manuscript"`
	Assignment      models.Assignment           `json:"assignment"`
	Review          *models.Review              `json:"review,omitempty"`
	PreviousReviews []models.Review             `json:"previousReviews"`
	Revisions       []models.ManuscriptRevision `json:"revisions"`
}

// ForReview returns the blinded manuscript with the caller's assignment and
// draft for the current round, plus their reviews of earlier rounds.
func (s *ReviewService) ForReview(ctx context.Context, actor *models.User, manuscriptID int) (*ReviewPacket, error) {
	if err := RequireRole(actor, models.RoleReviewer); err != nil {
		return nil, err
	}
	m, err := s.loadManuscript(ctx, manuscriptID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.Store.Assignments().List(ctx, repository.AssignmentFilter{
		ManuscriptID: manuscriptID,
		ReviewerID:   actor.UserID,
		Statuses:     []string{models.AssignmentPending, models.AssignmentAccepted, models.AssignmentCompleted},
	})
	if err != nil {
		return nil, storeErr(err, "assignment")
	}
	if len(assignments) == 0 {
		return nil, Forbidden("you are not assigned to review this manuscript")
	}
	current := assignments[len(assignments)-1]
	for _, a := range assignments {
		if a.Round == m.CurrentRound {
			current = a
		}
	}

	packet := &ReviewPacket{
		Manuscript: Blind(m),
		Assignment: current,
		Revisions:  m.Revisions,
	}
	reviews, err := s.Store.Reviews().List(ctx, repository.ReviewFilter{ManuscriptID: manuscriptID, ReviewerID: actor.UserID})
	if err != nil {
		return nil, storeErr(err, "review")
	}
	for i := range reviews {
		if reviews[i].Round == current.Round {
			packet.Review = &reviews[i]
			continue
		}
		packet.PreviousReviews = append(packet.PreviousReviews, reviews[i])
	}
	return packet, nil
}
