package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"journal-api/models"
	"journal-api/notify"
	"journal-api/repository"
	"journal-api/utils"
)

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

type AuthorInput struct {
	UserID          int  `json:"user" validate:"gt=0"`
	IsCorresponding bool `json:"isCorresponding"`
}

type SubmitInput struct {
	Title    string        `json:"title" validate:"required,max=500"`
	Abstract string        `json:"abstract" validate:"required"`
	Keywords []string      `json:"keywords"`
	Domain   string        `json:"domain" validate:"required,max=255"`
	Authors  []AuthorInput `json:"authors" validate:"dive"`
}

type DecisionInput struct {
	Decision string `json:"decision" validate:"required"`
	Comments string `json:"comments"`
}

type StatusInput struct {
	Status   string `json:"status" validate:"required"`
	Decision string `json:"decision"`
	Comments string `json:"comments"`
	Selected *bool  `json:"selected"`
}

type PaymentRequestInput struct {
	Amount   *float64 `json:"amount" validate:"omitempty,gt=0"`
	Currency string   `json:"currency" validate:"omitempty,len=3"`
}

type ManuscriptService struct {
	Deps
}

func NewManuscriptService(deps Deps) *ManuscriptService {
	return &ManuscriptService{Deps: deps.withDefaults()}
}

// Submit creates a manuscript at SUBMITTED. The authorisation check runs
// before anything about the file is looked at.
func (s *ManuscriptService) Submit(ctx context.Context, actor *models.User, in SubmitInput, file Upload) (*models.Manuscript, error) {
	if err := RequireSubmitter(actor); err != nil {
		observeAction(ActionSubmit, err)
		return nil, err
	}
	in.Title = utils.SanitizeInput(in.Title)
	in.Abstract = utils.SanitizeInput(in.Abstract)
	in.Domain = utils.SanitizeInput(in.Domain)
	if fields := utils.ValidateStruct(in); fields != nil {
		return nil, ValidationError(fields)
	}
	authors, err := s.resolveAuthors(ctx, actor, in.Authors)
	if err != nil {
		return nil, err
	}
	ref, err := s.storeFile(ctx, models.FolderManuscripts, "manuscript", file)
	if err != nil {
		observeAction(ActionSubmit, err)
		return nil, err
	}

	now := s.Now()
	m := &models.Manuscript{
		Title:        in.Title,
		Abstract:     in.Abstract,
		Keywords:     models.NormalizeList(in.Keywords),
		Domain:       in.Domain,
		SubmittedBy:  actor.UserID,
		File:         ref,
		CurrentRound: 1,
		SubmittedAt:  now,
		Authors:      authors,
	}
	for _, a := range authors {
		if a.IsCorresponding {
			m.CorrespondingAuthorID = a.UserID
		}
	}
	m.SetStage(models.StageSubmitted)

	var out outbox
	err = s.Store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Manuscripts().Create(ctx, m); err != nil {
			return storeErr(err, "manuscript")
		}
		if err := s.recordHistory(ctx, tx, m, nil, ActionSubmit, actor.UserID, ""); err != nil {
			return err
		}
		data := withData(manuscriptData(m), "date", formatDate(now))
		out.add(notify.New(notify.ManuscriptSubmitted, data, s.authorRecipients(ctx, tx, m)...))
		editorData := withData(manuscriptData(m), "date", formatDate(now))
		editorEv := notify.New(notify.ManuscriptSubmitted, editorData, s.chiefRecipients(ctx, tx)...)
		editorEv.Subject = "New submission: " + m.Title
		editorEv.Message = fmt.Sprintf("%s submitted \"%s\" in %s.", actor.DisplayName(), m.Title, m.Domain)
		out.add(editorEv)
		return nil
	})
	observeAction(ActionSubmit, err)
	if err != nil {
		return nil, err
	}
	s.flush(&out)
	s.Log.Info("manuscript submitted",
		zap.Int("manuscript_id", m.ManuscriptID),
		zap.Int("user_id", actor.UserID),
		zap.Int("pages", m.File.Pages))
	return s.loadManuscript(ctx, m.ManuscriptID)
}

// resolveAuthors orders the author list, puts the submitter in it and makes
// sure exactly one author is corresponding.
func (s *ManuscriptService) resolveAuthors(ctx context.Context, actor *models.User, in []AuthorInput) ([]models.ManuscriptAuthor, error) {
	var authors []models.ManuscriptAuthor
	seen := map[int]bool{}
	corresponding := 0
	for _, a := range in {
		if seen[a.UserID] {
			return nil, fieldError("authors", fmt.Sprintf("user %d is listed twice", a.UserID))
		}
		seen[a.UserID] = true
		if a.UserID != actor.UserID {
			u, err := s.Store.Users().Get(ctx, a.UserID)
			if err != nil || !u.IsActive {
				return nil, fieldError("authors", fmt.Sprintf("unknown user %d", a.UserID))
			}
		}
		if a.IsCorresponding {
			corresponding++
		}
		authors = append(authors, models.ManuscriptAuthor{UserID: a.UserID, IsCorresponding: a.IsCorresponding})
	}
	if !seen[actor.UserID] {
		authors = append([]models.ManuscriptAuthor{{UserID: actor.UserID}}, authors...)
	}
	switch {
	case corresponding > 1:
		return nil, fieldError("authors", "exactly one corresponding author is required")
	case corresponding == 0:
		for i := range authors {
			if authors[i].UserID == actor.UserID {
				authors[i].IsCorresponding = true
			}
		}
	}
	for i := range authors {
		authors[i].Order = i + 1
	}
	return authors, nil
}

// storeFile validates and uploads a PDF. Upload failures abort the request
// before any record is written.
func (s *ManuscriptService) storeFile(ctx context.Context, folder, field string, file Upload) (models.FileRef, error) {
	info, err := utils.InspectPDF(file.Data)
	if err != nil {
		return models.FileRef{}, fieldError(field, err.Error())
	}
	obj, err := s.Files.Put(ctx, folder, file.Filename, info.MimeType, file.Data)
	if err != nil {
		s.Log.Error("file upload failed", zap.String("folder", folder), zap.Error(err))
		return models.FileRef{}, Upstream("file storage is unavailable", err)
	}
	return models.FileRef{
		StorageID:    obj.Key,
		URL:          obj.URL,
		OriginalName: file.Filename,
		MimeType:     info.MimeType,
		Size:         info.Size,
		Pages:        info.Pages,
		Checksum:     info.Checksum,
	}, nil
}

// SubmitRevision opens the next review round with a new file.
func (s *ManuscriptService) SubmitRevision(ctx context.Context, actor *models.User, id int, notes string, file Upload) (*models.Manuscript, error) {
	if err := RequireRole(actor, models.RoleAuthor); err != nil {
		observeAction(ActionSubmitRevision, err)
		return nil, err
	}
	current, err := s.loadManuscript(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsAuthor(actor.UserID) {
		return nil, Forbidden("only the authors of this manuscript can submit a revision")
	}
	if _, err := NextStage(ActionSubmitRevision, current.Stage); err != nil {
		observeAction(ActionSubmitRevision, err)
		return nil, err
	}
	ref, err := s.storeFile(ctx, models.FolderRevisions, "revisionFile", file)
	if err != nil {
		return nil, err
	}
	notes = utils.SanitizeInput(notes)

	return s.mutateManuscript(ctx, id, ActionSubmitRevision, func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		to, err := NextStage(ActionSubmitRevision, m.Stage)
		if err != nil {
			return err
		}
		m.CurrentRound++
		rev := &models.ManuscriptRevision{
			ManuscriptID: m.ManuscriptID,
			Round:        m.CurrentRound,
			SubmittedAt:  s.Now(),
			Notes:        notes,
			File:         ref,
		}
		if err := tx.Manuscripts().AddRevision(ctx, rev); err != nil {
			return storeErr(err, "revision")
		}
		m.Revisions = append(m.Revisions, *rev)
		m.File = ref
		if err := s.moveStage(ctx, tx, m, to, ActionSubmitRevision, actor.UserID, notes); err != nil {
			return err
		}
		data := manuscriptData(m)
		out.add(notify.New(notify.RevisionSubmitted, data, s.editorRecipients(ctx, tx, m)...))
		out.add(notify.New(notify.RevisionSubmitted, manuscriptData(m), s.authorRecipients(ctx, tx, m)...))
		return nil
	})
}

// Get returns a manuscript to its authors, editors and assigned reviewers.
// Reviewers get the blinded view.
func (s *ManuscriptService) Get(ctx context.Context, actor *models.User, id int) (*models.Manuscript, error) {
	m, err := s.loadManuscript(ctx, id)
	if err != nil {
		return nil, err
	}
	if CanViewManuscript(actor, m) {
		return m, nil
	}
	if s.isAssignedReviewer(ctx, actor, m.ManuscriptID) {
		return Blind(m), nil
	}
	if actor == nil {
		return nil, Unauthenticated()
	}
	return nil, Forbidden("")
}

func (s *ManuscriptService) isAssignedReviewer(ctx context.Context, actor *models.User, manuscriptID int) bool {
	if !HasCapability(actor, models.RoleReviewer) {
		return false
	}
	rows, err := s.Store.Assignments().List(ctx, repository.AssignmentFilter{
		ManuscriptID: manuscriptID,
		ReviewerID:   actor.UserID,
		Statuses:     []string{models.AssignmentPending, models.AssignmentAccepted, models.AssignmentCompleted},
	})
	return err == nil && len(rows) > 0
}

// Blind hides everything that identifies the authors or concerns payment.
func Blind(m *models.Manuscript) *models.Manuscript {
	c := *m
	c.Authors = nil
	c.SubmittedBy = 0
	c.CorrespondingAuthorID = 0
	c.Payments = nil
	c.Charge = models.PublicationCharge{}
	c.Editors = nil
	return &c
}

func (s *ManuscriptService) ListMine(ctx context.Context, actor *models.User, page, limit int) ([]models.Manuscript, int64, error) {
	if err := RequireRole(actor, models.RoleAuthor); err != nil {
		return nil, 0, err
	}
	rows, total, err := s.Store.Manuscripts().List(ctx, repository.ManuscriptFilter{AuthorID: actor.UserID, Page: page, Limit: limit})
	if err != nil {
		return nil, 0, storeErr(err, "manuscript")
	}
	return rows, total, nil
}

// File returns the current file of a manuscript the actor can see.
func (s *ManuscriptService) File(ctx context.Context, actor *models.User, id int) (models.FileRef, error) {
	m, err := s.Get(ctx, actor, id)
	if err != nil {
		return models.FileRef{}, err
	}
	return m.File, nil
}

// PublicFile returns the file of an accepted or published manuscript.
func (s *ManuscriptService) PublicFile(ctx context.Context, id int) (models.FileRef, error) {
	m, err := s.loadManuscript(ctx, id)
	if err != nil {
		return models.FileRef{}, err
	}
	if st := m.Stage.Status(); st != models.StatusAccepted && st != models.StatusPublished {
		return models.FileRef{}, NotFound("manuscript")
	}
	return m.File, nil
}

// Decide records an editorial decision. Accepting moves straight to
// PAYMENT_PENDING when publication charges are configured.
func (s *ManuscriptService) Decide(ctx context.Context, actor *models.User, id int, in DecisionInput) (*models.Manuscript, error) {
	raw, ok := utils.CanonicalDecision(in.Decision)
	decision := Decision(raw)
	if !ok || !decision.Valid() {
		return nil, fieldError("decision", "must be one of: accept, reject, minor_revisions, major_revisions")
	}
	if err := RequireRole(actor, models.RoleEditor); err != nil {
		observeAction(decision.Action(), err)
		return nil, err
	}
	comments := utils.SanitizeInput(in.Comments)

	return s.mutateManuscript(ctx, id, decision.Action(), func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		if !IsManuscriptEditor(actor, m) {
			return Forbidden("you are not an editor of this manuscript")
		}
		to, err := NextStage(decision.Action(), m.Stage)
		if err != nil {
			return err
		}
		now := s.Now()
		charged := false
		if decision == DecisionAccept || decision == DecisionReject {
			m.DecidedAt = &now
		}
		if decision == DecisionAccept && s.Charges.Enabled() && !m.Charge.Paid {
			m.Charge = s.Charges.Quote(m.File.Pages)
			m.Charge.RequestedAt = &now
			to = models.StagePaymentPending
			charged = true
		}
		reason := string(decision)
		if comments != "" {
			reason += ": " + comments
		}
		if err := s.moveStage(ctx, tx, m, to, decision.Action(), actor.UserID, reason); err != nil {
			return err
		}

		authors := s.authorRecipients(ctx, tx, m)
		out.add(notify.New(notify.DecisionRecorded, withData(manuscriptData(m),
			"decision", strings.ReplaceAll(string(decision), "_", " "),
			"comments", comments), authors...))
		if charged {
			out.add(notify.New(notify.PaymentRequested, chargeData(m), authors...))
		}
		return nil
	})
}

// RequestPayment sets the publication charge of an accepted manuscript. An
// explicit amount overrides the configured fees.
func (s *ManuscriptService) RequestPayment(ctx context.Context, actor *models.User, id int, in PaymentRequestInput) (*models.Manuscript, error) {
	if err := RequireRole(actor, models.RoleEditorInChief); err != nil {
		observeAction(ActionRequestPayment, err)
		return nil, err
	}
	if fields := utils.ValidateStruct(in); fields != nil {
		return nil, ValidationError(fields)
	}
	if in.Amount == nil && !s.Charges.Enabled() {
		return nil, fieldError("amount", "is required when publication charges are not configured")
	}

	return s.mutateManuscript(ctx, id, ActionRequestPayment, func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		to, err := NextStage(ActionRequestPayment, m.Stage)
		if err != nil {
			return err
		}
		if m.Charge.Paid {
			return InvalidState("publication charge has already been paid")
		}
		now := s.Now()
		charge := s.Charges.Quote(m.File.Pages)
		if in.Amount != nil {
			charge = ChargePolicy{BaseFee: *in.Amount, Currency: s.Charges.Currency}.Quote(0)
		}
		if in.Currency != "" {
			charge.Currency = strings.ToUpper(in.Currency)
		}
		charge.RequestedAt = &now
		m.Charge = charge
		// A new charge can be covered by an earlier successful payment.
		settleCharge(m, now)
		if err := s.moveStage(ctx, tx, m, to, ActionRequestPayment, actor.UserID, ""); err != nil {
			return err
		}
		out.add(notify.New(notify.PaymentRequested, chargeData(m), s.authorRecipients(ctx, tx, m)...))
		return nil
	})
}

func chargeData(m *models.Manuscript) map[string]string {
	return withData(manuscriptData(m),
		"amount", fmt.Sprintf("%.2f", m.Charge.TotalAmount),
		"currency", m.Charge.Currency)
}

// Publish requires a verified payment covering the charge.
func (s *ManuscriptService) Publish(ctx context.Context, actor *models.User, id int) (*models.Manuscript, error) {
	if err := RequireRole(actor, models.RoleEditorInChief); err != nil {
		observeAction(ActionPublish, err)
		return nil, err
	}
	return s.mutateManuscript(ctx, id, ActionPublish, func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		to, err := NextStage(ActionPublish, m.Stage)
		if err != nil {
			return err
		}
		if !m.Charge.Requested() || !LedgerPaid(m.Payments, m.Charge.TotalAmount) {
			return InvalidState("payment has not been verified for this manuscript")
		}
		now := s.Now()
		settleCharge(m, now)
		if m.PublishedAt == nil {
			m.PublishedAt = &now
		}
		if err := s.moveStage(ctx, tx, m, to, ActionPublish, actor.UserID, ""); err != nil {
			return err
		}
		out.add(notify.New(notify.ManuscriptPublished, manuscriptData(m), s.authorRecipients(ctx, tx, m)...))
		return nil
	})
}

// SetSelected toggles the curation flag. It is independent of the stage.
func (s *ManuscriptService) SetSelected(ctx context.Context, actor *models.User, id int, selected bool) (*models.Manuscript, error) {
	action := Action("select")
	if !selected {
		action = "unselect"
	}
	if err := RequireRole(actor, models.RoleEditorInChief); err != nil {
		return nil, err
	}
	return s.mutateManuscript(ctx, id, action, func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		if m.Selected == selected {
			return errNoChange
		}
		m.Selected = selected
		stage := m.Stage
		if err := s.recordHistory(ctx, tx, m, &stage, action, actor.UserID, ""); err != nil {
			return err
		}
		selection := "is now featured among the journal's selected articles"
		if !selected {
			selection = "is no longer featured among the journal's selected articles"
		}
		out.add(notify.New(notify.SelectionChanged, withData(manuscriptData(m), "selection", selection),
			s.authorRecipients(ctx, tx, m)...))
		return nil
	})
}

// SetStatus maps a coarse status onto the action that produces it.
func (s *ManuscriptService) SetStatus(ctx context.Context, actor *models.User, id int, in StatusInput) (*models.Manuscript, error) {
	status, ok := utils.CanonicalStatus(in.Status)
	if !ok {
		return nil, fieldError("status", "unknown status")
	}
	switch status {
	case models.StatusRevisionsRequired:
		decision := string(DecisionMajorRevisions)
		if d, ok := utils.CanonicalDecision(in.Decision); ok && Decision(d).Action() == ActionRequestRevisions {
			decision = d
		}
		return s.Decide(ctx, actor, id, DecisionInput{Decision: decision, Comments: in.Comments})
	case models.StatusAccepted:
		return s.Decide(ctx, actor, id, DecisionInput{Decision: string(DecisionAccept), Comments: in.Comments})
	case models.StatusRejected:
		return s.Decide(ctx, actor, id, DecisionInput{Decision: string(DecisionReject), Comments: in.Comments})
	case models.StatusPublished:
		return s.Publish(ctx, actor, id)
	case models.StatusSelected:
		selected := true
		if in.Selected != nil {
			selected = *in.Selected
		}
		return s.SetSelected(ctx, actor, id, selected)
	}
	return nil, fieldError("status", fmt.Sprintf("%s cannot be set directly", status))
}

// AssignEditor makes an editor responsible for a manuscript.
func (s *ManuscriptService) AssignEditor(ctx context.Context, actor *models.User, id, editorID int) (*models.Manuscript, error) {
	if err := RequireRole(actor, models.RoleEditorInChief); err != nil {
		return nil, err
	}
	editor, err := s.Store.Users().Get(ctx, editorID)
	if err != nil {
		return nil, fieldError("editorId", "unknown user")
	}
	if !HasCapability(editor, models.RoleEditor) {
		return nil, fieldError("editorId", "user does not hold the editor role")
	}
	return s.mutateManuscript(ctx, id, "assign_editor", func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error {
		if m.IsAuthor(editorID) {
			return fieldError("editorId", "authors cannot edit their own manuscript")
		}
		if m.HasEditor(editorID) {
			return Conflict("editor is already assigned to this manuscript", nil)
		}
		e := &models.ManuscriptEditor{
			ManuscriptID: m.ManuscriptID,
			EditorID:     editorID,
			AssignedBy:   actor.UserID,
			AssignedAt:   s.Now(),
		}
		if err := tx.Manuscripts().AddEditor(ctx, e); err != nil {
			return storeErr(err, "editor assignment")
		}
		m.Editors = append(m.Editors, *e)
		out.add(notify.New(notify.EditorAssigned, withData(manuscriptData(m), "actor", actor.DisplayName()), recipientOf(editor)))
		return nil
	})
}

// PendingFilter narrows the editorial queue.
type PendingFilter struct {
	Stages []models.Stage
	Domain string
	Search string
	Page   int
	Limit  int
}

var pendingStages = []models.Stage{
	models.StageSubmitted,
	models.StageUnderReview,
	models.StageReviewInProgress,
	models.StageReviewAccepted,
	models.StageRevisionsRequired,
	models.StageEditorAccepted,
	models.StagePaymentPending,
}

// ListPending returns manuscripts awaiting editorial work. Editors who are
// not editor-in-chief only see manuscripts assigned to them.
func (s *ManuscriptService) ListPending(ctx context.Context, actor *models.User, f PendingFilter) ([]models.Manuscript, int64, error) {
	if err := RequireRole(actor, models.RoleEditor); err != nil {
		return nil, 0, err
	}
	filter := repository.ManuscriptFilter{
		Stages: f.Stages,
		Domain: f.Domain,
		Search: f.Search,
		Page:   f.Page,
		Limit:  f.Limit,
	}
	if len(filter.Stages) == 0 {
		filter.Stages = pendingStages
	}
	if !actor.Roles.Has(models.RoleEditorInChief) {
		filter.EditorID = actor.UserID
	}
	rows, total, err := s.Store.Manuscripts().List(ctx, filter)
	if err != nil {
		return nil, 0, storeErr(err, "manuscript")
	}
	return rows, total, nil
}

func (s *ManuscriptService) History(ctx context.Context, actor *models.User, id int) ([]models.ManuscriptStatusHistory, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	rows, err := s.Store.Manuscripts().History(ctx, id)
	if err != nil {
		return nil, storeErr(err, "status history")
	}
	return rows, nil
}
