package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"journal-api/models"
)

type gormAssignments struct{ db *gorm.DB }

func (r gormAssignments) Create(ctx context.Context, a *models.Assignment) error {
	return translate(r.db.WithContext(ctx).Omit("Manuscript", "Reviewer").Create(a).Error, "create assignment")
}

func (r gormAssignments) Get(ctx context.Context, id int) (*models.Assignment, error) {
	var a models.Assignment
	if err := r.db.WithContext(ctx).Preload("Reviewer").
		Where("assignment_id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err, "get assignment")
	}
	return &a, nil
}

func (r gormAssignments) Update(ctx context.Context, a *models.Assignment) error {
	res := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("assignment_id = ?", a.AssignmentID).
		Updates(map[string]interface{}{
			"status":           a.Status,
			"due_date":         a.DueDate,
			"decline_reason":   a.DeclineReason,
			"responded_at":     a.RespondedAt,
			"review_id":        a.ReviewID,
			"last_reminder_at": a.LastReminderAt,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error, "update assignment")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormAssignments) TouchReminder(ctx context.Context, id int, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("assignment_id = ? AND status IN ?", id, []string{models.AssignmentPending, models.AssignmentAccepted}).
		UpdateColumn("last_reminder_at", at)
	if res.Error != nil {
		return translate(res.Error, "touch assignment reminder")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormAssignments) List(ctx context.Context, f AssignmentFilter) ([]models.Assignment, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{}).Preload("Reviewer")
	if f.ManuscriptID > 0 {
		query = query.Where("manuscript_id = ?", f.ManuscriptID)
	}
	if f.ReviewerID > 0 {
		query = query.Where("reviewer_id = ?", f.ReviewerID)
	}
	if f.Round > 0 {
		query = query.Where("round = ?", f.Round)
	}
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if f.DueBefore != nil {
		query = query.Where("due_date < ?", *f.DueBefore)
	}
	var rows []models.Assignment
	if err := query.Order("created_at ASC, assignment_id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "list assignments")
	}
	return rows, nil
}

type gormReviews struct{ db *gorm.DB }

func (r gormReviews) Create(ctx context.Context, rev *models.Review) error {
	return translate(r.db.WithContext(ctx).Omit("Reviewer").Create(rev).Error, "create review")
}

func (r gormReviews) Get(ctx context.Context, id int) (*models.Review, error) {
	var rev models.Review
	if err := r.db.WithContext(ctx).Preload("Reviewer").
		Where("review_id = ?", id).First(&rev).Error; err != nil {
		return nil, translate(err, "get review")
	}
	return &rev, nil
}

func (r gormReviews) GetByRound(ctx context.Context, manuscriptID, reviewerID, round int) (*models.Review, error) {
	var rev models.Review
	if err := r.db.WithContext(ctx).
		Where("manuscript_id = ? AND reviewer_id = ? AND round = ?", manuscriptID, reviewerID, round).
		First(&rev).Error; err != nil {
		return nil, translate(err, "get review by round")
	}
	return &rev, nil
}

func (r gormReviews) Update(ctx context.Context, rev *models.Review) error {
	res := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("review_id = ?", rev.ReviewID).
		Updates(map[string]interface{}{
			"score_originality":     rev.Scores.Originality,
			"score_methodology":     rev.Scores.Methodology,
			"score_contribution":    rev.Scores.Contribution,
			"score_clarity":         rev.Scores.Clarity,
			"score_references":      rev.Scores.References,
			"overall_score":         rev.OverallScore,
			"recommendation":        rev.Recommendation,
			"comments_to_author":    rev.CommentsToAuthor,
			"comments_to_editor":    rev.CommentsToEditor,
			"confidential_comments": rev.ConfidentialComments,
			"status":                rev.Status,
			"submitted_at":          rev.SubmittedAt,
			"updated_at":            time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error, "update review")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormReviews) List(ctx context.Context, f ReviewFilter) ([]models.Review, error) {
	query := r.db.WithContext(ctx).Model(&models.Review{}).Preload("Reviewer")
	if f.ManuscriptID > 0 {
		query = query.Where("manuscript_id = ?", f.ManuscriptID)
	}
	if f.ReviewerID > 0 {
		query = query.Where("reviewer_id = ?", f.ReviewerID)
	}
	if f.Round > 0 {
		query = query.Where("round = ?", f.Round)
	}
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	var rows []models.Review
	if err := query.Order("round ASC, review_id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "list reviews")
	}
	return rows, nil
}
