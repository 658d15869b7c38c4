package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"journal-api/models"
)

type gormManuscripts struct{ db *gorm.DB }

func (r gormManuscripts) Create(ctx context.Context, m *models.Manuscript) error {
	m.Version = 1
	return translate(r.db.WithContext(ctx).Omit("Revisions", "Editors", "Payments").
		Create(m).Error, "create manuscript")
}

func (r gormManuscripts) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Authors", func(db *gorm.DB) *gorm.DB { return db.Order("author_order ASC") }).
		Preload("Authors.User").
		Preload("Revisions", func(db *gorm.DB) *gorm.DB { return db.Order("round ASC") }).
		Preload("Editors", func(db *gorm.DB) *gorm.DB { return db.Order("assigned_at ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, record_id ASC") })
}

func (r gormManuscripts) Get(ctx context.Context, id int) (*models.Manuscript, error) {
	var m models.Manuscript
	if err := r.preloaded(ctx).Where("manuscript_id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err, "get manuscript")
	}
	return &m, nil
}

func (r gormManuscripts) Update(ctx context.Context, m *models.Manuscript) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Manuscript{}).
		Where("manuscript_id = ? AND version = ?", m.ManuscriptID, m.Version).
		Updates(map[string]interface{}{
			"title":                    m.Title,
			"abstract":                 m.Abstract,
			"keywords":                 m.Keywords,
			"domain":                   m.Domain,
			"corresponding_author_id":  m.CorrespondingAuthorID,
			"file_storage_id":          m.File.StorageID,
			"file_url":                 m.File.URL,
			"file_original_name":       m.File.OriginalName,
			"file_mime_type":           m.File.MimeType,
			"file_size":                m.File.Size,
			"file_pages":               m.File.Pages,
			"file_checksum":            m.File.Checksum,
			"workflow_status":          m.Stage,
			"status":                   m.Stage.Status(),
			"selected":                 m.Selected,
			"current_round":            m.CurrentRound,
			"charge_base_amount":       m.Charge.BaseAmount,
			"charge_extra_page_amount": m.Charge.ExtraPageAmount,
			"charge_total_amount":      m.Charge.TotalAmount,
			"charge_currency":          m.Charge.Currency,
			"charge_paid":              m.Charge.Paid,
			"charge_requested_at":      m.Charge.RequestedAt,
			"charge_paid_at":           m.Charge.PaidAt,
			"decided_at":               m.DecidedAt,
			"published_at":             m.PublishedAt,
			"version":                  m.Version + 1,
			"updated_at":               now,
		})
	if res.Error != nil {
		return translate(res.Error, "update manuscript")
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	m.Version++
	m.Status = m.Stage.Status()
	m.UpdatedAt = now
	return nil
}

func (r gormManuscripts) AddRevision(ctx context.Context, rev *models.ManuscriptRevision) error {
	return translate(r.db.WithContext(ctx).Create(rev).Error, "add revision")
}

func (r gormManuscripts) AddEditor(ctx context.Context, e *models.ManuscriptEditor) error {
	return translate(r.db.WithContext(ctx).Create(e).Error, "add editor")
}

func (r gormManuscripts) AddPayment(ctx context.Context, p *models.PaymentRecord) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "add payment")
}

func (r gormManuscripts) UpdatePayment(ctx context.Context, p *models.PaymentRecord) error {
	res := r.db.WithContext(ctx).Model(&models.PaymentRecord{}).
		Where("record_id = ?", p.RecordID).
		Updates(map[string]interface{}{
			"amount":     p.Amount,
			"currency":   p.Currency,
			"status":     p.Status,
			"metadata":   p.Metadata,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error, "update payment")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormManuscripts) AddHistory(ctx context.Context, h *models.ManuscriptStatusHistory) error {
	return translate(r.db.WithContext(ctx).Create(h).Error, "add status history")
}

func (r gormManuscripts) History(ctx context.Context, manuscriptID int) ([]models.ManuscriptStatusHistory, error) {
	var rows []models.ManuscriptStatusHistory
	if err := r.db.WithContext(ctx).Where("manuscript_id = ?", manuscriptID).
		Order("created_at ASC, history_id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "list status history")
	}
	return rows, nil
}

func (r gormManuscripts) filtered(ctx context.Context, f ManuscriptFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Manuscript{})
	if f.AuthorID > 0 {
		authored := r.db.Model(&models.ManuscriptAuthor{}).Select("manuscript_id").Where("user_id = ?", f.AuthorID)
		query = query.Where("submitted_by = ? OR manuscript_id IN (?)", f.AuthorID, authored)
	}
	if f.EditorID > 0 {
		edited := r.db.Model(&models.ManuscriptEditor{}).Select("manuscript_id").Where("editor_id = ?", f.EditorID)
		query = query.Where("manuscript_id IN (?)", edited)
	}
	if len(f.Stages) > 0 {
		query = query.Where("workflow_status IN ?", f.Stages)
	}
	if f.Selected != nil {
		query = query.Where("selected = ?", *f.Selected)
	}
	if strings.TrimSpace(f.Domain) != "" {
		query = query.Where("domain = ?", strings.TrimSpace(f.Domain))
	}
	if strings.TrimSpace(f.Search) != "" {
		pattern := likePattern(f.Search)
		query = query.Where("title LIKE ? OR abstract LIKE ? OR keywords LIKE ?", pattern, pattern, pattern)
	}
	if f.SubmittedBefore != nil {
		query = query.Where("submitted_at < ?", *f.SubmittedBefore)
	}
	return query
}

func (f ManuscriptFilter) order() string {
	if f.OldestFirst {
		return "submitted_at ASC, manuscript_id ASC"
	}
	return "submitted_at DESC, manuscript_id DESC"
}

func (r gormManuscripts) List(ctx context.Context, f ManuscriptFilter) ([]models.Manuscript, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count manuscripts")
	}

	page, limit := normalizePage(f.Page, f.Limit)
	var ids []int
	if err := r.filtered(ctx, f).Order(f.order()).
		Offset((page-1)*limit).Limit(limit).Pluck("manuscript_id", &ids).Error; err != nil {
		return nil, 0, translate(err, "list manuscripts")
	}
	if len(ids) == 0 {
		return []models.Manuscript{}, total, nil
	}

	var rows []models.Manuscript
	if err := r.preloaded(ctx).Where("manuscript_id IN ?", ids).
		Order(f.order()).Find(&rows).Error; err != nil {
		return nil, 0, translate(err, "load manuscripts")
	}
	return rows, total, nil
}

func (r gormManuscripts) CountByStage(ctx context.Context) (map[models.Stage]int64, error) {
	var rows []struct {
		Stage models.Stage `gorm:"column:workflow_status"`
		Count int64        `gorm:"column:count"`
	}
	if err := r.db.WithContext(ctx).Model(&models.Manuscript{}).
		Select("workflow_status, COUNT(*) AS count").
		Group("workflow_status").Scan(&rows).Error; err != nil {
		return nil, translate(err, "count manuscripts by stage")
	}
	out := make(map[models.Stage]int64, len(rows))
	for _, row := range rows {
		out[row.Stage] = row.Count
	}
	return out, nil
}

func (r gormManuscripts) ListPayments(ctx context.Context, f PaymentFilter) ([]models.PaymentRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentRecord{})
	if f.ManuscriptID > 0 {
		query = query.Where("manuscript_id = ?", f.ManuscriptID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Since != nil {
		query = query.Where("created_at >= ?", *f.Since)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []models.PaymentRecord
	if err := query.Order("created_at DESC, record_id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, translate(err, "list payments")
	}
	return rows, nil
}

func (r gormManuscripts) PaymentTotals(ctx context.Context, status string) (map[string]float64, error) {
	var rows []struct {
		Currency string  `gorm:"column:currency"`
		Total    float64 `gorm:"column:total"`
	}
	if err := r.db.WithContext(ctx).Model(&models.PaymentRecord{}).
		Select("currency, COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", status).
		Group("currency").Scan(&rows).Error; err != nil {
		return nil, translate(err, "sum payments")
	}
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.Currency] = row.Total
	}
	return out, nil
}
