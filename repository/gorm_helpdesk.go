package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"journal-api/models"
)

type gormQueries struct{ db *gorm.DB }

func (r gormQueries) Create(ctx context.Context, q *models.Query) error {
	return translate(r.db.WithContext(ctx).Create(q).Error, "create query")
}

func (r gormQueries) Get(ctx context.Context, id int) (*models.Query, error) {
	var q models.Query
	if err := r.db.WithContext(ctx).Where("query_id = ?", id).First(&q).Error; err != nil {
		return nil, translate(err, "get query")
	}
	return &q, nil
}

func (r gormQueries) Update(ctx context.Context, q *models.Query) error {
	res := r.db.WithContext(ctx).Model(&models.Query{}).
		Where("query_id = ?", q.QueryID).
		Updates(map[string]interface{}{
			"reply":      q.Reply,
			"replied_by": q.RepliedBy,
			"replied_at": q.RepliedAt,
			"status":     q.Status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error, "update query")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormQueries) List(ctx context.Context, f QueryFilter) ([]models.Query, error) {
	query := r.db.WithContext(ctx).Model(&models.Query{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	switch {
	case f.UserID > 0 && f.Email != "":
		query = query.Where("user_id = ? OR email = ?", f.UserID, strings.ToLower(f.Email))
	case f.UserID > 0:
		query = query.Where("user_id = ?", f.UserID)
	case f.Email != "":
		query = query.Where("email = ?", strings.ToLower(f.Email))
	}
	var rows []models.Query
	if err := query.Order("created_at DESC, query_id DESC").Find(&rows).Error; err != nil {
		return nil, translate(err, "list queries")
	}
	return rows, nil
}

type gormNotifications struct{ db *gorm.DB }

func (r gormNotifications) Create(ctx context.Context, n *models.Notification) error {
	return translate(r.db.WithContext(ctx).Create(n).Error, "create notification")
}

func (r gormNotifications) List(ctx context.Context, userID int, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var rows []models.Notification
	if err := query.Order("created_at DESC, notification_id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, translate(err, "list notifications")
	}
	return rows, nil
}

func (r gormNotifications) CountUnread(ctx context.Context, userID int) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&count).Error; err != nil {
		return 0, translate(err, "count notifications")
	}
	return count, nil
}

func (r gormNotifications) MarkRead(ctx context.Context, userID, id int) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("notification_id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return translate(res.Error, "mark notification read")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormNotifications) MarkAllRead(ctx context.Context, userID int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return 0, translate(res.Error, "mark notifications read")
	}
	return res.RowsAffected, nil
}
