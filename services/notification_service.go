package services

import (
	"context"

	"journal-api/models"
)

type NotificationList struct {
	Items  []models.Notification `json:"notifications"`
	Unread int64                 `json:"unreadCount"`
}

type NotificationService struct {
	Deps
}

func NewNotificationService(deps Deps) *NotificationService {
	return &NotificationService{Deps: deps.withDefaults()}
}

func (s *NotificationService) List(ctx context.Context, actor *models.User, unreadOnly bool, limit int) (*NotificationList, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.Store.Notifications().List(ctx, actor.UserID, unreadOnly, limit)
	if err != nil {
		return nil, storeErr(err, "notification")
	}
	unread, err := s.Store.Notifications().CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, storeErr(err, "notification")
	}
	return &NotificationList{Items: rows, Unread: unread}, nil
}

// MarkRead only touches the caller's own notifications; anything else is
// reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.User, id int) error {
	if err := requireActive(actor); err != nil {
		return err
	}
	return storeErr(s.Store.Notifications().MarkRead(ctx, actor.UserID, id), "notification")
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor *models.User) (int64, error) {
	if err := requireActive(actor); err != nil {
		return 0, err
	}
	n, err := s.Store.Notifications().MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, storeErr(err, "notification")
	}
	return n, nil
}
