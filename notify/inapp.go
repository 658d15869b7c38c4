package notify

import (
	"context"

	"github.com/pkg/errors"

	"journal-api/models"
	"journal-api/repository"
)

// InAppSink stores one notification row per recipient account.
type InAppSink struct {
	repo repository.NotificationRepository
}

func NewInAppSink(repo repository.NotificationRepository) *InAppSink {
	return &InAppSink{repo: repo}
}

func (s *InAppSink) Name() string { return "inapp" }

func (s *InAppSink) Deliver(ctx context.Context, ev Event) error {
	var related *int
	if ev.ManuscriptID > 0 {
		id := ev.ManuscriptID
		related = &id
	}
	seen := make(map[int]bool, len(ev.Recipients))
	for _, r := range ev.Recipients {
		if r.UserID <= 0 || seen[r.UserID] {
			continue
		}
		seen[r.UserID] = true
		n := &models.Notification{
			UserID:              r.UserID,
			Title:               ev.Subject,
			Message:             ev.Message,
			Type:                ev.Level,
			EventKey:            ev.Key,
			RelatedManuscriptID: related,
			CreatedAt:           ev.OccurredAt,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			return errors.Wrapf(err, "store notification for user %d", r.UserID)
		}
	}
	return nil
}
