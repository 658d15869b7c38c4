package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher is the part of *redis.Client the sink needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes every event as JSON so external consumers (a mailer
// service, a websocket gateway) can follow the workflow.
type RedisSink struct {
	rdb     Publisher
	channel string
}

func NewRedisSink(rdb Publisher, channel string) *RedisSink {
	if channel == "" {
		channel = "journal:events"
	}
	return &RedisSink{rdb: rdb, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

type wireEvent struct {
	Key          string            `json:"key"`
	ManuscriptID int               `json:"manuscriptId,omitempty"`
	Subject      string            `json:"subject"`
	Message      string            `json:"message"`
	Level        string            `json:"level"`
	RecipientIDs []int             `json:"recipientIds"`
	Data         map[string]string `json:"data,omitempty"`
	OccurredAt   time.Time         `json:"occurredAt"`
}

func (s *RedisSink) Deliver(ctx context.Context, ev Event) error {
	ids := make([]int, 0, len(ev.Recipients))
	for _, r := range ev.Recipients {
		if r.UserID > 0 {
			ids = append(ids, r.UserID)
		}
	}
	payload, err := json.Marshal(wireEvent{
		Key:          ev.Key,
		ManuscriptID: ev.ManuscriptID,
		Subject:      ev.Subject,
		Message:      ev.Message,
		Level:        ev.Level,
		RecipientIDs: ids,
		Data:         ev.Data,
		OccurredAt:   ev.OccurredAt,
	})
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.channel, payload).Err()
}
