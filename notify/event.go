// Package notify delivers workflow events to users. Services emit events after
// a transition has committed; delivery runs on background workers and never
// feeds errors back into the request that caused it.
package notify

import (
	"strconv"
	"time"
)

// Event keys.
const (
	ManuscriptSubmitted = "manuscript.submitted"
	EditorAssigned      = "manuscript.editor_assigned"
	ReviewerAssigned    = "review.assigned"
	AssignmentAccepted  = "review.assignment_accepted"
	AssignmentDeclined  = "review.assignment_declined"
	ReviewSubmitted     = "review.submitted"
	RoundCompleted      = "review.round_completed"
	ReviewReminder      = "review.reminder"
	DecisionRecorded    = "manuscript.decision"
	RevisionSubmitted   = "manuscript.revision_submitted"
	PaymentRequested    = "payment.requested"
	PaymentConfirmed    = "payment.confirmed"
	ManuscriptPublished = "manuscript.published"
	SelectionChanged    = "manuscript.selection_changed"
	QueryReceived       = "query.received"
	QueryAnswered       = "query.answered"
)

// Levels mirror the in-app notification types.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

type Recipient struct {
	UserID int
	Email  string
	Name   string
}

type Event struct {
	Key          string
	ManuscriptID int
	Subject      string
	Message      string
	Level        string
	Recipients   []Recipient
	Data         map[string]string
	OccurredAt   time.Time
}

// New renders the template registered for key with data and addresses the
// result to recipients.
func New(key string, data map[string]string, recipients ...Recipient) Event {
	subject, message, level := render(key, data)
	ev := Event{
		Key:        key,
		Subject:    subject,
		Message:    message,
		Level:      level,
		Recipients: recipients,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if raw, ok := data["manuscriptId"]; ok {
		if id, err := strconv.Atoi(raw); err == nil {
			ev.ManuscriptID = id
		}
	}
	return ev
}

// Emitter accepts events for asynchronous delivery.
type Emitter interface {
	Emit(ev Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(Event) {}
