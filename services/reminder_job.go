package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"journal-api/models"
	"journal-api/notify"
	"journal-api/repository"
)

var ErrRemindersAlreadyRunning = errors.New("review reminder run already in progress")

const reminderLockKey = "job:review-reminders"

type ReminderSummary struct {
	Overdue int `json:"overdue"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ReminderJob nudges reviewers whose assignment is past its due date. A
// reviewer hears about the same assignment at most once per Interval.
type ReminderJob struct {
	Deps
	Interval time.Duration
}

func NewReminderJob(deps Deps, interval time.Duration) *ReminderJob {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &ReminderJob{Deps: deps.withDefaults(), Interval: interval}
}

// reviewingStages are the stages in which an open assignment still matters.
var reviewingStages = map[models.Stage]bool{
	models.StageUnderReview:      true,
	models.StageReviewInProgress: true,
}

func (j *ReminderJob) Run(ctx context.Context) (*ReminderSummary, error) {
	lockCtx, cancel := context.WithTimeout(ctx, time.Second)
	unlock, err := j.Locker.Lock(lockCtx, reminderLockKey)
	cancel()
	if err != nil {
		return nil, ErrRemindersAlreadyRunning
	}
	defer unlock()

	now := j.Now()
	overdue, err := j.Store.Assignments().List(ctx, repository.AssignmentFilter{
		Statuses:  []string{models.AssignmentPending, models.AssignmentAccepted},
		DueBefore: &now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list overdue assignments")
	}

	summary := &ReminderSummary{Overdue: len(overdue)}
	for _, a := range overdue {
		if a.LastReminderAt != nil && now.Sub(*a.LastReminderAt) < j.Interval {
			summary.Skipped++
			continue
		}
		sent, err := j.remind(ctx, a.ManuscriptID, a.AssignmentID, now)
		switch {
		case err != nil:
			summary.Failed++
			j.Log.Warn("review reminder failed", zap.Int("assignment_id", a.AssignmentID), zap.Error(err))
		case sent:
			summary.Sent++
		default:
			summary.Skipped++
		}
	}
	remindersSentTotal.Add(float64(summary.Sent))
	return summary, nil
}

// remind holds the manuscript lock so a review submitted or declined
// concurrently is seen before the reminder is stamped.
func (j *ReminderJob) remind(ctx context.Context, manuscriptID, assignmentID int, now time.Time) (bool, error) {
	unlock, err := j.Locker.Lock(ctx, manuscriptLockKey(manuscriptID))
	if err != nil {
		return false, err
	}
	defer unlock()

	var out outbox
	err = j.Store.Transaction(ctx, func(tx repository.Store) error {
		a, err := tx.Assignments().Get(ctx, assignmentID)
		if err != nil {
			return err
		}
		if !a.Overdue(now) {
			return errNoChange
		}
		m, err := tx.Manuscripts().Get(ctx, a.ManuscriptID)
		if err != nil {
			return err
		}
		if a.Round != m.CurrentRound || !reviewingStages[m.Stage] {
			return errNoChange
		}
		if err := tx.Assignments().TouchReminder(ctx, a.AssignmentID, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errNoChange
			}
			return err
		}
		out.add(notify.New(notify.ReviewReminder,
			withData(manuscriptData(m), "dueDate", formatDate(a.DueDate)),
			j.recipientsByID(ctx, tx, a.ReviewerID)...))
		return nil
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	j.flush(&out)
	return len(out.events) > 0, nil
}

// Schedule registers the job on c. Runs that overlap are skipped.
func (j *ReminderJob) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		j.Log.Info("Running scheduled review reminders...")
		summary, err := j.Run(context.Background())
		if err != nil {
			j.Log.Error("Review reminder job failed", zap.Error(err))
			return
		}
		j.Log.Info("Review reminder job completed",
			zap.Int("overdue", summary.Overdue),
			zap.Int("sent", summary.Sent),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed))
	})
}
