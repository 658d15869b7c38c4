package services

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal-api/models"
	"journal-api/notify"
)

func (f *fixture) reminderJobAt(now time.Time, locker Locker) *ReminderJob {
	deps := f.deps
	deps.Now = func() time.Time { return now }
	deps.Locker = locker
	return NewReminderJob(deps, 24*time.Hour)
}

func TestReminderJobRemindsOncePerInterval(t *testing.T) {
	f := newFixture(t)
	m := f.submit()
	open := f.assign(m, f.reviewer)
	declined := f.assign(m, f.second)
	_, err := f.reviews.DeclineAssignment(f.ctx, f.second, declined.AssignmentID, "")
	require.NoError(t, err)
	f.events.Reset()

	later := testNow.Add(20 * 24 * time.Hour)
	job := f.reminderJobAt(later, NewLocalLocker())

	summary, err := job.Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Overdue)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, []string{notify.ReviewReminder}, f.events.Keys())
	ev := f.events.Events()[0]
	require.Len(t, ev.Recipients, 1)
	assert.Equal(t, f.reviewer.UserID, ev.Recipients[0].UserID)

	a, err := f.store.Assignments().Get(f.ctx, open.AssignmentID)
	require.NoError(t, err)
	require.NotNil(t, a.LastReminderAt)
	assert.True(t, a.LastReminderAt.Equal(later))

	summary, err = job.Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 1, summary.Skipped)

	summary, err = f.reminderJobAt(later.Add(25*time.Hour), NewLocalLocker()).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
}

func TestReminderJobIgnoresClosedRounds(t *testing.T) {
	f := newFixture(t)
	m := f.submit()
	f.assign(m, f.reviewer)
	_, err := f.manuscripts.Decide(f.ctx, f.chief, m.ManuscriptID, DecisionInput{Decision: "reject"})
	require.NoError(t, err)
	f.events.Reset()

	summary, err := f.reminderJobAt(testNow.Add(30*24*time.Hour), NewLocalLocker()).Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Overdue)
	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, f.events.Keys())
}

func TestReminderJobWaitsForManuscriptLock(t *testing.T) {
	f := newFixture(t)
	m := f.submit()
	a := f.assign(m, f.reviewer)
	f.accept(a, f.reviewer)
	f.events.Reset()

	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), manuscriptLockKey(m.ManuscriptID))
	require.NoError(t, err)

	type result struct {
		summary *ReminderSummary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := f.reminderJobAt(testNow.Add(20*24*time.Hour), locker).Run(f.ctx)
		done <- result{summary, err}
	}()

	select {
	case <-done:
		t.Fatal("reminder ran while the manuscript was locked")
	case <-time.After(50 * time.Millisecond):
	}

	// the review lands while the reminder waits
	current, err := f.store.Assignments().Get(f.ctx, a.AssignmentID)
	require.NoError(t, err)
	current.Status = models.AssignmentCompleted
	require.NoError(t, f.store.Assignments().Update(f.ctx, current))
	unlock()

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 0, res.summary.Sent)
	assert.Equal(t, 1, res.summary.Skipped)
	assert.Empty(t, f.events.Keys())

	stored, err := f.store.Assignments().Get(f.ctx, a.AssignmentID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCompleted, stored.Status)
	assert.Nil(t, stored.LastReminderAt)
}

func TestReminderJobRefusesOverlappingRuns(t *testing.T) {
	f := newFixture(t)
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), reminderLockKey)
	require.NoError(t, err)
	defer unlock()

	_, err = f.reminderJobAt(testNow, locker).Run(f.ctx)
	assert.ErrorIs(t, err, ErrRemindersAlreadyRunning)
}

func TestReminderJobSchedule(t *testing.T) {
	f := newFixture(t)
	c := cron.New()
	_, err := f.reminderJobAt(testNow, NewLocalLocker()).Schedule(c, "0 7 * * *")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = f.reminderJobAt(testNow, NewLocalLocker()).Schedule(c, "every tuesday")
	assert.Error(t, err)
}

func TestLocalLockerSerialisesKeys(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "manuscript:1")
	require.NoError(t, err)

	other, err := l.Lock(context.Background(), "manuscript:2")
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "manuscript:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	again, err := l.Lock(context.Background(), "manuscript:1")
	require.NoError(t, err)
	again()
}
