package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal-api/models"
)

func TestGormManuscriptUpdateRejectsStaleVersion(t *testing.T) {
	steps := []*queryStep{{
		kind:    kindExec,
		pattern: regexp.MustCompile("UPDATE `manuscripts` SET .*WHERE \\(?manuscript_id = \\? AND version = \\?"),
		anyArgs: true,
		result:  scriptedResult{rowsAffected: 0},
	}}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	store := NewGormStore(db)
	m := &models.Manuscript{ManuscriptID: 7, Version: 3, CurrentRound: 1}
	m.SetStage(models.StageUnderReview)

	err := store.Manuscripts().Update(context.Background(), m)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 3, m.Version, "version must not move on a lost update")
	require.NoError(t, state.verifyComplete())
}

func TestGormManuscriptUpdateBumpsVersion(t *testing.T) {
	steps := []*queryStep{{
		kind:    kindExec,
		pattern: regexp.MustCompile("UPDATE `manuscripts` SET"),
		anyArgs: true,
		result:  scriptedResult{rowsAffected: 1},
	}}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	store := NewGormStore(db)
	m := &models.Manuscript{ManuscriptID: 7, Version: 3}
	m.SetStage(models.StageReviewAccepted)

	require.NoError(t, store.Manuscripts().Update(context.Background(), m))
	assert.Equal(t, 4, m.Version)
	assert.Equal(t, models.StatusUnderReview, m.Status)
	require.NoError(t, state.verifyComplete())
}

func TestGormUserGetMissingIsNotFound(t *testing.T) {
	steps := []*queryStep{{
		kind:    kindQuery,
		pattern: regexp.MustCompile("SELECT \\* FROM `users` WHERE user_id = \\?"),
		anyArgs: true,
		columns: []string{"user_id", "name", "email"},
		rows:    [][]driver.Value{},
	}}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	_, err := NewGormStore(db).Users().Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, state.verifyComplete())
}

func TestGormNotificationMarkReadForeignRowIsNotFound(t *testing.T) {
	steps := []*queryStep{{
		kind:    kindExec,
		pattern: regexp.MustCompile("UPDATE `notifications` SET .*notification_id = \\? AND user_id = \\?"),
		anyArgs: true,
		result:  scriptedResult{rowsAffected: 0},
	}}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	err := NewGormStore(db).Notifications().MarkRead(context.Background(), 5, 99)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, state.verifyComplete())
}

func TestGormQueryUpdateWritesReplyColumns(t *testing.T) {
	steps := []*queryStep{{
		kind:    kindExec,
		pattern: regexp.MustCompile("UPDATE `queries` SET .*`reply`=\\?"),
		anyArgs: true,
		result:  scriptedResult{rowsAffected: 1},
	}}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	q := &models.Query{QueryID: 3, Status: models.QueryAnswered}
	require.NoError(t, NewGormStore(db).Queries().Update(context.Background(), q))
	require.NoError(t, state.verifyComplete())
}

func TestGormTouchReminderWritesOnlyReminderColumn(t *testing.T) {
	steps := []*queryStep{{
		kind:    kindExec,
		pattern: regexp.MustCompile("UPDATE `review_assignments` SET `last_reminder_at`=\\? WHERE \\(?assignment_id = \\? AND status IN \\(\\?,\\?\\)"),
		anyArgs: true,
		result:  scriptedResult{rowsAffected: 0},
	}}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	err := NewGormStore(db).Assignments().TouchReminder(context.Background(), 12, time.Now())
	require.ErrorIs(t, err, ErrNotFound, "a completed assignment is left alone")
	require.NoError(t, state.verifyComplete())
}

func TestGormPaymentTotalsGroupsByCurrency(t *testing.T) {
	steps := []*queryStep{{
		kind:    kindQuery,
		pattern: regexp.MustCompile("SELECT currency, COALESCE\\(SUM\\(amount\\), 0\\) AS total FROM `manuscript_payments` WHERE status = \\? GROUP BY `?currency`?"),
		anyArgs: true,
		columns: []string{"currency", "total"},
		rows:    [][]driver.Value{{"USD", 600.0}, {"EUR", 12.5}},
	}}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	totals, err := NewGormStore(db).Manuscripts().PaymentTotals(context.Background(), models.PaymentSuccess)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"USD": 600, "EUR": 12.5}, totals)
	require.NoError(t, state.verifyComplete())
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, likePattern(" 50%_off "))
}
