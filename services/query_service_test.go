package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal-api/models"
	"journal-api/notify"
)

func TestQueryLifecycle(t *testing.T) {
	f := newFixture(t)

	anon, err := f.queries.Create(f.ctx, nil, QueryInput{
		Name:    "Visitor",
		Email:   " Visitor@Example.org ",
		Subject: "Scope",
		Message: "Do you accept survey papers?",
	})
	require.NoError(t, err)
	assert.Equal(t, "visitor@example.org", anon.Email)
	assert.Nil(t, anon.UserID)
	assert.Equal(t, models.QueryPending, anon.Status)
	assert.Equal(t, []string{notify.QueryReceived}, f.events.Keys())

	mine, err := f.queries.Create(f.ctx, f.author, QueryInput{Subject: "Fees", Message: "What are the charges?"})
	require.NoError(t, err)
	require.NotNil(t, mine.UserID)
	assert.Equal(t, f.author.Email, mine.Email)
	assert.Equal(t, f.author.Name, mine.Name)

	pending, err := f.queries.Pending(f.ctx, f.chief)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.queries.Pending(f.ctx, f.editor)
	requireKind(t, err, KindForbidden)

	answered, err := f.queries.Reply(f.ctx, f.chief, mine.QueryID, ReplyInput{Reply: "See the author guide."})
	require.NoError(t, err)
	assert.Equal(t, models.QueryAnswered, answered.Status)
	require.NotNil(t, answered.RepliedBy)
	assert.Equal(t, f.chief.UserID, *answered.RepliedBy)
	assert.Contains(t, f.events.Keys(), notify.QueryAnswered)

	_, err = f.queries.Reply(f.ctx, f.chief, mine.QueryID, ReplyInput{Reply: "Again."})
	requireKind(t, err, KindInvalidState)

	_, err = f.queries.Reply(f.ctx, f.chief, 9999, ReplyInput{Reply: "Hello"})
	requireKind(t, err, KindNotFound)

	own, err := f.queries.Mine(f.ctx, f.author)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.QueryID, own[0].QueryID)

	pending, err = f.queries.Pending(f.ctx, f.chief)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestQueryValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.queries.Create(f.ctx, nil, QueryInput{Name: "X", Email: "nope", Subject: "S", Message: "M"})
	requireKind(t, err, KindValidation)
	_, err = f.queries.Create(f.ctx, nil, QueryInput{Name: "X", Email: "x@example.org", Subject: "S"})
	requireKind(t, err, KindValidation)
	_, err = f.queries.Reply(f.ctx, f.chief, 1, ReplyInput{Reply: "  "})
	requireKind(t, err, KindValidation)
}

func TestCatalogListsPublicManuscripts(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalogService(f.store, time.Minute)
	f.submit()
	accepted := f.reviewed()
	_, err := f.manuscripts.Decide(f.ctx, f.chief, accepted.ManuscriptID, DecisionInput{Decision: "accept"})
	require.NoError(t, err)

	page, err := catalog.Accepted(f.ctx, CatalogQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	item := page.Items[0]
	assert.Equal(t, accepted.ManuscriptID, item.ID)
	assert.Equal(t, models.StatusAccepted, item.Status)
	require.Len(t, item.Authors, 1)
	assert.Equal(t, f.author.Name, item.Authors[0].Name)
	require.NotNil(t, item.Authors[0].OrcidID)

	published, err := catalog.Published(f.ctx, CatalogQuery{})
	require.NoError(t, err)
	assert.Zero(t, published.Total)

	_, err = catalog.PublishedByID(f.ctx, accepted.ManuscriptID)
	requireKind(t, err, KindNotFound)
}

func TestCatalogCacheIsDroppedByWorkflowEvents(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalogService(f.store, time.Hour)
	m := f.reviewed()

	page, err := catalog.Accepted(f.ctx, CatalogQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = f.manuscripts.Decide(f.ctx, f.chief, m.ManuscriptID, DecisionInput{Decision: "accept"})
	require.NoError(t, err)

	cached, err := catalog.Accepted(f.ctx, CatalogQuery{})
	require.NoError(t, err)
	assert.Zero(t, cached.Total, "served from cache until invalidated")

	for _, ev := range f.events.Events() {
		require.NoError(t, catalog.Deliver(context.Background(), ev))
	}
	fresh, err := catalog.Accepted(f.ctx, CatalogQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, fresh.Total)
	assert.Equal(t, "catalog", catalog.Name())
}

func TestSelectionChangeRefreshesCatalog(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalogService(f.store, time.Hour)
	m := f.accepted()
	featured := true

	page, err := catalog.Accepted(f.ctx, CatalogQuery{Selected: &featured})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	f.events.Reset()
	got, err := f.manuscripts.SetSelected(f.ctx, f.chief, m.ManuscriptID, true)
	require.NoError(t, err)
	assert.True(t, got.Selected)
	require.Equal(t, []string{notify.SelectionChanged}, f.events.Keys())
	ev := f.events.Events()[0]
	assert.Equal(t, f.author.UserID, ev.Recipients[0].UserID)
	assert.Contains(t, ev.Message, "is now featured")

	for _, ev := range f.events.Events() {
		require.NoError(t, catalog.Deliver(context.Background(), ev))
	}
	page, err = catalog.Accepted(f.ctx, CatalogQuery{Selected: &featured})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	f.events.Reset()
	_, err = f.manuscripts.SetSelected(f.ctx, f.chief, m.ManuscriptID, true)
	require.NoError(t, err)
	assert.Empty(t, f.events.Keys(), "no event when nothing changed")

	_, err = f.manuscripts.SetSelected(f.ctx, f.chief, m.ManuscriptID, false)
	require.NoError(t, err)
	require.Equal(t, []string{notify.SelectionChanged}, f.events.Keys())
	assert.Contains(t, f.events.Events()[0].Message, "no longer featured")

	_, err = f.manuscripts.SetSelected(f.ctx, f.editor, m.ManuscriptID, true)
	requireKind(t, err, KindForbidden)
}

func TestNotificationServiceScopesToCaller(t *testing.T) {
	f := newFixture(t)
	svc := NewNotificationService(f.deps)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.Notifications().Create(f.ctx, &models.Notification{UserID: f.author.UserID, Title: "t", Message: "m", Type: notify.LevelInfo}))
	}
	foreign := &models.Notification{UserID: f.reviewer.UserID, Title: "t", Message: "m", Type: notify.LevelInfo}
	require.NoError(t, f.store.Notifications().Create(f.ctx, foreign))

	list, err := svc.List(f.ctx, f.author, false, 0)
	require.NoError(t, err)
	assert.Len(t, list.Items, 3)
	assert.EqualValues(t, 3, list.Unread)

	requireKind(t, svc.MarkRead(f.ctx, f.author, foreign.NotificationID), KindNotFound)
	require.NoError(t, svc.MarkRead(f.ctx, f.author, list.Items[0].NotificationID))

	n, err := svc.MarkAllRead(f.ctx, f.author)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	unread, err := svc.List(f.ctx, f.author, true, 10)
	require.NoError(t, err)
	assert.Empty(t, unread.Items)
	assert.Zero(t, unread.Unread)

	_, err = svc.List(f.ctx, nil, false, 10)
	requireKind(t, err, KindUnauthenticated)
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	f.withCharges(ChargePolicy{BaseFee: 60, Currency: "USD"})
	f.submit()
	m := f.accepted()
	_, err := f.payments.Verify(f.ctx, f.author, VerifyPaymentInput{ManuscriptID: m.ManuscriptID, PaymentID: "p1", Amount: amount(60), Status: "success"})
	require.NoError(t, err)
	pending := f.submit()
	f.assign(pending, f.second)
	_, err = f.queries.Create(f.ctx, nil, QueryInput{Name: "V", Email: "v@example.org", Subject: "S", Message: "M"})
	require.NoError(t, err)

	deps := f.deps
	deps.Now = func() time.Time { return testNow.Add(30 * 24 * time.Hour) }
	stats, err := NewDashboardService(deps).Stats(f.ctx, f.chief)
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.TotalManuscripts)
	assert.EqualValues(t, 1, stats.ByStatus[models.StatusSubmitted])
	assert.EqualValues(t, 1, stats.ByStatus[models.StatusAccepted])
	assert.EqualValues(t, 1, stats.ByStage[models.StagePaymentPending])
	assert.Equal(t, 1, stats.PendingAssignments)
	require.Len(t, stats.Overdue, 1)
	assert.Equal(t, f.second.UserID, stats.Overdue[0].ReviewerID)
	assert.Equal(t, 16, stats.Overdue[0].DaysOverdue)
	require.Len(t, stats.Stale, 1)
	assert.Equal(t, 30, stats.Stale[0].DaysWaiting)
	assert.Equal(t, 60.0, stats.PaidTotals["USD"])
	assert.Equal(t, 1, stats.PendingQueries)

	_, err = NewDashboardService(deps).Stats(f.ctx, f.editor)
	requireKind(t, err, KindForbidden)
}

func TestDashboardCountsBeyondOnePage(t *testing.T) {
	f := newFixture(t)
	put := func(submitted time.Time) *models.Manuscript {
		m := &models.Manuscript{Title: "Backlog", SubmittedBy: f.author.UserID, SubmittedAt: submitted, CurrentRound: 1}
		m.SetStage(models.StageSubmitted)
		require.NoError(t, f.store.Manuscripts().Create(f.ctx, m))
		return m
	}
	var oldest *models.Manuscript
	for i := 0; i < 150; i++ {
		m := put(testNow.Add(-time.Duration(60*24-i) * time.Hour))
		if oldest == nil {
			oldest = m
		}
	}
	for i := 0; i < 101; i++ {
		put(testNow.Add(-time.Duration(i) * time.Minute))
	}
	for i := 0; i < 600; i++ {
		require.NoError(t, f.store.Manuscripts().AddPayment(f.ctx, &models.PaymentRecord{
			ManuscriptID: oldest.ManuscriptID,
			PaymentID:    fmt.Sprintf("order_%d", i),
			Amount:       1,
			Currency:     "USD",
			Status:       models.PaymentSuccess,
		}))
	}

	stats, err := NewDashboardService(f.deps).Stats(f.ctx, f.chief)
	require.NoError(t, err)
	require.Len(t, stats.Stale, 150)
	assert.Equal(t, oldest.ManuscriptID, stats.Stale[0].ManuscriptID)
	assert.Equal(t, 60, stats.Stale[0].DaysWaiting)
	assert.Equal(t, 600.0, stats.PaidTotals["USD"])
}
