package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mail "github.com/go-mail/mail/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal-api/repository"
)

type funcSink struct {
	name string
	fn   func(ctx context.Context, ev Event) error
}

func (s funcSink) Name() string                                { return s.name }
func (s funcSink) Deliver(ctx context.Context, ev Event) error { return s.fn(ctx, ev) }

type outcomes struct {
	mu   sync.Mutex
	seen []string
}

func (o *outcomes) observe(sink, key string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status := "ok"
	if err != nil {
		status = err.Error()
	}
	o.seen = append(o.seen, sink+"/"+key+"/"+status)
}

func (o *outcomes) list() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.seen...)
}

func TestNewRendersTemplate(t *testing.T) {
	ev := New(ReviewerAssigned, map[string]string{
		"title":        "Graphs",
		"round":        "2",
		"dueDate":      "2026-03-16",
		"manuscriptId": "17",
	}, Recipient{UserID: 3})

	assert.Equal(t, "Review invitation: Graphs", ev.Subject)
	assert.Contains(t, ev.Message, "(round 2)")
	assert.Contains(t, ev.Message, "2026-03-16")
	assert.Equal(t, LevelInfo, ev.Level)
	assert.Equal(t, 17, ev.ManuscriptID)

	unknown := New("custom.key", nil)
	assert.Equal(t, "custom.key", unknown.Subject)
	assert.Equal(t, LevelInfo, unknown.Level)
}

func TestDispatcherDeliversToEverySinkAndSurvivesPanics(t *testing.T) {
	var mu sync.Mutex
	var delivered []string
	good := funcSink{name: "good", fn: func(ctx context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, ev.Key)
		return nil
	}}
	bad := funcSink{name: "bad", fn: func(ctx context.Context, ev Event) error {
		panic("boom")
	}}
	obs := &outcomes{}
	d := NewDispatcher(nil, []Sink{bad, good}, WithWorkers(1), WithObserver(obs.observe))

	d.Emit(New(ManuscriptSubmitted, nil))
	d.Emit(New(ManuscriptPublished, nil))
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, []string{ManuscriptSubmitted, ManuscriptPublished}, delivered)
	got := obs.list()
	require.Len(t, got, 4)
	assert.Equal(t, "bad/"+ManuscriptSubmitted+"/sink panicked: boom", got[0])
	assert.Equal(t, "good/"+ManuscriptSubmitted+"/ok", got[1])

	d.Emit(New(ManuscriptSubmitted, nil))
	assert.Len(t, obs.list(), 4, "events after close are dropped")
}

func TestDispatcherDropsWhenQueueIsFull(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	slow := funcSink{name: "slow", fn: func(ctx context.Context, ev Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}}
	obs := &outcomes{}
	d := NewDispatcher(nil, []Sink{slow}, WithWorkers(1), WithQueueSize(1), WithObserver(obs.observe))

	d.Emit(New(ReviewSubmitted, nil))
	<-started
	d.Emit(New(ReviewSubmitted, nil))
	d.Emit(New(ReviewReminder, nil))

	assert.Equal(t, []string{"queue/" + ReviewReminder + "/" + ErrQueueFull.Error()}, obs.list())
	close(release)
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, obs.list(), 3)
}

func TestDispatcherCloseHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := funcSink{name: "stuck", fn: func(ctx context.Context, ev Event) error {
		<-release
		return nil
	}}
	d := NewDispatcher(nil, []Sink{stuck}, WithWorkers(1))
	d.Emit(New(QueryReceived, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}

func TestInAppSinkWritesOneRowPerAccount(t *testing.T) {
	store := repository.NewMemoryStore()
	sink := NewInAppSink(store.Notifications())
	ctx := context.Background()

	ev := New(DecisionRecorded, map[string]string{"title": "Graphs", "decision": "accept", "manuscriptId": "9"},
		Recipient{UserID: 1, Email: "a@example.org"},
		Recipient{UserID: 1, Email: "a@example.org"},
		Recipient{Email: "guest@example.org"},
		Recipient{UserID: 2},
	)
	require.NoError(t, sink.Deliver(ctx, ev))

	rows, err := store.Notifications().List(ctx, 1, false, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, DecisionRecorded, rows[0].EventKey)
	assert.Equal(t, "Editorial decision: Graphs", rows[0].Title)
	require.NotNil(t, rows[0].RelatedManuscriptID)
	assert.Equal(t, 9, *rows[0].RelatedManuscriptID)

	count, err := store.Notifications().CountUnread(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

type captureSender struct {
	messages []*mail.Message
	err      error
}

func (c *captureSender) DialAndSend(m ...*mail.Message) error {
	c.messages = append(c.messages, m...)
	return c.err
}

func TestMailSinkSendsOneMessagePerAddress(t *testing.T) {
	sender := &captureSender{}
	sink := NewMailSink(sender, "journal@example.org", "https://journal.example.org/")
	ev := New(ManuscriptPublished, map[string]string{"title": "Graphs <b>", "manuscriptId": "4"},
		Recipient{Email: "Ada@Example.org", Name: "Ada"},
		Recipient{Email: "ada@example.org"},
		Recipient{UserID: 7},
	)
	require.NoError(t, sink.Deliver(context.Background(), ev))
	require.Len(t, sender.messages, 1)
	assert.Equal(t, []string{"ada@example.org"}, sender.messages[0].GetHeader("To"))
	assert.Equal(t, []string{"Published: Graphs <b>"}, sender.messages[0].GetHeader("Subject"))

	sender.err = errors.New("smtp down")
	err := sink.Deliver(context.Background(), ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")

	disabled := NewMailSink(nil, "", "")
	assert.NoError(t, disabled.Deliver(context.Background(), ev))
}

func TestBuildEmailHTMLEscapesContent(t *testing.T) {
	html := buildEmailHTML("<Subject>", "", "line one\nline <two>", "https://x.example/manuscripts/1")
	assert.Contains(t, html, "Dear colleague,")
	assert.Contains(t, html, "line one<br />line &lt;two&gt;")
	assert.Contains(t, html, "&lt;Subject&gt;")
	assert.Contains(t, html, `href="https://x.example/manuscripts/1"`)
	assert.NotContains(t, buildEmailHTML("s", "Ada", "m", ""), "Open manuscript")
}

type capturePublisher struct {
	channel string
	payload []byte
}

func (p *capturePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func TestRedisSinkPublishesJSON(t *testing.T) {
	pub := &capturePublisher{}
	sink := NewRedisSink(pub, "")
	ev := New(PaymentConfirmed, map[string]string{"title": "Graphs", "amount": "10.00", "currency": "USD", "manuscriptId": "5"},
		Recipient{UserID: 3}, Recipient{Email: "x@example.org"})
	require.NoError(t, sink.Deliver(context.Background(), ev))

	assert.Equal(t, "journal:events", pub.channel)
	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.payload, &wire))
	assert.Equal(t, PaymentConfirmed, wire["key"])
	assert.EqualValues(t, 5, wire["manuscriptId"])
	assert.Equal(t, []interface{}{float64(3)}, wire["recipientIds"])
}
