package services

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"journal-api/models"
	"journal-api/notify"
	"journal-api/repository"
	"journal-api/storage"
)

// Deps are the collaborators shared by the workflow services.
type Deps struct {
	Store   repository.Store
	Files   storage.FileStore
	Events  notify.Emitter
	Locker  Locker
	Log     *zap.Logger
	Charges ChargePolicy
	Now     func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = notify.Discard{}
	}
	if d.Locker == nil {
		d.Locker = NewLocalLocker()
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Files == nil {
		d.Files = storage.NewMemoryStore()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// outbox collects events produced inside a transaction. They are emitted only
// after the transaction commits.
type outbox struct {
	events []notify.Event
}

func (o *outbox) add(ev notify.Event) {
	if len(ev.Recipients) == 0 {
		return
	}
	o.events = append(o.events, ev)
}

func (d Deps) flush(o *outbox) {
	for _, ev := range o.events {
		d.Events.Emit(ev)
	}
}

// errNoChange aborts a mutation without writing and without failing.
var errNoChange = errors.New("no change")

type mutation func(ctx context.Context, tx repository.Store, m *models.Manuscript, out *outbox) error

// mutateManuscript runs fn against a fresh copy of the manuscript under the
// per-manuscript lock and inside one transaction, then persists the
// manuscript row with its version check. Events reach the emitter only when
// everything committed.
func (d Deps) mutateManuscript(ctx context.Context, id int, action Action, fn mutation) (*models.Manuscript, error) {
	m, err := d.runMutation(ctx, id, fn)
	observeAction(action, err)
	if err != nil && KindOf(err) == KindInternal {
		d.Log.Error("workflow action failed",
			zap.String("action", string(action)),
			zap.Int("manuscript_id", id),
			zap.Error(err))
	}
	return m, err
}

func (d Deps) runMutation(ctx context.Context, id int, fn mutation) (*models.Manuscript, error) {
	unlock, err := d.Locker.Lock(ctx, manuscriptLockKey(id))
	if err != nil {
		return nil, Upstream("could not lock manuscript", err)
	}
	defer unlock()

	var (
		result *models.Manuscript
		out    outbox
	)
	err = d.Store.Transaction(ctx, func(tx repository.Store) error {
		m, err := tx.Manuscripts().Get(ctx, id)
		if err != nil {
			return storeErr(err, "manuscript")
		}
		if err := fn(ctx, tx, m, &out); err != nil {
			if errors.Is(err, errNoChange) {
				result = m
			}
			return err
		}
		if err := tx.Manuscripts().Update(ctx, m); err != nil {
			return storeErr(err, "manuscript")
		}
		fresh, err := tx.Manuscripts().Get(ctx, id)
		if err != nil {
			return storeErr(err, "manuscript")
		}
		result = fresh
		return nil
	})
	if errors.Is(err, errNoChange) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	d.flush(&out)
	return result, nil
}

// moveStage changes the stage and records the history row. A move to the
// same stage writes nothing.
func (d Deps) moveStage(ctx context.Context, tx repository.Store, m *models.Manuscript, to models.Stage, action Action, actorID int, reason string) error {
	from := m.Stage
	if from == to {
		return nil
	}
	m.SetStage(to)
	return d.recordHistory(ctx, tx, m, &from, action, actorID, reason)
}

func (d Deps) recordHistory(ctx context.Context, tx repository.Store, m *models.Manuscript, from *models.Stage, action Action, actorID int, reason string) error {
	h := &models.ManuscriptStatusHistory{
		ManuscriptID: m.ManuscriptID,
		OldStage:     from,
		NewStage:     m.Stage,
		Round:        m.CurrentRound,
		Action:       string(action),
		ChangedBy:    actorID,
		CreatedAt:    d.Now(),
	}
	if reason != "" {
		h.Reason = &reason
	}
	return storeErr(tx.Manuscripts().AddHistory(ctx, h), "status history")
}

func (d Deps) loadManuscript(ctx context.Context, id int) (*models.Manuscript, error) {
	m, err := d.Store.Manuscripts().Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "manuscript")
	}
	return m, nil
}

func recipientOf(u *models.User) notify.Recipient {
	if u == nil {
		return notify.Recipient{}
	}
	return notify.Recipient{UserID: u.UserID, Email: u.Email, Name: u.DisplayName()}
}

func (d Deps) recipientsByID(ctx context.Context, tx repository.Store, ids ...int) []notify.Recipient {
	out := make([]notify.Recipient, 0, len(ids))
	seen := map[int]bool{}
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		u, err := tx.Users().Get(ctx, id)
		if err != nil {
			d.Log.Warn("notification recipient lookup failed", zap.Int("user_id", id), zap.Error(err))
			continue
		}
		if !u.IsActive {
			continue
		}
		out = append(out, recipientOf(u))
	}
	return out
}

func (d Deps) authorRecipients(ctx context.Context, tx repository.Store, m *models.Manuscript) []notify.Recipient {
	ids := append([]int{m.SubmittedBy}, m.AuthorIDs()...)
	return d.recipientsByID(ctx, tx, ids...)
}

// editorRecipients addresses the handling editors, or every editor-in-chief
// while nobody has been assigned.
func (d Deps) editorRecipients(ctx context.Context, tx repository.Store, m *models.Manuscript) []notify.Recipient {
	if len(m.Editors) > 0 {
		ids := make([]int, 0, len(m.Editors))
		for _, e := range m.Editors {
			ids = append(ids, e.EditorID)
		}
		return d.recipientsByID(ctx, tx, ids...)
	}
	return d.chiefRecipients(ctx, tx)
}

func (d Deps) chiefRecipients(ctx context.Context, tx repository.Store) []notify.Recipient {
	active := true
	chiefs, _, err := tx.Users().List(ctx, repository.UserFilter{Role: models.RoleEditorInChief, Active: &active, Limit: 100})
	if err != nil {
		d.Log.Warn("editor-in-chief lookup failed", zap.Error(err))
		return nil
	}
	out := make([]notify.Recipient, 0, len(chiefs))
	for i := range chiefs {
		out = append(out, recipientOf(&chiefs[i]))
	}
	return out
}

func manuscriptData(m *models.Manuscript) map[string]string {
	return map[string]string{
		"manuscriptId": strconv.Itoa(m.ManuscriptID),
		"title":        m.Title,
		"round":        strconv.Itoa(m.CurrentRound),
	}
}

func withData(base map[string]string, kv ...string) map[string]string {
	for i := 0; i+1 < len(kv); i += 2 {
		base[kv[i]] = kv[i+1]
	}
	return base
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
