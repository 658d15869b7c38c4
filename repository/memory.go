package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"journal-api/models"
)

// MemoryStore keeps everything in process. It backs DB_DRIVER=memory for
// local runs and the service tests. Transactions work on a copy of the data
// that replaces the live state only when the callback succeeds.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	seq           int
	users         map[int]models.User
	identities    []models.UserIdentity
	manuscripts   map[int]models.Manuscript
	history       []models.ManuscriptStatusHistory
	assignments   map[int]models.Assignment
	reviews       map[int]models.Review
	queries       map[int]models.Query
	notifications map[int]models.Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memData{
		users:         map[int]models.User{},
		manuscripts:   map[int]models.Manuscript{},
		assignments:   map[int]models.Assignment{},
		reviews:       map[int]models.Review{},
		queries:       map[int]models.Query{},
		notifications: map[int]models.Notification{},
	}}
}

func (d *memData) nextID() int {
	d.seq++
	return d.seq
}

func (d *memData) clone() *memData {
	out := &memData{
		seq:           d.seq,
		users:         make(map[int]models.User, len(d.users)),
		identities:    append([]models.UserIdentity(nil), d.identities...),
		manuscripts:   make(map[int]models.Manuscript, len(d.manuscripts)),
		history:       append([]models.ManuscriptStatusHistory(nil), d.history...),
		assignments:   make(map[int]models.Assignment, len(d.assignments)),
		reviews:       make(map[int]models.Review, len(d.reviews)),
		queries:       make(map[int]models.Query, len(d.queries)),
		notifications: make(map[int]models.Notification, len(d.notifications)),
	}
	for k, v := range d.users {
		out.users[k] = v
	}
	for k, v := range d.manuscripts {
		out.manuscripts[k] = copyManuscript(v)
	}
	for k, v := range d.assignments {
		out.assignments[k] = v
	}
	for k, v := range d.reviews {
		out.reviews[k] = v
	}
	for k, v := range d.queries {
		out.queries[k] = v
	}
	for k, v := range d.notifications {
		out.notifications[k] = v
	}
	return out
}

func copyManuscript(m models.Manuscript) models.Manuscript {
	m.Keywords = append(models.StringList(nil), m.Keywords...)
	m.Authors = append([]models.ManuscriptAuthor(nil), m.Authors...)
	m.Revisions = append([]models.ManuscriptRevision(nil), m.Revisions...)
	m.Editors = append([]models.ManuscriptEditor(nil), m.Editors...)
	m.Payments = append([]models.PaymentRecord(nil), m.Payments...)
	for i := range m.Payments {
		if m.Payments[i].Metadata != nil {
			meta := make(models.JSONMap, len(m.Payments[i].Metadata))
			for k, v := range m.Payments[i].Metadata {
				meta[k] = v
			}
			m.Payments[i].Metadata = meta
		}
	}
	return m
}

// memView routes repository calls either to the live data (taking the lock)
// or to the copy owned by a running transaction.
type memView struct {
	store *MemoryStore
	tx    *memData
}

func (v *memView) do(fn func(d *memData) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func (s *MemoryStore) view() *memView { return &memView{store: s} }

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(&memTx{view: &memView{store: s, tx: work}}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *MemoryStore) Users() UserRepository                 { return memUsers{s.view()} }
func (s *MemoryStore) Manuscripts() ManuscriptRepository     { return memManuscripts{s.view()} }
func (s *MemoryStore) Assignments() AssignmentRepository     { return memAssignments{s.view()} }
func (s *MemoryStore) Reviews() ReviewRepository             { return memReviews{s.view()} }
func (s *MemoryStore) Queries() QueryRepository              { return memQueries{s.view()} }
func (s *MemoryStore) Notifications() NotificationRepository { return memNotifications{s.view()} }

type memTx struct{ view *memView }

func (t *memTx) Transaction(ctx context.Context, fn func(tx Store) error) error { return fn(t) }

func (t *memTx) Users() UserRepository                 { return memUsers{t.view} }
func (t *memTx) Manuscripts() ManuscriptRepository     { return memManuscripts{t.view} }
func (t *memTx) Assignments() AssignmentRepository     { return memAssignments{t.view} }
func (t *memTx) Reviews() ReviewRepository             { return memReviews{t.view} }
func (t *memTx) Queries() QueryRepository              { return memQueries{t.view} }
func (t *memTx) Notifications() NotificationRepository { return memNotifications{t.view} }

func paginate[T any](rows []T, page, limit int) []T {
	page, limit = normalizePage(page, limit)
	start := (page - 1) * limit
	if start >= len(rows) {
		return []T{}
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

// users

type memUsers struct{ v *memView }

func (r memUsers) withIdentities(d *memData, u models.User) *models.User {
	u.Identities = nil
	for _, ident := range d.identities {
		if ident.UserID == u.UserID {
			u.Identities = append(u.Identities, ident)
		}
	}
	return &u
}

func (r memUsers) Create(ctx context.Context, u *models.User) error {
	return r.v.do(func(d *memData) error {
		for _, existing := range d.users {
			if strings.EqualFold(existing.Email, u.Email) {
				return ErrDuplicate
			}
		}
		now := time.Now()
		u.UserID = d.nextID()
		u.CreatedAt, u.UpdatedAt = now, now
		stored := *u
		stored.Identities = nil
		d.users[u.UserID] = stored
		for i := range u.Identities {
			u.Identities[i].IdentityID = d.nextID()
			u.Identities[i].UserID = u.UserID
			d.identities = append(d.identities, u.Identities[i])
		}
		return nil
	})
}

func (r memUsers) Get(ctx context.Context, id int) (*models.User, error) {
	var out *models.User
	err := r.v.do(func(d *memData) error {
		u, ok := d.users[id]
		if !ok {
			return ErrNotFound
		}
		out = r.withIdentities(d, u)
		return nil
	})
	return out, err
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.v.do(func(d *memData) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
				out = r.withIdentities(d, u)
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memUsers) GetByIdentity(ctx context.Context, provider, subject string) (*models.User, error) {
	var out *models.User
	err := r.v.do(func(d *memData) error {
		for _, ident := range d.identities {
			if ident.Provider == provider && ident.Subject == subject {
				u, ok := d.users[ident.UserID]
				if !ok {
					return ErrNotFound
				}
				out = r.withIdentities(d, u)
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memUsers) Update(ctx context.Context, u *models.User) error {
	return r.v.do(func(d *memData) error {
		existing, ok := d.users[u.UserID]
		if !ok {
			return ErrNotFound
		}
		for id, other := range d.users {
			if id != u.UserID && strings.EqualFold(other.Email, u.Email) {
				return ErrDuplicate
			}
		}
		u.CreatedAt = existing.CreatedAt
		u.UpdatedAt = time.Now()
		stored := *u
		stored.Identities = nil
		d.users[u.UserID] = stored
		return nil
	})
}

func (r memUsers) LinkIdentity(ctx context.Context, ident *models.UserIdentity) error {
	return r.v.do(func(d *memData) error {
		for _, existing := range d.identities {
			if existing.Provider == ident.Provider && existing.Subject == ident.Subject {
				return ErrDuplicate
			}
		}
		ident.IdentityID = d.nextID()
		d.identities = append(d.identities, *ident)
		return nil
	})
}

func (r memUsers) UnlinkIdentity(ctx context.Context, userID int, provider string) error {
	return r.v.do(func(d *memData) error {
		kept := d.identities[:0:0]
		removed := false
		for _, ident := range d.identities {
			if ident.UserID == userID && ident.Provider == provider {
				removed = true
				continue
			}
			kept = append(kept, ident)
		}
		if !removed {
			return ErrNotFound
		}
		d.identities = kept
		return nil
	})
}

func (r memUsers) List(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	var rows []models.User
	err := r.v.do(func(d *memData) error {
		for _, u := range d.users {
			if f.Role != 0 && !u.Roles.Has(f.Role) {
				continue
			}
			if f.Active != nil && u.IsActive != *f.Active {
				continue
			}
			if strings.TrimSpace(f.Search) != "" && !containsFold(u.Name, f.Search) && !containsFold(u.Email, f.Search) {
				continue
			}
			rows = append(rows, u)
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return paginate(rows, f.Page, f.Limit), int64(len(rows)), err
}

// manuscripts

type memManuscripts struct{ v *memView }

func (r memManuscripts) Create(ctx context.Context, m *models.Manuscript) error {
	return r.v.do(func(d *memData) error {
		now := time.Now()
		m.ManuscriptID = d.nextID()
		m.Version = 1
		m.CreatedAt, m.UpdatedAt = now, now
		for i := range m.Authors {
			m.Authors[i].AuthorID = d.nextID()
			m.Authors[i].ManuscriptID = m.ManuscriptID
		}
		d.manuscripts[m.ManuscriptID] = copyManuscript(*m)
		return nil
	})
}

func (r memManuscripts) hydrate(d *memData, m models.Manuscript) models.Manuscript {
	m = copyManuscript(m)
	for i := range m.Authors {
		if u, ok := d.users[m.Authors[i].UserID]; ok {
			u.Identities = nil
			m.Authors[i].User = &u
		}
	}
	return m
}

func (r memManuscripts) Get(ctx context.Context, id int) (*models.Manuscript, error) {
	var out models.Manuscript
	err := r.v.do(func(d *memData) error {
		m, ok := d.manuscripts[id]
		if !ok {
			return ErrNotFound
		}
		out = r.hydrate(d, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memManuscripts) Update(ctx context.Context, m *models.Manuscript) error {
	return r.v.do(func(d *memData) error {
		existing, ok := d.manuscripts[m.ManuscriptID]
		if !ok || existing.Version != m.Version {
			return ErrConflict
		}
		now := time.Now()
		updated := existing
		updated.Title = m.Title
		updated.Abstract = m.Abstract
		updated.Keywords = append(models.StringList(nil), m.Keywords...)
		updated.Domain = m.Domain
		updated.CorrespondingAuthorID = m.CorrespondingAuthorID
		updated.File = m.File
		updated.SetStage(m.Stage)
		updated.Selected = m.Selected
		updated.CurrentRound = m.CurrentRound
		updated.Charge = m.Charge
		updated.DecidedAt = m.DecidedAt
		updated.PublishedAt = m.PublishedAt
		updated.Version = m.Version + 1
		updated.UpdatedAt = now
		d.manuscripts[m.ManuscriptID] = updated

		m.Version = updated.Version
		m.Status = updated.Status
		m.UpdatedAt = now
		return nil
	})
}

func (r memManuscripts) mutate(d *memData, id int, fn func(m *models.Manuscript) error) error {
	m, ok := d.manuscripts[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&m); err != nil {
		return err
	}
	d.manuscripts[id] = m
	return nil
}

func (r memManuscripts) AddRevision(ctx context.Context, rev *models.ManuscriptRevision) error {
	return r.v.do(func(d *memData) error {
		return r.mutate(d, rev.ManuscriptID, func(m *models.Manuscript) error {
			rev.RevisionID = d.nextID()
			m.Revisions = append(m.Revisions, *rev)
			return nil
		})
	})
}

func (r memManuscripts) AddEditor(ctx context.Context, e *models.ManuscriptEditor) error {
	return r.v.do(func(d *memData) error {
		return r.mutate(d, e.ManuscriptID, func(m *models.Manuscript) error {
			if m.HasEditor(e.EditorID) {
				return ErrDuplicate
			}
			e.ID = d.nextID()
			m.Editors = append(m.Editors, *e)
			return nil
		})
	})
}

func (r memManuscripts) AddPayment(ctx context.Context, p *models.PaymentRecord) error {
	return r.v.do(func(d *memData) error {
		return r.mutate(d, p.ManuscriptID, func(m *models.Manuscript) error {
			if m.FindPayment(p.PaymentID) != nil {
				return ErrDuplicate
			}
			now := time.Now()
			p.RecordID = d.nextID()
			if p.CreatedAt.IsZero() {
				p.CreatedAt = now
			}
			p.UpdatedAt = now
			m.Payments = append(m.Payments, *p)
			return nil
		})
	})
}

func (r memManuscripts) UpdatePayment(ctx context.Context, p *models.PaymentRecord) error {
	return r.v.do(func(d *memData) error {
		return r.mutate(d, p.ManuscriptID, func(m *models.Manuscript) error {
			for i := range m.Payments {
				if m.Payments[i].RecordID == p.RecordID {
					m.Payments[i].Amount = p.Amount
					m.Payments[i].Currency = p.Currency
					m.Payments[i].Status = p.Status
					m.Payments[i].Metadata = p.Metadata
					m.Payments[i].UpdatedAt = time.Now()
					return nil
				}
			}
			return ErrNotFound
		})
	})
}

func (r memManuscripts) AddHistory(ctx context.Context, h *models.ManuscriptStatusHistory) error {
	return r.v.do(func(d *memData) error {
		h.HistoryID = d.nextID()
		if h.CreatedAt.IsZero() {
			h.CreatedAt = time.Now()
		}
		d.history = append(d.history, *h)
		return nil
	})
}

func (r memManuscripts) History(ctx context.Context, manuscriptID int) ([]models.ManuscriptStatusHistory, error) {
	var rows []models.ManuscriptStatusHistory
	err := r.v.do(func(d *memData) error {
		for _, h := range d.history {
			if h.ManuscriptID == manuscriptID {
				rows = append(rows, h)
			}
		}
		return nil
	})
	return rows, err
}

func (r memManuscripts) matches(m models.Manuscript, f ManuscriptFilter) bool {
	if f.AuthorID > 0 && !m.IsAuthor(f.AuthorID) {
		return false
	}
	if f.EditorID > 0 && !m.HasEditor(f.EditorID) {
		return false
	}
	if len(f.Stages) > 0 {
		found := false
		for _, st := range f.Stages {
			if m.Stage == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Selected != nil && m.Selected != *f.Selected {
		return false
	}
	if strings.TrimSpace(f.Domain) != "" && m.Domain != strings.TrimSpace(f.Domain) {
		return false
	}
	if strings.TrimSpace(f.Search) != "" &&
		!containsFold(m.Title, f.Search) &&
		!containsFold(m.Abstract, f.Search) &&
		!containsFold(strings.Join(m.Keywords, " "), f.Search) {
		return false
	}
	if f.SubmittedBefore != nil && !m.SubmittedAt.Before(*f.SubmittedBefore) {
		return false
	}
	return true
}

func (r memManuscripts) List(ctx context.Context, f ManuscriptFilter) ([]models.Manuscript, int64, error) {
	var rows []models.Manuscript
	err := r.v.do(func(d *memData) error {
		for _, m := range d.manuscripts {
			if r.matches(m, f) {
				rows = append(rows, r.hydrate(d, m))
			}
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if f.OldestFirst {
			a, b = b, a
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.After(b.SubmittedAt)
		}
		return a.ManuscriptID > b.ManuscriptID
	})
	return paginate(rows, f.Page, f.Limit), int64(len(rows)), err
}

func (r memManuscripts) CountByStage(ctx context.Context) (map[models.Stage]int64, error) {
	out := map[models.Stage]int64{}
	err := r.v.do(func(d *memData) error {
		for _, m := range d.manuscripts {
			out[m.Stage]++
		}
		return nil
	})
	return out, err
}

func (r memManuscripts) ListPayments(ctx context.Context, f PaymentFilter) ([]models.PaymentRecord, error) {
	var rows []models.PaymentRecord
	err := r.v.do(func(d *memData) error {
		for _, m := range d.manuscripts {
			if f.ManuscriptID > 0 && m.ManuscriptID != f.ManuscriptID {
				continue
			}
			for _, p := range m.Payments {
				if f.Status != "" && p.Status != f.Status {
					continue
				}
				if f.Since != nil && p.CreatedAt.Before(*f.Since) {
					continue
				}
				rows = append(rows, p)
			}
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].RecordID > rows[j].RecordID
	})
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, err
}

func (r memManuscripts) PaymentTotals(ctx context.Context, status string) (map[string]float64, error) {
	out := map[string]float64{}
	err := r.v.do(func(d *memData) error {
		for _, m := range d.manuscripts {
			for _, p := range m.Payments {
				if p.Status == status {
					out[p.Currency] += p.Amount
				}
			}
		}
		return nil
	})
	return out, err
}

// assignments

type memAssignments struct{ v *memView }

func (r memAssignments) Create(ctx context.Context, a *models.Assignment) error {
	return r.v.do(func(d *memData) error {
		now := time.Now()
		a.AssignmentID = d.nextID()
		a.CreatedAt, a.UpdatedAt = now, now
		stored := *a
		stored.Manuscript, stored.Reviewer = nil, nil
		d.assignments[a.AssignmentID] = stored
		return nil
	})
}

func (r memAssignments) hydrate(d *memData, a models.Assignment) models.Assignment {
	if u, ok := d.users[a.ReviewerID]; ok {
		u.Identities = nil
		a.Reviewer = &u
	}
	return a
}

func (r memAssignments) Get(ctx context.Context, id int) (*models.Assignment, error) {
	var out models.Assignment
	err := r.v.do(func(d *memData) error {
		a, ok := d.assignments[id]
		if !ok {
			return ErrNotFound
		}
		out = r.hydrate(d, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memAssignments) Update(ctx context.Context, a *models.Assignment) error {
	return r.v.do(func(d *memData) error {
		existing, ok := d.assignments[a.AssignmentID]
		if !ok {
			return ErrNotFound
		}
		existing.Status = a.Status
		existing.DueDate = a.DueDate
		existing.DeclineReason = a.DeclineReason
		existing.RespondedAt = a.RespondedAt
		existing.ReviewID = a.ReviewID
		existing.LastReminderAt = a.LastReminderAt
		existing.UpdatedAt = time.Now()
		d.assignments[a.AssignmentID] = existing
		return nil
	})
}

func (r memAssignments) TouchReminder(ctx context.Context, id int, at time.Time) error {
	return r.v.do(func(d *memData) error {
		existing, ok := d.assignments[id]
		if !ok || (existing.Status != models.AssignmentPending && existing.Status != models.AssignmentAccepted) {
			return ErrNotFound
		}
		existing.LastReminderAt = &at
		d.assignments[id] = existing
		return nil
	})
}

func (r memAssignments) List(ctx context.Context, f AssignmentFilter) ([]models.Assignment, error) {
	var rows []models.Assignment
	err := r.v.do(func(d *memData) error {
		for _, a := range d.assignments {
			if f.ManuscriptID > 0 && a.ManuscriptID != f.ManuscriptID {
				continue
			}
			if f.ReviewerID > 0 && a.ReviewerID != f.ReviewerID {
				continue
			}
			if f.Round > 0 && a.Round != f.Round {
				continue
			}
			if len(f.Statuses) > 0 && !containsString(f.Statuses, a.Status) {
				continue
			}
			if f.DueBefore != nil && !a.DueDate.Before(*f.DueBefore) {
				continue
			}
			rows = append(rows, r.hydrate(d, a))
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].AssignmentID < rows[j].AssignmentID })
	return rows, err
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// reviews

type memReviews struct{ v *memView }

func (r memReviews) Create(ctx context.Context, rev *models.Review) error {
	return r.v.do(func(d *memData) error {
		for _, existing := range d.reviews {
			if existing.ManuscriptID == rev.ManuscriptID &&
				existing.ReviewerID == rev.ReviewerID &&
				existing.Round == rev.Round {
				return ErrDuplicate
			}
		}
		now := time.Now()
		rev.ReviewID = d.nextID()
		rev.CreatedAt, rev.UpdatedAt = now, now
		stored := *rev
		stored.Reviewer = nil
		d.reviews[rev.ReviewID] = stored
		return nil
	})
}

func (r memReviews) hydrate(d *memData, rev models.Review) models.Review {
	if u, ok := d.users[rev.ReviewerID]; ok {
		u.Identities = nil
		rev.Reviewer = &u
	}
	return rev
}

func (r memReviews) Get(ctx context.Context, id int) (*models.Review, error) {
	var out models.Review
	err := r.v.do(func(d *memData) error {
		rev, ok := d.reviews[id]
		if !ok {
			return ErrNotFound
		}
		out = r.hydrate(d, rev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memReviews) GetByRound(ctx context.Context, manuscriptID, reviewerID, round int) (*models.Review, error) {
	var out *models.Review
	err := r.v.do(func(d *memData) error {
		for _, rev := range d.reviews {
			if rev.ManuscriptID == manuscriptID && rev.ReviewerID == reviewerID && rev.Round == round {
				found := rev
				out = &found
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memReviews) Update(ctx context.Context, rev *models.Review) error {
	return r.v.do(func(d *memData) error {
		existing, ok := d.reviews[rev.ReviewID]
		if !ok {
			return ErrNotFound
		}
		existing.Scores = rev.Scores
		existing.OverallScore = rev.OverallScore
		existing.Recommendation = rev.Recommendation
		existing.CommentsToAuthor = rev.CommentsToAuthor
		existing.CommentsToEditor = rev.CommentsToEditor
		existing.ConfidentialComments = rev.ConfidentialComments
		existing.Status = rev.Status
		existing.SubmittedAt = rev.SubmittedAt
		existing.UpdatedAt = time.Now()
		d.reviews[rev.ReviewID] = existing
		return nil
	})
}

func (r memReviews) List(ctx context.Context, f ReviewFilter) ([]models.Review, error) {
	var rows []models.Review
	err := r.v.do(func(d *memData) error {
		for _, rev := range d.reviews {
			if f.ManuscriptID > 0 && rev.ManuscriptID != f.ManuscriptID {
				continue
			}
			if f.ReviewerID > 0 && rev.ReviewerID != f.ReviewerID {
				continue
			}
			if f.Round > 0 && rev.Round != f.Round {
				continue
			}
			if len(f.Statuses) > 0 && !containsString(f.Statuses, rev.Status) {
				continue
			}
			rows = append(rows, r.hydrate(d, rev))
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Round != rows[j].Round {
			return rows[i].Round < rows[j].Round
		}
		return rows[i].ReviewID < rows[j].ReviewID
	})
	return rows, err
}

// help desk

type memQueries struct{ v *memView }

func (r memQueries) Create(ctx context.Context, q *models.Query) error {
	return r.v.do(func(d *memData) error {
		now := time.Now()
		q.QueryID = d.nextID()
		q.CreatedAt, q.UpdatedAt = now, now
		d.queries[q.QueryID] = *q
		return nil
	})
}

func (r memQueries) Get(ctx context.Context, id int) (*models.Query, error) {
	var out models.Query
	err := r.v.do(func(d *memData) error {
		q, ok := d.queries[id]
		if !ok {
			return ErrNotFound
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memQueries) Update(ctx context.Context, q *models.Query) error {
	return r.v.do(func(d *memData) error {
		existing, ok := d.queries[q.QueryID]
		if !ok {
			return ErrNotFound
		}
		existing.Reply = q.Reply
		existing.RepliedBy = q.RepliedBy
		existing.RepliedAt = q.RepliedAt
		existing.Status = q.Status
		existing.UpdatedAt = time.Now()
		d.queries[q.QueryID] = existing
		return nil
	})
}

func (r memQueries) List(ctx context.Context, f QueryFilter) ([]models.Query, error) {
	var rows []models.Query
	err := r.v.do(func(d *memData) error {
		for _, q := range d.queries {
			if f.Status != "" && q.Status != f.Status {
				continue
			}
			if f.UserID > 0 || f.Email != "" {
				byUser := f.UserID > 0 && q.UserID != nil && *q.UserID == f.UserID
				byEmail := f.Email != "" && strings.EqualFold(q.Email, f.Email)
				if !byUser && !byEmail {
					continue
				}
			}
			rows = append(rows, q)
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].QueryID > rows[j].QueryID })
	return rows, err
}

// notifications

type memNotifications struct{ v *memView }

func (r memNotifications) Create(ctx context.Context, n *models.Notification) error {
	return r.v.do(func(d *memData) error {
		n.NotificationID = d.nextID()
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		d.notifications[n.NotificationID] = *n
		return nil
	})
}

func (r memNotifications) List(ctx context.Context, userID int, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.Notification
	err := r.v.do(func(d *memData) error {
		for _, n := range d.notifications {
			if n.UserID != userID || (unreadOnly && n.IsRead) {
				continue
			}
			rows = append(rows, n)
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].NotificationID > rows[j].NotificationID })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, err
}

func (r memNotifications) CountUnread(ctx context.Context, userID int) (int64, error) {
	var count int64
	err := r.v.do(func(d *memData) error {
		for _, n := range d.notifications {
			if n.UserID == userID && !n.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r memNotifications) MarkRead(ctx context.Context, userID, id int) error {
	return r.v.do(func(d *memData) error {
		n, ok := d.notifications[id]
		if !ok || n.UserID != userID {
			return ErrNotFound
		}
		now := time.Now()
		n.IsRead = true
		n.ReadAt = &now
		d.notifications[id] = n
		return nil
	})
}

func (r memNotifications) MarkAllRead(ctx context.Context, userID int) (int64, error) {
	var count int64
	err := r.v.do(func(d *memData) error {
		now := time.Now()
		for id, n := range d.notifications {
			if n.UserID == userID && !n.IsRead {
				n.IsRead = true
				n.ReadAt = &now
				d.notifications[id] = n
				count++
			}
		}
		return nil
	})
	return count, err
}
