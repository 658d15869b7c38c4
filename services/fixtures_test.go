package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"journal-api/models"
	"journal-api/notify"
	"journal-api/repository"
	"journal-api/storage"
)

var testNow = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

// samplePDF is small but carries a three page tree, which is all the
// inspector looks at.
var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Pages /Kids [] /Count 3 >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *repository.MemoryStore
	events *notify.Recorder
	files  *storage.MemoryStore
	deps   Deps

	manuscripts *ManuscriptService
	reviews     *ReviewService
	payments    *PaymentService
	queries     *QueryService

	author   *models.User
	reviewer *models.User
	second   *models.User
	editor   *models.User
	chief    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  repository.NewMemoryStore(),
		events: &notify.Recorder{},
		files:  storage.NewMemoryStore(),
	}
	f.deps = Deps{
		Store:  f.store,
		Files:  f.files,
		Events: f.events,
		Now:    func() time.Time { return testNow },
	}
	f.rebuild()

	orcid := "0000-0002-1825-0097"
	f.author = f.user("Ada Author", "ada@example.org", models.RoleAuthor, func(u *models.User) {
		u.OrcidID = &orcid
		u.OrcidVerified = true
	})
	f.reviewer = f.user("Rob Reviewer", "rob@example.org", models.RoleReviewer, nil)
	f.second = f.user("Rhea Reviewer", "rhea@example.org", models.RoleReviewer, nil)
	f.editor = f.user("Eli Editor", "eli@example.org", models.RoleEditor, nil)
	f.chief = f.user("Cam Chief", "cam@example.org", models.RoleEditorInChief, nil)
	return f
}

// rebuild recreates the services after deps changed.
func (f *fixture) rebuild() {
	f.manuscripts = NewManuscriptService(f.deps)
	f.reviews = NewReviewService(f.deps)
	f.payments = NewPaymentService(f.deps)
	f.queries = NewQueryService(f.deps)
}

func (f *fixture) withCharges(p ChargePolicy) {
	f.deps.Charges = p
	f.rebuild()
}

func (f *fixture) user(name, email string, roles models.RoleSet, edit func(u *models.User)) *models.User {
	f.t.Helper()
	u := &models.User{Name: name, Email: email, Roles: roles, IsActive: true}
	if edit != nil {
		edit(u)
	}
	require.NoError(f.t, f.store.Users().Create(f.ctx, u))
	return u
}

func (f *fixture) submit() *models.Manuscript {
	f.t.Helper()
	m, err := f.manuscripts.Submit(f.ctx, f.author, SubmitInput{
		Title:    "Sparse spectral methods",
		Abstract: "We study sparse spectral methods for large graphs.",
		Keywords: []string{"graphs", "Spectral", "graphs"},
		Domain:   "Computer Science",
	}, Upload{Filename: "paper.pdf", Data: samplePDF})
	require.NoError(f.t, err)
	return m
}

func (f *fixture) due() *time.Time {
	d := testNow.Add(14 * 24 * time.Hour)
	return &d
}

func (f *fixture) assign(m *models.Manuscript, reviewer *models.User) *models.Assignment {
	f.t.Helper()
	a, err := f.reviews.AssignReviewer(f.ctx, f.chief, AssignReviewerInput{
		ManuscriptID: m.ManuscriptID,
		ReviewerID:   reviewer.UserID,
		DueDate:      f.due(),
	})
	require.NoError(f.t, err)
	return a
}

func (f *fixture) accept(a *models.Assignment, reviewer *models.User) {
	f.t.Helper()
	_, err := f.reviews.AcceptAssignment(f.ctx, reviewer, a.AssignmentID)
	require.NoError(f.t, err)
}

func reviewInput(score int, recommendation string) ReviewInput {
	return ReviewInput{
		Scores: ScoresInput{
			Originality:  score,
			Methodology:  score,
			Contribution: score,
			Clarity:      score,
			References:   score,
		},
		Recommendation:   recommendation,
		CommentsToAuthor: "The argument in section three needs a tighter bound and a clearer proof sketch.",
		CommentsToEditor: "Solid work overall.",
	}
}

// reviewed drives a fresh submission through a single completed review.
func (f *fixture) reviewed() *models.Manuscript {
	f.t.Helper()
	m := f.submit()
	a := f.assign(m, f.reviewer)
	f.accept(a, f.reviewer)
	_, err := f.reviews.SubmitReview(f.ctx, f.reviewer, m.ManuscriptID, reviewInput(4, models.RecommendMinorRevisions))
	require.NoError(f.t, err)
	return f.reload(m.ManuscriptID)
}

func (f *fixture) reload(id int) *models.Manuscript {
	f.t.Helper()
	m, err := f.store.Manuscripts().Get(f.ctx, id)
	require.NoError(f.t, err)
	return m
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}

func manuscriptFilterAll() repository.ManuscriptFilter {
	return repository.ManuscriptFilter{Page: 1, Limit: 100}
}
