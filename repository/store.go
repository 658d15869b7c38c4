// Package repository persists users, manuscripts, assignments, reviews,
// help-desk queries and notifications.
package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"journal-api/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record was modified concurrently")
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the unit-of-work boundary. Repositories obtained from the store
// passed to Transaction's callback share one transaction.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	Users() UserRepository
	Manuscripts() ManuscriptRepository
	Assignments() AssignmentRepository
	Reviews() ReviewRepository
	Queries() QueryRepository
	Notifications() NotificationRepository
}

type UserFilter struct {
	Role   models.RoleSet
	Active *bool
	Search string
	Page   int
	Limit  int
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIdentity(ctx context.Context, provider, subject string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	LinkIdentity(ctx context.Context, ident *models.UserIdentity) error
	UnlinkIdentity(ctx context.Context, userID int, provider string) error
	List(ctx context.Context, f UserFilter) ([]models.User, int64, error)
}

// ManuscriptFilter narrows List. SubmittedBefore is exclusive; OldestFirst
// flips the default newest-first order.
type ManuscriptFilter struct {
	AuthorID        int
	EditorID        int
	Stages          []models.Stage
	Selected        *bool
	Domain          string
	Search          string
	SubmittedBefore *time.Time
	OldestFirst     bool
	Page            int
	Limit           int
}

type PaymentFilter struct {
	ManuscriptID int
	Status       string
	Since        *time.Time
	Limit        int
}

// ManuscriptRepository stores manuscripts and their append-only children.
// Update is guarded by the version column: it fails with ErrConflict when the
// row changed since it was read, and bumps m.Version on success.
type ManuscriptRepository interface {
	Create(ctx context.Context, m *models.Manuscript) error
	Get(ctx context.Context, id int) (*models.Manuscript, error)
	Update(ctx context.Context, m *models.Manuscript) error
	AddRevision(ctx context.Context, r *models.ManuscriptRevision) error
	AddEditor(ctx context.Context, e *models.ManuscriptEditor) error
	AddPayment(ctx context.Context, p *models.PaymentRecord) error
	UpdatePayment(ctx context.Context, p *models.PaymentRecord) error
	AddHistory(ctx context.Context, h *models.ManuscriptStatusHistory) error
	History(ctx context.Context, manuscriptID int) ([]models.ManuscriptStatusHistory, error)
	List(ctx context.Context, f ManuscriptFilter) ([]models.Manuscript, int64, error)
	CountByStage(ctx context.Context) (map[models.Stage]int64, error)
	ListPayments(ctx context.Context, f PaymentFilter) ([]models.PaymentRecord, error)
	// PaymentTotals sums every payment with the given status, per currency.
	PaymentTotals(ctx context.Context, status string) (map[string]float64, error)
}

type AssignmentFilter struct {
	ManuscriptID int
	ReviewerID   int
	Round        int
	Statuses     []string
	DueBefore    *time.Time
}

type AssignmentRepository interface {
	Create(ctx context.Context, a *models.Assignment) error
	Get(ctx context.Context, id int) (*models.Assignment, error)
	Update(ctx context.Context, a *models.Assignment) error
	// TouchReminder sets only last_reminder_at, and only while the
	// assignment is still pending or accepted. ErrNotFound otherwise.
	TouchReminder(ctx context.Context, id int, at time.Time) error
	List(ctx context.Context, f AssignmentFilter) ([]models.Assignment, error)
}

type ReviewFilter struct {
	ManuscriptID int
	ReviewerID   int
	Round        int
	Statuses     []string
}

// ReviewRepository enforces one review per (manuscript, reviewer, round);
// Create returns ErrDuplicate for a second one.
type ReviewRepository interface {
	Create(ctx context.Context, r *models.Review) error
	Get(ctx context.Context, id int) (*models.Review, error)
	GetByRound(ctx context.Context, manuscriptID, reviewerID, round int) (*models.Review, error)
	Update(ctx context.Context, r *models.Review) error
	List(ctx context.Context, f ReviewFilter) ([]models.Review, error)
}

type QueryFilter struct {
	Status string
	UserID int
	Email  string
}

type QueryRepository interface {
	Create(ctx context.Context, q *models.Query) error
	Get(ctx context.Context, id int) (*models.Query, error)
	Update(ctx context.Context, q *models.Query) error
	List(ctx context.Context, f QueryFilter) ([]models.Query, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID int, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID int) (int64, error)
	MarkRead(ctx context.Context, userID, id int) error
	MarkAllRead(ctx context.Context, userID int) (int64, error)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}
