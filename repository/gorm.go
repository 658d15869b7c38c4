package repository

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"journal-api/models"
)

// GormStore implements Store on a relational database through gorm. The
// connection should be opened with TranslateError so unique violations
// surface as gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates every table the store needs.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserIdentity{},
		&models.Manuscript{},
		&models.ManuscriptAuthor{},
		&models.ManuscriptRevision{},
		&models.ManuscriptEditor{},
		&models.PaymentRecord{},
		&models.ManuscriptStatusHistory{},
		&models.Assignment{},
		&models.Review{},
		&models.Query{},
		&models.Notification{},
	)
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Users() UserRepository                 { return gormUsers{s.db} }
func (s *GormStore) Manuscripts() ManuscriptRepository     { return gormManuscripts{s.db} }
func (s *GormStore) Assignments() AssignmentRepository     { return gormAssignments{s.db} }
func (s *GormStore) Reviews() ReviewRepository             { return gormReviews{s.db} }
func (s *GormStore) Queries() QueryRepository              { return gormQueries{s.db} }
func (s *GormStore) Notifications() NotificationRepository { return gormNotifications{s.db} }

// translate maps gorm errors onto the repository sentinels.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Wrap(ErrDuplicate, op)
	default:
		return errors.Wrap(err, op)
	}
}

func likePattern(term string) string {
	term = strings.TrimSpace(term)
	term = strings.ReplaceAll(term, "%", `\%`)
	term = strings.ReplaceAll(term, "_", `\_`)
	return "%" + term + "%"
}

type gormUsers struct{ db *gorm.DB }

func (r gormUsers) Create(ctx context.Context, u *models.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error, "create user")
}

func (r gormUsers) Get(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Preload("Identities").
		Where("user_id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (r gormUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Preload("Identities").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error; err != nil {
		return nil, translate(err, "get user by email")
	}
	return &u, nil
}

func (r gormUsers) GetByIdentity(ctx context.Context, provider, subject string) (*models.User, error) {
	var ident models.UserIdentity
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND subject = ?", provider, subject).First(&ident).Error; err != nil {
		return nil, translate(err, "get identity")
	}
	return r.Get(ctx, ident.UserID)
}

func (r gormUsers) Update(ctx context.Context, u *models.User) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", u.UserID).
		Select("*").Omit("user_id", "created_at", "Identities").
		Updates(u)
	if res.Error != nil {
		return translate(res.Error, "update user")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormUsers) LinkIdentity(ctx context.Context, ident *models.UserIdentity) error {
	return translate(r.db.WithContext(ctx).Create(ident).Error, "link identity")
}

func (r gormUsers) UnlinkIdentity(ctx context.Context, userID int, provider string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&models.UserIdentity{})
	if res.Error != nil {
		return translate(res.Error, "unlink identity")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormUsers) List(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if f.Role != 0 {
		query = query.Where("(roles & ?) = ?", int64(f.Role), int64(f.Role))
	}
	if f.Active != nil {
		query = query.Where("is_active = ?", *f.Active)
	}
	if strings.TrimSpace(f.Search) != "" {
		pattern := likePattern(f.Search)
		query = query.Where("name LIKE ? OR email LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count users")
	}

	page, limit := normalizePage(f.Page, f.Limit)
	var users []models.User
	if err := query.Order("user_id ASC").Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, translate(err, "list users")
	}
	return users, total, nil
}
