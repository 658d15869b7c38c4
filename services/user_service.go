package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"journal-api/models"
	"journal-api/repository"
	"journal-api/utils"
)

type RegisterInput struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Email       string   `json:"email" validate:"required,email,max=255"`
	Password    string   `json:"password" validate:"required,min=8,max=72"`
	Affiliation string   `json:"affiliation" validate:"max=255"`
	Country     string   `json:"country" validate:"max=100"`
	Expertise   []string `json:"expertise"`
	// Reviewer asks for the reviewer capability on top of author.
	Reviewer bool `json:"reviewer"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Affiliation *string  `json:"affiliation" validate:"omitempty,max=255"`
	Country     *string  `json:"country" validate:"omitempty,max=100"`
	Expertise   []string `json:"expertise"`
}

type RolesInput struct {
	UserID int            `json:"userId" validate:"required,gt=0"`
	Roles  models.RoleSet `json:"roles"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type UserService struct {
	Store  repository.Store
	Tokens *TokenService
	Orcid  OrcidClient
	Log    *zap.Logger
	Now    func() time.Time
}

func NewUserService(store repository.Store, tokens *TokenService, orcid OrcidClient, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{Store: store, Tokens: tokens, Orcid: orcid, Log: log, Now: time.Now}
}

// HashPassword hashes password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares password with hash
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func optionalString(value string) *string {
	value = utils.SanitizeInput(value)
	if value == "" {
		return nil
	}
	return &value
}

func cleanList(in []string) models.StringList {
	out := make(models.StringList, 0, len(in))
	seen := map[string]bool{}
	for _, v := range in {
		v = utils.SanitizeInput(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// Register creates an active author, optionally also a reviewer.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = utils.SanitizeInput(in.Name)
	if fields := utils.ValidateStruct(in); fields != nil {
		return nil, ValidationError(fields)
	}
	if ok, msg := utils.ValidatePassword(in.Password); !ok {
		return nil, fieldError("password", msg)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	roles := models.RoleAuthor
	if in.Reviewer {
		roles = roles.With(models.RoleReviewer)
	}
	now := s.Now()
	user := &models.User{
		Name:        in.Name,
		Email:       in.Email,
		Password:    hash,
		Affiliation: optionalString(in.Affiliation),
		Country:     optionalString(in.Country),
		Expertise:   cleanList(in.Expertise),
		Roles:       roles,
		IsActive:    true,
		Identities: []models.UserIdentity{
			{Provider: models.ProviderPassword, Subject: in.Email, LinkedAt: now},
		},
	}
	if err := s.Store.Users().Create(ctx, user); err != nil {
		if KindOf(err) == KindConflict {
			return nil, fieldError("email", "email is already registered")
		}
		return nil, storeErr(err, "user")
	}
	s.Log.Info("user registered", zap.Int("user_id", user.UserID), zap.String("roles", user.Roles.String()))
	return s.issue(user)
}

func (s *UserService) issue(user *models.User) (*Session, error) {
	token, expiresAt, err := s.Tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Login checks the password credential. Unknown emails and wrong passwords
// get the same answer.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if fields := utils.ValidateStruct(in); fields != nil {
		return nil, ValidationError(fields)
	}
	invalid := &Error{Kind: KindUnauthenticated, Message: "invalid email or password"}
	user, err := s.Store.Users().GetByEmail(ctx, in.Email)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, invalid
		}
		return nil, storeErr(err, "user")
	}
	if user.Password == "" || !CheckPasswordHash(in.Password, user.Password) {
		return nil, invalid
	}
	if !user.IsActive {
		return nil, Forbidden("account is deactivated")
	}
	now := s.Now()
	user.LastLoginAt = &now
	if err := s.Store.Users().Update(ctx, user); err != nil {
		s.Log.Warn("record last login failed", zap.Int("user_id", user.UserID), zap.Error(err))
	}
	return s.issue(user)
}

// Authenticate resolves a bearer token to an active user.
func (s *UserService) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.Tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	user, err := s.Store.Users().Get(ctx, claims.UserID)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, Unauthenticated()
		}
		return nil, storeErr(err, "user")
	}
	if !user.IsActive {
		return nil, Forbidden("account is deactivated")
	}
	return user, nil
}

func (s *UserService) Profile(ctx context.Context, actor *models.User) (*models.User, error) {
	if actor == nil {
		return nil, Unauthenticated()
	}
	user, err := s.Store.Users().Get(ctx, actor.UserID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, actor *models.User, in ProfileInput) (*models.User, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if fields := utils.ValidateStruct(in); fields != nil {
		return nil, ValidationError(fields)
	}
	user, err := s.Store.Users().Get(ctx, actor.UserID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if in.Name != nil {
		name := utils.SanitizeInput(*in.Name)
		if name == "" {
			return nil, fieldError("name", "name is required")
		}
		user.Name = name
	}
	if in.Affiliation != nil {
		user.Affiliation = optionalString(*in.Affiliation)
	}
	if in.Country != nil {
		user.Country = optionalString(*in.Country)
	}
	if in.Expertise != nil {
		user.Expertise = cleanList(in.Expertise)
	}
	if err := s.Store.Users().Update(ctx, user); err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

func requireActive(actor *models.User) error {
	if actor == nil {
		return Unauthenticated()
	}
	if !actor.IsActive {
		return Forbidden("account is deactivated")
	}
	return nil
}

// UpdateRoles replaces a user's capability set. An editor-in-chief cannot
// remove their own editor-in-chief capability.
func (s *UserService) UpdateRoles(ctx context.Context, actor *models.User, in RolesInput) (*models.User, error) {
	if err := RequireRole(actor, models.RoleEditorInChief); err != nil {
		return nil, err
	}
	if fields := utils.ValidateStruct(in); fields != nil {
		return nil, ValidationError(fields)
	}
	if in.UserID == actor.UserID && !in.Roles.Has(models.RoleEditorInChief) {
		return nil, fieldError("roles", "you cannot remove your own editor-in-chief role")
	}
	user, err := s.Store.Users().Get(ctx, in.UserID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	before := user.Roles
	user.Roles = in.Roles
	if err := s.Store.Users().Update(ctx, user); err != nil {
		return nil, storeErr(err, "user")
	}
	s.Log.Info("user roles changed",
		zap.Int("user_id", user.UserID),
		zap.Int("changed_by", actor.UserID),
		zap.String("from", before.String()),
		zap.String("to", user.Roles.String()))
	return user, nil
}

// SetActive soft-deactivates or reactivates an account.
func (s *UserService) SetActive(ctx context.Context, actor *models.User, userID int, active bool) (*models.User, error) {
	if err := RequireRole(actor, models.RoleEditorInChief); err != nil {
		return nil, err
	}
	if userID == actor.UserID && !active {
		return nil, fieldError("isActive", "you cannot deactivate your own account")
	}
	user, err := s.Store.Users().Get(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if user.IsActive == active {
		return user, nil
	}
	user.IsActive = active
	if err := s.Store.Users().Update(ctx, user); err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, actor *models.User, f repository.UserFilter) ([]models.User, int64, error) {
	if err := RequireRole(actor, models.RoleEditorInChief); err != nil {
		return nil, 0, err
	}
	rows, total, err := s.Store.Users().List(ctx, f)
	if err != nil {
		return nil, 0, storeErr(err, "user")
	}
	return rows, total, nil
}

// OrcidAuthURL starts the ORCID link flow for the caller.
func (s *UserService) OrcidAuthURL(ctx context.Context, actor *models.User) (string, error) {
	if err := requireActive(actor); err != nil {
		return "", err
	}
	if s.Orcid == nil {
		return "", Upstream("orcid is not configured", nil)
	}
	state, err := s.Tokens.IssueState(actor)
	if err != nil {
		return "", err
	}
	return s.Orcid.AuthorizeURL(state), nil
}

// OrcidCallback completes the link: the state names the user, the code is
// exchanged for the verified iD.
func (s *UserService) OrcidCallback(ctx context.Context, code, state string) (*models.User, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fieldError("code", "authorization code is required")
	}
	if s.Orcid == nil {
		return nil, Upstream("orcid is not configured", nil)
	}
	claims, err := s.Tokens.ParseState(state)
	if err != nil {
		return nil, err
	}
	identity, err := s.Orcid.Exchange(ctx, code)
	if err != nil {
		s.Log.Warn("orcid exchange failed", zap.Int("user_id", claims.UserID), zap.Error(err))
		return nil, Upstream("orcid sign-in failed", err)
	}
	if !utils.ValidateOrcid(identity.OrcidID) {
		return nil, Upstream("orcid returned a malformed iD", nil)
	}

	var linked *models.User
	err = s.Store.Transaction(ctx, func(tx repository.Store) error {
		user, err := tx.Users().Get(ctx, claims.UserID)
		if err != nil {
			return storeErr(err, "user")
		}
		if !user.IsActive {
			return Forbidden("account is deactivated")
		}
		owner, err := tx.Users().GetByIdentity(ctx, models.ProviderOrcid, identity.OrcidID)
		switch {
		case err == nil && owner.UserID != user.UserID:
			return Conflict("this ORCID iD is linked to another account", nil)
		case err == nil:
		case KindOf(err) == KindNotFound:
			if user.OrcidID != nil {
				if err := tx.Users().UnlinkIdentity(ctx, user.UserID, models.ProviderOrcid); err != nil && KindOf(err) != KindNotFound {
					return storeErr(err, "identity")
				}
			}
			if err := tx.Users().LinkIdentity(ctx, &models.UserIdentity{
				UserID:   user.UserID,
				Provider: models.ProviderOrcid,
				Subject:  identity.OrcidID,
				LinkedAt: s.Now(),
			}); err != nil {
				return storeErr(err, "identity")
			}
		default:
			return storeErr(err, "identity")
		}
		orcid := identity.OrcidID
		user.OrcidID = &orcid
		user.OrcidVerified = true
		if err := tx.Users().Update(ctx, user); err != nil {
			return storeErr(err, "user")
		}
		linked = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("orcid linked", zap.Int("user_id", linked.UserID))
	return linked, nil
}

// OrcidUnlink removes the ORCID identity; the user can no longer submit.
func (s *UserService) OrcidUnlink(ctx context.Context, actor *models.User) (*models.User, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	var out *models.User
	err := s.Store.Transaction(ctx, func(tx repository.Store) error {
		user, err := tx.Users().Get(ctx, actor.UserID)
		if err != nil {
			return storeErr(err, "user")
		}
		if user.OrcidID == nil && !user.OrcidVerified {
			return InvalidState("no ORCID iD is linked to this account")
		}
		if err := tx.Users().UnlinkIdentity(ctx, user.UserID, models.ProviderOrcid); err != nil && KindOf(err) != KindNotFound {
			return storeErr(err, "identity")
		}
		user.OrcidID = nil
		user.OrcidVerified = false
		if err := tx.Users().Update(ctx, user); err != nil {
			return storeErr(err, "user")
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LinkGoogle stores a Google account id delivered by the front end's sign-in.
func (s *UserService) LinkGoogle(ctx context.Context, actor *models.User, googleID string) (*models.User, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	googleID = strings.TrimSpace(googleID)
	if googleID == "" || len(googleID) > 64 {
		return nil, fieldError("googleId", "a google account id is required")
	}
	var out *models.User
	err := s.Store.Transaction(ctx, func(tx repository.Store) error {
		user, err := tx.Users().Get(ctx, actor.UserID)
		if err != nil {
			return storeErr(err, "user")
		}
		if user.GoogleID != nil && *user.GoogleID == googleID {
			out = user
			return nil
		}
		if user.GoogleID != nil {
			if err := tx.Users().UnlinkIdentity(ctx, user.UserID, models.ProviderGoogle); err != nil && KindOf(err) != KindNotFound {
				return storeErr(err, "identity")
			}
		}
		if err := tx.Users().LinkIdentity(ctx, &models.UserIdentity{
			UserID:   user.UserID,
			Provider: models.ProviderGoogle,
			Subject:  googleID,
			LinkedAt: s.Now(),
		}); err != nil {
			if KindOf(err) == KindConflict {
				return Conflict("this Google account is linked to another user", err)
			}
			return storeErr(err, "identity")
		}
		user.GoogleID = &googleID
		if err := tx.Users().Update(ctx, user); err != nil {
			return storeErr(err, "user")
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
