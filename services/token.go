package services

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"journal-api/models"
)

const (
	audienceSession   = "session"
	audienceOrcidLink = "orcid-link"
)

// Claims carry only the user id. Roles are always read from the database so
// a role change takes effect on the next request.
type Claims struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a session token for user.
func (t *TokenService) Issue(user *models.User) (string, time.Time, error) {
	return t.sign(user, audienceSession, t.ttl)
}

// Parse validates a session token.
func (t *TokenService) Parse(raw string) (*Claims, error) {
	return t.parse(raw, audienceSession)
}

// IssueState signs the OAuth state for linking an ORCID iD to user.
func (t *TokenService) IssueState(user *models.User) (string, error) {
	token, _, err := t.sign(user, audienceOrcidLink, 15*time.Minute)
	return token, err
}

func (t *TokenService) ParseState(raw string) (*Claims, error) {
	return t.parse(raw, audienceOrcidLink)
}

func (t *TokenService) sign(user *models.User, audience string, ttl time.Duration) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID: user.UserID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.UserID),
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, expiresAt, nil
}

func (t *TokenService) parse(raw, audience string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, &Error{Kind: KindUnauthenticated, Message: "invalid or expired token", Err: err}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID <= 0 {
		return nil, &Error{Kind: KindUnauthenticated, Message: "invalid token claims"}
	}
	return claims, nil
}
