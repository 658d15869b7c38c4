package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"journal-api/models"
	"journal-api/services"
)

const (
	userKey   = "user"
	userIDKey = "userID"
)

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
		return "", false
	}
	return strings.TrimSpace(tokenString), true
}

func abortAuth(c *gin.Context, err error) {
	status := http.StatusUnauthorized
	if services.KindOf(err) == services.KindForbidden {
		status = http.StatusForbidden
	}
	msg := "Invalid or expired token"
	var se *services.Error
	if errors.As(err, &se) && se.Message != "" {
		msg = se.Message
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg, "code": services.KindOf(err).String()})
}

// AuthMiddleware validates the bearer token and loads the caller.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Authorization header is required",
				"code":    services.KindUnauthenticated.String(),
			})
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortAuth(c, err)
			return
		}
		c.Set(userKey, user)
		c.Set(userIDKey, user.UserID)
		c.Next()
	}
}

// OptionalAuth loads the caller when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if user, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(userKey, user)
				c.Set(userIDKey, user.UserID)
			}
		}
		c.Next()
	}
}

// RequireCapability lets the request through when the caller holds any of
// roles. The editor-in-chief satisfies editor.
func RequireCapability(roles ...models.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortAuth(c, services.Unauthenticated())
			return
		}
		for _, role := range roles {
			if services.HasCapability(user, role) {
				c.Next()
				return
			}
		}
		abortAuth(c, services.Forbidden("Insufficient permissions"))
	}
}

// CurrentUser returns the authenticated caller, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
