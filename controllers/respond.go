package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"journal-api/middleware"
	"journal-api/models"
	"journal-api/services"
)

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation, services.KindInvalidState:
		return http.StatusBadRequest
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError renders a service error. Internal errors are logged and
// hidden behind a generic message.
func (a *API) respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status := statusFor(kind)
	body := gin.H{"success": false, "code": kind.String()}

	var se *services.Error
	if errors.As(err, &se) && kind != services.KindInternal {
		body["error"] = se.Message
		if len(se.Fields) > 0 {
			body["fields"] = se.Fields
		}
	} else {
		body["error"] = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		a.Log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func (a *API) badRequest(c *gin.Context, field, msg string) {
	a.respondError(c, services.ValidationError(map[string]string{field: msg}))
}

// bindJSON decodes the body; malformed JSON is a validation error on "body".
func (a *API) bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		a.badRequest(c, "body", "invalid JSON payload: "+err.Error())
		return false
	}
	return true
}

func (a *API) paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		a.badRequest(c, name, "must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(c.Query(name))); err == nil {
		return v
	}
	return def
}

func queryBool(c *gin.Context, name string) *bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func paginated(page, limit int, total int64) gin.H {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return gin.H{"page": page, "limit": limit, "total": total, "totalPages": pages}
}
