package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"journal-api/models"
	"journal-api/repository"
	"journal-api/services"
	"journal-api/utils"
)

// POST /api/admin/assign-reviewer
func (a *API) AssignReviewer(c *gin.Context) {
	var req services.AssignReviewerInput
	if !a.bindJSON(c, &req) {
		return
	}
	assignment, err := a.Reviews.AssignReviewer(c.Request.Context(), currentUser(c), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Reviewer assigned successfully",
		"assignment": assignment,
	})
}

// POST /api/admin/manuscripts/:id/editor-decision
func (a *API) EditorDecision(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	var req services.DecisionInput
	if !a.bindJSON(c, &req) {
		return
	}
	m, err := a.Manuscripts.Decide(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "manuscript": m})
}

// POST /api/admin/manuscripts/:id/request-payment
func (a *API) RequestPayment(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	var req services.PaymentRequestInput
	if c.Request.ContentLength > 0 && !a.bindJSON(c, &req) {
		return
	}
	m, err := a.Manuscripts.RequestPayment(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "manuscript": m})
}

// POST /api/admin/manuscripts/:id/publish
func (a *API) PublishManuscript(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	m, err := a.Manuscripts.Publish(c.Request.Context(), currentUser(c), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "manuscript": m})
}

// PATCH /api/admin/manuscripts/:id/status
func (a *API) UpdateManuscriptStatus(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	var req services.StatusInput
	if !a.bindJSON(c, &req) {
		return
	}
	m, err := a.Manuscripts.SetStatus(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "manuscript": m})
}

// POST /api/admin/manuscripts/:id/editors
func (a *API) AssignEditor(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		EditorID int `json:"editorId"`
	}
	if !a.bindJSON(c, &req) {
		return
	}
	if req.EditorID <= 0 {
		a.badRequest(c, "editorId", "is required")
		return
	}
	m, err := a.Manuscripts.AssignEditor(c.Request.Context(), currentUser(c), id, req.EditorID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "manuscript": m})
}

// PATCH /api/admin/user-roles
func (a *API) UpdateUserRoles(c *gin.Context) {
	var req services.RolesInput
	if !a.bindJSON(c, &req) {
		return
	}
	user, err := a.Users.UpdateRoles(c.Request.Context(), currentUser(c), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// PATCH /api/admin/users/:id/active
func (a *API) SetUserActive(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Active *bool `json:"active"`
	}
	if !a.bindJSON(c, &req) {
		return
	}
	if req.Active == nil {
		a.badRequest(c, "active", "is required")
		return
	}
	user, err := a.Users.SetActive(c.Request.Context(), currentUser(c), id, *req.Active)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// GET /api/admin/users?role=reviewer&active=true&search=
func (a *API) ListUsers(c *gin.Context) {
	f := repository.UserFilter{
		Active: queryBool(c, "active"),
		Search: strings.TrimSpace(c.Query("search")),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		role, ok := models.ParseRole(raw)
		if !ok {
			a.badRequest(c, "role", "unknown role")
			return
		}
		f.Role = role
	}
	rows, total, err := a.Users.ListUsers(c.Request.Context(), currentUser(c), f)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"users":      rows,
		"pagination": paginated(f.Page, f.Limit, total),
	})
}

// GET /api/admin/dashboard
func (a *API) AdminDashboard(c *gin.Context) {
	stats, err := a.Dashboard.Stats(c.Request.Context(), currentUser(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// GET /api/admin/pending-manuscripts?status=under_review,accepted
func (a *API) PendingManuscripts(c *gin.Context) {
	f := services.PendingFilter{
		Domain: strings.TrimSpace(c.Query("domain")),
		Search: strings.TrimSpace(c.Query("search")),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		status, ok := utils.CanonicalStatus(raw)
		if !ok {
			a.badRequest(c, "status", "unknown status "+strings.TrimSpace(raw))
			return
		}
		f.Stages = append(f.Stages, models.StagesFor(status)...)
	}
	rows, total, err := a.Manuscripts.ListPending(c.Request.Context(), currentUser(c), f)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"manuscripts": rows,
		"pagination":  paginated(f.Page, f.Limit, total),
	})
}

// GET /api/admin/payments?manuscriptId=&status=&since=2024-01-01
func (a *API) ListPayments(c *gin.Context) {
	f := repository.PaymentFilter{
		ManuscriptID: queryInt(c, "manuscriptId", 0),
		Status:       strings.TrimSpace(c.Query("status")),
		Limit:        queryInt(c, "limit", 100),
	}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		since, err := time.Parse("2006-01-02", raw)
		if err != nil {
			a.badRequest(c, "since", "must be a date in YYYY-MM-DD form")
			return
		}
		f.Since = &since
	}
	rows, err := a.Payments.ListPayments(c.Request.Context(), currentUser(c), f)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payments": rows})
}

// POST /api/admin/reminders/run triggers the overdue review reminders now.
func (a *API) RunReminders(c *gin.Context) {
	if err := services.RequireRole(currentUser(c), models.RoleEditorInChief); err != nil {
		a.respondError(c, err)
		return
	}
	summary, err := a.Reminders.Run(c.Request.Context())
	if errors.Is(err, services.ErrRemindersAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "code": "conflict", "error": err.Error()})
		return
	}
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}
