package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GET /api/notifications?unreadOnly=1&limit=50
func (a *API) GetNotifications(c *gin.Context) {
	unreadOnly := strings.TrimSpace(c.Query("unreadOnly"))
	only := unreadOnly == "1" || strings.EqualFold(unreadOnly, "true")

	list, err := a.Notifications.List(c.Request.Context(), currentUser(c), only, queryInt(c, "limit", 50))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"items":       list.Items,
		"unreadCount": list.Unread,
	})
}

// GET /api/notifications/counter
func (a *API) GetNotificationCounter(c *gin.Context) {
	list, err := a.Notifications.List(c.Request.Context(), currentUser(c), true, 1)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "unread": list.Unread})
}

// PUT /api/notifications/:id/read
func (a *API) MarkNotificationRead(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	if err := a.Notifications.MarkRead(c.Request.Context(), currentUser(c), id); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PUT /api/notifications/read-all
func (a *API) MarkAllNotificationsRead(c *gin.Context) {
	n, err := a.Notifications.MarkAllRead(c.Request.Context(), currentUser(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}
