package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"journal-api/services"
)

// POST /api/queries works with or without a session.
func (a *API) CreateQuery(c *gin.Context) {
	var req services.QueryInput
	if !a.bindJSON(c, &req) {
		return
	}
	q, err := a.Queries.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Your query has been received",
		"query":   q,
	})
}

// GET /api/queries/pending
func (a *API) PendingQueries(c *gin.Context) {
	rows, err := a.Queries.Pending(c.Request.Context(), currentUser(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "queries": rows})
}

// GET /api/queries/my-queries
func (a *API) MyQueries(c *gin.Context) {
	rows, err := a.Queries.Mine(c.Request.Context(), currentUser(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "queries": rows})
}

// POST /api/queries/:id/reply
func (a *API) ReplyQuery(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	var req services.ReplyInput
	if !a.bindJSON(c, &req) {
		return
	}
	q, err := a.Queries.Reply(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "query": q})
}
