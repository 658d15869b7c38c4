package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"journal-api/services"
)

// POST /api/reviews/:id/submit where :id is the manuscript.
func (a *API) SubmitReview(c *gin.Context) {
	manuscriptID, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	var req services.ReviewInput
	if !a.bindJSON(c, &req) {
		return
	}
	review, err := a.Reviews.SubmitReview(c.Request.Context(), currentUser(c), manuscriptID, req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Review submitted successfully",
		"review":  review,
	})
}

// PUT /api/reviews/:id/accept
func (a *API) AcceptAssignment(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	assignment, err := a.Reviews.AcceptAssignment(c.Request.Context(), currentUser(c), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assignment": assignment})
}

// PUT /api/reviews/:id/decline
func (a *API) DeclineAssignment(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	// the body is optional
	if c.Request.ContentLength > 0 && !a.bindJSON(c, &req) {
		return
	}
	assignment, err := a.Reviews.DeclineAssignment(c.Request.Context(), currentUser(c), id, req.Reason)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assignment": assignment})
}

// PUT /api/reviews/:id
func (a *API) UpdateReview(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	var req services.ReviewUpdateInput
	if !a.bindJSON(c, &req) {
		return
	}
	review, err := a.Reviews.UpdateReview(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "review": review})
}

// GET /api/reviews/my-reviews
func (a *API) MyReviews(c *gin.Context) {
	rows, err := a.Reviews.MyReviews(c.Request.Context(), currentUser(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviews": rows})
}

// GET /api/reviews/my-assignments?status=pending,accepted
func (a *API) MyAssignments(c *gin.Context) {
	rows, err := a.Reviews.MyAssignments(c.Request.Context(), currentUser(c), c.Query("status"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assignments": rows})
}

// GET /api/reviews/statistics
func (a *API) ReviewStatistics(c *gin.Context) {
	stats, err := a.Reviews.Statistics(c.Request.Context(), currentUser(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "statistics": stats})
}

// GET /api/reviews/:id
func (a *API) GetReview(c *gin.Context) {
	id, ok := a.paramID(c, "id")
	if !ok {
		return
	}
	review, err := a.Reviews.GetReview(c.Request.Context(), currentUser(c), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "review": review})
}

// GET /api/reviews/manuscript/:manuscriptId
func (a *API) ManuscriptReviews(c *gin.Context) {
	manuscriptID, ok := a.paramID(c, "manuscriptId")
	if !ok {
		return
	}
	rows, err := a.Reviews.ForManuscript(c.Request.Context(), currentUser(c), manuscriptID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviews": rows})
}

// GET /api/reviews/manuscript/:manuscriptId/for-review
func (a *API) ManuscriptForReview(c *gin.Context) {
	manuscriptID, ok := a.paramID(c, "manuscriptId")
	if !ok {
		return
	}
	packet, err := a.Reviews.ForReview(c.Request.Context(), currentUser(c), manuscriptID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": packet})
}
