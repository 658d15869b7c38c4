package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"journal-api/services"
)

// POST /api/payments/create-order
func (a *API) CreatePaymentOrder(c *gin.Context) {
	var req struct {
		ManuscriptID int `json:"manuscriptId"`
	}
	if !a.bindJSON(c, &req) {
		return
	}
	if req.ManuscriptID <= 0 {
		a.badRequest(c, "manuscriptId", "is required")
		return
	}
	order, err := a.Payments.CreateOrder(c.Request.Context(), currentUser(c), req.ManuscriptID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order": order})
}

// POST /api/payments/verify
func (a *API) VerifyPayment(c *gin.Context) {
	var req services.VerifyPaymentInput
	if !a.bindJSON(c, &req) {
		return
	}
	result, err := a.Payments.Verify(c.Request.Context(), currentUser(c), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	msg := "Payment recorded"
	if !result.Changed {
		msg = "Payment already recorded"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           msg,
		"payment":           result.Record,
		"publicationCharge": result.Charge,
	})
}
