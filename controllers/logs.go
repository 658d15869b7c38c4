package controllers

import (
	"crypto/subtle"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /logs?token=... returns the raw log file.
func (a *API) Logs(c *gin.Context) {
	token := c.Query("token")
	if a.LogsToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(a.LogsToken)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return
	}

	logData, err := os.ReadFile(a.LogFile)
	if err != nil {
		a.Log.Warn("log file unreadable", zap.String("path", a.LogFile), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Unable to read log"})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", logData)
}

// GET /api/health
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
