package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"journal-api/controllers"
	"journal-api/middleware"
	"journal-api/models"
)

func SetupRoutes(router *gin.Engine, api *controllers.API) {
	router.GET("/logs", api.Logs)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AuthMiddleware(api.Users)
	optional := middleware.OptionalAuth(api.Users)
	eic := middleware.RequireCapability(models.RoleEditorInChief)
	editor := middleware.RequireCapability(models.RoleEditor)

	v1 := router.Group("/api")
	{
		v1.GET("/health", api.Health)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", api.Register)
			authGroup.POST("/login", api.Login)
			// The provider redirects here without our bearer token; the
			// signed state names the user.
			authGroup.GET("/orcid/callback", api.OrcidCallback)

			authGroup.GET("/profile", auth, api.GetProfile)
			authGroup.PUT("/profile", auth, api.UpdateProfile)
			authGroup.GET("/orcid", auth, api.OrcidStart)
			authGroup.POST("/orcid/unlink", auth, api.OrcidUnlink)
			authGroup.POST("/google/link", auth, api.GoogleLink)
		}

		manuscripts := v1.Group("/manuscripts")
		{
			// Public catalog
			manuscripts.GET("/accepted", api.AcceptedManuscripts)
			manuscripts.GET("/accepted/:id/download", api.DownloadPublicManuscript)
			manuscripts.GET("/published", api.PublishedManuscripts)
			manuscripts.GET("/published/:id", api.PublishedManuscript)

			manuscripts.POST("/submit", auth, api.SubmitManuscript)
			manuscripts.POST("/:id/submit-revision", auth, api.SubmitRevision)
			manuscripts.GET("/my-manuscripts", auth, api.MyManuscripts)
			manuscripts.GET("/:id", auth, api.GetManuscript)
			manuscripts.GET("/:id/download", auth, api.DownloadManuscript)
			manuscripts.GET("/:id/history", auth, api.ManuscriptHistory)
		}

		reviews := v1.Group("/reviews", auth)
		{
			reviews.GET("/my-reviews", api.MyReviews)
			reviews.GET("/my-assignments", api.MyAssignments)
			reviews.GET("/statistics", api.ReviewStatistics)
			reviews.GET("/manuscript/:manuscriptId", api.ManuscriptReviews)
			reviews.GET("/manuscript/:manuscriptId/for-review", api.ManuscriptForReview)
			reviews.GET("/:id", api.GetReview)
			reviews.POST("/:id/submit", api.SubmitReview)
			reviews.PUT("/:id/accept", api.AcceptAssignment)
			reviews.PUT("/:id/decline", api.DeclineAssignment)
			reviews.PUT("/:id", api.UpdateReview)
		}

		admin := v1.Group("/admin", auth)
		{
			// Editors may assign reviewers and decide on manuscripts they
			// handle; the service checks the assignment.
			admin.POST("/assign-reviewer", editor, api.AssignReviewer)
			admin.POST("/manuscripts/:id/editor-decision", editor, api.EditorDecision)
			admin.GET("/pending-manuscripts", editor, api.PendingManuscripts)

			admin.POST("/manuscripts/:id/request-payment", eic, api.RequestPayment)
			admin.POST("/manuscripts/:id/publish", eic, api.PublishManuscript)
			admin.PATCH("/manuscripts/:id/status", eic, api.UpdateManuscriptStatus)
			admin.POST("/manuscripts/:id/editors", eic, api.AssignEditor)
			admin.PATCH("/user-roles", eic, api.UpdateUserRoles)
			admin.GET("/users", eic, api.ListUsers)
			admin.PATCH("/users/:id/active", eic, api.SetUserActive)
			admin.GET("/dashboard", eic, api.AdminDashboard)
			admin.GET("/payments", eic, api.ListPayments)
			admin.POST("/reminders/run", eic, api.RunReminders)
		}

		payments := v1.Group("/payments", auth)
		{
			payments.POST("/create-order", api.CreatePaymentOrder)
			payments.POST("/verify", api.VerifyPayment)
		}

		queries := v1.Group("/queries")
		{
			queries.POST("", optional, api.CreateQuery)
			queries.GET("/pending", auth, eic, api.PendingQueries)
			queries.GET("/my-queries", auth, api.MyQueries)
			queries.POST("/:id/reply", auth, eic, api.ReplyQuery)
		}

		notifications := v1.Group("/notifications", auth)
		{
			notifications.GET("", api.GetNotifications)
			notifications.GET("/counter", api.GetNotificationCounter)
			notifications.PUT("/read-all", api.MarkAllNotificationsRead)
			notifications.PUT("/:id/read", api.MarkNotificationRead)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"success": false, "code": "not_found", "error": "Endpoint not found"})
	})
}
