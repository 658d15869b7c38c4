package controllers

import (
	"go.uber.org/zap"

	"journal-api/services"
	"journal-api/storage"
)

// API holds the services the HTTP handlers call into.
type API struct {
	Users         *services.UserService
	Manuscripts   *services.ManuscriptService
	Reviews       *services.ReviewService
	Payments      *services.PaymentService
	Queries       *services.QueryService
	Notifications *services.NotificationService
	Catalog       *services.CatalogService
	Dashboard     *services.DashboardService
	Reminders     *services.ReminderJob
	Files         storage.FileStore
	Log           *zap.Logger

	// LogsToken guards GET /logs. An empty token disables the endpoint.
	LogsToken string
	LogFile   string
	// OrcidSuccessURL is where the browser lands after linking ORCID.
	OrcidSuccessURL string
}
