package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"journal-api/config"
	"journal-api/controllers"
	"journal-api/middleware"
	"journal-api/notify"
	"journal-api/routes"
	"journal-api/services"
	"journal-api/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	logger, logFile := config.InitLogging(cfg.LogFile, cfg.IsProduction())
	if logFile != nil {
		defer logFile.Close()
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := config.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer config.CloseDB(db)

	files := storage.FileStore(storage.NewMemoryStore())
	if cfg.S3Bucket != "" {
		s3cfg := storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		}
		client, err := storage.NewS3Client(ctx, s3cfg)
		if err != nil {
			logger.Fatal("failed to create s3 client", zap.Error(err))
		}
		files = storage.NewS3Store(client, s3cfg)
	} else {
		logger.Warn("S3_BUCKET not set; manuscripts are kept in memory")
	}

	var locker services.Locker = services.NewLocalLocker()
	sinks := []notify.Sink{notify.NewInAppSink(store.Notifications())}

	rdb, err := config.NewRedis(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
		locker = services.NewRedisLocker(rdb)
		sinks = append(sinks, notify.NewRedisSink(rdb, cfg.RedisChannel))
	}
	if dialer := config.NewMailDialer(cfg); dialer != nil {
		sinks = append(sinks, notify.NewMailSink(dialer, cfg.SMTPFrom, cfg.PublicURL))
	} else {
		logger.Warn("SMTP not configured; email notifications are disabled")
	}

	catalog := services.NewCatalogService(store, cfg.CatalogCacheTTL)
	sinks = append(sinks, catalog)

	dispatcher := notify.NewDispatcher(logger.Named("notify"), sinks,
		notify.WithWorkers(cfg.NotifyWorkers),
		notify.WithQueueSize(cfg.NotifyQueueSize),
		notify.WithObserver(services.NotificationObserver()),
	)

	deps := services.Deps{
		Store:  store,
		Files:  files,
		Events: dispatcher,
		Locker: locker,
		Log:    logger,
		Charges: services.ChargePolicy{
			BaseFee:   cfg.PublicationBaseFee,
			PageFee:   cfg.PublicationPageFee,
			FreePages: cfg.PublicationFreePages,
			Currency:  cfg.PublicationCurrency,
		},
	}

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL())
	orcid := services.NewOAuthOrcidClient(services.OrcidConfig{
		BaseURL:      cfg.OrcidBaseURL,
		ClientID:     cfg.OrcidClientID,
		ClientSecret: cfg.OrcidClientSecret,
		RedirectURL:  cfg.OrcidRedirectURL,
	}, nil)

	reminders := services.NewReminderJob(deps, cfg.ReminderInterval())
	api := &controllers.API{
		Users:           services.NewUserService(store, tokens, orcid, logger),
		Manuscripts:     services.NewManuscriptService(deps),
		Reviews:         services.NewReviewService(deps),
		Payments:        services.NewPaymentService(deps),
		Queries:         services.NewQueryService(deps),
		Notifications:   services.NewNotificationService(deps),
		Catalog:         catalog,
		Dashboard:       services.NewDashboardService(deps),
		Reminders:       reminders,
		Files:           files,
		Log:             logger,
		LogsToken:       cfg.LogsToken,
		LogFile:         config.LogFilePath(),
		OrcidSuccessURL: cfg.PublicURL + "/profile",
	}

	scheduler := cron.New()
	if cfg.ReminderSchedule != "" {
		if _, err := reminders.Schedule(scheduler, cfg.ReminderSchedule); err != nil {
			logger.Fatal("invalid REMINDER_SCHEDULE", zap.String("schedule", cfg.ReminderSchedule), zap.Error(err))
		}
		scheduler.Start()
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins()))
	routes.SetupRoutes(router, api)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.ServerPort),
			zap.String("environment", cfg.Environment),
			zap.String("db_driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	<-scheduler.Stop().Done()
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("notification queue not drained", zap.Error(err))
	}
}
