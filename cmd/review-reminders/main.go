// Command review-reminders sends overdue review reminders once and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"journal-api/config"
	"journal-api/notify"
	"journal-api/services"
)

func main() {
	var intervalHours int
	flag.IntVar(&intervalHours, "interval-hours", 0, "minimum hours between reminders for one assignment (default REMINDER_INTERVAL_HOURS)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}
	logger, logFile := config.InitLogging(cfg.LogFile, cfg.IsProduction())
	if logFile != nil {
		defer logFile.Close()
	}
	ctx := context.Background()

	store, db, err := config.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer config.CloseDB(db)

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
	}
	dispatcher := notify.NewDispatcher(logger.Named("notify"), sinks, notify.WithWorkers(1))

	interval := cfg.ReminderInterval()
	if intervalHours > 0 {
		interval = time.Duration(intervalHours) * time.Hour
	}
	job := services.NewReminderJob(services.Deps{
		Store:  store,
		Events: dispatcher,
		Locker: locker,
		Log:    logger,
	}, interval)

	summary, runErr := job.Run(ctx)

	closeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := dispatcher.Close(closeCtx); err != nil {
		logger.Warn("notification queue not drained", zap.Error(err))
	}

	if runErr != nil {
		if errors.Is(runErr, services.ErrRemindersAlreadyRunning) {
			logger.Fatal("review reminders already running (lock held)")
		}
		logger.Fatal("review reminders failed", zap.Error(runErr))
	}
	fmt.Printf("Overdue assignments: %d, reminders sent: %d, skipped: %d, failed: %d\n",
		summary.Overdue, summary.Sent, summary.Skipped, summary.Failed)
}
