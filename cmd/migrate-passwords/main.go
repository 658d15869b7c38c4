// Migration script to hash legacy plaintext passwords
// cmd/migrate-passwords/main.go
package main

import (
	"context"
	"log"
	"strings"

	"go.uber.org/zap"

	"journal-api/config"
	"journal-api/repository"
	"journal-api/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}
	logger, logFile := config.InitLogging(cfg.LogFile, cfg.IsProduction())
	if logFile != nil {
		defer logFile.Close()
	}

	store, db, err := config.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer config.CloseDB(db)

	ctx := context.Background()
	var updated, skipped, failed int
	for page := 1; ; page++ {
		users, total, err := store.Users().List(ctx, repository.UserFilter{Page: page, Limit: 100})
		if err != nil {
			logger.Fatal("failed to fetch users", zap.Error(err))
		}

		for i := range users {
			user := &users[i]
			// bcrypt hashes start with $2
			if user.Password == "" || strings.HasPrefix(user.Password, "$2") {
				skipped++
				continue
			}
			hashed, err := services.HashPassword(user.Password)
			if err != nil {
				logger.Error("failed to hash password", zap.String("email", user.Email), zap.Error(err))
				failed++
				continue
			}
			user.Password = hashed
			if err := store.Users().Update(ctx, user); err != nil {
				logger.Error("failed to update password", zap.String("email", user.Email), zap.Error(err))
				failed++
				continue
			}
			updated++
			logger.Info("password hashed", zap.String("email", user.Email))
		}

		if len(users) == 0 || int64(page*100) >= total {
			break
		}
	}

	logger.Info("Password migration completed!",
		zap.Int("updated", updated),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))
}
