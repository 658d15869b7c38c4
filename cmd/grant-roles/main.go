// Command grant-roles adds capabilities to existing users. The first
// editor-in-chief has to be created this way.
package main

import (
	"context"
	"flag"
	"log"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"journal-api/config"
	"journal-api/models"
)

func main() {
	var (
		userIDsRaw string
		rolesRaw   string
		revoke     bool
	)
	flag.StringVar(&userIDsRaw, "user-ids", "", "comma-separated list of user IDs")
	flag.StringVar(&rolesRaw, "roles", "", "comma-separated roles: author, reviewer, editor, editorInChief")
	flag.BoolVar(&revoke, "revoke", false, "remove the roles instead of granting them")
	flag.Parse()

	userIDs := parseIDs(userIDsRaw)
	if len(userIDs) == 0 {
		log.Fatal("-user-ids is empty. Please add at least one user_id.")
	}
	var roles models.RoleSet
	for _, part := range strings.Split(rolesRaw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		role, ok := models.ParseRole(part)
		if !ok {
			log.Fatalf("unknown role '%s'", part)
		}
		roles = roles.With(role)
	}
	if roles == 0 {
		log.Fatal("-roles is empty")
	}

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
	var (
		succeeded int
		failed    []string
	)
	for _, id := range userIDs {
		user, err := store.Users().Get(ctx, id)
		if err != nil {
			logger.Error("user lookup failed", zap.Int("user_id", id), zap.Error(err))
			failed = append(failed, formatFailureLabel(id, err.Error()))
			continue
		}
		before := user.Roles
		if revoke {
			user.Roles = user.Roles.Without(roles)
		} else {
			user.Roles = user.Roles.With(roles)
		}
		if user.Roles == before {
			logger.Info("roles unchanged", zap.Int("user_id", id), zap.String("roles", user.Roles.String()))
			succeeded++
			continue
		}
		if err := store.Users().Update(ctx, user); err != nil {
			logger.Error("role update failed", zap.Int("user_id", id), zap.Error(err))
			failed = append(failed, formatFailureLabel(id, err.Error()))
			continue
		}
		logger.Info("roles updated",
			zap.Int("user_id", id),
			zap.String("before", before.String()),
			zap.String("after", user.Roles.String()))
		succeeded++
	}

	if len(failed) > 0 {
		logger.Fatal("completed with errors",
			zap.Int("succeeded", succeeded),
			zap.String("failed", strings.Join(failed, ", ")))
	}
	logger.Info("role update finished", zap.Int("users", succeeded))
}

func parseIDs(raw string) []int {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			log.Fatalf("invalid user id '%s'", part)
		}
		ids = append(ids, id)
	}
	return ids
}

func formatFailureLabel(userID int, reason string) string {
	return "user_id=" + strconv.Itoa(userID) + " (" + reason + ")"
}
