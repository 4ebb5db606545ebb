// Package bootstrap wires the shared runtime pieces (database, Redis,
// development fixtures) used by every binary.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"crewdesk/internal/cache"
	"crewdesk/internal/config"
	"crewdesk/internal/database"
	"crewdesk/internal/middleware"
	"crewdesk/internal/models"
	"crewdesk/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedBuiltIns bool
}

// InitRuntime connects to DB and Redis and optionally seeds the built-in
// categories. The Redis client may be nil when the server is unreachable;
// callers degrade gracefully.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}
	if opts.SeedBuiltIns {
		if err := seed.Categories(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in categories: %w", err)
		}
	}

	return db, cache.GetClient(), nil
}

type rootCredentials struct {
	username string
	email    string
	hash     string
}

func devRootCredentials(cfg *config.Config) (rootCredentials, error) {
	creds := rootCredentials{
		username: strings.TrimSpace(cfg.DevRootUsername),
		email:    strings.TrimSpace(strings.ToLower(cfg.DevRootEmail)),
	}
	if creds.username == "" {
		creds.username = "crewdesk_root"
	}
	if creds.email == "" {
		creds.email = "root@crewdesk.local"
	}
	if cfg.DevRootPassword == "" {
		return creds, fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return creds, fmt.Errorf("hash root password: %w", err)
	}
	creds.hash = string(hash)
	return creds, nil
}

// ensureDevRootAdmin guarantees that user ID 1 is an active admin in
// development environments that opt in via DEV_BOOTSTRAP_ROOT.
func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	creds, err := devRootCredentials(cfg)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.First(&root, 1).Error
		if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			root = models.User{
				ID:       1,
				Username: creds.username,
				Email:    creds.email,
				Password: creds.hash,
				IsActive: true,
				Role:     models.RoleAdmin,
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		} else {
			updates := map[string]any{"role": models.RoleAdmin, "is_active": true}
			if cfg.DevRootForceCredentials {
				updates["username"] = creds.username
				updates["email"] = creds.email
				updates["password"] = creds.hash
			}
			if err := tx.Model(&models.User{}).Where("id = ?", 1).Updates(updates).Error; err != nil {
				return err
			}
		}

		return fixUserIDSequence(tx)
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("Development root admin ensured",
		slog.Int("user_id", 1), slog.String("email", creds.email))
	return nil
}

// fixUserIDSequence keeps the users ID sequence ahead of the explicitly
// inserted root row. Postgres only; other dialects need no correction.
func fixUserIDSequence(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	err := tx.Exec(`
		SELECT setval(
			pg_get_serial_sequence('users', 'id'),
			GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
			true
		)
	`).Error
	if err != nil {
		return fmt.Errorf("failed to reset users sequence: %w", err)
	}
	return nil
}
