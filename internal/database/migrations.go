package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"crewdesk/internal/middleware"

	"gorm.io/gorm"
)

// Migration pairs the up and down SQL for one schema version. Scripts live
// under migrations/ as NNNNNN_name.up.sql / NNNNNN_name.down.sql.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

//go:embed migrations/*.sql
var migrationFiles embed.FS

var (
	loadOnce sync.Once
	loaded   []Migration
	loadErr  error
)

// schemaMigration tracks which versions have been applied.
type schemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (schemaMigration) TableName() string { return "schema_migrations" }

func loadMigrations() ([]Migration, error) {
	loadOnce.Do(func() {
		ups, err := fs.Glob(migrationFiles, "migrations/*.up.sql")
		if err != nil {
			loadErr = err
			return
		}
		for _, upPath := range ups {
			base := strings.TrimSuffix(strings.TrimPrefix(upPath, "migrations/"), ".up.sql")
			versionStr, name, ok := strings.Cut(base, "_")
			if !ok {
				loadErr = fmt.Errorf("migration %s does not follow NNNNNN_name.up.sql", upPath)
				return
			}
			version, err := strconv.Atoi(versionStr)
			if err != nil {
				loadErr = fmt.Errorf("migration %s has a non-numeric version: %w", upPath, err)
				return
			}
			up, err := migrationFiles.ReadFile(upPath)
			if err != nil {
				loadErr = err
				return
			}
			down, err := migrationFiles.ReadFile("migrations/" + base + ".down.sql")
			if err != nil {
				loadErr = fmt.Errorf("migration %06d_%s is missing its down script: %w", version, name, err)
				return
			}
			loaded = append(loaded, Migration{
				Version: version,
				Name:    name,
				Up:      string(up),
				Down:    string(down),
			})
		}
		sort.Slice(loaded, func(i, j int) bool { return loaded[i].Version < loaded[j].Version })
	})
	return loaded, loadErr
}

func appliedVersions(ctx context.Context, db *gorm.DB) (map[int]bool, error) {
	var versions []int
	if err := db.WithContext(ctx).Model(&schemaMigration{}).Order("version").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// RunMigrations applies every pending migration in version order. Each
// migration runs in its own transaction together with its tracking row.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	all, err := loadMigrations()
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).AutoMigrate(&schemaMigration{}); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	known := make(map[int]bool, len(all))
	for _, m := range all {
		known[m.Version] = true
	}
	for v := range applied {
		if !known[v] {
			return fmt.Errorf("database has applied version %06d which no embedded migration provides", v)
		}
	}

	for _, m := range all {
		if applied[m.Version] {
			continue
		}
		middleware.Logger.Info("Applying migration",
			slog.Int("version", m.Version), slog.String("name", m.Name))
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.Up).Error; err != nil {
				return err
			}
			return tx.Create(&schemaMigration{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %06d_%s failed: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// RollbackMigration reverts one applied version using its down script.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	all, err := loadMigrations()
	if err != nil {
		return err
	}
	var target *Migration
	for i := range all {
		if all[i].Version == version {
			target = &all[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no embedded migration has version %06d", version)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if !applied[version] {
		return fmt.Errorf("migration %06d has not been applied", version)
	}

	middleware.Logger.Info("Rolling back migration",
		slog.Int("version", version), slog.String("name", target.Name))
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(target.Down).Error; err != nil {
			return err
		}
		return tx.Where("version = ?", version).Delete(&schemaMigration{}).Error
	})
	if err != nil {
		return fmt.Errorf("rollback of %06d_%s failed: %w", version, target.Name, err)
	}
	return nil
}
