package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/narwhalmedia/mediaresolver/internal/catalog/repository"
	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// Migration represents an applied database migration
type Migration struct {
	ID        uint      `gorm:"primaryKey"`
	Version   string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// MigrationFunc is a function that performs a migration
type MigrationFunc func(*gorm.DB) error

// MigrationEntry represents a single migration
type MigrationEntry struct {
	Version string
	Name    string
	Up      MigrationFunc
}

// Migrator handles database migrations
type Migrator struct {
	db         *gorm.DB
	logger     interfaces.Logger
	migrations []MigrationEntry
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *gorm.DB, log interfaces.Logger) *Migrator {
	return &Migrator{
		db:         db,
		logger:     log,
		migrations: getAllMigrations(),
	}
}

// RunMigrations runs all pending database migrations
func RunMigrations(db *gorm.DB, log interfaces.Logger) error {
	return NewMigrator(db, log).Migrate()
}

// Migrate runs all pending migrations
func (m *Migrator) Migrate() error {
	if err := m.db.AutoMigrate(&Migration{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	pending, err := m.GetPendingMigrations()
	if err != nil {
		return err
	}

	for _, migration := range pending {
		m.logger.Info("Running migration",
			interfaces.String("version", migration.Version),
			interfaces.String("name", migration.Name))

		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&Migration{
				Version:   migration.Version,
				Name:      migration.Name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to run migration %s: %w", migration.Version, err)
		}
	}

	return nil
}

// GetPendingMigrations returns the migrations that haven't been applied yet
func (m *Migrator) GetPendingMigrations() ([]MigrationEntry, error) {
	if !m.db.Migrator().HasTable(&Migration{}) {
		return m.migrations, nil
	}

	var appliedMigrations []Migration
	if err := m.db.Find(&appliedMigrations).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	applied := make(map[string]bool, len(appliedMigrations))
	for _, migration := range appliedMigrations {
		applied[migration.Version] = true
	}

	var pending []MigrationEntry
	for _, migration := range m.migrations {
		if !applied[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// getAllMigrations returns all migrations in order
func getAllMigrations() []MigrationEntry {
	return []MigrationEntry{
		{
			Version: "20240601_001",
			Name:    "Create catalog schema",
			Up:      migration001CreateCatalogSchema,
		},
		{
			Version: "20240601_002",
			Name:    "Add search indexes",
			Up:      migration002AddSearchIndexes,
		},
	}
}

func migration001CreateCatalogSchema(tx *gorm.DB) error {
	if err := tx.AutoMigrate(repository.Models()...); err != nil {
		return fmt.Errorf("failed to migrate catalog models: %w", err)
	}
	return nil
}

func migration002AddSearchIndexes(tx *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_media_items_type_rating ON media_items(type, rating)",
		"CREATE INDEX IF NOT EXISTS idx_media_keywords_media_keyword ON media_keywords(media_id, keyword)",
	}

	if tx.Dialector.Name() == DriverPostgres {
		if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
			return fmt.Errorf("failed to create pg_trgm extension: %w", err)
		}
		indexes = append(indexes,
			"CREATE INDEX IF NOT EXISTS idx_media_items_title_trgm ON media_items USING gin(LOWER(title) gin_trgm_ops)")
	}

	for _, index := range indexes {
		if err := tx.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
