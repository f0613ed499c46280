package main

import (
	"flag"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/narwhalmedia/mediaresolver/pkg/config"
	"github.com/narwhalmedia/mediaresolver/pkg/database"
	"github.com/narwhalmedia/mediaresolver/pkg/logger"
)

func main() {
	var (
		status = flag.Bool("status", false, "Show migration status")
		dryRun = flag.Bool("dry-run", false, "Show pending migrations without applying them")
	)
	flag.Parse()

	// Database settings come from the resolver's config files and RESOLVER_ env.
	cfg := config.MustLoadServiceConfig("resolver", config.GetDefaultResolverConfig())
	zl, err := logger.NewFromConfig(cfg.Logger.ToLoggerConfig())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	db, cleanup, err := database.NewGormDB(cfg.Database.ToDatabaseConfig(false), zl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer cleanup()

	migrator := database.NewMigrator(db, zl)
	switch {
	case *status:
		showMigrationStatus(db, migrator)
	case *dryRun:
		showPendingMigrations(migrator)
	default:
		runMigrations(migrator)
	}
}

// runMigrations applies all pending migrations
func runMigrations(migrator *database.Migrator) {
	fmt.Println("Running database migrations...")

	if err := migrator.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	fmt.Println("Migrations completed successfully!")
}

// showMigrationStatus displays the current migration status
func showMigrationStatus(db *gorm.DB, migrator *database.Migrator) {
	var migrations []database.Migration
	if db.Migrator().HasTable(&database.Migration{}) {
		if err := db.Order("applied_at DESC").Find(&migrations).Error; err != nil {
			log.Fatalf("Failed to get migrations: %v", err)
		}
	}

	if len(migrations) == 0 {
		fmt.Println("No migrations have been applied yet.")
	} else {
		fmt.Println("Applied migrations:")
		fmt.Println("==================")
		for _, m := range migrations {
			fmt.Printf("%s | %s | Applied at: %s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
		}
	}

	pending, err := migrator.GetPendingMigrations()
	if err != nil {
		log.Fatalf("Failed to get pending migrations: %v", err)
	}
	if len(pending) == 0 {
		fmt.Println("\nAll migrations are up to date!")
		return
	}
	fmt.Println("\nPending migrations:")
	fmt.Println("==================")
	for _, m := range pending {
		fmt.Printf("%s | %s\n", m.Version, m.Name)
	}
}

// showPendingMigrations displays migrations that would be applied
func showPendingMigrations(migrator *database.Migrator) {
	pending, err := migrator.GetPendingMigrations()
	if err != nil {
		log.Fatalf("Failed to get pending migrations: %v", err)
	}

	if len(pending) == 0 {
		fmt.Println("No pending migrations.")
		return
	}

	fmt.Println("Pending migrations that would be applied:")
	fmt.Println("========================================")
	for _, m := range pending {
		fmt.Printf("%s | %s\n", m.Version, m.Name)
	}
}
