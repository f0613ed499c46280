package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB wraps a private in-memory sqlite database
type TestDB struct {
	DB  *gorm.DB
	DSN string
}

// SetupSQLite opens a fresh shared-cache in-memory database and migrates models
func SetupSQLite(t testing.TB, models ...interface{}) *TestDB {
	t.Helper()

	// A named shared-cache DSN keeps every pooled connection on the same database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		sqlDB.Close()
	})

	tdb := &TestDB{DB: db, DSN: dsn}
	if err := tdb.MigrateModels(models...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return tdb
}

// MigrateModels runs GORM auto-migration for the given models
func (tdb *TestDB) MigrateModels(models ...interface{}) error {
	if len(models) == 0 {
		return nil
	}
	return tdb.DB.AutoMigrate(models...)
}

// TruncateTables deletes all rows to clean data between tests
func (tdb *TestDB) TruncateTables(tableNames ...string) error {
	for _, table := range tableNames {
		if err := tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return err
		}
	}
	return nil
}
