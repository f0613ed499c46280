package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds database connection configuration
type Config struct {
	Driver          string
	Path            string // sqlite only
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	SlowThreshold   time.Duration
	Debug           bool
}

// DefaultConfig returns a local sqlite configuration
func DefaultConfig() *Config {
	return &Config{
		Driver:          DriverSQLite,
		Path:            "mediaresolver.db",
		MaxConnections:  25,
		MinConnections:  5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		SlowThreshold:   200 * time.Millisecond,
	}
}

// DSN builds the driver specific connection string
func (c *Config) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func (c *Config) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case DriverPostgres:
		return postgres.Open(c.DSN()), nil
	case DriverSQLite, "":
		return sqlite.Open(c.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", c.Driver)
	}
}

// NewGormDB creates a new GORM database connection. The returned cleanup
// closes the pool.
func NewGormDB(cfg *Config, log interfaces.Logger) (*gorm.DB, func(), error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log, cfg.SlowThreshold, cfg.Debug),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: cfg.Driver == DriverPostgres,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
	}

	if cfg.Driver == DriverSQLite || cfg.Driver == "" {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxConnections)
		sqlDB.SetMaxIdleConns(cfg.MinConnections)
		sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cleanup := func() {
		sqlDB.Close()
	}
	return db, cleanup, nil
}
