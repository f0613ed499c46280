package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// gormLogger routes GORM output through the service logger
type gormLogger struct {
	logger        interfaces.Logger
	slowThreshold time.Duration
	debug         bool
}

// NewGormLogger adapts log for GORM. Queries slower than slowThreshold are
// logged at warn level; debug traces every statement.
func NewGormLogger(log interfaces.Logger, slowThreshold time.Duration, debug bool) gormlogger.Interface {
	return &gormLogger{
		logger:        log.WithFields(interfaces.String("component", "gorm")),
		slowThreshold: slowThreshold,
		debug:         debug,
	}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.debug = level >= gormlogger.Info
	return &clone
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Info(fmt.Sprintf(msg, data...))
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	log := l.logger.WithContext(ctx)

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("sql error",
			interfaces.Error(err),
			interfaces.String("sql", sql),
			interfaces.Int64("rows", rows),
			interfaces.Duration("elapsed", elapsed),
		)
		return
	}

	if l.slowThreshold > 0 && elapsed > l.slowThreshold {
		log.Warn("slow sql query",
			interfaces.String("sql", sql),
			interfaces.Int64("rows", rows),
			interfaces.Duration("elapsed", elapsed),
		)
	} else if l.debug {
		log.Debug("sql trace",
			interfaces.String("sql", sql),
			interfaces.Int64("rows", rows),
			interfaces.Duration("elapsed", elapsed),
		)
	}
}
