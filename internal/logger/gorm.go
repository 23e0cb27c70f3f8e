package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormAdapter routes GORM's logging into a module Logger. Statements go to
// TRACE, so they only show when the owning module is set to "trace".
type GormAdapter struct {
	logger        Logger
	slowThreshold time.Duration
}

// NewGormAdapter wraps log for use as gorm.Config.Logger. Statements slower
// than slowThreshold are logged at WARN; zero disables that.
func NewGormAdapter(log Logger, slowThreshold time.Duration) *GormAdapter {
	if log == nil {
		log = NewSlogLogger(nil, LogLevelInfo, nil)
	}
	return &GormAdapter{logger: log, slowThreshold: slowThreshold}
}

// LogMode is ignored; levels come from the central logger configuration.
func (a *GormAdapter) LogMode(_ gormlogger.LogLevel) gormlogger.Interface {
	return a
}

func (a *GormAdapter) Info(_ context.Context, msg string, data ...any) {
	a.logger.Debug(fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Warn(_ context.Context, msg string, data ...any) {
	a.logger.Warn(fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Error(_ context.Context, msg string, data ...any) {
	a.logger.Error(fmt.Sprintf(msg, data...))
}

// Trace logs one executed statement. A missing preference row is an expected
// outcome and is not treated as an error.
func (a *GormAdapter) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	log := a.logger.WithContext(ctx)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		log.Warn("statement failed",
			String("sql", sql),
			Int64("rows", rows),
			Duration("elapsed", elapsed),
			Error(err))
	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		log.Warn("slow statement",
			String("sql", sql),
			Duration("elapsed", elapsed),
			Duration("threshold", a.slowThreshold))
	default:
		log.Trace("statement",
			String("sql", sql),
			Int64("rows", rows),
			Duration("elapsed", elapsed))
	}
}
