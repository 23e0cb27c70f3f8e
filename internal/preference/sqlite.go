package preference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
)

const (
	componentName = "preference"

	slowQueryThreshold = 200 * time.Millisecond
)

// Preference is one stored key/value row.
type Preference struct {
	Key       string `gorm:"column:name;primaryKey;size:128"`
	Value     string `gorm:"size:32;not null"`
	UpdatedAt time.Time
}

// SQLiteStore keeps preferences in a SQLite database through GORM.
type SQLiteStore struct {
	db  *gorm.DB
	log logger.Logger
}

// OpenSQLite opens (creating if needed) the database at path and migrates
// the preferences table.
func OpenSQLite(path string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	log = log.Module(componentName)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, dbError(fmt.Errorf("failed to create preference directory: %w", err), "open", "")
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormAdapter(log, slowQueryThreshold),
	})
	if err != nil {
		return nil, dbError(fmt.Errorf("failed to open SQLite database: %w", err), "open", "")
	}

	// SQLite serializes writers anyway
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&Preference{}); err != nil {
		return nil, dbError(fmt.Errorf("failed to migrate preferences: %w", err), "migrate", "")
	}

	log.Info("preference store opened", logger.String("path", path))
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) GetBool(ctx context.Context, key string) (value, found bool, err error) {
	var p Preference
	err = s.db.WithContext(ctx).Where("name = ?", key).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, dbError(err, "get", key)
	}
	return parseBool(p.Value), true, nil
}

func (s *SQLiteStore) SetBool(ctx context.Context, key string, value bool) error {
	p := Preference{Key: key, Value: strconv.FormatBool(value)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return dbError(err, "set", key)
	}
	s.log.Debug("preference saved", logger.String("key", key), logger.Bool("value", value))
	return nil
}

// Close closes the underlying connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dbError(err error, operation, key string) *errors.EnhancedError {
	eb := errors.New(err).
		Component(componentName).
		Category(errors.CategoryDatabase).
		Context("operation", operation)
	if key != "" {
		eb = eb.Context("key", key)
	}
	return eb.Build()
}
