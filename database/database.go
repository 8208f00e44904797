package database

import (
	"fmt"
	"issuehub/models"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqlitePrefix selects the embedded SQLite driver, e.g. "sqlite:issuehub.db".
const sqlitePrefix = "sqlite:"

// Open connects to the database named by url and migrates the schema.
// URLs starting with "sqlite:" open a SQLite file; anything else is handed
// to the Postgres driver.
func Open(url string, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(url, sqlitePrefix); ok {
		dialector = sqlite.Open(path)
	} else {
		dialector = postgres.Open(url)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(log),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Project{}, &models.ProjectMember{}, &models.Issue{}, &models.Comment{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return db, nil
}

type gormWriter struct {
	log   zerolog.Logger
	level zerolog.Level
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.WithLevel(w.level).Msgf(format, args...)
}

// newGormLogger routes gorm's query log through zerolog. SQL statements are
// only traced when the logger runs at debug level.
func newGormLogger(log zerolog.Logger) logger.Interface {
	w := gormWriter{log: log.With().Str("component", "gorm").Logger(), level: zerolog.WarnLevel}
	level := logger.Warn
	if log.GetLevel() <= zerolog.DebugLevel {
		w.level = zerolog.DebugLevel
		level = logger.Info
	}
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}
