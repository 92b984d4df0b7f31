package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"travelcms/internal/model"
)

// NewConnection opens the connection pool and migrates the schema
func NewConnection(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// Driver errors become gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	// Roles first so users can reference them
	err = db.AutoMigrate(
		&model.Role{},
		&model.User{},
		&model.Place{},
		&model.Route{},
		&model.Comment{},
		&model.Log{},
	)
	if err != nil {
		log.Warn("failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}
