package repositories

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rohits-web03/edudrive/internal/models"
)

// ConnectDatabase opens the Postgres database at dsn and runs migrations.
func ConnectDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info().Msg("Successfully connected to database")
	return db, nil
}

// Migrate creates or updates the drive tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Drive{},
		&models.Folder{},
		&models.File{},
		&models.CopyRequest{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
