package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tidechat/tide-api/internal/models"
)

// ConnectPostgres opens the primary document store.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate reconciles the schema for every chat entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Workspace{},
		&models.Channel{},
		&models.Direct{},
		&models.Message{},
		&models.Detail{},
		&models.User{},
		&models.SchemaVersion{},
	)
}
