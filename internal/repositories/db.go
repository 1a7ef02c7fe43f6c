package repositories

import (
	"fmt"
	"log"

	"github.com/yemaney/filevector/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnectDatabase opens the Postgres connection and runs migrations. The
// vector extension must exist before migrating the embedding column.
func ConnectDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to enable vector extension: %w", err)
	}

	// Run migrations
	err = db.AutoMigrate(
		&models.User{},
		&models.FileMetadata{},
	)
	if err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	log.Println("Successfully connected to database")
	return db, nil
}
