package database

import (
	"gorm.io/gorm"

	"github.com/skinsense-ai/backend/internal/models"
)

// Migrate brings the schema up to date for every model in the application.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Allergen{},
		&models.AllergenReaction{},
		&models.SkinIssue{},
		&models.MemoryEntry{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.ProductAnalysis{},
	)
}
