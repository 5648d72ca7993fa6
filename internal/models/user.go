package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`

	// Skin profile, filled in by the assessment questionnaire. SkinType stays
	// empty until the user completes an assessment.
	SkinType          string           `gorm:"size:20" json:"skin_type"`
	AssessmentAnswers datatypes.JSON   `json:"assessment_answers,omitempty"`
	SkinConcerns      JSONBStringArray `gorm:"type:jsonb;default:'[]'" json:"skin_concerns"`
}

func (User) TableName() string {
	return "users"
}

// ProductAnalysis stores one AI product-suitability analysis for a user.
type ProductAnalysis struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	ProductImageURL  string           `gorm:"size:255" json:"product_image_url,omitempty"`
	ProductName      string           `gorm:"size:255" json:"product_name"`
	Ingredients      string           `gorm:"type:text" json:"ingredients"`
	Result           datatypes.JSON   `gorm:"not null" json:"result"`
	SuitabilityScore int              `json:"suitability_score"`
	Recommendation   string           `gorm:"type:text" json:"recommendation"`
	Warnings         JSONBStringArray `gorm:"type:jsonb;default:'[]'" json:"warnings"`
	CreatedAt        time.Time        `json:"created_at"`
}

func (ProductAnalysis) TableName() string {
	return "product_analyses"
}
