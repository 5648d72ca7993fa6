package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Allergen severity levels.
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// Skin issue lifecycle states. Any state may transition to any other: skin
// conditions relapse, so the state machine is deliberately liberal.
const (
	IssueStatusActive    = "active"
	IssueStatusImproving = "improving"
	IssueStatusResolved  = "resolved"
)

// Allergen is a user-specific ingredient flagged as causing a reaction. At
// most one active row exists per (user_id, lower(ingredient_name)).
type Allergen struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	IngredientName string    `gorm:"size:255;not null" json:"ingredient_name"`
	Severity       string    `gorm:"size:50;not null;default:'mild'" json:"severity"`
	Confirmed      bool      `gorm:"not null;default:false" json:"confirmed"`
	Notes          string    `gorm:"type:text" json:"notes"`
	FirstDetected  time.Time `gorm:"autoCreateTime" json:"first_detected"`
	UpdatedAt      time.Time `json:"updated_at"`
	Active         bool      `gorm:"not null;default:true" json:"active"`
}

func (Allergen) TableName() string {
	return "user_allergens"
}

// SkinIssue is a tracked dermatological condition with a 1-10 severity and a
// lifecycle status. ResolvedAt records the first transition into resolved and
// is never overwritten afterwards, even if the issue reopens.
type SkinIssue struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	IssueType     string           `gorm:"size:100;not null" json:"issue_type"`
	Description   string           `gorm:"type:text" json:"description"`
	Severity      int              `gorm:"not null;default:1" json:"severity"`
	Status        string           `gorm:"size:50;not null;default:'active'" json:"status"`
	Triggers      JSONBStringArray `gorm:"type:jsonb;default:'[]'" json:"triggers"`
	FirstReported time.Time        `gorm:"autoCreateTime" json:"first_reported"`
	LastUpdated   time.Time        `json:"last_updated"`
	ResolvedAt    *time.Time       `json:"resolved_at,omitempty"`
}

func (SkinIssue) TableName() string {
	return "skin_issues"
}

// MemoryEntry is an immutable, append-only fact about a user's skin history.
// Entries are never updated; deletion is a hard delete. The Active flag is
// carried for API compatibility but delete semantics never flip it.
type MemoryEntry struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	EntryType  string         `gorm:"size:50;not null" json:"entry_type"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
	Source     string         `gorm:"size:100" json:"source"`
	Importance int            `gorm:"not null;default:1" json:"importance"`
	CreatedAt  time.Time      `json:"created_at"`
	Active     bool           `gorm:"not null;default:true" json:"active"`
}

func (MemoryEntry) TableName() string {
	return "skin_memory_entries"
}

// AllergenReaction records a single reported reaction incident against an
// allergen, separate from the allergen's current state.
type AllergenReaction struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID              uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	AllergenID          uuid.UUID `gorm:"type:uuid;not null" json:"allergen_id"`
	ProductName         string    `gorm:"size:255" json:"product_name"`
	ReactionDescription string    `gorm:"type:text" json:"reaction_description"`
	ReactionSeverity    string    `gorm:"size:50" json:"reaction_severity"`
	OccurredAt          time.Time `gorm:"autoCreateTime" json:"occurred_at"`
	TreatmentNotes      string    `gorm:"type:text" json:"treatment_notes"`
}

func (AllergenReaction) TableName() string {
	return "allergen_reactions"
}
