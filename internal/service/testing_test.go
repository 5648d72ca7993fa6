package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skinsense-ai/backend/internal/models"
)

// setupTestDB opens an in-memory SQLite database with a simplified schema
// mirroring the postgres tables.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	schema := `
	CREATE TABLE users (
		id TEXT PRIMARY KEY,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		skin_type TEXT DEFAULT '',
		assessment_answers TEXT,
		skin_concerns TEXT DEFAULT '[]'
	);

	CREATE TABLE user_allergens (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		ingredient_name TEXT NOT NULL,
		severity TEXT NOT NULL DEFAULT 'mild',
		confirmed BOOLEAN NOT NULL DEFAULT false,
		notes TEXT,
		first_detected DATETIME,
		updated_at DATETIME,
		active BOOLEAN NOT NULL DEFAULT true
	);

	CREATE TABLE skin_issues (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		issue_type TEXT NOT NULL,
		description TEXT,
		severity INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL DEFAULT 'active',
		triggers TEXT DEFAULT '[]',
		first_reported DATETIME,
		last_updated DATETIME,
		resolved_at DATETIME
	);

	CREATE TABLE skin_memory_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		source TEXT,
		importance INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		active BOOLEAN NOT NULL DEFAULT true
	);

	CREATE TABLE allergen_reactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		allergen_id TEXT NOT NULL,
		product_name TEXT,
		reaction_description TEXT,
		reaction_severity TEXT,
		occurred_at DATETIME,
		treatment_notes TEXT
	);

	CREATE TABLE chat_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME,
		active BOOLEAN NOT NULL DEFAULT true
	);

	CREATE TABLE chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		body TEXT NOT NULL,
		is_user BOOLEAN NOT NULL,
		created_at DATETIME
	);

	CREATE TABLE product_analyses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		product_image_url TEXT,
		product_name TEXT,
		ingredients TEXT,
		result TEXT NOT NULL,
		suitability_score INTEGER,
		recommendation TEXT,
		warnings TEXT DEFAULT '[]',
		created_at DATETIME
	);`

	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("failed to create test tables: %v", err)
	}

	return db
}

// createTestUser inserts a user and returns its id.
func createTestUser(t *testing.T, db *gorm.DB, skinType string) uuid.UUID {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: "hash",
		SkinType:     skinType,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user.ID
}

// mockLLM is a scriptable LLMClient for tests.
type mockLLM struct {
	chatReply    string
	chatErr      error
	extractJSON  string
	extractErr   error
	analysisJSON string
	analysisErr  error

	chatCalls    int
	extractCalls int
}

func (m *mockLLM) Chat(ctx context.Context, systemPrompt string, messages []Message) (string, error) {
	m.chatCalls++
	return m.chatReply, m.chatErr
}

func (m *mockLLM) ExtractFacts(ctx context.Context, conversation string) (string, error) {
	m.extractCalls++
	if m.extractJSON == "" && m.extractErr == nil {
		return `{"allergens":[],"skin_issues":[],"insights":[]}`, nil
	}
	return m.extractJSON, m.extractErr
}

func (m *mockLLM) AnalyzeProduct(ctx context.Context, ingredients, userContext string) (string, error) {
	return m.analysisJSON, m.analysisErr
}
