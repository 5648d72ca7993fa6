package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skinsense-ai/backend/internal/models"
	"github.com/skinsense-ai/backend/internal/service"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
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
	);`

	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("failed to create test tables: %v", err)
	}

	return db
}

func newHandlerTestUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: "hash",
		SkinType:     "oily",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, db.Create(user).Error)
	return user.ID
}

func jsonContext(t *testing.T, userID uuid.UUID, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("user_id", userID)
	return c, w
}

func TestCreateAllergenHandler(t *testing.T) {
	db := setupHandlerTestDB(t)
	handler := NewMemoryHandler(service.NewMemoryService(db), nil)
	userID := newHandlerTestUser(t, db)

	c, w := jsonContext(t, userID, "POST", "/api/v1/memory/allergens", gin.H{
		"ingredient_name": "fragrance",
		"severity":        "severe",
		"confirmed":       true,
	})
	handler.CreateAllergen(c)

	require.Equal(t, http.StatusCreated, w.Code)

	var allergen models.Allergen
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &allergen))
	assert.Equal(t, "fragrance", allergen.IngredientName)
	assert.Equal(t, models.SeveritySevere, allergen.Severity)
}

func TestCreateAllergenHandlerRejectsBadSeverity(t *testing.T) {
	db := setupHandlerTestDB(t)
	handler := NewMemoryHandler(service.NewMemoryService(db), nil)
	userID := newHandlerTestUser(t, db)

	c, w := jsonContext(t, userID, "POST", "/api/v1/memory/allergens", gin.H{
		"ingredient_name": "fragrance",
		"severity":        "apocalyptic",
	})
	handler.CreateAllergen(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummaryHandler(t *testing.T) {
	db := setupHandlerTestDB(t)
	memoryService := service.NewMemoryService(db)
	handler := NewMemoryHandler(memoryService, nil)
	userID := newHandlerTestUser(t, db)

	c, w := jsonContext(t, userID, "POST", "/api/v1/memory/allergens", gin.H{
		"ingredient_name": "fragrance",
		"severity":        "severe",
	})
	handler.CreateAllergen(c)
	require.Equal(t, http.StatusCreated, w.Code)

	c, w = jsonContext(t, userID, "GET", "/api/v1/memory/summary", nil)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)

	var summary service.SkinSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Allergens.Total)
	assert.Equal(t, 1, summary.Allergens.Severe)
	assert.NotEmpty(t, summary.Recommendations)
	assert.LessOrEqual(t, len(summary.Recommendations), 6)
}

func TestDeleteEntryHandlerNotFound(t *testing.T) {
	db := setupHandlerTestDB(t)
	handler := NewMemoryHandler(service.NewMemoryService(db), nil)
	userID := newHandlerTestUser(t, db)

	c, w := jsonContext(t, userID, "DELETE", "/api/v1/memory/entries/x", nil)
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
	handler.DeleteEntry(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlersRejectMissingUser(t *testing.T) {
	db := setupHandlerTestDB(t)
	handler := NewMemoryHandler(service.NewMemoryService(db), nil)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/memory/summary", nil)
	handler.Summary(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
