package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinsense-ai/backend/internal/models"
	"github.com/skinsense-ai/backend/internal/service"
)

func healthContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/health", nil)
	return c, w
}

func TestHealthCheckPingsDatabase(t *testing.T) {
	db := setupHandlerTestDB(t)

	c, w := healthContext(t)
	HealthCheck(db)(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	c, w = healthContext(t)
	HealthCheck(db)(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}

func TestHealthCheckWithoutDatabase(t *testing.T) {
	c, w := healthContext(t)
	HealthCheck(nil)(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMeHandler(t *testing.T) {
	db := setupHandlerTestDB(t)
	handler := NewAuthHandler(service.NewAuthService(db, "test-secret"))
	userID := newHandlerTestUser(t, db)

	c, w := jsonContext(t, userID, "GET", "/api/v1/auth/me", nil)
	handler.Me(c)

	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "oily", user.SkinType)
}

func TestMeHandlerUnknownUser(t *testing.T) {
	db := setupHandlerTestDB(t)
	handler := NewAuthHandler(service.NewAuthService(db, "test-secret"))

	c, w := jsonContext(t, uuid.New(), "GET", "/api/v1/auth/me", nil)
	handler.Me(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
