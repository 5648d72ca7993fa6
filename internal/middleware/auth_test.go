package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/skinsense-ai/backend/internal/types"
)

type stubValidator struct {
	claims *types.TokenClaims
	err    error
}

func (s *stubValidator) ValidateToken(token string) (*types.TokenClaims, error) {
	return s.claims, s.err
}

func performRequest(validator TokenValidator, authHeader string) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	if authHeader != "" {
		c.Request.Header.Set("Authorization", authHeader)
	}
	AuthMiddleware(validator)(c)
	return w, c
}

func TestAuthMiddlewareSetsUserID(t *testing.T) {
	userID := uuid.New()
	validator := &stubValidator{claims: &types.TokenClaims{UserID: userID}}

	w, c := performRequest(validator, "Bearer sometoken")

	assert.Equal(t, http.StatusOK, w.Code)
	got, exists := c.Get("user_id")
	assert.True(t, exists)
	assert.Equal(t, userID, got)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	w, _ := performRequest(&stubValidator{}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	w, _ := performRequest(&stubValidator{}, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	validator := &stubValidator{err: errors.New("token expired")}
	w, _ := performRequest(validator, "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
