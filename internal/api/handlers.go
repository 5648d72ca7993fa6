package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/skinsense-ai/backend/internal/database"
	"github.com/skinsense-ai/backend/internal/middleware"
	"github.com/skinsense-ai/backend/internal/service"
)

// HealthCheck reports API health, pinging the database when one is wired.
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := database.HealthCheck(c.Request.Context(), db); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unhealthy",
					"error":  "database unreachable",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "SkinSense API is running",
			"version": "v1.0.0",
		})
	}
}

// Services bundles everything the route table needs.
type Services struct {
	DB         *gorm.DB
	Auth       *service.AuthService
	Memory     *service.MemoryService
	Chat       *service.ChatService
	Assessment *service.AssessmentService
	Analysis   *service.AnalysisService
	Redis      *redis.Client
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, svc Services) {
	// Health check endpoint (no auth required)
	health := HealthCheck(svc.DB)
	router.GET("/health", health)
	router.GET("/api/health", health)

	var chatLimiter, analysisLimiter *middleware.RateLimiter
	if svc.Redis != nil {
		chatLimiter = middleware.NewChatRateLimiter(svc.Redis)
		analysisLimiter = middleware.NewAnalysisRateLimiter(svc.Redis)
	}

	authHandler := NewAuthHandler(svc.Auth)
	skinHandler := NewSkinHandler(svc.Assessment, svc.Analysis, svc.Auth, analysisLimiter)
	chatHandler := NewChatHandler(svc.Chat, svc.Auth, chatLimiter)
	memoryHandler := NewMemoryHandler(svc.Memory, svc.Auth)

	v1 := router.Group("/api/v1")
	authHandler.RegisterRoutes(v1)
	skinHandler.RegisterRoutes(v1)
	chatHandler.RegisterRoutes(v1)
	memoryHandler.RegisterRoutes(v1)
}

// currentUserID pulls the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	return userID, true
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidSeverity),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidImportance):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAssessmentRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "complete a skin assessment first"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// pathUUID parses a uuid path parameter, answering 400 on garbage.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
