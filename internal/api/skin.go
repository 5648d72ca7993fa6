package api

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skinsense-ai/backend/internal/middleware"
	"github.com/skinsense-ai/backend/internal/service"
	"github.com/skinsense-ai/backend/internal/types"
)

// SkinHandler handles the assessment questionnaire, the skin profile and
// product analysis endpoints
type SkinHandler struct {
	assessmentService *service.AssessmentService
	analysisService   *service.AnalysisService
	authService       *service.AuthService
	analysisLimiter   *middleware.RateLimiter
}

// NewSkinHandler creates a new SkinHandler instance
func NewSkinHandler(assessmentService *service.AssessmentService, analysisService *service.AnalysisService, authService *service.AuthService, analysisLimiter *middleware.RateLimiter) *SkinHandler {
	return &SkinHandler{
		assessmentService: assessmentService,
		analysisService:   analysisService,
		authService:       authService,
		analysisLimiter:   analysisLimiter,
	}
}

// RegisterRoutes registers the skin routes
func (h *SkinHandler) RegisterRoutes(router *gin.RouterGroup) {
	skin := router.Group("/skin", middleware.AuthMiddleware(h.authService))
	{
		skin.POST("/assessment", h.SubmitAssessment)
		skin.GET("/profile", h.Profile)
		skin.GET("/routine", h.Routine)

		if h.analysisLimiter != nil {
			skin.POST("/analyze", h.analysisLimiter.RateLimitMiddleware(), h.AnalyzeProduct)
		} else {
			skin.POST("/analyze", h.AnalyzeProduct)
		}
		skin.GET("/analyses", h.ListAnalyses)
		skin.GET("/analyses/:id", h.GetAnalysis)
	}
}

// SubmitAssessment scores a questionnaire and stores the skin profile
func (h *SkinHandler) SubmitAssessment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var submission service.AssessmentSubmission
	if err := c.ShouldBindJSON(&submission); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.assessmentService.Submit(c.Request.Context(), userID, submission)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Profile returns the user's current skin profile
func (h *SkinHandler) Profile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.assessmentService.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Routine returns the starter routine for the assessed skin type
func (h *SkinHandler) Routine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	routine, err := h.assessmentService.Routine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, routine)
}

// AnalyzeProduct runs a product-suitability analysis
func (h *SkinHandler) AnalyzeProduct(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req types.AnalyzeProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var imageData []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image encoding"})
			return
		}
		imageData = decoded
	}

	analysis, err := h.analysisService.Analyze(c.Request.Context(), userID, service.AnalyzeRequest{
		ProductName:      req.ProductName,
		Ingredients:      req.Ingredients,
		ImageData:        imageData,
		ImageContentType: req.ImageContentType,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// ListAnalyses returns the user's analysis history
func (h *SkinHandler) ListAnalyses(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	analyses, err := h.analysisService.ListAnalyses(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"analyses": analyses})
}

// GetAnalysis returns one stored analysis
func (h *SkinHandler) GetAnalysis(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	analysisID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	analysis, err := h.analysisService.GetAnalysis(c.Request.Context(), userID, analysisID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}
