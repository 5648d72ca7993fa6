package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/skinsense-ai/backend/internal/models"
)

// userContextProvider renders a user's skin profile as prompt text.
// ChatService implements it with a Redis-backed cache.
type userContextProvider interface {
	UserContext(ctx context.Context, userID uuid.UUID) (string, error)
}

// AnalysisService runs product-suitability analyses: it scores a product's
// ingredient list against the user's skin profile and feeds findings back
// into skin memory.
type AnalysisService struct {
	db          *gorm.DB
	llm         LLMClient
	memory      *MemoryService
	images      *ImageService
	userContext userContextProvider
}

// NewAnalysisService creates a new AnalysisService instance
func NewAnalysisService(db *gorm.DB, llm LLMClient, memory *MemoryService, images *ImageService, userContext userContextProvider) *AnalysisService {
	return &AnalysisService{
		db:          db,
		llm:         llm,
		memory:      memory,
		images:      images,
		userContext: userContext,
	}
}

// AnalyzeRequest is one product to analyze. Ingredients are required; the
// photo is optional and only kept for the user's history.
type AnalyzeRequest struct {
	ProductName      string
	Ingredients      string
	ImageData        []byte
	ImageContentType string
}

// analysisPayload is the JSON shape the model is asked for.
type analysisPayload struct {
	ProductName           string   `json:"product_name"`
	SuitabilityScore      int      `json:"suitability_score"`
	Recommendation        string   `json:"recommendation"`
	Warnings              []string `json:"warnings"`
	BeneficialIngredients []string `json:"beneficial_ingredients"`
	WatchIngredients      []string `json:"watch_ingredients"`
}

// defaultAnalysisResult is the conservative stand-in when the model's
// response cannot be parsed. A neutral score with an explicit caveat beats
// failing the whole request.
func defaultAnalysisResult(productName string) analysisPayload {
	return analysisPayload{
		ProductName:      productName,
		SuitabilityScore: 50,
		Recommendation:   "We could not fully analyze this product. Review the ingredient list against your known allergens and patch test before regular use.",
		Warnings:         []string{"Automated analysis was incomplete for this product"},
	}
}

// Analyze scores one product for a user. The user must have completed a skin
// assessment first since the score is relative to their profile.
func (s *AnalysisService) Analyze(ctx context.Context, userID uuid.UUID, req AnalyzeRequest) (*models.ProductAnalysis, error) {
	if strings.TrimSpace(req.Ingredients) == "" {
		return nil, fmt.Errorf("%w: ingredient list is required", ErrInvalidInput)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.SkinType == "" {
		return nil, ErrAssessmentRequired
	}

	imageURL := ""
	if len(req.ImageData) > 0 {
		url, err := s.images.UploadProductImage(ctx, userID, req.ImageData, req.ImageContentType)
		if err != nil {
			// The photo is cosmetic; the analysis proceeds without it.
			log.Printf("[AnalysisService] product image upload failed: %v", err)
		} else {
			imageURL = url
		}
	}

	userContext, err := s.userContext.UserContext(ctx, userID)
	if err != nil {
		log.Printf("[AnalysisService] failed to build user context: %v", err)
		userContext = fmt.Sprintf("Skin type: %s", user.SkinType)
	}

	raw, err := s.llm.AnalyzeProduct(ctx, req.Ingredients, userContext)
	if err != nil {
		return nil, fmt.Errorf("product analysis failed: %w", err)
	}

	payload, ok := parseAnalysis(raw)
	if !ok {
		log.Printf("[AnalysisService] unparseable analysis response, using default result")
		payload = defaultAnalysisResult(req.ProductName)
	}
	if payload.ProductName == "" {
		payload.ProductName = req.ProductName
	}
	if payload.SuitabilityScore < 0 {
		payload.SuitabilityScore = 0
	}
	if payload.SuitabilityScore > 100 {
		payload.SuitabilityScore = 100
	}

	resultJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}

	analysis := models.ProductAnalysis{
		ID:               uuid.New(),
		UserID:           userID,
		ProductImageURL:  imageURL,
		ProductName:      payload.ProductName,
		Ingredients:      req.Ingredients,
		Result:           datatypes.JSON(resultJSON),
		SuitabilityScore: payload.SuitabilityScore,
		Recommendation:   payload.Recommendation,
		Warnings:         payload.Warnings,
	}
	if err := s.db.WithContext(ctx).Create(&analysis).Error; err != nil {
		return nil, err
	}

	s.recordFindings(ctx, userID, payload)

	return &analysis, nil
}

// parseAnalysis decodes the model response, tolerating markdown fences.
func parseAnalysis(raw string) (analysisPayload, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var payload analysisPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return analysisPayload{}, false
	}
	if payload.Recommendation == "" && payload.SuitabilityScore == 0 {
		return analysisPayload{}, false
	}
	return payload, true
}

// recordFindings feeds analysis warnings and watch ingredients into skin
// memory. Best effort: failures are logged, never surfaced.
func (s *AnalysisService) recordFindings(ctx context.Context, userID uuid.UUID, payload analysisPayload) {
	product := payload.ProductName
	if product == "" {
		product = "a scanned product"
	}

	for _, warning := range payload.Warnings {
		_, err := s.memory.AppendEntry(ctx, userID, "analysis_finding",
			fmt.Sprintf("%s: %s", product, warning),
			map[string]interface{}{"product_name": payload.ProductName, "kind": "warning"},
			"product_analysis", 4)
		if err != nil {
			log.Printf("[AnalysisService] failed to record warning: %v", err)
		}
	}
	for _, watch := range payload.WatchIngredients {
		_, err := s.memory.AppendEntry(ctx, userID, "analysis_finding",
			fmt.Sprintf("%s: watch %s", product, watch),
			map[string]interface{}{"product_name": payload.ProductName, "kind": "watch_ingredient"},
			"product_analysis", 3)
		if err != nil {
			log.Printf("[AnalysisService] failed to record watch ingredient: %v", err)
		}
	}
}

// ListAnalyses returns a user's analysis history, newest first.
func (s *AnalysisService) ListAnalyses(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ProductAnalysis, error) {
	if limit <= 0 {
		limit = 20
	}
	var analyses []models.ProductAnalysis
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&analyses).Error
	if err != nil {
		return nil, err
	}
	return analyses, nil
}

// GetAnalysis retrieves one analysis by id, scoped to its owner.
func (s *AnalysisService) GetAnalysis(ctx context.Context, userID, analysisID uuid.UUID) (*models.ProductAnalysis, error) {
	var analysis models.ProductAnalysis
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", analysisID, userID).First(&analysis).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}
