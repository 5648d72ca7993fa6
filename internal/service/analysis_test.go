package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinsense-ai/backend/internal/models"
)

type staticContextProvider string

func (s staticContextProvider) UserContext(ctx context.Context, userID uuid.UUID) (string, error) {
	return string(s), nil
}

func newTestAnalysisService(t *testing.T) (*AnalysisService, *MemoryService, *mockLLM, func(skinType string) uuid.UUID) {
	t.Helper()
	db := setupTestDB(t)
	memory := NewMemoryService(db)
	llm := &mockLLM{}
	svc := NewAnalysisService(db, llm, memory, NewImageService(nil), staticContextProvider("Skin type: oily"))
	return svc, memory, llm, func(skinType string) uuid.UUID {
		return createTestUser(t, db, skinType)
	}
}

func TestAnalyzeRequiresAssessment(t *testing.T) {
	svc, _, llm, newUser := newTestAnalysisService(t)
	llm.analysisJSON = `{"suitability_score":80,"recommendation":"fine"}`

	_, err := svc.Analyze(context.Background(), newUser(""), AnalyzeRequest{Ingredients: "water, glycerin"})
	assert.ErrorIs(t, err, ErrAssessmentRequired)
}

func TestAnalyzeStoresResultAndFindings(t *testing.T) {
	svc, memory, llm, newUser := newTestAnalysisService(t)
	llm.analysisJSON = `{
		"product_name": "GlowCo Serum",
		"suitability_score": 35,
		"recommendation": "Skip this one; it conflicts with your profile.",
		"warnings": ["contains fragrance, which you reported a reaction to"],
		"beneficial_ingredients": ["niacinamide helps with oil control"],
		"watch_ingredients": ["denatured alcohol may be drying"]
	}`
	userID := newUser("oily")
	ctx := context.Background()

	analysis, err := svc.Analyze(ctx, userID, AnalyzeRequest{
		ProductName: "GlowCo Serum",
		Ingredients: "water, alcohol denat, fragrance, niacinamide",
	})
	require.NoError(t, err)

	assert.Equal(t, "GlowCo Serum", analysis.ProductName)
	assert.Equal(t, 35, analysis.SuitabilityScore)
	assert.Len(t, []string(analysis.Warnings), 1)

	warnings, err := memory.ListEntries(ctx, userID, "analysis_finding", 0, 0)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	importances := map[int]bool{}
	for _, e := range warnings {
		importances[e.Importance] = true
	}
	// One warning at importance 4, one watch ingredient at 3.
	assert.True(t, importances[4])
	assert.True(t, importances[3])
}

func TestAnalyzeFallsBackOnUnparseableResponse(t *testing.T) {
	svc, _, llm, newUser := newTestAnalysisService(t)
	llm.analysisJSON = "Sorry, I can't respond in JSON today."
	userID := newUser("dry")

	analysis, err := svc.Analyze(context.Background(), userID, AnalyzeRequest{
		ProductName: "Mystery Cream",
		Ingredients: "aqua, something",
	})
	require.NoError(t, err)

	assert.Equal(t, 50, analysis.SuitabilityScore)
	assert.Equal(t, "Mystery Cream", analysis.ProductName)
	assert.NotEmpty(t, analysis.Recommendation)
}

func TestAnalyzeValidation(t *testing.T) {
	svc, _, _, newUser := newTestAnalysisService(t)

	_, err := svc.Analyze(context.Background(), newUser("oily"), AnalyzeRequest{Ingredients: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListAnalysesNewestFirst(t *testing.T) {
	svc, _, llm, newUser := newTestAnalysisService(t)
	llm.analysisJSON = `{"suitability_score":70,"recommendation":"ok"}`
	userID := newUser("normal")
	ctx := context.Background()

	_, err := svc.Analyze(ctx, userID, AnalyzeRequest{ProductName: "First", Ingredients: "water"})
	require.NoError(t, err)
	_, err = svc.Analyze(ctx, userID, AnalyzeRequest{ProductName: "Second", Ingredients: "water"})
	require.NoError(t, err)

	analyses, err := svc.ListAnalyses(ctx, userID, 1, 0)
	require.NoError(t, err)
	require.Len(t, analyses, 1)

	all, err := svc.ListAnalyses(ctx, userID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	var stored []models.ProductAnalysis
	require.NoError(t, svc.db.Where("user_id = ?", userID).Find(&stored).Error)
	assert.Len(t, stored, 2)
}
