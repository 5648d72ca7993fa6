package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinsense-ai/backend/internal/models"
)

func TestScoreSkinTypeOily(t *testing.T) {
	skinType, confidence, scores := scoreSkinType(map[string]string{
		"feel_after_cleansing": "Gets shiny again quickly",
		"midday_shine":         "Very oily by midday",
		"breakouts":            "Frequent breakouts on forehead",
	})

	assert.Equal(t, "oily", skinType)
	assert.Greater(t, confidence, 0)
	assert.Greater(t, scores["oily"], 0)
}

func TestScoreSkinTypeCombinationFromMixedSignals(t *testing.T) {
	skinType, _, _ := scoreSkinType(map[string]string{
		"feel_after_cleansing": "Tight and dry on my cheeks",
		"midday_shine":         "Oily across the forehead and nose",
	})

	assert.Equal(t, "combination", skinType)
}

func TestScoreSkinTypeDefaultsToNormal(t *testing.T) {
	skinType, confidence, _ := scoreSkinType(map[string]string{
		"feel_after_cleansing": "no particular answer",
	})

	assert.Equal(t, "normal", skinType)
	assert.Equal(t, 0, confidence)
}

func TestScoreSkinTypeSensitiveKeywords(t *testing.T) {
	skinType, confidence, _ := scoreSkinType(map[string]string{
		"reaction_to_products": "New products often sting and leave red patches",
	})

	assert.Equal(t, "sensitive", skinType)
	assert.Equal(t, 100, confidence)
}

func TestSubmitPersistsProfileAndRecordsEntry(t *testing.T) {
	db := setupTestDB(t)
	memory := NewMemoryService(db)
	svc := NewAssessmentService(db, memory)
	userID := createTestUser(t, db, "")
	ctx := context.Background()

	result, err := svc.Submit(ctx, userID, AssessmentSubmission{
		Answers: map[string]string{
			"feel_after_cleansing": "tight and flaky",
			"midday_shine":         "stays dry all day",
		},
		Concerns: []string{"fine lines"},
	})
	require.NoError(t, err)

	assert.Equal(t, "dry", result.SkinType)
	assert.NotEmpty(t, result.Recommendations)
	assert.NotEmpty(t, result.Routine.Morning)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", userID).Error)
	assert.Equal(t, "dry", user.SkinType)
	assert.Equal(t, []string{"fine lines"}, []string(user.SkinConcerns))

	entries, err := memory.ListEntries(ctx, userID, "assessment", 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSubmitRequiresAnswers(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAssessmentService(db, NewMemoryService(db))
	userID := createTestUser(t, db, "")

	_, err := svc.Submit(context.Background(), userID, AssessmentSubmission{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRoutineRequiresAssessment(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAssessmentService(db, NewMemoryService(db))
	ctx := context.Background()

	unassessed := createTestUser(t, db, "")
	_, err := svc.Routine(ctx, unassessed)
	assert.ErrorIs(t, err, ErrAssessmentRequired)

	assessed := createTestUser(t, db, "oily")
	routine, err := svc.Routine(ctx, assessed)
	require.NoError(t, err)
	assert.NotEmpty(t, routine.Morning)
	assert.NotEmpty(t, routine.Evening)
}
