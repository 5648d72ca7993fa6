package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/skinsense-ai/backend/internal/models"
)

// AssessmentService scores the skin questionnaire and maintains the user's
// skin profile.
type AssessmentService struct {
	db     *gorm.DB
	memory *MemoryService
}

// NewAssessmentService creates a new AssessmentService instance
func NewAssessmentService(db *gorm.DB, memory *MemoryService) *AssessmentService {
	return &AssessmentService{db: db, memory: memory}
}

// AssessmentSubmission is one completed questionnaire. Answers map question
// ids to the chosen option text; concerns are free-form.
type AssessmentSubmission struct {
	Answers  map[string]string `json:"answers" binding:"required"`
	Concerns []string          `json:"concerns"`
}

// AssessmentResult is the scored outcome of a questionnaire.
type AssessmentResult struct {
	SkinType        string            `json:"skin_type"`
	Confidence      int               `json:"confidence"`
	Scores          map[string]int    `json:"scores"`
	Recommendations []string          `json:"recommendations"`
	Routine         RoutineSuggestion `json:"routine"`
}

// RoutineSuggestion is a starter skincare routine for a skin type.
type RoutineSuggestion struct {
	Morning []string `json:"morning"`
	Evening []string `json:"evening"`
}

// skinTypeKeywords maps each skin type to the answer phrases that vote for
// it. Matching is substring based so "very oily by midday" counts for oily.
var skinTypeKeywords = map[string][]string{
	"oily":        {"oily", "shiny", "greasy", "breakout", "acne", "large pores"},
	"dry":         {"dry", "tight", "flaky", "rough", "dull"},
	"sensitive":   {"sensitive", "sting", "burn", "itch", "red", "irritat"},
	"combination": {"combination", "t-zone", "oily in some", "both"},
	"normal":      {"normal", "balanced", "comfortable", "rarely"},
}

// questionWeights boosts the questions most predictive of skin type. Unknown
// questions default to weight 1.
var questionWeights = map[string]int{
	"feel_after_cleansing": 2,
	"midday_shine":         2,
	"reaction_to_products": 2,
}

// scoreSkinType tallies weighted keyword votes across all answers and
// returns the winning type, its vote share as a percentage and the raw
// tallies. With no votes at all the result defaults to normal at zero
// confidence.
func scoreSkinType(answers map[string]string) (string, int, map[string]int) {
	scores := map[string]int{}
	for question, answer := range answers {
		weight := questionWeights[question]
		if weight == 0 {
			weight = 1
		}
		text := strings.ToLower(answer)
		for skinType, keywords := range skinTypeKeywords {
			for _, kw := range keywords {
				if strings.Contains(text, kw) {
					scores[skinType] += weight
					break
				}
			}
		}
	}

	total := 0
	for _, v := range scores {
		total += v
	}
	if total == 0 {
		return "normal", 0, scores
	}

	// Deterministic winner on ties: iterate types in a fixed order.
	types := make([]string, 0, len(scores))
	for t := range scores {
		types = append(types, t)
	}
	sort.Strings(types)

	winner, best := "normal", 0
	for _, t := range types {
		if scores[t] > best {
			winner, best = t, scores[t]
		}
	}

	// Strong signals for both oily and dry mean combination skin.
	if winner != "combination" && scores["oily"] > 0 && scores["dry"] > 0 &&
		scores["oily"]+scores["dry"] > best {
		winner = "combination"
		best = scores["oily"] + scores["dry"]
		if best > total {
			best = total
		}
	}

	confidence := best * 100 / total
	return winner, confidence, scores
}

var skinTypeRecommendations = map[string][]string{
	"oily": {
		"Cleanse twice daily with a gentle foaming cleanser",
		"Use oil-free, non-comedogenic moisturizers",
		"Try niacinamide to regulate sebum production",
	},
	"dry": {
		"Use a cream cleanser that does not strip natural oils",
		"Moisturize with ceramides and hyaluronic acid twice daily",
		"Avoid hot water when washing your face",
	},
	"sensitive": {
		"Patch test every new product on your inner arm first",
		"Choose fragrance-free, hypoallergenic formulations",
		"Introduce new products one at a time",
	},
	"combination": {
		"Use a gentle gel cleanser suitable for your whole face",
		"Apply lightweight products on your T-zone and richer ones on your cheeks",
		"Consider multi-masking to treat zones separately",
	},
	"normal": {
		"Maintain a simple cleanse, moisturize, protect routine",
		"Add an antioxidant serum like vitamin C for prevention",
		"Keep up daily sun protection",
	},
}

var skinTypeRoutines = map[string]RoutineSuggestion{
	"oily": {
		Morning: []string{"Foaming cleanser", "Niacinamide serum", "Oil-free moisturizer", "SPF 30+ sunscreen"},
		Evening: []string{"Foaming cleanser", "Salicylic acid treatment (2-3x per week)", "Lightweight moisturizer"},
	},
	"dry": {
		Morning: []string{"Cream cleanser or water rinse", "Hyaluronic acid serum", "Rich moisturizer", "SPF 30+ sunscreen"},
		Evening: []string{"Cream cleanser", "Hydrating serum", "Night cream with ceramides"},
	},
	"sensitive": {
		Morning: []string{"Gentle fragrance-free cleanser", "Soothing moisturizer", "Mineral SPF 30+ sunscreen"},
		Evening: []string{"Gentle fragrance-free cleanser", "Barrier repair moisturizer"},
	},
	"combination": {
		Morning: []string{"Gel cleanser", "Lightweight serum", "Gel moisturizer on T-zone, cream on cheeks", "SPF 30+ sunscreen"},
		Evening: []string{"Gel cleanser", "Targeted treatment by zone", "Balancing moisturizer"},
	},
	"normal": {
		Morning: []string{"Gentle cleanser", "Vitamin C serum", "Moisturizer", "SPF 30+ sunscreen"},
		Evening: []string{"Gentle cleanser", "Moisturizer", "Retinol (2-3x per week)"},
	},
}

// Submit scores a questionnaire, persists the resulting skin profile on the
// user and records the assessment in skin memory.
func (s *AssessmentService) Submit(ctx context.Context, userID uuid.UUID, submission AssessmentSubmission) (*AssessmentResult, error) {
	if len(submission.Answers) == 0 {
		return nil, fmt.Errorf("%w: at least one answer is required", ErrInvalidInput)
	}

	skinType, confidence, scores := scoreSkinType(submission.Answers)

	rawAnswers, err := json.Marshal(submission.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"skin_type":          skinType,
				"assessment_answers": datatypes.JSON(rawAnswers),
				"skin_concerns":      models.JSONBStringArray(submission.Concerns),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	_, err = s.memory.AppendEntry(ctx, userID, "assessment",
		fmt.Sprintf("Skin assessment completed: %s skin (%d%% confidence)", skinType, confidence),
		map[string]interface{}{
			"skin_type":  skinType,
			"confidence": confidence,
			"concerns":   submission.Concerns,
		}, "questionnaire", 2)
	if err != nil {
		log.Printf("[AssessmentService] failed to record assessment entry: %v", err)
	}

	return &AssessmentResult{
		SkinType:        skinType,
		Confidence:      confidence,
		Scores:          scores,
		Recommendations: skinTypeRecommendations[skinType],
		Routine:         skinTypeRoutines[skinType],
	}, nil
}

// Profile returns the user's current skin profile.
func (s *AssessmentService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Routine returns the starter routine for the user's assessed skin type.
func (s *AssessmentService) Routine(ctx context.Context, userID uuid.UUID) (*RoutineSuggestion, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.SkinType == "" {
		return nil, ErrAssessmentRequired
	}
	routine, ok := skinTypeRoutines[user.SkinType]
	if !ok {
		routine = skinTypeRoutines["normal"]
	}
	return &routine, nil
}
