package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/skinsense-ai/backend/internal/models"
)

// ParsedExtraction is the structured fact set pulled out of a conversation
// or product analysis by the language model.
type ParsedExtraction struct {
	Allergens []ExtractedAllergen `json:"allergens"`
	Issues    []ExtractedIssue    `json:"skin_issues"`
	Insights  []ExtractedInsight  `json:"insights"`
}

type ExtractedAllergen struct {
	Ingredient string `json:"ingredient"`
	Reaction   string `json:"reaction"`
	Severity   string `json:"severity"`
}

type ExtractedIssue struct {
	IssueType   string   `json:"issue_type"`
	Description string   `json:"description"`
	Severity    int      `json:"severity"`
	Triggers    []string `json:"triggers"`
	Status      string   `json:"status"`
}

type ExtractedInsight struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Empty reports whether the extraction carries no facts at all.
func (p *ParsedExtraction) Empty() bool {
	return len(p.Allergens) == 0 && len(p.Issues) == 0 && len(p.Insights) == 0
}

// ParseExtraction decodes a model response into a ParsedExtraction. Models
// sometimes wrap the JSON in markdown code fences even when asked not to,
// so those are stripped first. A response that still does not decode yields
// ErrExtractionUnavailable rather than a partial result.
func ParseExtraction(raw string) (*ParsedExtraction, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", ErrExtractionUnavailable)
	}

	var parsed ParsedExtraction
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionUnavailable, err)
	}
	return &parsed, nil
}

// ReconcileResult counts what a reconciliation pass actually wrote.
type ReconcileResult struct {
	AllergensAdded int
	IssuesAdded    int
	EntriesAdded   int
}

// Reconcile folds extracted facts into the user's skin memory through the
// standard upsert rules. It never returns an error: extraction is a
// best-effort enrichment of the chat and analysis flows, so any failure is
// logged and skipped rather than surfaced to the caller. Extraction-derived
// allergens are recorded as unconfirmed until the user verifies them.
func (s *MemoryService) Reconcile(ctx context.Context, userID uuid.UUID, parsed *ParsedExtraction, source string) ReconcileResult {
	var result ReconcileResult
	if parsed == nil || parsed.Empty() {
		return result
	}

	for _, a := range parsed.Allergens {
		if strings.TrimSpace(a.Ingredient) == "" {
			continue
		}
		notes := a.Reaction
		if _, err := s.UpsertAllergen(ctx, userID, a.Ingredient, normalizeSeverity(a.Severity), notes, false); err != nil {
			log.Printf("[MemoryService] reconcile: skipping allergen %q: %v", a.Ingredient, err)
			continue
		}
		result.AllergensAdded++
	}

	for _, i := range parsed.Issues {
		if strings.TrimSpace(i.IssueType) == "" {
			continue
		}
		severity := i.Severity
		if severity < 1 || severity > 10 {
			severity = 5
		}
		if _, err := s.UpsertIssue(ctx, userID, i.IssueType, i.Description, severity, i.Triggers, i.Status); err != nil {
			log.Printf("[MemoryService] reconcile: skipping issue %q: %v", i.IssueType, err)
			continue
		}
		result.IssuesAdded++
	}

	entryType := "chat_insight"
	if source == "product_analysis" {
		entryType = "analysis_finding"
	}
	for _, insight := range parsed.Insights {
		if strings.TrimSpace(insight.Content) == "" {
			continue
		}
		if _, err := s.AppendEntry(ctx, userID, entryType, insight.Content,
			map[string]interface{}{"insight_type": insight.Type}, source, insightImportance(insight)); err != nil {
			log.Printf("[MemoryService] reconcile: skipping insight: %v", err)
			continue
		}
		result.EntriesAdded++
	}

	return result
}

// normalizeSeverity maps free-text model severities onto the allergen
// severity scale, defaulting to mild when the model invents its own label.
func normalizeSeverity(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case models.SeveritySevere, "high", "serious":
		return models.SeveritySevere
	case models.SeverityModerate, "medium":
		return models.SeverityModerate
	default:
		return models.SeverityMild
	}
}

// insightImportance scores an insight for retrieval ranking. Severity cues
// in the text push it up; everything else is general context.
func insightImportance(insight ExtractedInsight) int {
	content := strings.ToLower(insight.Content)
	switch {
	case strings.Contains(content, "severe") || strings.Contains(content, "urgent"):
		return 4
	case strings.Contains(content, "allerg") || strings.Contains(content, "reaction"):
		return 3
	default:
		return 2
	}
}
