package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/skinsense-ai/backend/internal/models"
)

// Recommendation priorities, ordered from most to least pressing.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

var priorityRank = map[string]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityMedium: 2,
	PriorityLow:    3,
}

const maxRecommendations = 6

// MemoryService owns the skin-memory consolidation rules: allergen and issue
// upserts, append-only memory entries and the derived summary view. It is
// stateless; all state lives in the injected database.
type MemoryService struct {
	db *gorm.DB
}

// NewMemoryService creates a new MemoryService instance
func NewMemoryService(db *gorm.DB) *MemoryService {
	return &MemoryService{db: db}
}

func validAllergenSeverity(severity string) bool {
	switch severity {
	case models.SeverityMild, models.SeverityModerate, models.SeveritySevere:
		return true
	}
	return false
}

func validIssueStatus(status string) bool {
	switch status {
	case models.IssueStatusActive, models.IssueStatusImproving, models.IssueStatusResolved:
		return true
	}
	return false
}

// UpsertAllergen records an allergen for a user. The dedup key is the
// case-insensitive ingredient name among the user's active allergens: an
// existing match is overwritten in place, otherwise a new row is created.
func (s *MemoryService) UpsertAllergen(ctx context.Context, userID uuid.UUID, ingredientName, severity, notes string, confirmed bool) (*models.Allergen, error) {
	var out *models.Allergen
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = upsertAllergen(tx, userID, ingredientName, severity, notes, confirmed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// upsertAllergen applies the allergen merge rules inside an open transaction.
func upsertAllergen(tx *gorm.DB, userID uuid.UUID, ingredientName, severity, notes string, confirmed bool) (*models.Allergen, error) {
	name := strings.TrimSpace(ingredientName)
	if name == "" {
		return nil, fmt.Errorf("%w: ingredient name is required", ErrInvalidInput)
	}
	if severity == "" {
		severity = models.SeverityMild
	}
	if !validAllergenSeverity(severity) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeverity, severity)
	}

	var existing models.Allergen
	err := tx.Where("user_id = ? AND LOWER(ingredient_name) = LOWER(?) AND active = ?", userID, name, true).
		First(&existing).Error
	switch {
	case err == nil:
		existing.Severity = severity
		existing.Notes = notes
		existing.Confirmed = confirmed
		if err := tx.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		record := models.Allergen{
			ID:             uuid.New(),
			UserID:         userID,
			IngredientName: name,
			Severity:       severity,
			Notes:          notes,
			Confirmed:      confirmed,
			Active:         true,
		}
		if err := tx.Create(&record).Error; err != nil {
			return nil, err
		}
		return &record, nil
	default:
		return nil, err
	}
}

// UpsertIssue records a skin issue for a user. The dedup key is the
// case-insensitive issue type among issues that are still active or
// improving; resolved issues never block a new occurrence. On a merge,
// incoming description and triggers only replace existing values when
// non-empty, while severity and status always win. ResolvedAt is set on the
// first transition into resolved and never touched again.
func (s *MemoryService) UpsertIssue(ctx context.Context, userID uuid.UUID, issueType, description string, severity int, triggers []string, status string) (*models.SkinIssue, error) {
	kind := strings.TrimSpace(issueType)
	if kind == "" {
		return nil, fmt.Errorf("%w: issue type is required", ErrInvalidInput)
	}
	if severity < 1 || severity > 10 {
		return nil, fmt.Errorf("%w: issue severity %d outside 1-10", ErrInvalidSeverity, severity)
	}
	if status == "" {
		status = models.IssueStatusActive
	}
	if !validIssueStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	now := time.Now().UTC()
	var out models.SkinIssue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SkinIssue
		err := tx.Where("user_id = ? AND LOWER(issue_type) = LOWER(?) AND status IN ?", userID, kind,
			[]string{models.IssueStatusActive, models.IssueStatusImproving}).
			First(&existing).Error
		switch {
		case err == nil:
			if description != "" {
				existing.Description = description
			}
			if len(triggers) > 0 {
				existing.Triggers = triggers
			}
			existing.Severity = severity
			existing.Status = status
			existing.LastUpdated = now
			if status == models.IssueStatusResolved && existing.ResolvedAt == nil {
				existing.ResolvedAt = &now
			}
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			out = existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			record := models.SkinIssue{
				ID:          uuid.New(),
				UserID:      userID,
				IssueType:   kind,
				Description: description,
				Severity:    severity,
				Status:      status,
				Triggers:    triggers,
				LastUpdated: now,
			}
			if status == models.IssueStatusResolved {
				record.ResolvedAt = &now
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			out = record
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AppendEntry adds an immutable memory entry. Entries are never merged with
// existing rows; callers needing idempotent history must dedupe themselves.
func (s *MemoryService) AppendEntry(ctx context.Context, userID uuid.UUID, entryType, content string, metadata map[string]interface{}, source string, importance int) (*models.MemoryEntry, error) {
	if strings.TrimSpace(entryType) == "" || strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: entry type and content are required", ErrInvalidInput)
	}
	if importance == 0 {
		importance = 1
	}
	if importance < 1 || importance > 5 {
		return nil, fmt.Errorf("%w: importance %d outside 1-5", ErrInvalidImportance, importance)
	}

	entry := models.MemoryEntry{
		ID:         uuid.New(),
		UserID:     userID,
		EntryType:  entryType,
		Content:    content,
		Source:     source,
		Importance: importance,
		Active:     true,
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode entry metadata: %w", err)
		}
		entry.Metadata = datatypes.JSON(raw)
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListEntries returns a user's memory entries, most recent first, optionally
// filtered by entry type.
func (s *MemoryService) ListEntries(ctx context.Context, userID uuid.UUID, entryType string, limit, offset int) ([]models.MemoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if entryType != "" {
		query = query.Where("entry_type = ?", entryType)
	}
	var entries []models.MemoryEntry
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteEntry permanently removes a memory entry. Deletion is a hard delete,
// not a tombstone flip.
func (s *MemoryService) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", entryID, userID).Delete(&models.MemoryEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllEntries permanently removes all of a user's memory entries,
// optionally restricted to one entry type. Returns the number removed.
func (s *MemoryService) DeleteAllEntries(ctx context.Context, userID uuid.UUID, entryType string) (int64, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if entryType != "" {
		query = query.Where("entry_type = ?", entryType)
	}
	result := query.Delete(&models.MemoryEntry{})
	return result.RowsAffected, result.Error
}

// ListAllergens returns a user's active allergens, newest first.
func (s *MemoryService) ListAllergens(ctx context.Context, userID uuid.UUID) ([]models.Allergen, error) {
	var allergens []models.Allergen
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("first_detected DESC, ingredient_name ASC").
		Find(&allergens).Error
	if err != nil {
		return nil, err
	}
	return allergens, nil
}

// GetAllergen retrieves one allergen by id, scoped to its owner.
func (s *MemoryService) GetAllergen(ctx context.Context, userID, allergenID uuid.UUID) (*models.Allergen, error) {
	var allergen models.Allergen
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", allergenID, userID).First(&allergen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &allergen, nil
}

// AllergenUpdate is a partial update for an allergen. Nil fields are left
// untouched; the mutable field set is enumerated here on purpose.
type AllergenUpdate struct {
	IngredientName *string `json:"ingredient_name,omitempty"`
	Severity       *string `json:"severity,omitempty"`
	Confirmed      *bool   `json:"confirmed,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	Active         *bool   `json:"active,omitempty"`
}

// UpdateAllergen applies a partial update to an existing allergen.
func (s *MemoryService) UpdateAllergen(ctx context.Context, userID, allergenID uuid.UUID, update AllergenUpdate) (*models.Allergen, error) {
	if update.Severity != nil && !validAllergenSeverity(*update.Severity) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeverity, *update.Severity)
	}

	var out models.Allergen
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var allergen models.Allergen
		if err := tx.Where("id = ? AND user_id = ?", allergenID, userID).First(&allergen).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if update.IngredientName != nil && strings.TrimSpace(*update.IngredientName) != "" {
			allergen.IngredientName = strings.TrimSpace(*update.IngredientName)
		}
		if update.Severity != nil {
			allergen.Severity = *update.Severity
		}
		if update.Confirmed != nil {
			allergen.Confirmed = *update.Confirmed
		}
		if update.Notes != nil {
			allergen.Notes = *update.Notes
		}
		if update.Active != nil {
			allergen.Active = *update.Active
		}
		if err := tx.Save(&allergen).Error; err != nil {
			return err
		}
		out = allergen
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAllergen permanently removes an allergen.
func (s *MemoryService) DeleteAllergen(ctx context.Context, userID, allergenID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", allergenID, userID).Delete(&models.Allergen{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIssues returns all of a user's skin issues, most recently updated
// first.
func (s *MemoryService) ListIssues(ctx context.Context, userID uuid.UUID) ([]models.SkinIssue, error) {
	var issues []models.SkinIssue
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_updated DESC, issue_type ASC").
		Find(&issues).Error
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// GetIssue retrieves one skin issue by id, scoped to its owner.
func (s *MemoryService) GetIssue(ctx context.Context, userID, issueID uuid.UUID) (*models.SkinIssue, error) {
	var issue models.SkinIssue
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", issueID, userID).First(&issue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// IssueUpdate is a partial update for a skin issue.
type IssueUpdate struct {
	IssueType   *string  `json:"issue_type,omitempty"`
	Description *string  `json:"description,omitempty"`
	Severity    *int     `json:"severity,omitempty"`
	Status      *string  `json:"status,omitempty"`
	Triggers    []string `json:"triggers,omitempty"`
}

// UpdateIssue applies a partial update to an existing issue. A transition
// into resolved stamps ResolvedAt the first time only.
func (s *MemoryService) UpdateIssue(ctx context.Context, userID, issueID uuid.UUID, update IssueUpdate) (*models.SkinIssue, error) {
	if update.Severity != nil && (*update.Severity < 1 || *update.Severity > 10) {
		return nil, fmt.Errorf("%w: issue severity %d outside 1-10", ErrInvalidSeverity, *update.Severity)
	}
	if update.Status != nil && !validIssueStatus(*update.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *update.Status)
	}

	now := time.Now().UTC()
	var out models.SkinIssue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var issue models.SkinIssue
		if err := tx.Where("id = ? AND user_id = ?", issueID, userID).First(&issue).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if update.IssueType != nil && strings.TrimSpace(*update.IssueType) != "" {
			issue.IssueType = strings.TrimSpace(*update.IssueType)
		}
		if update.Description != nil {
			issue.Description = *update.Description
		}
		if update.Severity != nil {
			issue.Severity = *update.Severity
		}
		if update.Status != nil {
			issue.Status = *update.Status
			if *update.Status == models.IssueStatusResolved && issue.ResolvedAt == nil {
				issue.ResolvedAt = &now
			}
		}
		if len(update.Triggers) > 0 {
			issue.Triggers = update.Triggers
		}
		issue.LastUpdated = now
		if err := tx.Save(&issue).Error; err != nil {
			return err
		}
		out = issue
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteIssue permanently removes a skin issue.
func (s *MemoryService) DeleteIssue(ctx context.Context, userID, issueID uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", issueID, userID).Delete(&models.SkinIssue{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReactionReport is a user-reported reaction to a product ingredient.
type ReactionReport struct {
	IngredientName      string `json:"ingredient_name" binding:"required"`
	ProductName         string `json:"product_name"`
	ReactionDescription string `json:"reaction_description" binding:"required"`
	Severity            string `json:"severity" binding:"required"`
	TreatmentNotes      string `json:"treatment_notes"`
}

// ReportReaction records a reaction incident: the allergen is upserted as
// confirmed (a direct user report, unlike extraction-derived facts), a
// reaction row is added for history and a memory entry captures the event.
func (s *MemoryService) ReportReaction(ctx context.Context, userID uuid.UUID, report ReactionReport) (*models.Allergen, error) {
	notes := fmt.Sprintf("Reaction to %s: %s", report.ProductName, report.ReactionDescription)
	if report.ProductName == "" {
		notes = report.ReactionDescription
	}

	// The allergen upsert and the incident row commit together: a confirmed
	// allergen must never exist without the reaction that confirmed it.
	var allergen *models.Allergen
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		allergen, err = upsertAllergen(tx, userID, report.IngredientName, report.Severity, notes, true)
		if err != nil {
			return err
		}

		reaction := models.AllergenReaction{
			ID:                  uuid.New(),
			UserID:              userID,
			AllergenID:          allergen.ID,
			ProductName:         report.ProductName,
			ReactionDescription: report.ReactionDescription,
			ReactionSeverity:    allergen.Severity,
			TreatmentNotes:      report.TreatmentNotes,
		}
		return tx.Create(&reaction).Error
	})
	if err != nil {
		return nil, err
	}

	importance := 3
	if allergen.Severity == models.SeveritySevere {
		importance = 4
	}
	_, err = s.AppendEntry(ctx, userID, "reaction_report",
		fmt.Sprintf("Allergic reaction to %s", allergen.IngredientName),
		map[string]interface{}{
			"product_name": report.ProductName,
			"reaction":     report.ReactionDescription,
			"severity":     allergen.Severity,
		}, "user_report", importance)
	if err != nil {
		// The allergen and reaction are already committed; losing the audit
		// entry is not worth failing the report.
		log.Printf("[MemoryService] failed to append reaction entry: %v", err)
	}

	return allergen, nil
}

// AllergenStats summarizes a user's allergen records.
type AllergenStats struct {
	Total     int             `json:"total"`
	Confirmed int             `json:"confirmed"`
	Severe    int             `json:"severe"`
	List      []AllergenBrief `json:"list"`
}

type AllergenBrief struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
}

// IssueStats summarizes a user's skin issues.
type IssueStats struct {
	Active       int          `json:"active"`
	Improving    int          `json:"improving"`
	Resolved     int          `json:"resolved"`
	HighSeverity int          `json:"high_severity"`
	List         []IssueBrief `json:"list"`
}

type IssueBrief struct {
	Type     string `json:"type"`
	Severity int    `json:"severity"`
	Status   string `json:"status"`
}

type Recommendation struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
}

// SkinSummary is the derived view over a user's current allergens and
// issues.
type SkinSummary struct {
	Allergens       AllergenStats    `json:"allergens"`
	Issues          IssueStats       `json:"skin_issues"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Summary derives the bounded, priority-ordered summary view. It is a pure
// function over the stored allergen and issue sets: no external calls, and
// two invocations without intervening writes return identical output.
func (s *MemoryService) Summary(ctx context.Context, userID uuid.UUID) (*SkinSummary, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	allergens, err := s.ListAllergens(ctx, userID)
	if err != nil {
		return nil, err
	}
	issues, err := s.ListIssues(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &SkinSummary{}
	for _, a := range allergens {
		summary.Allergens.Total++
		if a.Confirmed {
			summary.Allergens.Confirmed++
		}
		if a.Severity == models.SeveritySevere {
			summary.Allergens.Severe++
		}
		summary.Allergens.List = append(summary.Allergens.List, AllergenBrief{Name: a.IngredientName, Severity: a.Severity})
	}
	for _, i := range issues {
		switch i.Status {
		case models.IssueStatusActive:
			summary.Issues.Active++
			if i.Severity >= 7 {
				summary.Issues.HighSeverity++
			}
		case models.IssueStatusImproving:
			summary.Issues.Improving++
		case models.IssueStatusResolved:
			summary.Issues.Resolved++
		}
		summary.Issues.List = append(summary.Issues.List, IssueBrief{Type: i.IssueType, Severity: i.Severity, Status: i.Status})
	}

	summary.Recommendations = deriveRecommendations(user.SkinType, allergens, issues)
	return summary, nil
}

func anyActiveIssueAtLeast(issues []models.SkinIssue, minSeverity int) bool {
	for _, i := range issues {
		if i.Status == models.IssueStatusActive && i.Severity >= minSeverity {
			return true
		}
	}
	return false
}

func anyIssueMatching(issues []models.SkinIssue, keyword string, minSeverity int) bool {
	for _, i := range issues {
		if i.Status == models.IssueStatusResolved {
			continue
		}
		if i.Severity >= minSeverity && strings.Contains(strings.ToLower(i.IssueType), keyword) {
			return true
		}
	}
	return false
}

// deriveRecommendations builds the candidate recommendation list from fixed
// rules, tags each candidate with a priority and returns at most
// maxRecommendations entries sorted by priority rank. Rule order is fixed so
// the output is fully deterministic.
func deriveRecommendations(skinType string, allergens []models.Allergen, issues []models.SkinIssue) []Recommendation {
	var recs []Recommendation
	add := func(text, priority string) {
		recs = append(recs, Recommendation{Text: text, Priority: priority})
	}

	severeAllergen := false
	for _, a := range allergens {
		if a.Severity == models.SeveritySevere {
			severeAllergen = true
			break
		}
	}

	if anyIssueMatching(issues, "acne", 7) {
		add("Prioritize a consistent acne treatment routine and avoid picking at active breakouts", PriorityUrgent)
	}
	if anyActiveIssueAtLeast(issues, 8) {
		add("Consider consulting a dermatologist for severe skin issues", PriorityUrgent)
	}
	if severeAllergen {
		add("Always patch test new products due to severe allergies", PriorityHigh)
	}
	if anyIssueMatching(issues, "dry", 1) {
		add("Layer a hydrating serum under your moisturizer while dryness persists", PriorityHigh)
	}
	if skinType == "sensitive" || anyIssueMatching(issues, "sensitiv", 1) {
		add("Choose fragrance-free, hypoallergenic products and introduce one at a time", PriorityHigh)
	}
	if len(allergens) > 5 {
		add("Focus on simple, fragrance-free formulations with short ingredient lists", PriorityMedium)
	}
	switch skinType {
	case "dry":
		add("Use a rich moisturizer with ceramides and hyaluronic acid twice daily", PriorityMedium)
	case "oily":
		add("Choose oil-free, non-comedogenic moisturizers and cleansers", PriorityMedium)
	case "combination":
		add("Use lightweight products on your T-zone and richer ones on your cheeks", PriorityMedium)
	case "normal":
		add("Maintain your current routine and focus on prevention with antioxidants", PriorityMedium)
	}

	// Always-present general guidance.
	add("Apply broad-spectrum SPF 30+ sunscreen every morning", PriorityMedium)
	add("Re-scan products you use regularly to keep your skin profile current", PriorityLow)

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}
