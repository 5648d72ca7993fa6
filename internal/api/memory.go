package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skinsense-ai/backend/internal/middleware"
	"github.com/skinsense-ai/backend/internal/service"
	"github.com/skinsense-ai/backend/internal/types"
)

// MemoryHandler handles the skin-memory endpoints: allergens, issues,
// memory entries, reaction reports and the summary view
type MemoryHandler struct {
	memoryService *service.MemoryService
	authService   *service.AuthService
}

// NewMemoryHandler creates a new MemoryHandler instance
func NewMemoryHandler(memoryService *service.MemoryService, authService *service.AuthService) *MemoryHandler {
	return &MemoryHandler{
		memoryService: memoryService,
		authService:   authService,
	}
}

// RegisterRoutes registers the skin-memory routes
func (h *MemoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	memory := router.Group("/memory", middleware.AuthMiddleware(h.authService))
	{
		memory.GET("/summary", h.Summary)

		memory.GET("/allergens", h.ListAllergens)
		memory.POST("/allergens", h.CreateAllergen)
		memory.GET("/allergens/:id", h.GetAllergen)
		memory.PUT("/allergens/:id", h.UpdateAllergen)
		memory.DELETE("/allergens/:id", h.DeleteAllergen)

		memory.GET("/issues", h.ListIssues)
		memory.POST("/issues", h.CreateIssue)
		memory.GET("/issues/:id", h.GetIssue)
		memory.PUT("/issues/:id", h.UpdateIssue)
		memory.DELETE("/issues/:id", h.DeleteIssue)

		memory.GET("/entries", h.ListEntries)
		memory.POST("/entries", h.CreateEntry)
		memory.DELETE("/entries/:id", h.DeleteEntry)
		memory.DELETE("/entries", h.DeleteAllEntries)

		memory.POST("/reactions", h.ReportReaction)
	}
}

// Summary returns the derived skin-memory summary
func (h *MemoryHandler) Summary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	summary, err := h.memoryService.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ListAllergens returns the user's active allergens
func (h *MemoryHandler) ListAllergens(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	allergens, err := h.memoryService.ListAllergens(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allergens": allergens})
}

// CreateAllergen upserts an allergen record
func (h *MemoryHandler) CreateAllergen(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req types.CreateAllergenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	allergen, err := h.memoryService.UpsertAllergen(c.Request.Context(), userID, req.IngredientName, req.Severity, req.Notes, req.Confirmed)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, allergen)
}

// GetAllergen returns one allergen
func (h *MemoryHandler) GetAllergen(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	allergenID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	allergen, err := h.memoryService.GetAllergen(c.Request.Context(), userID, allergenID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, allergen)
}

// UpdateAllergen applies a partial update to an allergen
func (h *MemoryHandler) UpdateAllergen(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	allergenID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var update service.AllergenUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	allergen, err := h.memoryService.UpdateAllergen(c.Request.Context(), userID, allergenID, update)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, allergen)
}

// DeleteAllergen removes an allergen
func (h *MemoryHandler) DeleteAllergen(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	allergenID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.memoryService.DeleteAllergen(c.Request.Context(), userID, allergenID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "allergen deleted"})
}

// ListIssues returns the user's skin issues
func (h *MemoryHandler) ListIssues(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	issues, err := h.memoryService.ListIssues(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

// CreateIssue upserts a skin issue
func (h *MemoryHandler) CreateIssue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req types.CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	issue, err := h.memoryService.UpsertIssue(c.Request.Context(), userID, req.IssueType, req.Description, req.Severity, req.Triggers, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, issue)
}

// GetIssue returns one skin issue
func (h *MemoryHandler) GetIssue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	issueID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	issue, err := h.memoryService.GetIssue(c.Request.Context(), userID, issueID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, issue)
}

// UpdateIssue applies a partial update to a skin issue
func (h *MemoryHandler) UpdateIssue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	issueID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var update service.IssueUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	issue, err := h.memoryService.UpdateIssue(c.Request.Context(), userID, issueID, update)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, issue)
}

// DeleteIssue removes a skin issue
func (h *MemoryHandler) DeleteIssue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	issueID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.memoryService.DeleteIssue(c.Request.Context(), userID, issueID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "issue deleted"})
}

// ListEntries returns memory entries, newest first
func (h *MemoryHandler) ListEntries(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	entryType := c.Query("type")

	entries, err := h.memoryService.ListEntries(c.Request.Context(), userID, entryType, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// CreateEntry appends a manual memory entry
func (h *MemoryHandler) CreateEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req types.CreateMemoryEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	source := req.Source
	if source == "" {
		source = "manual"
	}

	entry, err := h.memoryService.AppendEntry(c.Request.Context(), userID, req.EntryType, req.Content, req.Metadata, source, req.Importance)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// DeleteEntry permanently removes one memory entry
func (h *MemoryHandler) DeleteEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entryID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.memoryService.DeleteEntry(c.Request.Context(), userID, entryID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "entry deleted"})
}

// DeleteAllEntries permanently removes all entries, optionally by type
func (h *MemoryHandler) DeleteAllEntries(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	deleted, err := h.memoryService.DeleteAllEntries(c.Request.Context(), userID, c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ReportReaction records a reaction incident
func (h *MemoryHandler) ReportReaction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var report service.ReactionReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	allergen, err := h.memoryService.ReportReaction(c.Request.Context(), userID, report)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, allergen)
}
