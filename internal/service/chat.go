package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/skinsense-ai/backend/internal/models"
)

const (
	// chatHistoryWindow caps how many prior messages are replayed to the
	// model per turn.
	chatHistoryWindow = 20

	userContextTTL = 10 * time.Minute

	fallbackReply = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."
)

const chatSystemPrompt = `You are SkinSense, a friendly and knowledgeable skincare advisor. You give practical, evidence-based skincare guidance tailored to the user's skin profile below. Keep answers concise and specific to the user's situation. You are not a doctor: for severe or worsening conditions, recommend seeing a dermatologist. Never recommend products containing the user's known allergens.`

// ChatService manages chat sessions and conversational turns. Each reply is
// followed by a best-effort extraction pass that folds new skin facts into
// the user's memory.
type ChatService struct {
	db     *gorm.DB
	llm    LLMClient
	memory *MemoryService
	redis  *redis.Client
}

// NewChatService creates a new ChatService instance
func NewChatService(db *gorm.DB, llm LLMClient, memory *MemoryService, redisClient *redis.Client) *ChatService {
	return &ChatService{
		db:     db,
		llm:    llm,
		memory: memory,
		redis:  redisClient,
	}
}

// CreateSession starts a new chat session for a user.
func (s *ChatService) CreateSession(ctx context.Context, userID uuid.UUID, title string) (*models.ChatSession, error) {
	if strings.TrimSpace(title) == "" {
		title = "New conversation"
	}
	session := models.ChatSession{
		ID:     uuid.New(),
		UserID: userID,
		Title:  title,
		Active: true,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns a user's active sessions, most recently updated
// first.
func (s *ChatService) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession retrieves one session with its messages in chronological order.
func (s *ChatService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ? AND user_id = ? AND active = ?", sessionID, userID, true).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession deactivates a session. History is kept for extraction audit;
// the session just disappears from listings.
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Model(&models.ChatSession{}).
		Where("id = ? AND user_id = ? AND active = ?", sessionID, userID, true).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SendMessage runs one conversational turn: the user message is persisted,
// the model is called with the user's skin context and recent history, and
// the reply is persisted and returned. A model failure degrades to a canned
// apology rather than an error so the turn is never lost. After the reply,
// new skin facts are extracted from the exchange and reconciled into memory;
// that pass is best effort and never fails the turn.
func (s *ChatService) SendMessage(ctx context.Context, userID, sessionID uuid.UUID, body string) (*models.ChatMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	var session models.ChatSession
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND active = ?", sessionID, userID, true).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	userMsg := models.ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Body:      body,
		IsUser:    true,
	}
	if err := s.db.WithContext(ctx).Create(&userMsg).Error; err != nil {
		return nil, err
	}

	history, err := s.recentHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userContext, err := s.UserContext(ctx, userID)
	if err != nil {
		log.Printf("[ChatService] failed to build user context: %v", err)
		userContext = ""
	}

	systemPrompt := chatSystemPrompt
	if userContext != "" {
		systemPrompt = chatSystemPrompt + "\n\nUser skin profile:\n" + userContext
	}

	reply, err := s.llm.Chat(ctx, systemPrompt, history)
	if err != nil {
		log.Printf("[ChatService] LLM chat failed: %v", err)
		reply = fallbackReply
	}

	aiMsg := models.ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Body:      reply,
		IsUser:    false,
	}
	if err := s.db.WithContext(ctx).Create(&aiMsg).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Model(&models.ChatSession{}).
		Where("id = ?", sessionID).
		Update("updated_at", time.Now().UTC()).Error; err != nil {
		log.Printf("[ChatService] failed to touch session: %v", err)
	}

	if reply != fallbackReply {
		s.extractAndReconcile(ctx, userID, body, reply)
	}

	return &aiMsg, nil
}

// recentHistory loads the session's last messages as model messages, oldest
// first.
func (s *ChatService) recentHistory(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	var messages []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(chatHistoryWindow).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	history := make([]Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		role := "assistant"
		if messages[i].IsUser {
			role = "user"
		}
		history = append(history, Message{Role: role, Content: messages[i].Body})
	}
	return history, nil
}

// extractAndReconcile runs the fact-extraction pass for one exchange. Any
// failure here is logged and dropped.
func (s *ChatService) extractAndReconcile(ctx context.Context, userID uuid.UUID, userMessage, reply string) {
	conversation := fmt.Sprintf("User: %s\nAssistant: %s", userMessage, reply)

	raw, err := s.llm.ExtractFacts(ctx, conversation)
	if err != nil {
		log.Printf("[ChatService] fact extraction failed: %v", err)
		return
	}

	parsed, err := ParseExtraction(raw)
	if err != nil {
		log.Printf("[ChatService] fact extraction unparseable: %v", err)
		return
	}

	result := s.memory.Reconcile(ctx, userID, parsed, "chat")
	if result.AllergensAdded > 0 || result.IssuesAdded > 0 || result.EntriesAdded > 0 {
		log.Printf("[ChatService] reconciled chat facts for user %s: %d allergens, %d issues, %d entries",
			userID, result.AllergensAdded, result.IssuesAdded, result.EntriesAdded)
		s.invalidateUserContext(ctx, userID)
	}
}

// UserContext builds the plain-text skin profile injected into model
// prompts: skin type, concerns, active allergens and current issues. The
// rendered text is cached in Redis for a short TTL since every chat turn
// needs it.
func (s *ChatService) UserContext(ctx context.Context, userID uuid.UUID) (string, error) {
	key := userContextKey(userID)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
			return cached, nil
		}
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return "", err
	}

	allergens, err := s.memory.ListAllergens(ctx, userID)
	if err != nil {
		return "", err
	}
	issues, err := s.memory.ListIssues(ctx, userID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if user.SkinType != "" {
		fmt.Fprintf(&b, "Skin type: %s\n", user.SkinType)
	}
	if len(user.SkinConcerns) > 0 {
		fmt.Fprintf(&b, "Concerns: %s\n", strings.Join(user.SkinConcerns, ", "))
	}
	if len(allergens) > 0 {
		b.WriteString("Known allergens:\n")
		for _, a := range allergens {
			status := "unconfirmed"
			if a.Confirmed {
				status = "confirmed"
			}
			fmt.Fprintf(&b, "- %s (%s, %s)\n", a.IngredientName, a.Severity, status)
		}
	}
	var current []models.SkinIssue
	for _, i := range issues {
		if i.Status != models.IssueStatusResolved {
			current = append(current, i)
		}
	}
	if len(current) > 0 {
		b.WriteString("Current skin issues:\n")
		for _, i := range current {
			fmt.Fprintf(&b, "- %s (severity %d/10, %s)\n", i.IssueType, i.Severity, i.Status)
		}
	}

	text := strings.TrimSpace(b.String())
	if s.redis != nil && text != "" {
		if err := s.redis.Set(ctx, key, text, userContextTTL).Err(); err != nil {
			log.Printf("[ChatService] failed to cache user context: %v", err)
		}
	}
	return text, nil
}

func (s *ChatService) invalidateUserContext(ctx context.Context, userID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, userContextKey(userID)).Err(); err != nil {
		log.Printf("[ChatService] failed to invalidate user context: %v", err)
	}
}

func userContextKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:context:%s", userID)
}
