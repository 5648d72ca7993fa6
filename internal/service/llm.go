package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// LLMClient is the language-model surface the chat, extraction and product
// analysis flows depend on. Tests substitute a stub for the live API.
type LLMClient interface {
	// Chat returns a conversational reply given a system prompt and the
	// message history.
	Chat(ctx context.Context, systemPrompt string, messages []Message) (string, error)
	// ExtractFacts returns a JSON document of skin facts found in the
	// given conversation text.
	ExtractFacts(ctx context.Context, conversation string) (string, error)
	// AnalyzeProduct returns a JSON analysis of a product's ingredients
	// against the user's skin profile.
	AnalyzeProduct(ctx context.Context, ingredients, userContext string) (string, error)
}

// LLMService handles interactions with the DeepSeek API
type LLMService struct {
	apiKey string
	apiURL string
	client *http.Client
}

// NewLLMService creates a new LLMService instance
func NewLLMService() (*LLMService, error) {
	apiKey := os.Getenv("DEEPSEEK_API_KEY")
	if apiKey == "" {
		apiKeyFile := os.Getenv("DEEPSEEK_API_KEY_FILE")
		if apiKeyFile == "" {
			return nil, fmt.Errorf("DEEPSEEK_API_KEY or DEEPSEEK_API_KEY_FILE must be set")
		}

		apiKeyBytes, err := os.ReadFile(apiKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read API key file: %w", err)
		}

		apiKey = strings.TrimSpace(string(apiKeyBytes))
		if apiKey == "" {
			return nil, fmt.Errorf("API key file is empty")
		}
	}

	apiURL := os.Getenv("DEEPSEEK_API_URL")
	if apiURL == "" {
		apiURL = "https://api.deepseek.com/v1/chat/completions"
	}

	return &LLMService{
		apiKey: apiKey,
		apiURL: apiURL,
		client: http.DefaultClient,
	}, nil
}

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents a request to the DeepSeek API
type Request struct {
	Model            string            `json:"model"`
	Messages         []Message         `json:"messages"`
	ResponseFormat   map[string]string `json:"response_format,omitempty"`
	Temperature      float64           `json:"temperature"`
	TopP             float64           `json:"top_p,omitempty"`
	FrequencyPenalty float64           `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64           `json:"presence_penalty,omitempty"`
}

// complete sends one chat-completions request and returns the first choice's
// content.
func (s *LLMService) complete(ctx context.Context, reqBody Request) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse API response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	return result.Choices[0].Message.Content, nil
}

// Chat returns a conversational reply for the skincare advisor persona.
func (s *LLMService) Chat(ctx context.Context, systemPrompt string, messages []Message) (string, error) {
	all := make([]Message, 0, len(messages)+1)
	all = append(all, Message{Role: "system", Content: systemPrompt})
	all = append(all, messages...)

	return s.complete(ctx, Request{
		Model:       "deepseek-chat",
		Messages:    all,
		Temperature: 0.7,
	})
}

const extractionSystemPrompt = `You are a medical information extractor for a skincare application. Extract skin-related facts from the conversation below. Respond in JSON format with the following structure:
{
    "allergens": [
        {"ingredient": "fragrance", "reaction": "redness and itching", "severity": "mild|moderate|severe"}
    ],
    "skin_issues": [
        {"issue_type": "acne", "description": "breakouts on chin", "severity": 5, "triggers": ["stress"], "status": "active|improving|resolved"}
    ],
    "insights": [
        {"type": "routine|product|lifestyle", "content": "uses retinol nightly"}
    ]
}

Only include facts the user explicitly stated about themselves. Severity for skin_issues is an integer from 1 to 10. Return empty arrays when nothing was mentioned.`

// ExtractFacts asks the model for structured skin facts from conversation
// text.
func (s *LLMService) ExtractFacts(ctx context.Context, conversation string) (string, error) {
	return s.complete(ctx, Request{
		Model: "deepseek-chat",
		Messages: []Message{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: conversation},
		},
		ResponseFormat: map[string]string{
			"type": "json_object",
		},
		Temperature: 0.1,
	})
}

const analysisSystemPrompt = `You are a cosmetic chemist analyzing skincare products for a specific user. Respond in JSON format with the following structure:
{
    "product_name": "Product name if identifiable",
    "suitability_score": 75,
    "recommendation": "Overall recommendation in 2-3 sentences",
    "warnings": ["contains fragrance, which you reported a reaction to"],
    "beneficial_ingredients": ["niacinamide helps with oil control"],
    "watch_ingredients": ["denatured alcohol may be drying"]
}

The suitability_score is an integer from 0 to 100 reflecting how well the product fits this user's skin type, allergies and current issues. Every known allergen present in the ingredients must appear in warnings.`

// AnalyzeProduct asks the model to score a product's ingredient list against
// the user's skin profile.
func (s *LLMService) AnalyzeProduct(ctx context.Context, ingredients, userContext string) (string, error) {
	prompt := fmt.Sprintf("User skin profile:\n%s\n\nProduct ingredients:\n%s", userContext, ingredients)
	return s.complete(ctx, Request{
		Model: "deepseek-chat",
		Messages: []Message{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: map[string]string{
			"type": "json_object",
		},
		Temperature: 0.3,
	})
}
