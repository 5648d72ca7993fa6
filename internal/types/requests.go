package types

// RegisterRequest represents the request body for creating an account
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateSessionRequest represents the request body for starting a chat session
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// SendMessageRequest represents the request body for one chat turn
type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// CreateAllergenRequest represents the request body for recording an allergen
type CreateAllergenRequest struct {
	IngredientName string `json:"ingredient_name" binding:"required"`
	Severity       string `json:"severity"`
	Notes          string `json:"notes"`
	Confirmed      bool   `json:"confirmed"`
}

// CreateIssueRequest represents the request body for recording a skin issue
type CreateIssueRequest struct {
	IssueType   string   `json:"issue_type" binding:"required"`
	Description string   `json:"description"`
	Severity    int      `json:"severity" binding:"required,min=1,max=10"`
	Triggers    []string `json:"triggers"`
	Status      string   `json:"status"`
}

// CreateMemoryEntryRequest represents the request body for a manual memory entry
type CreateMemoryEntryRequest struct {
	EntryType  string                 `json:"entry_type" binding:"required"`
	Content    string                 `json:"content" binding:"required"`
	Metadata   map[string]interface{} `json:"metadata"`
	Source     string                 `json:"source"`
	Importance int                    `json:"importance"`
}

// AnalyzeProductRequest represents the request body for a product analysis.
// The image is optional and sent base64 encoded.
type AnalyzeProductRequest struct {
	ProductName      string `json:"product_name"`
	Ingredients      string `json:"ingredients" binding:"required"`
	ImageBase64      string `json:"image_base64"`
	ImageContentType string `json:"image_content_type"`
}
