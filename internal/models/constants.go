// Package models contains data types and constants for the OpenRouter
// chat-completions API and the local conversation model.
package models

import "strings"

// Endpoints for the OpenRouter API
const (
	TrustedHost        = "openrouter.ai"
	EndpointBase       = "https://" + TrustedHost
	EndpointCompletion = EndpointBase + "/api/v1/chat/completions"
)

// Limits and defaults shared by the core components
const (
	// MaxImages is the attachment cap per message
	MaxImages = 10

	// ContextWindow is how many prior messages are replayed to the model
	ContextWindow = 10

	// MaxTokens is the completion budget sent with every request
	MaxTokens = 4096

	// CatalogLimit is the number of chats kept in history
	CatalogLimit = 50

	// CatalogFallbackLimit is the retained count after a quota failure
	CatalogFallbackLimit = 20

	// TitleMaxLen is the title length before truncation
	TitleMaxLen = 40

	// DefaultTitle is used when the first message has no text
	DefaultTitle = "New Chat"
)

// Storage keys used with the key-value persistence layer
const (
	KeyAPIKey      = "openrouter_api_key"
	KeyModel       = "selected_model"
	KeyChatHistory = "chat_history"
)

// Request headers identifying the app to OpenRouter
const (
	AppTitle   = "Image Studio"
	AppReferer = "https://github.com/diogo/imagestudio"
)

// DefaultModel is the recommended default
const DefaultModel = "google/gemini-3-pro-image-preview"

// Model describes a selectable model
type Model struct {
	Name        string
	Description string
}

// AllModels returns the models offered in settings
func AllModels() []Model {
	return []Model{
		{Name: "google/gemini-3-pro-image-preview", Description: "Gemini 3 Pro Image (generation and editing)"},
		{Name: "google/gemini-2.5-flash-image", Description: "Gemini 2.5 Flash Image (fast generation)"},
		{Name: "google/gemini-2.5-flash-image-preview", Description: "Gemini 2.5 Flash Image preview"},
		{Name: "google/gemini-2.5-flash", Description: "Gemini 2.5 Flash (text only)"},
	}
}

// SupportsImageOutput reports whether the model name signals image output
func SupportsImageOutput(model string) bool {
	return strings.Contains(model, "image")
}

// DefaultHeaders returns the static headers for API requests
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"HTTP-Referer": AppReferer,
		"X-Title":      AppTitle,
	}
}
