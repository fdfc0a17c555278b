package api

import "github.com/diogo/imagestudio/internal/models"

// BuildOptions tunes request construction
type BuildOptions struct {
	Window    int // prior messages replayed; 0 uses ContextWindow
	MaxTokens int // 0 uses MaxTokens
}

// DefaultBuildOptions returns the standard window and token budget
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Window:    models.ContextWindow,
		MaxTokens: models.MaxTokens,
	}
}

// BuildRequest assembles a payload from the prior conversation and the new input.
// Only the last Window prior messages are included; messages with no parts are dropped.
func BuildRequest(prior []models.Message, text string, images []string, model string, opts BuildOptions) *models.Request {
	window := opts.Window
	if window <= 0 {
		window = models.ContextWindow
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = models.MaxTokens
	}

	start := len(prior) - window
	if start < 0 {
		start = 0
	}

	messages := make([]models.RequestMessage, 0, len(prior)-start+1)
	for _, m := range prior[start:] {
		if rm, ok := toRequestMessage(m); ok {
			messages = append(messages, rm)
		}
	}

	current := models.Message{Role: models.RoleUser, Content: text, Images: images}
	if rm, ok := toRequestMessage(current); ok {
		messages = append(messages, rm)
	}

	req := &models.Request{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if models.SupportsImageOutput(model) {
		req.Modalities = models.ImageModalities
	}

	return req
}

// toRequestMessage maps a message to typed parts; assistant images are never replayed
func toRequestMessage(m models.Message) (models.RequestMessage, bool) {
	parts := make([]models.ContentPart, 0, 1+len(m.Images))
	if m.Content != "" {
		parts = append(parts, models.TextPart(m.Content))
	}
	if m.Role == models.RoleUser {
		for _, img := range m.Images {
			if img != "" {
				parts = append(parts, models.ImagePart(img))
			}
		}
	}

	if len(parts) == 0 {
		return models.RequestMessage{}, false
	}
	return models.RequestMessage{Role: m.Role, Content: parts}, true
}
