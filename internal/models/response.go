package models

// Content part types on the wire
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// Modalities requested from image-capable models
var ImageModalities = []string{"text", "image"}

// FinishImageProhibited is the finish reason for a content-policy block
const FinishImageProhibited = "IMAGE_PROHIBITED_CONTENT"

// Request is the chat-completions payload
type Request struct {
	Model      string           `json:"model"`
	Messages   []RequestMessage `json:"messages"`
	MaxTokens  int              `json:"max_tokens"`
	Modalities []string         `json:"modalities,omitempty"`
}

// RequestMessage is one message of the payload
type RequestMessage struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is either a text part or an image part
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an image reference
type ImageURL struct {
	URL string `json:"url"`
}

// TextPart builds a text content part
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart builds an image content part
func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartImageURL, ImageURL: &ImageURL{URL: url}}
}

// Result is a normalized completion
type Result struct {
	Text      string
	Images    []string
	Reasoning string
	Blocked   bool // content-policy block
}

// FirstImage returns the first image reference, or ""
func (r *Result) FirstImage() string {
	if r == nil || len(r.Images) == 0 {
		return ""
	}
	return r.Images[0]
}
