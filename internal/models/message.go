package models

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the active conversation
type Message struct {
	Role      Role
	Content   string
	Images    []string // data URIs or remote URLs
	Reasoning string   // assistant only
}

// HasContent reports whether the message has text or images
func (m Message) HasContent() bool {
	return m.Content != "" || len(m.Images) > 0
}

// Clone returns a copy that shares no slices with m
func (m Message) Clone() Message {
	if m.Images != nil {
		images := make([]string, len(m.Images))
		copy(images, m.Images)
		m.Images = images
	}
	return m
}

// Attachment is a pending image for the message being composed
type Attachment struct {
	ID         string
	SourcePath string // empty when promoted from a rendered image
	Data       string
}

// Chat is one entry of the history catalog
type Chat struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Messages  []LightMessage `json:"messages"`
	CreatedAt int64          `json:"createdAt"` // Unix milliseconds
}

// Catalog is the chat history, most recent first
type Catalog []Chat

// Find returns the index of the chat with id, or -1
func (c Catalog) Find(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Truncate returns at most n entries
func (c Catalog) Truncate(n int) Catalog {
	if n < 0 {
		n = 0
	}
	if len(c) <= n {
		return c
	}
	return c[:n]
}

// LightMessage is the persisted form of a Message with image payloads removed.
//
// Two shapes exist: the current one stores an "images" array plus
// "imageCount", the legacy single-image one stores "image" (often null)
// plus "hadImage". Legacy records the shape so it survives a round trip.
type LightMessage struct {
	Role       Role
	Content    string
	Images     []string
	ImageCount int
	Legacy     bool
	HadImage   bool
	Reasoning  string
}
