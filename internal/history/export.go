package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diogo/imagestudio/internal/models"
)

// ExportFormat represents the format for exporting chats
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ParseExportFormat maps a flag value to a format
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(s) {
	case "", "md", "markdown":
		return ExportFormatMarkdown, nil
	case "json":
		return ExportFormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format: %s (use markdown or json)", s)
}

// ExportOptions configures how chats are exported
type ExportOptions struct {
	Format           ExportFormat
	IncludeReasoning bool
}

// DefaultExportOptions returns sensible defaults for export
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format:           ExportFormatMarkdown,
		IncludeReasoning: true,
	}
}

// Export renders a chat in the requested format
func Export(chat models.Chat, opts ExportOptions) ([]byte, error) {
	switch opts.Format {
	case ExportFormatJSON:
		return ExportJSON(chat)
	case ExportFormatMarkdown, "":
		return []byte(ExportMarkdown(chat, opts)), nil
	}
	return nil, fmt.Errorf("unknown export format: %s", opts.Format)
}

// ExportMarkdown renders a chat as Markdown, with image notes in place of payloads
func ExportMarkdown(chat models.Chat, opts ExportOptions) string {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(chat.Title)
	sb.WriteString("\n\n")

	sb.WriteString("**Created:** ")
	sb.WriteString(time.UnixMilli(chat.CreatedAt).Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString("**Messages:** ")
	sb.WriteString(fmt.Sprintf("%d", len(chat.Messages)))
	sb.WriteString("\n\n---\n\n")

	for i, lm := range chat.Messages {
		msg := Reify(lm)

		role := "User"
		if msg.Role == models.RoleAssistant {
			role = "Assistant"
		}
		sb.WriteString("## ")
		sb.WriteString(role)
		sb.WriteString("\n\n")

		if opts.IncludeReasoning && msg.Reasoning != "" {
			sb.WriteString("<details>\n<summary>💭 Reasoning</summary>\n\n")
			sb.WriteString(msg.Reasoning)
			sb.WriteString("\n\n</details>\n\n")
		}

		sb.WriteString(msg.Content)
		sb.WriteString("\n")

		if i < len(chat.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

// ExportJSON writes the chat in the same shape it is stored in
func ExportJSON(chat models.Chat) ([]byte, error) {
	return json.MarshalIndent(chat, "", "  ")
}

// FormatRelativeTime formats a time as a relative string like "2h ago"
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 48*time.Hour:
		return "yesterday"
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	case diff < 30*24*time.Hour:
		return fmt.Sprintf("%dw ago", int(diff.Hours()/24/7))
	}
	return t.Format("2006-01-02")
}
