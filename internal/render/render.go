package render

import (
	"fmt"
	"strings"

	"github.com/diogo/imagestudio/internal/models"
)

// Markdown renders markdown content for terminal display.
func Markdown(content string, opts Options) (string, error) {
	r, err := renderers.acquire(opts)
	if err != nil {
		return "", err
	}
	defer renderers.release(opts, r)

	return r.Render(content)
}

// MessageMarkdown returns the markdown source shown for one message:
// its text, an optional reasoning quote and one line per image.
func MessageMarkdown(m models.Message, opts Options) string {
	var sb strings.Builder

	if opts.ShowReasoning && m.Reasoning != "" {
		sb.WriteString("> 💭 **Reasoning**\n")
		for _, line := range strings.Split(strings.TrimSpace(m.Reasoning), "\n") {
			sb.WriteString("> ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(m.Content)

	for i, ref := range m.Images {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "🖼 `[%d] %s`", i+1, DescribeImage(ref))
	}

	return sb.String()
}

// Message renders a message; on a renderer error the plain source is returned
func Message(m models.Message, opts Options) string {
	src := MessageMarkdown(m, opts)
	out, err := Markdown(src, opts)
	if err != nil {
		return src
	}
	return strings.TrimRight(out, "\n")
}
