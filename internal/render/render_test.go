package render

import (
	"strings"
	"testing"

	"github.com/diogo/imagestudio/internal/config"
	"github.com/diogo/imagestudio/internal/models"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Width != 80 {
		t.Errorf("expected Width=80, got %d", opts.Width)
	}
	if opts.Style != StyleDark {
		t.Errorf("expected Style='dark', got %s", opts.Style)
	}
	if !opts.ShowReasoning {
		t.Error("expected ShowReasoning=true")
	}
}

func TestOptionsWith(t *testing.T) {
	opts := DefaultOptions().WithWidth(5).WithStyle("").WithReasoning(false)

	if opts.Width != 20 {
		t.Errorf("narrow width should clamp to 20, got %d", opts.Width)
	}
	if opts.Style != StyleDark {
		t.Errorf("empty style should keep the current one, got %s", opts.Style)
	}
	if opts.ShowReasoning {
		t.Error("expected ShowReasoning=false")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Setenv("GLAMOUR_STYLE", "")
	md := config.MarkdownConfig{Style: StyleLight, EnableEmoji: false, TableWrap: true}

	opts := OptionsFromConfig(md, 100)
	if opts.Style != StyleLight || opts.Width != 100 || opts.EnableEmoji {
		t.Errorf("OptionsFromConfig() = %+v", opts)
	}

	t.Setenv("GLAMOUR_STYLE", StyleNoTTY)
	if got := OptionsFromConfig(md, 100).Style; got != StyleNoTTY {
		t.Errorf("GLAMOUR_STYLE should win, got %s", got)
	}
}

func TestMarkdown(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		contains string
	}{
		{"heading", "# Hello World", "Hello"},
		{"bold", "This is **bold** text", "bold"},
		{"code_block", "```go\nfmt.Println(\"hello\")\n```", "Println"},
		{"multiline", "Line 1\n\nLine 2", "Line"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			output, err := Markdown(tc.input, DefaultOptions())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(output, tc.contains) {
				t.Errorf("output should contain %q, got: %s", tc.contains, output)
			}
		})
	}
}

func TestMarkdownInvalidStyle(t *testing.T) {
	opts := DefaultOptions().WithStyle("nonexistent_style_path")
	if _, err := Markdown("# Test", opts); err == nil {
		t.Error("expected error for invalid style path")
	}
}

func TestMessageMarkdown(t *testing.T) {
	m := models.Message{
		Role:      models.RoleAssistant,
		Content:   "Here is your cat.",
		Images:    []string{"data:image/png;base64,AAAA", "https://example.com/cat.png"},
		Reasoning: "Drawing a cat\nwith whiskers",
	}

	got := MessageMarkdown(m, DefaultOptions())

	for _, want := range []string{
		"> 💭 **Reasoning**",
		"> with whiskers",
		"Here is your cat.",
		"[1] image/png, 3 B",
		"[2] https://example.com/cat.png",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("MessageMarkdown() missing %q:\n%s", want, got)
		}
	}

	hidden := MessageMarkdown(m, DefaultOptions().WithReasoning(false))
	if strings.Contains(hidden, "Reasoning") {
		t.Error("reasoning should be hidden")
	}
}

func TestMessage_FallsBackToSource(t *testing.T) {
	m := models.Message{Role: models.RoleUser, Content: "plain"}
	out := Message(m, DefaultOptions().WithStyle("nonexistent_style_path"))
	if out != "plain" {
		t.Errorf("Message() = %q, want the markdown source", out)
	}
}

func TestDescribeImage(t *testing.T) {
	long := "https://example.com/" + strings.Repeat("a", 100)

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"data uri", "data:image/jpeg;base64,AAAAAAAA", "image/jpeg, 6 B"},
		{"malformed data uri", "data:image/png", "inline image"},
		{"short url", "https://x.test/a.png", "https://x.test/a.png"},
		{"long url", long, long[:57] + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DescribeImage(tt.ref); got != tt.want {
				t.Errorf("DescribeImage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.n); got != tt.want {
			t.Errorf("FormatSize(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}
