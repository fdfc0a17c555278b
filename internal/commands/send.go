package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/diogo/imagestudio/internal/api"
	apperrors "github.com/diogo/imagestudio/internal/errors"
	"github.com/diogo/imagestudio/internal/models"
	"github.com/diogo/imagestudio/internal/render"
)

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"),
	lipgloss.Color("#feca57"),
	lipgloss.Color("#48dbfb"),
	lipgloss.Color("#ff9ff3"),
	lipgloss.Color("#54a0ff"),
	lipgloss.Color("#5f27cd"),
	lipgloss.Color("#00d2d3"),
	lipgloss.Color("#1dd1a1"),
}

var (
	colorText     = lipgloss.Color("#c0caf5")
	colorTextDim  = lipgloss.Color("#565f89")
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorPrimary  = lipgloss.Color("#7aa2f7")
	colorError    = lipgloss.Color("#f7768e")
)

// Styles matching the chat TUI
var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)

	failedBubbleStyle = assistantBubbleStyle.
				BorderForeground(colorError)

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(colorError)
	dimStyle     = lipgloss.NewStyle().Foreground(colorTextDim)
)

// runSend sends one message and prints the reply
func (a *app) runSend(ctx context.Context, prompt string, flags sendFlags) error {
	out, errOut := a.deps.Stdout, a.deps.Stderr
	decorated := !flags.raw

	s, err := a.openSession(ctx, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.settings.HasAPIKey() {
		return apperrors.ErrMissingCredential
	}

	if flags.chatID != "" && !s.store.Load(flags.chatID) {
		return fmt.Errorf("chat %s: %w", flags.chatID, apperrors.ErrNotFound)
	}

	for _, path := range flags.images {
		if _, err := s.set.Add(ctx, path); err != nil {
			return err
		}
	}

	spin := newSpinner(errOut, "Generating with "+s.settings.Model, decorated && isTerminal(errOut))
	spin.start()

	outcome, err := s.controller.Send(ctx, prompt)
	if err != nil {
		spin.stopWithError()
		return err
	}

	if outcome.Failed {
		spin.stopWithError()
		fmt.Fprintln(errOut, failedBubbleStyle.Render(outcome.Reply.Content))
		if outcome.Hint != "" {
			fmt.Fprintln(errOut, dimStyle.Render("  Hint: "+outcome.Hint))
		}
		return errSendFailed
	}
	if decorated {
		spin.stopWithSuccess("Done")
	} else {
		spin.stopWithError()
	}

	if outcome.Persist.Degraded() {
		fmt.Fprintln(errOut, warnStyle.Render(fmt.Sprintf(
			"⚠ History storage is full; kept %d chats", len(outcome.Persist.Catalog))))
	} else if outcome.Persist.Failed() {
		fmt.Fprintln(errOut, warnStyle.Render(fmt.Sprintf(
			"⚠ Could not save chat history: %v", apperrors.Redact(outcome.Persist.Err.Error()))))
	}

	reply := outcome.Reply

	if flags.saveImages != "" && len(reply.Images) > 0 {
		if err := a.saveReplyImages(ctx, s.client, reply.Images, flags.saveImages, decorated); err != nil {
			fmt.Fprintf(errOut, "Warning: failed to save some images: %v\n", err)
		}
	} else if len(reply.Images) > 0 && !decorated {
		fmt.Fprintf(errOut, "Reply has %d image(s); use --save-images to keep them\n", len(reply.Images))
	}

	text := reply.Content

	if s.cfg.CopyToClipboard && a.deps.CopyToClipboard != nil {
		if err := a.deps.CopyToClipboard(text); err != nil {
			fmt.Fprintln(errOut, warnStyle.Render(fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err)))
		} else if decorated {
			fmt.Fprintln(errOut, successStyle.Render("✓ Copied to clipboard"))
		}
	}

	if flags.output != "" {
		if err := os.WriteFile(flags.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if decorated {
			fmt.Fprintln(errOut, successStyle.Render(fmt.Sprintf("✓ Response saved to %s", flags.output)))
		}
		return nil
	}

	if !decorated {
		fmt.Fprint(out, text)
		return nil
	}

	printReply(out, reply, s.cfg.Markdown.Style)
	fmt.Fprintln(errOut, dimStyle.Render(fmt.Sprintf("Chat %s (continue with --chat %s)", s.store.ActiveID(), s.store.ActiveID())))
	return nil
}

func (a *app) saveReplyImages(ctx context.Context, client Client, refs []string, dir string, decorated bool) error {
	var saved []string
	for _, ref := range refs {
		path, err := client.SaveImage(ctx, ref, api.SaveOptions{Directory: dir})
		if err != nil {
			return err
		}
		saved = append(saved, path)
	}

	for _, path := range saved {
		if decorated {
			fmt.Fprintln(a.deps.Stderr, successStyle.Render("✓ Saved "+path))
		} else {
			fmt.Fprintln(a.deps.Stderr, path)
		}
	}
	return nil
}

// printReply prints an assistant message in a bubble sized to the terminal
func printReply(w io.Writer, reply models.Message, style string) {
	bubbleWidth := getTerminalWidth() - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}

	opts := render.DefaultOptions().WithWidth(bubbleWidth - 4).WithStyle(style)
	if !isTerminal(w) {
		opts = opts.WithStyle(render.StyleNoTTY)
	}

	bubble := assistantBubbleStyle
	if strings.HasPrefix(reply.Content, "Error: ") {
		bubble = failedBubbleStyle
	}

	fmt.Fprintln(w, assistantLabelStyle.Render("✦ Assistant"))
	fmt.Fprintln(w, bubble.Width(bubbleWidth).Render(render.Message(reply, opts)))
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, prefix string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %s", prefix, apperrors.Redact(err.Error()))))

	if status := apperrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := apperrors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	if hint := apperrors.Hint(err); hint != "" {
		sb.WriteString(dimStyle.Render("\n  Hint: " + hint))
	}

	return sb.String()
}
