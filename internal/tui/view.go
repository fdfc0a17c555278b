package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/imagestudio/internal/models"
	"github.com/diogo/imagestudio/internal/render"
)

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}
	if m.mode == viewHistory {
		return m.renderHistory()
	}

	contentWidth := m.width - 4
	var sections []string

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("✦ "+models.AppTitle),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(m.ctrl.Model()),
	)
	sections = append(sections, headerStyle.Width(contentWidth).Render(header))

	var messages string
	if m.ctrl.Store().Len() == 0 && !m.sending {
		messages = m.renderWelcome()
	} else {
		messages = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messages))

	if bar := m.renderAttachments(); bar != "" {
		sections = append(sections, bar)
	}

	var input string
	if m.sending {
		input = m.renderLoadingAnimation()
	} else {
		input = lipgloss.JoinVertical(lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(input))

	switch {
	case m.err != nil:
		sections = append(sections, FormatError(m.err))
	case m.status != "":
		sections = append(sections, feedbackStyle.Render(m.status))
	}

	sections = append(sections, m.renderStatusBar(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4

	lines := []string{
		"",
		welcomeIconStyle.Width(width).Align(lipgloss.Center).Render("✦"),
		welcomeTitleStyle.Width(width).Align(lipgloss.Center).Render("What would you like to create?"),
		"",
	}
	for i, s := range suggestions {
		lines = append(lines, suggestionStyle.Render(fmt.Sprintf("  /try %d  %s", i+1, s)))
	}
	if !m.ctrl.HasCredential() {
		lines = append(lines, "", warningStyle.Render("  No API key set. Run 'imagestudio config set-key <key>' first."))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)

	top := (m.viewport.Height - lipgloss.Height(content)) / 2
	if top < 0 {
		top = 0
	}
	return strings.Repeat("\n", top) + content
}

func (m Model) renderAttachments() string {
	set := m.ctrl.Attachments()
	items := set.Snapshot()
	if len(items) == 0 {
		return ""
	}

	names := make([]string, len(items))
	for i, a := range items {
		names[i] = fmt.Sprintf("[%d] %s", i+1, attachmentName(a))
	}
	label := fmt.Sprintf("📎 %s: ", set)
	if set.Full() {
		label = fmt.Sprintf("📎 %s (full): ", set)
	}
	return attachmentBarStyle.Render(label + strings.Join(names, "  "))
}

func (m Model) renderLoadingAnimation() string {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	frame := m.animationFrame

	spin := lipgloss.NewStyle().
		Foreground(gradientColors[frame%len(gradientColors)]).
		Bold(true).
		Render(chars[frame%len(chars)])

	var bar strings.Builder
	for i := 0; i < 20; i++ {
		style := lipgloss.NewStyle().Foreground(gradientColors[(i+frame)%len(gradientColors)])
		bar.WriteString(style.Render("━"))
	}

	text := lipgloss.NewStyle().Foreground(colorText).Render(" Generating ")
	return fmt.Sprintf("%s %s %s", spin, bar.String(), text)
}

func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"/help", "Commands"},
		{"/history", "Chats"},
		{"Esc", "Quit"},
	}

	items := make([]string, len(shortcuts))
	for i, s := range shortcuts {
		items[i] = statusKeyStyle.Render(s.key) + statusDescStyle.Render(" "+s.desc)
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// updateViewport refreshes the viewport with the conversation
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6

	for i, msg := range m.ctrl.Store().Messages() {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(m.renderMessage(msg, bubbleWidth))
		content.WriteString("\n")
	}

	if m.sending {
		pending := models.Message{Role: models.RoleUser, Content: m.pendingText}
		if m.pendingImages > 0 {
			pending.Content = strings.TrimSpace(fmt.Sprintf("%s\n📎 %d image(s)", m.pendingText, m.pendingImages))
		}
		content.WriteString("\n")
		content.WriteString(m.renderMessage(pending, bubbleWidth))
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

func (m Model) renderMessage(msg models.Message, width int) string {
	if msg.Role == models.RoleUser {
		body := msg.Content
		for i, ref := range msg.Images {
			if body != "" {
				body += "\n"
			}
			body += imageRefStyle.Render(fmt.Sprintf("🖼 [%d] %s", i+1, render.DescribeImage(ref)))
		}
		return userLabelStyle.Render("● You") + "\n" + userBubbleStyle.Width(width).Render(body)
	}

	style := assistantBubbleStyle
	if strings.HasPrefix(msg.Content, "Error: ") {
		style = failedBubbleStyle
	}
	rendered := render.Message(msg, m.renderOpts)
	return assistantLabelStyle.Render("✦ Assistant") + "\n" + style.Width(width).Render(rendered)
}
