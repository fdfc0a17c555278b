package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/imagestudio/internal/history"
	"github.com/diogo/imagestudio/internal/models"
)

// updateHistory handles keys while browsing saved chats
func (m Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	catalog := m.ctrl.Store().Catalog()

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc", "q":
		m.mode = viewChat

	case "up", "k":
		if len(catalog) > 0 {
			m.historyCursor--
			if m.historyCursor < 0 {
				m.historyCursor = len(catalog) - 1
			}
		}

	case "down", "j":
		if len(catalog) > 0 {
			m.historyCursor++
			if m.historyCursor >= len(catalog) {
				m.historyCursor = 0
			}
		}

	case "home", "g":
		m.historyCursor = 0

	case "end", "G":
		m.historyCursor = max(len(catalog)-1, 0)

	case "enter":
		if len(catalog) == 0 {
			m.mode = viewChat
			return m, nil
		}
		m.mode = viewChat
		if err := m.loadChat(m.historyCursor); err != nil {
			m.err = err
		}

	case "d", "delete":
		if m.historyCursor >= len(catalog) {
			return m, nil
		}
		chat := catalog[m.historyCursor]
		if err := m.ctrl.Store().Delete(context.Background(), chat.ID); err != nil {
			m.err = err
			return m, nil
		}
		m.status = "Deleted " + chat.Title
		if m.historyCursor >= len(catalog)-1 {
			m.historyCursor = max(len(catalog)-2, 0)
		}
		m.updateViewport()
	}

	return m, nil
}

func (m Model) renderHistory() string {
	width := m.width - 4
	if width < 40 {
		width = 40
	}

	catalog := m.ctrl.Store().Catalog()
	active := m.ctrl.Store().ActiveID()

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Saved chats"))
	sb.WriteString(hintStyle.Render(fmt.Sprintf("  %d of %d kept", len(catalog), models.CatalogLimit)))
	sb.WriteString("\n\n")

	if len(catalog) == 0 {
		sb.WriteString(hintStyle.Render("  No saved chats"))
		sb.WriteString("\n")
	}

	// Show a window of items around the cursor
	const maxItems = 12
	start := 0
	if m.historyCursor >= maxItems {
		start = m.historyCursor - maxItems + 1
	}
	end := min(start+maxItems, len(catalog))

	if start > 0 {
		sb.WriteString(hintStyle.Render("  ↑ more above"))
		sb.WriteString("\n")
	}
	for i := start; i < end; i++ {
		c := catalog[i]
		title := c.Title
		if title == "" {
			title = "Untitled Chat"
		}
		if c.ID == active {
			title += " •"
		}

		meta := listMetaStyle.Render(fmt.Sprintf("  %d messages, %s",
			len(c.Messages), history.FormatRelativeTime(time.UnixMilli(c.CreatedAt))))

		line := listItemStyle.Render(fmt.Sprintf("%2d. %s", i+1, title))
		if i == m.historyCursor {
			line = listSelectedStyle.Render(fmt.Sprintf("▸ %2d. %s", i+1, title))
		}
		sb.WriteString(line + meta + "\n")
	}
	if end < len(catalog) {
		sb.WriteString(hintStyle.Render("  ↓ more below"))
		sb.WriteString("\n")
	}

	if m.err != nil {
		sb.WriteString("\n" + FormatError(m.err) + "\n")
	} else if m.status != "" {
		sb.WriteString("\n" + feedbackStyle.Render(m.status) + "\n")
	}

	sb.WriteString("\n")
	shortcuts := []string{
		statusKeyStyle.Render("↑↓") + statusDescStyle.Render(" Navigate"),
		statusKeyStyle.Render("Enter") + statusDescStyle.Render(" Open"),
		statusKeyStyle.Render("d") + statusDescStyle.Render(" Delete"),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" Back"),
	}
	sb.WriteString(strings.Join(shortcuts, "  │  "))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(1, 2).
		Width(width)

	return box.Render(sb.String())
}
