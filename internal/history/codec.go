// Package history persists the chat catalog and converts messages to and
// from their lightened storage form.
package history

import (
	"fmt"
	"strings"

	"github.com/diogo/imagestudio/internal/models"
)

// Placeholder notes appended to reified messages whose images were dropped
const (
	imagesNoteFormat = "📷 [%d image(s) - not stored in history]"
	legacyImageNote  = "📷 [Image - not stored in history]"
)

// Lighten strips image payloads from a message before it is stored.
// Assistant replies carry a single image and use the legacy shape.
func Lighten(m models.Message) models.LightMessage {
	return lightenStored(models.LightMessage{
		Role:      m.Role,
		Content:   m.Content,
		Images:    m.Images,
		Legacy:    m.Role == models.RoleAssistant,
		Reasoning: m.Reasoning,
	})
}

// lightenStored strips payloads from an already stored message, keeping its shape
func lightenStored(lm models.LightMessage) models.LightMessage {
	if len(lm.Images) == 0 {
		return lm
	}

	if lm.Legacy {
		lm.Images = nil
		lm.HadImage = true
		return lm
	}

	lm.ImageCount = len(lm.Images)
	lm.Images = []string{}
	return lm
}

// Reify rebuilds a displayable message, noting images that were not kept
func Reify(lm models.LightMessage) models.Message {
	m := models.Message{
		Role:      lm.Role,
		Content:   lm.Content,
		Reasoning: lm.Reasoning,
	}
	if len(lm.Images) > 0 {
		m.Images = append([]string(nil), lm.Images...)
		return m
	}

	switch {
	case lm.ImageCount > 0:
		m.Content = appendNote(m.Content, fmt.Sprintf(imagesNoteFormat, lm.ImageCount))
	case lm.HadImage:
		m.Content = appendNote(m.Content, legacyImageNote)
	}

	return m
}

func appendNote(content, note string) string {
	if strings.HasSuffix(content, note) {
		return content
	}
	if content == "" {
		return note
	}
	return content + "\n\n" + note
}

// LightenAll lightens a message list
func LightenAll(messages []models.Message) []models.LightMessage {
	out := make([]models.LightMessage, len(messages))
	for i, m := range messages {
		out[i] = Lighten(m)
	}
	return out
}

// ReifyAll reifies a stored message list
func ReifyAll(messages []models.LightMessage) []models.Message {
	out := make([]models.Message, len(messages))
	for i, lm := range messages {
		out[i] = Reify(lm)
	}
	return out
}
