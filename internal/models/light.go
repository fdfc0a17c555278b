package models

import (
	"encoding/json"
	"fmt"
)

type lightWire struct {
	Role       Role             `json:"role"`
	Content    string           `json:"content"`
	Images     *[]string        `json:"images,omitempty"`
	ImageCount int              `json:"imageCount,omitempty"`
	Image      *json.RawMessage `json:"image,omitempty"`
	HadImage   bool             `json:"hadImage,omitempty"`
	Reasoning  string           `json:"reasoning,omitempty"`
}

var jsonNull = json.RawMessage("null")

// MarshalJSON writes the shape recorded in Legacy
func (m LightMessage) MarshalJSON() ([]byte, error) {
	w := lightWire{
		Role:       m.Role,
		Content:    m.Content,
		ImageCount: m.ImageCount,
		HadImage:   m.HadImage,
		Reasoning:  m.Reasoning,
	}

	if m.Legacy {
		raw := jsonNull
		if len(m.Images) > 0 {
			b, err := json.Marshal(m.Images[0])
			if err != nil {
				return nil, err
			}
			raw = b
		}
		w.Image = &raw
		w.ImageCount = 0
	} else {
		images := m.Images
		if images == nil {
			images = []string{}
		}
		w.Images = &images
		w.HadImage = false
	}

	return json.Marshal(w)
}

// UnmarshalJSON accepts either shape; both land in Images
func (m *LightMessage) UnmarshalJSON(data []byte) error {
	var w lightWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*m = LightMessage{
		Role:       w.Role,
		Content:    w.Content,
		ImageCount: w.ImageCount,
		HadImage:   w.HadImage,
		Reasoning:  w.Reasoning,
	}

	if w.Images != nil {
		m.Images = *w.Images
	}

	if raw, ok := fields["image"]; ok {
		m.Legacy = w.Images == nil
		var image *string
		if err := json.Unmarshal(raw, &image); err != nil {
			return fmt.Errorf("image field: %w", err)
		}
		if image != nil && *image != "" {
			m.Images = append(m.Images, *image)
		}
	}

	return nil
}
