package api

import (
	"github.com/tidwall/gjson"

	apperrors "github.com/diogo/imagestudio/internal/errors"
	"github.com/diogo/imagestudio/internal/models"
)

// Texts substituted when a reply needs explaining
const (
	PolicyBlockedText = "⚠️ **Image generation blocked by content policy**\n\n" +
		"Google's safety filters prevented this image from being generated. Possible reasons:\n\n" +
		"• Editing photos of real people may be restricted\n" +
		"• Brand names/trademarks (Nike, Adidas, etc.) may be blocked\n" +
		"• Content may have been flagged as potentially sensitive\n\n" +
		"**Suggestions:**\n" +
		"• Try describing the item generically (e.g., \"sports headband\" instead of \"Nike headband\")\n" +
		"• Use illustrations or AI-generated images instead of real photos\n" +
		"• Rephrase your request to avoid specific brands or identifiable people"

	ImageGeneratedText = "Image generated successfully."

	NoImageText = "The model processed your request but didn't generate an image. Try rephrasing your prompt."
)

// ParseResponse normalizes a completion reply.
//
// The "images" field wins over image parts in "content"; in both only the
// first valid entry is used, so a result carries at most one image.
func ParseResponse(body []byte) (*models.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.NewResponseError("invalid JSON in reply")
	}
	root := gjson.ParseBytes(body)

	choice := root.Get("choices.0")
	if !choice.Exists() {
		return nil, apperrors.NewResponseError(root.Get("error.message").String())
	}

	msg := choice.Get("message")
	result := &models.Result{}
	if r := msg.Get("reasoning"); r.Type == gjson.String {
		result.Reasoning = r.String()
	}

	finish := choice.Get("native_finish_reason").String()
	if finish == "" {
		finish = choice.Get("finish_reason").String()
	}
	if finish == models.FinishImageProhibited {
		result.Text = PolicyBlockedText
		result.Blocked = true
		return result, nil
	}

	var image string
	content := msg.Get("content")
	switch {
	case content.Type == gjson.String:
		result.Text = content.String()
	case content.IsArray():
		for _, part := range content.Array() {
			switch part.Get("type").String() {
			case models.PartText:
				result.Text += part.Get("text").String()
			case models.PartImageURL:
				if image == "" {
					image = imageURL(part)
				}
			}
		}
	}

	for _, img := range msg.Get("images").Array() {
		if img.Get("type").String() != models.PartImageURL {
			continue
		}
		if url := img.Get("image_url.url").String(); url != "" {
			image = url
			break
		}
	}

	if image != "" {
		result.Images = []string{image}
	}

	if result.Text == "" && result.Reasoning != "" {
		result.Text = ImageGeneratedText
	}
	if result.Text == "" && image == "" {
		result.Text = NoImageText
	}

	return result, nil
}

// imageURL reads {"image_url":{"url":...}} or the bare-string {"image_url":"..."}
func imageURL(part gjson.Result) string {
	field := part.Get("image_url")
	if field.Type == gjson.String {
		return field.String()
	}
	return field.Get("url").String()
}
