package models

import (
	"encoding/json"
	"testing"
)

func TestSupportsImageOutput(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"google/gemini-3-pro-image-preview", true},
		{"google/gemini-2.5-flash-image", true},
		{"google/gemini-2.5-flash", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := SupportsImageOutput(tt.model); got != tt.want {
				t.Errorf("SupportsImageOutput(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestAllModels_IncludesDefault(t *testing.T) {
	found := false
	for _, m := range AllModels() {
		if m.Name == DefaultModel {
			found = true
		}
		if m.Description == "" {
			t.Errorf("model %s has no description", m.Name)
		}
	}
	if !found {
		t.Errorf("AllModels() does not include DefaultModel %s", DefaultModel)
	}
}

func TestMessage_HasContent(t *testing.T) {
	if (Message{Role: RoleUser}).HasContent() {
		t.Error("empty message should have no content")
	}
	if !(Message{Role: RoleUser, Content: "hi"}).HasContent() {
		t.Error("text message should have content")
	}
	if !(Message{Role: RoleUser, Images: []string{"data:image/png;base64,AA"}}).HasContent() {
		t.Error("image-only message should have content")
	}
}

func TestMessage_Clone(t *testing.T) {
	orig := Message{Role: RoleUser, Images: []string{"a", "b"}}
	clone := orig.Clone()
	clone.Images[0] = "changed"

	if orig.Images[0] != "a" {
		t.Error("Clone() shares the Images slice with the original")
	}
}

func TestCatalog_FindAndTruncate(t *testing.T) {
	c := Catalog{{ID: "3"}, {ID: "2"}, {ID: "1"}}

	if got := c.Find("2"); got != 1 {
		t.Errorf("Find(2) = %d, want 1", got)
	}
	if got := c.Find("missing"); got != -1 {
		t.Errorf("Find(missing) = %d, want -1", got)
	}
	if got := len(c.Truncate(2)); got != 2 {
		t.Errorf("len(Truncate(2)) = %d, want 2", got)
	}
	if got := len(c.Truncate(10)); got != 3 {
		t.Errorf("len(Truncate(10)) = %d, want 3", got)
	}
	if got := len(c.Truncate(-1)); got != 0 {
		t.Errorf("len(Truncate(-1)) = %d, want 0", got)
	}
}

func TestRequest_JSONShape(t *testing.T) {
	req := Request{
		Model: "m",
		Messages: []RequestMessage{{
			Role:    RoleUser,
			Content: []ContentPart{TextPart("hi"), ImagePart("data:x")},
		}},
		MaxTokens: MaxTokens,
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"model":"m","messages":[{"role":"user","content":[{"type":"text","text":"hi"},{"type":"image_url","image_url":{"url":"data:x"}}]}],"max_tokens":4096}`
	if string(data) != want {
		t.Errorf("JSON =\n%s\nwant\n%s", data, want)
	}
}

func TestResult_FirstImage(t *testing.T) {
	var nilResult *Result
	if nilResult.FirstImage() != "" {
		t.Error("nil Result should have no image")
	}
	r := &Result{Images: []string{"a", "b"}}
	if r.FirstImage() != "a" {
		t.Errorf("FirstImage() = %s, want a", r.FirstImage())
	}
}
