package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/diogo/imagestudio/internal/models"
	"github.com/diogo/imagestudio/internal/storage"
)

// Environment variables that override the stored API key, in priority order
var apiKeyEnvVars = []string{"IMAGESTUDIO_API_KEY", "OPENROUTER_API_KEY"}

// Settings are the values the user edits in the settings dialog
type Settings struct {
	APIKey string
	Model  string
	// KeySource is "env:<NAME>", "storage" or "" when no key is set
	KeySource string
}

// HasAPIKey reports whether a credential is available
func (s Settings) HasAPIKey() bool {
	return s.APIKey != ""
}

// LoadSettings reads the credential and model from the store.
// An API key from the environment wins over the stored one.
func LoadSettings(ctx context.Context, kv storage.KV) (Settings, error) {
	s := Settings{Model: models.DefaultModel}

	key, ok, err := kv.Get(ctx, models.KeyAPIKey)
	if err != nil {
		return s, fmt.Errorf("failed to read API key: %w", err)
	}
	if ok && strings.TrimSpace(key) != "" {
		s.APIKey = strings.TrimSpace(key)
		s.KeySource = "storage"
	}

	model, ok, err := kv.Get(ctx, models.KeyModel)
	if err != nil {
		return s, fmt.Errorf("failed to read model: %w", err)
	}
	if ok && model != "" {
		s.Model = model
	}

	for _, name := range apiKeyEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			s.APIKey = v
			s.KeySource = "env:" + name
			break
		}
	}

	return s, nil
}

// SaveSettings stores the credential and model
func SaveSettings(ctx context.Context, kv storage.KV, s Settings) error {
	if err := SaveAPIKey(ctx, kv, s.APIKey); err != nil {
		return err
	}
	return SaveModel(ctx, kv, s.Model)
}

// SaveAPIKey stores the trimmed key; an empty key removes it
func SaveAPIKey(ctx context.Context, kv storage.KV, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		if err := kv.Remove(ctx, models.KeyAPIKey); err != nil {
			return fmt.Errorf("failed to remove API key: %w", err)
		}
		return nil
	}
	if err := kv.Set(ctx, models.KeyAPIKey, key); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	return nil
}

// SaveModel stores the selected model
func SaveModel(ctx context.Context, kv storage.KV, model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		model = models.DefaultModel
	}
	if err := kv.Set(ctx, models.KeyModel, model); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	return nil
}

// MaskKey shows only the ends of a key, e.g. "sk-or-v1...f00d"
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:8] + "..." + key[len(key)-4:]
}
