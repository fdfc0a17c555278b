// Package config handles configuration, stored settings and logging for imagestudio.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/diogo/imagestudio/internal/models"
	"github.com/diogo/imagestudio/internal/storage"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "dark", "light", "notty" or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// RedisConfig configures the redis storage backend
type RedisConfig struct {
	Addr     string `json:"addr,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
}

// StorageConfig selects where settings and history are kept
type StorageConfig struct {
	// Backend is "file", "sqlite", "redis" or "memory"
	Backend string `json:"backend"`
	// Path is a directory for file, a database file for sqlite (default: config dir)
	Path string `json:"path,omitempty"`
	// QuotaBytes caps stored bytes; 0 disables the cap
	QuotaBytes int64       `json:"quota_bytes"`
	Redis      RedisConfig `json:"redis,omitempty"`
}

// Config represents the user configuration
type Config struct {
	Storage StorageConfig `json:"storage"`
	// MaxImages is the attachment cap per message; 1 gives single-image mode
	MaxImages int `json:"max_images"`
	// ContextWindow is how many prior messages are sent with each request
	ContextWindow int `json:"context_window"`
	MaxTokens     int `json:"max_tokens"`
	// ReorderOnUpdate moves a chat to the top of history when it is continued
	ReorderOnUpdate bool `json:"reorder_on_update"`
	// RequestTimeout is the HTTP timeout in seconds
	RequestTimeout  int            `json:"request_timeout"`
	Verbose         bool           `json:"verbose"`
	LogFile         string         `json:"log_file,omitempty"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	DownloadDir     string         `json:"download_dir,omitempty"` // Directory for saving images
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		Storage: StorageConfig{
			Backend:    storage.BackendFile,
			QuotaBytes: storage.DefaultQuotaBytes,
		},
		MaxImages:       models.MaxImages,
		ContextWindow:   models.ContextWindow,
		MaxTokens:       models.MaxTokens,
		ReorderOnUpdate: false,
		RequestTimeout:  300,
		Verbose:         false,
		CopyToClipboard: false,
		DownloadDir:     filepath.Join(homeDir, ".imagestudio", "images"),
		Markdown:        DefaultMarkdownConfig(),
	}
}

// Timeout returns RequestTimeout as a duration
func (c Config) Timeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// StorageOptions resolves the storage section, defaulting paths into dir
func (c Config) StorageOptions(dir string) storage.Options {
	path := c.Storage.Path
	switch {
	case path != "":
	case c.Storage.Backend == storage.BackendSQLite:
		path = filepath.Join(dir, "imagestudio.db")
	default:
		path = filepath.Join(dir, "data")
	}

	return storage.Options{
		Backend:    c.Storage.Backend,
		Path:       path,
		QuotaBytes: c.Storage.QuotaBytes,
		Redis: storage.RedisOptions{
			Addr:     c.Storage.Redis.Addr,
			Username: c.Storage.Redis.Username,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
			Prefix:   c.Storage.Redis.Prefix,
		},
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".imagestudio"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds the API key
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetLogPath returns the log file path from config or the default
func GetLogPath(cfg Config) (string, error) {
	if cfg.LogFile != "" {
		return cfg.LogFile, nil
	}
	configDir, err := EnsureConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "imagestudio.log"), nil
}

// GetDownloadDir returns the download directory from config, creating it if necessary
func GetDownloadDir(cfg Config) (string, error) {
	dir := cfg.DownloadDir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".imagestudio", "images")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	return dir, nil
}

// LoadConfig loads the configuration from disk
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if config doesn't exist
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg.normalize(), nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// normalize replaces out-of-range values with defaults
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.MaxImages <= 0 {
		c.MaxImages = def.MaxImages
	}
	if c.ContextWindow <= 0 {
		c.ContextWindow = def.ContextWindow
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = def.MaxTokens
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.Storage.QuotaBytes < 0 {
		c.Storage.QuotaBytes = 0
	}
	return c
}

// AvailableModels returns the selectable model names
func AvailableModels() []string {
	all := models.AllModels()
	names := make([]string, len(all))
	for i, m := range all {
		names[i] = m.Name
	}
	return names
}
