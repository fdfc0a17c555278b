package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/atotto/clipboard"

	"github.com/diogo/imagestudio/internal/api"
	"github.com/diogo/imagestudio/internal/chat"
	"github.com/diogo/imagestudio/internal/config"
	"github.com/diogo/imagestudio/internal/storage"
	"github.com/diogo/imagestudio/internal/tui"
)

// Client is the API surface the commands need
type Client interface {
	chat.Transport
	SaveImage(ctx context.Context, ref string, opts api.SaveOptions) (string, error)
}

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctrl *chat.Controller, opts ...tui.ModelOption) error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	LoadConfig  func() (config.Config, error)
	OpenStorage func(ctx context.Context, cfg config.Config) (storage.KV, error)
	NewClient   func(cfg config.Config, logger *slog.Logger) (Client, error)

	// Logger overrides the configured logger when set
	Logger *slog.Logger

	TUI TUIInterface

	CopyToClipboard func(string) error

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// StdinIsPipe reports whether the prompt may be read from stdin
	StdinIsPipe func() bool
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctrl *chat.Controller, opts ...tui.ModelOption) error {
	return tui.RunChat(ctrl, opts...)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		LoadConfig:  config.LoadConfig,
		OpenStorage: openStorage,
		NewClient: func(cfg config.Config, logger *slog.Logger) (Client, error) {
			client, err := api.NewClient(
				api.WithTimeout(cfg.Timeout()),
				api.WithLogger(logger),
			)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		TUI:             &DefaultTUI{},
		CopyToClipboard: clipboard.WriteAll,
		Stdin:           os.Stdin,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		StdinIsPipe:     stdinIsPipe,
	}
}

func openStorage(ctx context.Context, cfg config.Config) (storage.KV, error) {
	dir, err := config.EnsureConfigDir()
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, cfg.StorageOptions(dir))
}

func stdinIsPipe() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
