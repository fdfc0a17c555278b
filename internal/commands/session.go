package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/diogo/imagestudio/internal/api"
	"github.com/diogo/imagestudio/internal/attachments"
	"github.com/diogo/imagestudio/internal/chat"
	"github.com/diogo/imagestudio/internal/config"
	"github.com/diogo/imagestudio/internal/conversation"
	"github.com/diogo/imagestudio/internal/history"
	"github.com/diogo/imagestudio/internal/storage"
)

// session wires storage, settings and the chat core for one command run
type session struct {
	cfg        config.Config
	kv         storage.KV
	settings   config.Settings
	client     Client
	store      *conversation.Store
	set        *attachments.Set
	controller *chat.Controller
	logger     *slog.Logger

	closeLog func() error
}

type sessionOptions struct {
	// fileLogOnly keeps log lines off the terminal, for the TUI
	fileLogOnly bool
	// coreOnly skips the API client and controller
	coreOnly bool
}

func (a *app) openSession(ctx context.Context, opts sessionOptions) (*session, error) {
	cfg, err := a.deps.LoadConfig()
	if err != nil {
		fmt.Fprintf(a.deps.Stderr, "Warning: %v, using defaults\n", err)
	}
	if a.verbose {
		cfg.Verbose = true
	}

	s := &session{cfg: cfg, closeLog: func() error { return nil }}
	s.logger = a.setupLogger(cfg, opts.fileLogOnly, &s.closeLog)

	s.kv, err = a.deps.OpenStorage(ctx, cfg)
	if err != nil {
		_ = s.closeLog()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	s.settings, err = config.LoadSettings(ctx, s.kv)
	if err != nil {
		s.Close()
		return nil, err
	}
	if a.model != "" {
		s.settings.Model = a.model
	}

	persister := history.NewPersister(s.kv, history.WithLogger(s.logger))
	s.store = conversation.NewStore(ctx, persister,
		conversation.WithReorderOnUpdate(cfg.ReorderOnUpdate),
		conversation.WithLogger(s.logger),
	)
	if opts.coreOnly {
		return s, nil
	}

	s.client, err = a.deps.NewClient(cfg, s.logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.set = attachments.NewSet(cfg.MaxImages)
	s.controller = chat.NewController(s.client, s.store, s.set,
		chat.WithAPIKey(s.settings.APIKey),
		chat.WithModel(s.settings.Model),
		chat.WithBuildOptions(api.BuildOptions{Window: cfg.ContextWindow, MaxTokens: cfg.MaxTokens}),
		chat.WithLogger(s.logger),
	)

	s.logger.Debug("session ready",
		"model", s.settings.Model,
		"backend", cfg.Storage.Backend,
		"key_source", s.settings.KeySource,
		"chats", len(s.store.Catalog()))

	return s, nil
}

func (a *app) setupLogger(cfg config.Config, fileOnly bool, closer *func() error) *slog.Logger {
	if a.deps.Logger != nil {
		return a.deps.Logger
	}

	path, err := config.GetLogPath(cfg)
	if err != nil {
		return slog.Default()
	}

	level := config.LogLevel(cfg.Verbose)
	var logger *slog.Logger
	if fileOnly {
		logger, *closer = config.SetupFileLogger(path, level)
	} else {
		logger, *closer = config.SetupLogger(path, level)
	}
	return logger
}

// Close releases storage and the log file
func (s *session) Close() {
	if s.kv != nil {
		if err := s.kv.Close(); err != nil {
			s.logger.Warn("failed to close storage", "error", err)
		}
	}
	if s.closeLog != nil {
		_ = s.closeLog()
	}
}
