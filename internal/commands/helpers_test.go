package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/diogo/imagestudio/internal/api"
	"github.com/diogo/imagestudio/internal/chat"
	"github.com/diogo/imagestudio/internal/config"
	"github.com/diogo/imagestudio/internal/history"
	"github.com/diogo/imagestudio/internal/models"
	"github.com/diogo/imagestudio/internal/storage"
	"github.com/diogo/imagestudio/internal/tui"
)

const catReply = `{"choices":[{"message":{"content":"Here is a cat","images":[{"type":"image_url","image_url":{"url":"data:image/png;base64,Q0FU"}}]}}]}`

// testClient is a mock transport that pretends to save images
type testClient struct {
	*api.MockClient

	mu    sync.Mutex
	saved []string
}

func (c *testClient) SaveImage(_ context.Context, ref string, opts api.SaveOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved = append(c.saved, ref)
	return filepath.Join(opts.Directory, "image.png"), nil
}

type fakeTUI struct {
	called bool
	ctrl   *chat.Controller
	opts   []tui.ModelOption
}

func (f *fakeTUI) RunChat(ctrl *chat.Controller, opts ...tui.ModelOption) error {
	f.called = true
	f.ctrl = ctrl
	f.opts = opts
	return nil
}

type testEnv struct {
	deps    *Dependencies
	kv      *storage.MemoryStore
	client  *testClient
	tui     *fakeTUI
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	copied  []string
	home    string
	cfgHook func(*config.Config)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("IMAGESTUDIO_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	env := &testEnv{
		kv:     storage.NewMemoryStore(),
		client: &testClient{MockClient: &api.MockClient{Body: []byte(catReply)}},
		tui:    &fakeTUI{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		home:   home,
	}

	env.deps = &Dependencies{
		LoadConfig: func() (config.Config, error) {
			cfg := config.DefaultConfig()
			if env.cfgHook != nil {
				env.cfgHook(&cfg)
			}
			return cfg, nil
		},
		OpenStorage: func(ctx context.Context, cfg config.Config) (storage.KV, error) {
			return env.kv, nil
		},
		NewClient: func(cfg config.Config, logger *slog.Logger) (Client, error) {
			return env.client, nil
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		TUI:    env.tui,
		CopyToClipboard: func(s string) error {
			env.copied = append(env.copied, s)
			return nil
		},
		Stdin:       strings.NewReader(""),
		Stdout:      env.stdout,
		Stderr:      env.stderr,
		StdinIsPipe: func() bool { return false },
	}
	return env
}

// run executes one invocation of the root command
func (e *testEnv) run(args ...string) error {
	e.stdout.Reset()
	e.stderr.Reset()
	cmd := NewRootCmd(e.deps)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func (e *testEnv) setKey(t *testing.T, key string) {
	t.Helper()
	if err := config.SaveAPIKey(context.Background(), e.kv, key); err != nil {
		t.Fatalf("SaveAPIKey failed: %v", err)
	}
}

func (e *testEnv) catalog() models.Catalog {
	return history.NewPersister(e.kv).Load(context.Background())
}
