// Package chat drives a send from user input to a committed conversation.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/diogo/imagestudio/internal/api"
	"github.com/diogo/imagestudio/internal/attachments"
	"github.com/diogo/imagestudio/internal/conversation"
	apperrors "github.com/diogo/imagestudio/internal/errors"
	"github.com/diogo/imagestudio/internal/history"
	"github.com/diogo/imagestudio/internal/models"
)

// Transport posts a completion request and returns the raw reply
type Transport interface {
	Complete(ctx context.Context, apiKey string, req *models.Request) ([]byte, error)
}

// State is the controller's send state
type State int

const (
	StateIdle State = iota
	StateSending
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome describes a send that got past pre-flight checks
type Outcome struct {
	User    models.Message
	Reply   models.Message
	Failed  bool   // the reply is an error message
	Hint    string // suggestion for failed sends

	// Committed is set when the exchange was saved to history; failed
	// sends stay in memory until the next successful one is saved
	Committed bool
	Persist   history.PersistResult
}

// Controller runs one send at a time against a session's store and attachments
type Controller struct {
	mu     sync.Mutex
	state  State
	apiKey string
	model  string

	transport   Transport
	store       *conversation.Store
	attachments *attachments.Set
	build       api.BuildOptions
	logger      *slog.Logger
	observer    func(State)
}

// Option configures a Controller
type Option func(*Controller)

// WithAPIKey sets the credential
func WithAPIKey(key string) Option {
	return func(c *Controller) {
		c.apiKey = key
	}
}

// WithModel sets the model; empty keeps DefaultModel
func WithModel(model string) Option {
	return func(c *Controller) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBuildOptions sets the context window and token budget
func WithBuildOptions(opts api.BuildOptions) Option {
	return func(c *Controller) {
		c.build = opts
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStateObserver is called on every state transition, outside the lock
func WithStateObserver(fn func(State)) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// NewController creates a controller for one session
func NewController(transport Transport, store *conversation.Store, set *attachments.Set, opts ...Option) *Controller {
	c := &Controller{
		state:       StateIdle,
		model:       models.DefaultModel,
		transport:   transport,
		store:       store,
		attachments: set,
		build:       api.DefaultBuildOptions(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send sends text plus the pending attachments.
//
// Pre-flight failures (ErrBusy, ErrEmptyInput, ErrMissingCredential) are
// returned and leave everything untouched. Any later failure is recorded as
// an assistant error message in the conversation and reported through
// Outcome.Failed; the returned error is nil. Only successful exchanges are
// committed to history.
func (c *Controller) Send(ctx context.Context, text string) (Outcome, error) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return Outcome{}, apperrors.ErrBusy
	}
	if text == "" && c.attachments.Len() == 0 {
		c.mu.Unlock()
		return Outcome{}, apperrors.ErrEmptyInput
	}
	if c.apiKey == "" {
		c.mu.Unlock()
		return Outcome{}, apperrors.ErrMissingCredential
	}
	c.state = StateSending
	apiKey, model := c.apiKey, c.model
	c.mu.Unlock()

	c.notify(StateSending)
	defer c.setState(StateIdle)

	images := c.attachments.Take()
	prior := c.store.Messages()

	var out Outcome
	out.User = c.store.AppendUser(text, images)
	req := api.BuildRequest(prior, text, images, model, c.build)

	c.logger.Info("sending message", "model", model, "images", len(images), "context", len(req.Messages)-1)

	result, err := c.complete(ctx, apiKey, req)
	if err != nil {
		safe := apperrors.Redact(err.Error())
		c.logger.Error("send failed", "error", safe, "status", apperrors.GetHTTPStatus(err))

		out.Reply = c.store.AppendAssistant(&models.Result{Text: FailureText(err)})
		out.Failed = true
		out.Hint = apperrors.Hint(err)
		c.setState(StateFailed)
	} else {
		out.Reply = c.store.AppendAssistant(result)
		c.logger.Info("reply received", "images", len(out.Reply.Images), "blocked", result.Blocked)

		// The reply arrived, so it is saved even if ctx ends now
		out.Persist, out.Committed = c.store.Commit(context.WithoutCancel(ctx))
		c.setState(StateSuccess)
	}

	return out, nil
}

func (c *Controller) complete(ctx context.Context, apiKey string, req *models.Request) (*models.Result, error) {
	body, err := c.transport.Complete(ctx, apiKey, req)
	if err != nil {
		return nil, err
	}
	return api.ParseResponse(body)
}

// FailureText is the assistant message shown for a failed send, with credentials hidden
func FailureText(err error) string {
	msg := "Unknown error"
	if err != nil && err.Error() != "" {
		msg = apperrors.Redact(err.Error())
	}
	return "Error: " + msg + ". Please check your API key and try again."
}

// State returns the current send state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsSending reports whether a send is in flight
func (c *Controller) IsSending() bool {
	return c.State() != StateIdle
}

// SetAPIKey replaces the credential
func (c *Controller) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = strings.TrimSpace(key)
}

// HasCredential reports whether an API key is set
func (c *Controller) HasCredential() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apiKey != ""
}

// SetModel replaces the model for later sends
func (c *Controller) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if model != "" {
		c.model = model
	}
}

// Model returns the model used for sends
func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// Attachments returns the pending attachment set
func (c *Controller) Attachments() *attachments.Set {
	return c.attachments
}

// Store returns the conversation store
func (c *Controller) Store() *conversation.Store {
	return c.store
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notify(s)
}

func (c *Controller) notify(s State) {
	if c.observer != nil {
		c.observer(s)
	}
}
