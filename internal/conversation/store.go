// Package conversation holds the active message list and the chat catalog.
package conversation

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	apperrors "github.com/diogo/imagestudio/internal/errors"
	"github.com/diogo/imagestudio/internal/history"
	"github.com/diogo/imagestudio/internal/models"
)

// Persister is the subset of history.Persister the store needs
type Persister interface {
	Load(ctx context.Context) models.Catalog
	Persist(ctx context.Context, catalog models.Catalog) history.PersistResult
	Clear(ctx context.Context) error
}

// Store owns the active conversation and the catalog of saved chats.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	messages []models.Message
	activeID string
	catalog  models.Catalog

	persister       Persister
	limit           int
	reorderOnUpdate bool
	now             func() time.Time
	logger          *slog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithReorderOnUpdate moves an updated chat to the front of the catalog
func WithReorderOnUpdate(enabled bool) Option {
	return func(s *Store) {
		s.reorderOnUpdate = enabled
	}
}

// WithClock overrides the time source for chat IDs
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCatalogLimit overrides how many chats are kept
func WithCatalogLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewStore creates a store and loads the saved catalog once
func NewStore(ctx context.Context, persister Persister, opts ...Option) *Store {
	s := &Store{
		persister: persister,
		limit:     models.CatalogLimit,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.catalog = persister.Load(ctx)
	return s
}

// AppendUser adds a user message; images are copied
func (s *Store) AppendUser(text string, images []string) models.Message {
	msg := models.Message{Role: models.RoleUser, Content: text, Images: images}.Clone()
	if msg.Images == nil {
		msg.Images = []string{}
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	return msg.Clone()
}

// AppendAssistant adds a reply built from a parsed result
func (s *Store) AppendAssistant(result *models.Result) models.Message {
	msg := models.Message{Role: models.RoleAssistant}
	if result != nil {
		msg.Content = result.Text
		msg.Reasoning = result.Reasoning
		if img := result.FirstImage(); img != "" {
			msg.Images = []string{img}
		}
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	return msg.Clone()
}

// StartNew detaches the active chat; the catalog is untouched
func (s *Store) StartNew() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.activeID = ""
}

// Load makes a saved chat active. Unknown ids leave the store unchanged.
func (s *Store) Load(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.catalog.Find(id)
	if idx < 0 {
		return false
	}

	s.activeID = id
	s.messages = history.ReifyAll(s.catalog[idx].Messages)
	return true
}

// Commit saves the active conversation into the catalog and persists it.
// An empty conversation is not saved and reports false.
func (s *Store) Commit(ctx context.Context) (history.PersistResult, bool) {
	s.mu.Lock()
	if len(s.messages) == 0 {
		s.mu.Unlock()
		return history.PersistResult{}, false
	}

	light := history.LightenAll(s.messages)
	idx := -1
	if s.activeID != "" {
		idx = s.catalog.Find(s.activeID)
	}

	switch {
	case idx >= 0:
		chat := s.catalog[idx]
		chat.Messages = light
		if s.reorderOnUpdate && idx > 0 {
			catalog := make(models.Catalog, 0, len(s.catalog))
			catalog = append(catalog, chat)
			catalog = append(catalog, s.catalog[:idx]...)
			catalog = append(catalog, s.catalog[idx+1:]...)
			s.catalog = catalog
		} else {
			s.catalog[idx] = chat
		}
	default:
		// Chats dropped from the catalog while active come back under the same id
		now := s.now().UnixMilli()
		if s.activeID == "" {
			s.activeID = s.uniqueID(now)
		}
		chat := models.Chat{
			ID:        s.activeID,
			Title:     Title(s.messages[0].Content),
			Messages:  light,
			CreatedAt: now,
		}
		s.catalog = append(models.Catalog{chat}, s.catalog...)
	}

	s.catalog = s.catalog.Truncate(s.limit)
	catalog := cloneCatalog(s.catalog)
	s.mu.Unlock()

	res := s.persister.Persist(ctx, catalog)
	if res.Degraded() {
		s.logger.Warn("chat history was reduced to fit storage",
			"tier", res.Tier.String(), "kept", len(res.Catalog))
	}

	s.mu.Lock()
	s.catalog = cloneCatalog(res.Catalog)
	s.mu.Unlock()

	return res, true
}

// Delete removes a saved chat. Deleting the active chat detaches it.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.catalog.Find(id)
	if idx < 0 {
		s.mu.Unlock()
		return apperrors.ErrNotFound
	}
	catalog := make(models.Catalog, 0, len(s.catalog)-1)
	catalog = append(catalog, s.catalog[:idx]...)
	catalog = append(catalog, s.catalog[idx+1:]...)
	s.catalog = catalog
	if s.activeID == id {
		s.activeID = ""
		s.messages = nil
	}
	snapshot := cloneCatalog(s.catalog)
	s.mu.Unlock()

	res := s.persister.Persist(ctx, snapshot)

	s.mu.Lock()
	s.catalog = cloneCatalog(res.Catalog)
	s.mu.Unlock()
	return nil
}

// ClearHistory removes every saved chat and starts a new conversation
func (s *Store) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	s.catalog = models.Catalog{}
	s.activeID = ""
	s.messages = nil
	s.mu.Unlock()

	return s.persister.Clear(ctx)
}

// Messages returns a copy of the active conversation
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of messages in the active conversation
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Catalog returns a copy of the saved chats, most recent first
func (s *Store) Catalog() models.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCatalog(s.catalog)
}

// Chat returns a saved chat by id
func (s *Store) Chat(id string) (models.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.catalog.Find(id)
	if idx < 0 {
		return models.Chat{}, false
	}
	return cloneCatalog(s.catalog[idx : idx+1])[0], true
}

// ActiveID returns the id of the active chat, or "" for an unsaved one
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Title derives a chat title from the first message text
func Title(first string) string {
	if first == "" {
		return models.DefaultTitle
	}
	if utf8.RuneCountInString(first) <= models.TitleMaxLen {
		return first
	}
	runes := []rune(first)
	return string(runes[:models.TitleMaxLen]) + "..."
}

// uniqueID must be called with mu held
func (s *Store) uniqueID(ms int64) string {
	for {
		id := strconv.FormatInt(ms, 10)
		if s.catalog.Find(id) < 0 {
			return id
		}
		ms++
	}
}

func cloneCatalog(c models.Catalog) models.Catalog {
	out := make(models.Catalog, len(c))
	for i, chat := range c {
		msgs := make([]models.LightMessage, len(chat.Messages))
		for j, lm := range chat.Messages {
			if lm.Images != nil {
				lm.Images = append([]string{}, lm.Images...)
			}
			msgs[j] = lm
		}
		chat.Messages = msgs
		out[i] = chat
	}
	return out
}
