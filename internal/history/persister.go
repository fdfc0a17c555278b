package history

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	apperrors "github.com/diogo/imagestudio/internal/errors"
	"github.com/diogo/imagestudio/internal/models"
	"github.com/diogo/imagestudio/internal/storage"
)

// Tier reports how much of the catalog a Persist call managed to keep
type Tier int

const (
	TierFull     Tier = iota // up to CatalogLimit entries written
	TierReduced              // quota hit, CatalogFallbackLimit entries written
	TierCleared              // nothing could be written, key removed
	TierFailed               // write failed for a reason other than space, stored value untouched
)

func (t Tier) String() string {
	switch t {
	case TierFull:
		return "full"
	case TierReduced:
		return "reduced"
	case TierCleared:
		return "cleared"
	case TierFailed:
		return "failed"
	}
	return "unknown"
}

// PersistResult describes the outcome of Persist
type PersistResult struct {
	// Catalog is what is now stored. For TierFailed it is the catalog that
	// could not be written, so the caller keeps it and the next Persist retries.
	Catalog models.Catalog
	Tier    Tier
	Err     error // the write error for TierFailed
}

// Degraded reports whether entries were dropped to fit the store
func (r PersistResult) Degraded() bool {
	return r.Tier == TierReduced || r.Tier == TierCleared
}

// Failed reports whether nothing was written because the store errored
func (r PersistResult) Failed() bool {
	return r.Tier == TierFailed
}

// Persister reads and writes the catalog under a single KV key
type Persister struct {
	kv            storage.KV
	key           string
	limit         int
	fallbackLimit int
	logger        *slog.Logger
}

// PersisterOption configures a Persister
type PersisterOption func(*Persister)

// WithLogger sets the logger for warnings
func WithLogger(logger *slog.Logger) PersisterOption {
	return func(p *Persister) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithKey overrides the storage key
func WithKey(key string) PersisterOption {
	return func(p *Persister) {
		p.key = key
	}
}

// WithLimits overrides the full and fallback entry limits
func WithLimits(limit, fallback int) PersisterOption {
	return func(p *Persister) {
		if limit > 0 {
			p.limit = limit
		}
		if fallback > 0 {
			p.fallbackLimit = fallback
		}
	}
}

// NewPersister creates a persister over kv
func NewPersister(kv storage.KV, opts ...PersisterOption) *Persister {
	p := &Persister{
		kv:            kv,
		key:           models.KeyChatHistory,
		limit:         models.CatalogLimit,
		fallbackLimit: models.CatalogFallbackLimit,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load reads the stored catalog. A missing or unreadable value is an empty catalog.
func (p *Persister) Load(ctx context.Context) models.Catalog {
	raw, ok, err := p.kv.Get(ctx, p.key)
	if err != nil {
		p.logger.Warn("failed to read chat history", "error", err)
		return models.Catalog{}
	}
	if !ok || raw == "" {
		return models.Catalog{}
	}

	var catalog models.Catalog
	if err := json.Unmarshal([]byte(raw), &catalog); err != nil {
		p.logger.Warn("stored chat history is corrupt, starting empty", "error", err)
		return models.Catalog{}
	}

	return catalog
}

// Persist writes the catalog, dropping older chats when the store is full.
// Only ErrStorageQuotaExceeded degrades the catalog; any other write error
// leaves the stored value as it was. It never fails; the result tells the
// caller what was kept.
func (p *Persister) Persist(ctx context.Context, catalog models.Catalog) PersistResult {
	full := lightenCatalog(catalog.Truncate(p.limit))
	err := p.write(ctx, full)
	if err == nil {
		return PersistResult{Catalog: full, Tier: TierFull}
	}
	if !errors.Is(err, apperrors.ErrStorageQuotaExceeded) {
		return p.failed(full, err)
	}
	p.logger.Warn("chat history exceeds storage quota, retrying with fewer chats",
		"chats", len(full), "retry", p.fallbackLimit)

	reduced := full.Truncate(p.fallbackLimit)
	err = p.write(ctx, reduced)
	if err == nil {
		return PersistResult{Catalog: reduced, Tier: TierReduced}
	}
	if !errors.Is(err, apperrors.ErrStorageQuotaExceeded) {
		return p.failed(full, err)
	}
	p.logger.Warn("reduced chat history still exceeds storage quota, clearing it")

	if err := p.kv.Remove(ctx, p.key); err != nil {
		p.logger.Warn("failed to clear chat history", "error", err)
	}
	return PersistResult{Catalog: models.Catalog{}, Tier: TierCleared}
}

func (p *Persister) failed(catalog models.Catalog, err error) PersistResult {
	p.logger.Error("failed to save chat history", "chats", len(catalog), "error", err)
	return PersistResult{Catalog: catalog, Tier: TierFailed, Err: err}
}

// Clear removes the stored catalog
func (p *Persister) Clear(ctx context.Context) error {
	return p.kv.Remove(ctx, p.key)
}

func (p *Persister) write(ctx context.Context, catalog models.Catalog) error {
	data, err := json.Marshal(catalog)
	if err != nil {
		return err
	}
	return p.kv.Set(ctx, p.key, string(data))
}

// lightenCatalog returns a copy in which no message carries image payloads
func lightenCatalog(catalog models.Catalog) models.Catalog {
	out := make(models.Catalog, len(catalog))
	for i, chat := range catalog {
		msgs := make([]models.LightMessage, len(chat.Messages))
		for j, lm := range chat.Messages {
			msgs[j] = lightenStored(lm)
		}
		chat.Messages = msgs
		out[i] = chat
	}
	return out
}
