package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	apperrors "github.com/diogo/imagestudio/internal/errors"
	"github.com/diogo/imagestudio/internal/history"
	"github.com/diogo/imagestudio/internal/models"
	"github.com/diogo/imagestudio/internal/storage"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *history.Persister) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := history.NewPersister(storage.NewMemoryStore(), history.WithLogger(logger))
	clock := &testClock{t: time.UnixMilli(1700000000000)}
	opts = append([]Option{WithClock(clock.now), WithLogger(logger)}, opts...)
	return NewStore(context.Background(), p, opts...), p
}

func addExchange(s *Store, prompt, reply string) {
	s.AppendUser(prompt, nil)
	s.AppendAssistant(&models.Result{Text: reply})
}

func TestStore_CommitEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	if _, ok := s.Commit(context.Background()); ok {
		t.Error("Commit() of an empty conversation should report false")
	}
	if len(s.Catalog()) != 0 {
		t.Error("empty conversation was saved")
	}
}

func TestStore_CommitCreatesChat(t *testing.T) {
	s, p := newTestStore(t)
	ctx := context.Background()

	s.AppendUser("draw a cat", []string{"data:image/png;base64,IN"})
	s.AppendAssistant(&models.Result{Text: "Here is a cat", Images: []string{"data:image/png;base64,CAT"}})

	res, ok := s.Commit(ctx)
	if !ok {
		t.Fatal("Commit() = false")
	}
	if res.Tier != history.TierFull {
		t.Errorf("Tier = %v, want full", res.Tier)
	}

	catalog := s.Catalog()
	if len(catalog) != 1 {
		t.Fatalf("len(Catalog) = %d, want 1", len(catalog))
	}
	chat := catalog[0]
	if chat.Title != "draw a cat" {
		t.Errorf("Title = %q", chat.Title)
	}
	if chat.ID != s.ActiveID() || chat.ID != "1700000001000" {
		t.Errorf("ID = %s, ActiveID = %s", chat.ID, s.ActiveID())
	}
	if chat.CreatedAt != 1700000001000 {
		t.Errorf("CreatedAt = %d", chat.CreatedAt)
	}

	stored := p.Load(ctx)
	if len(stored) != 1 || len(stored[0].Messages) != 2 {
		t.Fatalf("persisted catalog = %+v", stored)
	}
	for _, lm := range stored[0].Messages {
		if len(lm.Images) != 0 {
			t.Errorf("persisted payload: %v", lm.Images)
		}
	}
}

func TestStore_CommitUpdatesInPlace(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	addExchange(s, "first chat", "ok")
	s.Commit(ctx)
	firstID := s.ActiveID()

	s.StartNew()
	addExchange(s, "second chat", "ok")
	s.Commit(ctx)

	if !s.Load(firstID) {
		t.Fatal("Load(first) = false")
	}
	addExchange(s, "follow up", "sure")
	s.Commit(ctx)

	catalog := s.Catalog()
	if len(catalog) != 2 {
		t.Fatalf("len(Catalog) = %d, want 2", len(catalog))
	}
	if catalog[1].ID != firstID {
		t.Errorf("updated chat moved: order = %s, %s", catalog[0].ID, catalog[1].ID)
	}
	if len(catalog[1].Messages) != 4 {
		t.Errorf("updated chat has %d messages, want 4", len(catalog[1].Messages))
	}
	if catalog[1].Title != "first chat" {
		t.Errorf("Title changed to %q", catalog[1].Title)
	}
}

func TestStore_ReorderOnUpdate(t *testing.T) {
	s, _ := newTestStore(t, WithReorderOnUpdate(true))
	ctx := context.Background()

	addExchange(s, "first", "ok")
	s.Commit(ctx)
	firstID := s.ActiveID()

	s.StartNew()
	addExchange(s, "second", "ok")
	s.Commit(ctx)

	s.Load(firstID)
	addExchange(s, "again", "ok")
	s.Commit(ctx)

	if got := s.Catalog()[0].ID; got != firstID {
		t.Errorf("front chat = %s, want %s", got, firstID)
	}
}

func TestStore_CatalogLimit(t *testing.T) {
	s, p := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < models.CatalogLimit+5; i++ {
		s.StartNew()
		addExchange(s, "chat", "ok")
		s.Commit(ctx)
	}

	if got := len(s.Catalog()); got != models.CatalogLimit {
		t.Errorf("len(Catalog) = %d, want %d", got, models.CatalogLimit)
	}
	if got := len(p.Load(ctx)); got != models.CatalogLimit {
		t.Errorf("persisted %d chats, want %d", got, models.CatalogLimit)
	}
}

func TestStore_IDsAreUnique(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := history.NewPersister(storage.NewMemoryStore(), history.WithLogger(logger))
	fixed := time.UnixMilli(1700000000000)
	s := NewStore(context.Background(), p, WithClock(func() time.Time { return fixed }), WithLogger(logger))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.StartNew()
		addExchange(s, "same instant", "ok")
		s.Commit(ctx)
	}

	seen := map[string]bool{}
	for _, chat := range s.Catalog() {
		if seen[chat.ID] {
			t.Errorf("duplicate id %s", chat.ID)
		}
		seen[chat.ID] = true
	}
}

func TestStore_LoadReifies(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.AppendUser("edit", []string{"a", "b"})
	s.AppendAssistant(&models.Result{Text: "done", Images: []string{"c"}})
	s.Commit(ctx)
	id := s.ActiveID()

	s.StartNew()
	if s.Len() != 0 {
		t.Fatal("StartNew did not clear messages")
	}
	if len(s.Catalog()) != 1 {
		t.Fatal("StartNew touched the catalog")
	}

	if !s.Load(id) {
		t.Fatal("Load() = false")
	}
	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len(Messages) = %d", len(msgs))
	}
	if !strings.HasSuffix(msgs[0].Content, "📷 [2 image(s) - not stored in history]") {
		t.Errorf("user content = %q", msgs[0].Content)
	}
	if !strings.HasSuffix(msgs[1].Content, "📷 [Image - not stored in history]") {
		t.Errorf("assistant content = %q", msgs[1].Content)
	}
}

func TestStore_LoadUnknown(t *testing.T) {
	s, _ := newTestStore(t)
	addExchange(s, "keep me", "ok")

	if s.Load("nope") {
		t.Error("Load(unknown) = true")
	}
	if s.Len() != 2 || s.ActiveID() != "" {
		t.Error("Load(unknown) changed the store")
	}
}

func TestStore_Title(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "New Chat"},
		{"short", "short"},
		{strings.Repeat("a", 40), strings.Repeat("a", 40)},
		{strings.Repeat("a", 41), strings.Repeat("a", 40) + "..."},
		{strings.Repeat("é", 45), strings.Repeat("é", 40) + "..."},
	}
	for _, tt := range tests {
		if got := Title(tt.in); got != tt.want {
			t.Errorf("Title(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStore_ImageOnlyTitle(t *testing.T) {
	s, _ := newTestStore(t)
	s.AppendUser("", []string{"data:image/png;base64,AA"})
	s.AppendAssistant(&models.Result{Text: "nice"})
	s.Commit(context.Background())

	if got := s.Catalog()[0].Title; got != "New Chat" {
		t.Errorf("Title = %q, want New Chat", got)
	}
}

func TestStore_AppendUserCopiesImages(t *testing.T) {
	s, _ := newTestStore(t)
	images := []string{"a"}
	s.AppendUser("x", images)
	images[0] = "mutated"

	if got := s.Messages()[0].Images[0]; got != "a" {
		t.Errorf("stored image = %s, want a", got)
	}
}

func TestStore_Delete(t *testing.T) {
	s, p := newTestStore(t)
	ctx := context.Background()

	addExchange(s, "doomed", "ok")
	s.Commit(ctx)
	id := s.ActiveID()

	if err := s.Delete(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Delete(missing) = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.ActiveID() != "" || s.Len() != 0 {
		t.Error("deleting the active chat should detach it")
	}
	if len(p.Load(ctx)) != 0 {
		t.Error("deleted chat still persisted")
	}
}

func TestStore_ClearHistory(t *testing.T) {
	s, p := newTestStore(t)
	ctx := context.Background()

	addExchange(s, "a", "ok")
	s.Commit(ctx)

	if err := s.ClearHistory(ctx); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	if len(s.Catalog()) != 0 || s.Len() != 0 {
		t.Error("store not cleared")
	}
	if len(p.Load(ctx)) != 0 {
		t.Error("persisted history not cleared")
	}
}

func TestStore_LoadsSavedCatalogAtStart(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first := NewStore(ctx, history.NewPersister(kv, history.WithLogger(logger)), WithLogger(logger))
	addExchange(first, "remember me", "ok")
	first.Commit(ctx)

	second := NewStore(ctx, history.NewPersister(kv, history.WithLogger(logger)), WithLogger(logger))
	catalog := second.Catalog()
	if len(catalog) != 1 || catalog[0].Title != "remember me" {
		t.Errorf("Catalog() = %+v", catalog)
	}
	if second.ActiveID() != "" {
		t.Error("a fresh store should start with no active chat")
	}
}

// lockedKV fails every write with a non-quota error
type lockedKV struct {
	*storage.MemoryStore
}

func (lockedKV) Set(context.Context, string, string) error {
	return errors.New("database is locked")
}

func TestStore_CommitKeepsCatalogWhenWriteFails(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := lockedKV{MemoryStore: storage.NewMemoryStore()}
	s := NewStore(ctx, history.NewPersister(kv, history.WithLogger(logger)), WithLogger(logger))

	addExchange(s, "draw a cat", "Here is a cat")
	res, ok := s.Commit(ctx)
	if !ok || !res.Failed() {
		t.Fatalf("Commit() = %v, %v; want a failed write", res.Tier, ok)
	}

	catalog := s.Catalog()
	if len(catalog) != 1 || catalog[0].ID != s.ActiveID() {
		t.Errorf("in-memory catalog should keep the unsaved chat, got %+v", catalog)
	}
}
