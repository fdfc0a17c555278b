// Package attachments holds the images pending for the next message.
package attachments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/diogo/imagestudio/internal/errors"
	"github.com/diogo/imagestudio/internal/models"
)

// Listener receives a snapshot after every mutation
type Listener func([]models.Attachment)

// Set is a bounded, ordered collection of pending attachments.
// It is safe for concurrent use.
type Set struct {
	mu        sync.Mutex
	items     []models.Attachment
	max       int
	listeners map[int]Listener
	nextSub   int

	now    func() time.Time
	decode func(ctx context.Context, path string) (string, error)
}

// Option configures a Set
type Option func(*Set)

// WithClock overrides the time source used for IDs
func WithClock(now func() time.Time) Option {
	return func(s *Set) {
		s.now = now
	}
}

// WithDecoder overrides how files are turned into image references
func WithDecoder(decode func(ctx context.Context, path string) (string, error)) Option {
	return func(s *Set) {
		s.decode = decode
	}
}

// NewSet creates a set holding at most max attachments
func NewSet(max int, opts ...Option) *Set {
	if max <= 0 {
		max = models.MaxImages
	}
	s := &Set{
		max:       max,
		listeners: make(map[int]Listener),
		now:       time.Now,
		decode:    DecodeFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add decodes the file at path and appends it.
// At capacity it fails with ErrCapacityExceeded and nothing changes.
func (s *Set) Add(ctx context.Context, path string) (models.Attachment, error) {
	if s.Full() {
		return models.Attachment{}, apperrors.NewCapacityError(s.max)
	}

	data, err := s.decode(ctx, path)
	if err != nil {
		return models.Attachment{}, err
	}

	return s.append(path, data)
}

// Promote turns a rendered image into a pending attachment
func (s *Set) Promote(ref string) (models.Attachment, error) {
	if !IsImageRef(ref) {
		return models.Attachment{}, apperrors.NewAttachmentError("", "not an image reference")
	}
	return s.append("", ref)
}

// append re-checks the cap since decodes may overlap
func (s *Set) append(path, data string) (models.Attachment, error) {
	s.mu.Lock()
	if len(s.items) >= s.max {
		s.mu.Unlock()
		return models.Attachment{}, apperrors.NewCapacityError(s.max)
	}

	att := models.Attachment{
		ID:         s.newID(),
		SourcePath: path,
		Data:       data,
	}
	s.items = append(s.items, att)
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
	return att, nil
}

// Remove drops the attachment with id; unknown ids are ignored
func (s *Set) Remove(id string) bool {
	s.mu.Lock()
	idx := -1
	for i, att := range s.items {
		if att.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
	return true
}

// RemoveAt drops the attachment at a 0-based position
func (s *Set) RemoveAt(index int) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return false
	}
	id := s.items[index].ID
	s.mu.Unlock()
	return s.Remove(id)
}

// Clear empties the set
func (s *Set) Clear() {
	s.Take()
}

// Take returns the image references and empties the set in one step
func (s *Set) Take() []string {
	s.mu.Lock()
	data := make([]string, len(s.items))
	for i, att := range s.items {
		data[i] = att.Data
	}
	s.items = nil
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
	return data
}

// OnChange registers a listener and returns a function that removes it
func (s *Set) OnChange(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Snapshot returns a copy of the pending attachments
func (s *Set) Snapshot() []models.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, _ := s.snapshotLocked()
	return snapshot
}

// Data returns the image references in order
func (s *Set) Data() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := make([]string, len(s.items))
	for i, att := range s.items {
		data[i] = att.Data
	}
	return data
}

// Len returns the number of pending attachments
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Cap returns the attachment limit
func (s *Set) Cap() int {
	return s.max
}

// Full reports whether another attachment would exceed the limit
func (s *Set) Full() bool {
	return s.Len() >= s.max
}

// String renders the count indicator, e.g. "3/10 images"
func (s *Set) String() string {
	return fmt.Sprintf("%d/%d images", s.Len(), s.max)
}

// newID must be called with mu held
func (s *Set) newID() string {
	return fmt.Sprintf("%d%s", s.now().UnixMilli(), uuid.NewString()[:8])
}

func (s *Set) snapshotLocked() ([]models.Attachment, []Listener) {
	snapshot := make([]models.Attachment, len(s.items))
	copy(snapshot, s.items)

	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	return snapshot, listeners
}

func notify(listeners []Listener, snapshot []models.Attachment) {
	for _, l := range listeners {
		l(snapshot)
	}
}
