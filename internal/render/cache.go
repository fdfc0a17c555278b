package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// maxIdle bounds the spare renderers kept per option set
const maxIdle = 4

// rendererKey is the part of Options that changes glamour output
type rendererKey struct {
	style            string
	width            int
	emoji            bool
	preserveNewLines bool
	tableWrap        bool
	inlineTableLinks bool
}

func keyFor(opts Options) rendererKey {
	return rendererKey{
		style:            opts.Style,
		width:            opts.Width,
		emoji:            opts.EnableEmoji,
		preserveNewLines: opts.PreserveNewLines,
		tableWrap:        opts.TableWrap,
		inlineTableLinks: opts.InlineTableLinks,
	}
}

// rendererCache keeps idle renderers per option set. A TermRenderer is
// not safe for concurrent Render calls, so callers take one out with
// acquire and hand it back with release.
type rendererCache struct {
	mu   sync.Mutex
	idle map[rendererKey][]*glamour.TermRenderer
}

var renderers = &rendererCache{idle: make(map[rendererKey][]*glamour.TermRenderer)}

func (c *rendererCache) acquire(opts Options) (*glamour.TermRenderer, error) {
	key := keyFor(opts)

	c.mu.Lock()
	list := c.idle[key]
	if n := len(list); n > 0 {
		r := list[n-1]
		c.idle[key] = list[:n-1]
		c.mu.Unlock()
		return r, nil
	}
	if list == nil {
		c.idle[key] = []*glamour.TermRenderer{}
	}
	c.mu.Unlock()

	return newRenderer(opts)
}

func (c *rendererCache) release(opts Options, r *glamour.TermRenderer) {
	if r == nil {
		return
	}
	key := keyFor(opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.idle[key]) < maxIdle {
		c.idle[key] = append(c.idle[key], r)
	}
}

func (c *rendererCache) idleCount(opts Options) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.idle[keyFor(opts)])
}

func newRenderer(opts Options) (*glamour.TermRenderer, error) {
	ropts := []glamour.TermRendererOption{
		glamour.WithStylePath(opts.Style),
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
		glamour.WithInlineTableLinks(opts.InlineTableLinks),
	}
	if opts.EnableEmoji {
		ropts = append(ropts, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		ropts = append(ropts, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(ropts...)
}

// ClearCache drops all idle renderers.
func ClearCache() {
	renderers.mu.Lock()
	renderers.idle = make(map[rendererKey][]*glamour.TermRenderer)
	renderers.mu.Unlock()
}

// CacheSize returns the number of distinct option sets seen.
func CacheSize() int {
	renderers.mu.Lock()
	defer renderers.mu.Unlock()
	return len(renderers.idle)
}
