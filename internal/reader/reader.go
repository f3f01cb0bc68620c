// Package reader holds the state of the article reader: whether content has
// been requested, the loaded HTML, and the surface it is shown on.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"omnitui/internal/models"
)

// BlankDocument is loaded into the surface when the reader goes away.
const BlankDocument = "<html></html>"

type State int

const (
	NotLoaded State = iota
	Loading
	Loaded
)

func (s State) String() string {
	switch s {
	case NotLoaded:
		return "not loaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrDiscarded is returned by a load whose reader was torn down before the
// result arrived.
var ErrDiscarded = errors.New("reader: result discarded")

// Surface displays an HTML document. It is shared between readers, so the
// last document loaded wins. LoadHTML is called with the reader's lock held
// and must not call back into the reader.
type Surface interface {
	LoadHTML(html string)
}

// ContentFetcher is the part of the data service the reader needs.
type ContentFetcher interface {
	CurrentViewer(ctx context.Context) (*models.Viewer, error)
	ArticleContent(ctx context.Context, username, slug string) (string, error)
}

// Model is the reader for one item.
type Model struct {
	item    models.FeedItem
	fetcher ContentFetcher
	surface Surface
	logger  *log.Logger

	mu      sync.Mutex
	state   State
	content string
	gen     uint64
	cancel  context.CancelFunc
}

// New returns a reader for item. surface may be nil.
func New(item models.FeedItem, fetcher ContentFetcher, surface Surface, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Model{item: item, fetcher: fetcher, surface: surface, logger: logger}
}

func (m *Model) Item() models.FeedItem { return m.item }

func (m *Model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Content returns the loaded HTML, if any.
func (m *Model) Content() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content, m.state == Loaded
}

// Begin is called each time the reader appears. The first call moves the
// reader to Loading and returns the function that performs the request;
// the caller runs it off the UI loop. Any later call, including one racing
// with the first, returns nil.
func (m *Model) Begin(ctx context.Context) func() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != NotLoaded {
		return nil
	}
	m.state = Loading
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	return func() (string, error) {
		defer cancel()
		return m.load(ctx, gen)
	}
}

func (m *Model) load(ctx context.Context, gen uint64) (string, error) {
	html, err := m.fetch(ctx)

	m.mu.Lock()
	if gen != m.gen || m.state != Loading {
		m.mu.Unlock()
		return "", ErrDiscarded
	}
	m.cancel = nil
	if err != nil {
		m.state = NotLoaded
		m.mu.Unlock()
		m.logger.Printf("reader %s: %v", m.item.Slug, err)
		return "", err
	}
	m.state = Loaded
	m.content = html
	if m.surface != nil {
		m.surface.LoadHTML(html)
	}
	m.mu.Unlock()
	return html, nil
}

func (m *Model) fetch(ctx context.Context) (string, error) {
	viewer, err := m.fetcher.CurrentViewer(ctx)
	if err != nil {
		return "", fmt.Errorf("current viewer: %w", err)
	}
	if viewer == nil || viewer.Username == "" {
		return "", fmt.Errorf("current viewer: no username")
	}
	return m.fetcher.ArticleContent(ctx, viewer.Username, m.item.Slug)
}

// Teardown cancels a pending request, drops loaded content and blanks the
// surface. The reader may be shown again afterwards.
func (m *Model) Teardown() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
	m.state = NotLoaded
	m.content = ""
	if m.surface != nil {
		m.surface.LoadHTML(BlankDocument)
	}
	m.mu.Unlock()
}
