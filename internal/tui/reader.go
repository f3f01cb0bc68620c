package tui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"omnitui/internal/models"
	"omnitui/internal/reader"
)

// textSurface is the document shared by every reader page.
type textSurface struct {
	mu   sync.Mutex
	html string
}

func (s *textSurface) LoadHTML(html string) {
	s.mu.Lock()
	s.html = html
	s.mu.Unlock()
}

func (s *textSurface) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html
}

type articleLoadedMsg struct {
	model *reader.Model
	err   error
}

type readerPage struct {
	ctx     context.Context
	fetcher reader.ContentFetcher
	surface *textSurface
	logger  *log.Logger

	model    *reader.Model
	viewport viewport.Model
	width    int
	height   int
	failed   bool
}

func newReaderPage(ctx context.Context, fetcher reader.ContentFetcher, surface *textSurface, logger *log.Logger) readerPage {
	return readerPage{ctx: ctx, fetcher: fetcher, surface: surface, logger: logger}
}

func (m readerPage) Init() tea.Cmd {
	return nil
}

func (m readerPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, func() tea.Msg { return goToTableMsg{} }
		case "k", "up":
			m.viewport.ScrollUp(1)
			return m, nil
		case "j", "down":
			m.viewport.ScrollDown(1)
			return m, nil
		case "g":
			m.viewport.GotoTop()
			return m, nil
		case "G":
			m.viewport.GotoBottom()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width - 4
		m.height = msg.Height - 4
		m.viewport = m.setupViewport()
		return m, nil
	case goToReaderMsg:
		m.model = reader.New(msg.item, m.fetcher, m.surface, m.logger)
		m.failed = false
		m.viewport = m.setupViewport()
		return m, m.begin()
	case articleLoadedMsg:
		if msg.model != m.model || errors.Is(msg.err, reader.ErrDiscarded) {
			return m, nil
		}
		m.failed = msg.err != nil
		m.viewport = m.setupViewport()
		return m, nil
	}

	return m, nil
}

// begin starts the load if this reader has not requested content yet.
func (m readerPage) begin() tea.Cmd {
	load := m.model.Begin(m.ctx)
	if load == nil {
		return nil
	}
	model := m.model
	return func() tea.Msg {
		_, err := load()
		return articleLoadedMsg{model: model, err: err}
	}
}

func (m *readerPage) teardown() {
	if m.model != nil {
		m.model.Teardown()
	}
	m.viewport = m.setupViewport()
}

func (m readerPage) View() string {
	if m.model == nil {
		return "No item selected"
	}
	item := m.model.Item()

	title := item.Title
	if title == "" {
		title = item.Slug
	}

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(accentDark())

	titleStyle := lipgloss.NewStyle().
		Foreground(accentDark()).
		Bold(true).
		MarginBottom(1).
		Width(max(20, m.width-8))

	urlStyle := lipgloss.NewStyle().
		Foreground(accent()).
		Italic(true).
		MarginBottom(1).
		Width(max(20, m.width-8))

	metadataStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		MarginBottom(1)

	titleRendered := titleStyle.Render(title)
	urlRendered := urlStyle.Render("URL: " + item.URL)
	metadataRendered := metadataStyle.Render(metadataLine(item))

	var body string
	switch m.model.State() {
	case reader.Loading:
		body = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("Loading article…")
	case reader.Loaded:
		body = m.viewport.View()
	default:
		if m.failed {
			body = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("This article could not be loaded.")
		}
	}

	scroll := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Bold(true).
		Render(fmt.Sprintf("Scroll: %d%%", int(clamp01(m.viewport.ScrollPercent())*100)))

	helpInfo := lipgloss.NewStyle().
		MarginTop(1).
		Render(helpBar([]string{"j/k: scroll", "g/G: top/bottom", "esc/q: back"}))

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleRendered,
		urlRendered,
		metadataRendered,
		body,
		scroll,
		helpInfo)

	return pageLayout(title, borderStyle.Render(content))
}

func metadataLine(item models.FeedItem) string {
	author := item.Author
	if author == "" {
		author = "Unknown author"
	}
	parts := []string{author, "Saved " + item.SavedAt.Format("2006-01-02 15:04")}
	if labels := item.LabelNames(); len(labels) > 0 {
		parts = append(parts, strings.Join(labels, ", "))
	}
	return strings.Join(parts, " • ")
}

func (m readerPage) setupViewport() viewport.Model {
	contentWidth := max(20, m.width)
	viewportHeight := max(5, m.height-10)

	vp := viewport.New(contentWidth, viewportHeight)
	if m.model == nil {
		return vp
	}
	if m.model.State() != reader.Loaded {
		return vp
	}
	html := m.surface.HTML()
	if html == "" || html == reader.BlankDocument {
		return vp
	}
	rendered := reader.Render(html, m.model.Item().URL, contentWidth)
	if strings.TrimSpace(rendered) == "" {
		rendered = "No content available"
	}
	vp.SetContent(rendered)
	return vp
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
