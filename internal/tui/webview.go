package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"omnitui/internal/settings"
	"omnitui/internal/webpage"
)

type pageLoadedMsg struct {
	route settings.Route
	page  webpage.Page
	err   error
}

// webPage shows one of the static pages linked from settings.
type webPage struct {
	ctx      context.Context
	fetcher  PageFetcher
	links    settings.Links
	route    settings.Route
	page     *webpage.Page
	err      error
	loading  bool
	viewport viewport.Model
	width    int
	height   int
}

func newWebPage(ctx context.Context, fetcher PageFetcher, model *settings.Model) webPage {
	var links settings.Links
	if model != nil {
		links = model.Links()
	}
	return webPage{ctx: ctx, fetcher: fetcher, links: links}
}

func (m webPage) Init() tea.Cmd {
	return nil
}

func (m webPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc":
			return m, func() tea.Msg { return goToSettingsMsg{} }
		case "ctrl+c":
			return m, tea.Quit
		case "k", "up":
			m.viewport.ScrollUp(1)
		case "j", "down":
			m.viewport.ScrollDown(1)
		case "g":
			m.viewport.GotoTop()
		case "G":
			m.viewport.GotoBottom()
		}
		return m, nil
	case goToWebMsg:
		m.route = msg.route
		m.page = nil
		m.err = nil
		m.viewport = m.setupViewport()
		url := m.links.URL(msg.route)
		if url == "" || m.fetcher == nil {
			m.err = fmt.Errorf("no page for %s", msg.route)
			return m, nil
		}
		m.loading = true
		ctx, fetcher, route := m.ctx, m.fetcher, msg.route
		return m, func() tea.Msg {
			page, err := fetcher.Fetch(ctx, url)
			return pageLoadedMsg{route: route, page: page, err: err}
		}
	case pageLoadedMsg:
		if msg.route != m.route {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		page := msg.page
		m.page = &page
		m.viewport = m.setupViewport()
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width - 4
		m.height = msg.Height - 4
		m.viewport = m.setupViewport()
	}
	return m, nil
}

func (m webPage) setupViewport() viewport.Model {
	width := max(20, m.width)
	vp := viewport.New(width, max(5, m.height-6))
	if m.page != nil {
		vp.SetContent(lipgloss.NewStyle().Width(width).Render(m.page.Text))
	}
	return vp
}

func (m webPage) View() string {
	title := string(m.route)
	if m.page != nil && m.page.Title != "" {
		title = m.page.Title
	}
	header := lipgloss.NewStyle().Foreground(accentDark()).Bold(true).MarginBottom(1).Render(title)

	var body string
	switch {
	case m.loading:
		body = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("Loading…")
	case m.err != nil:
		body = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(fmt.Sprintf("Could not load page: %v", m.err))
	default:
		body = m.viewport.View()
	}

	return pageLayout(title, lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		helpBar([]string{"j/k: scroll", "esc/q: back to settings"}),
	))
}
