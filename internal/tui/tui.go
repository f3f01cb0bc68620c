package tui

import (
	"context"
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"omnitui/internal/dataservice"
	"omnitui/internal/models"
	"omnitui/internal/reader"
	"omnitui/internal/settings"
	"omnitui/internal/webpage"
)

type viewMode int

const (
	tableView viewMode = iota
	saveView
	settingsView
	readerView
	webView
)

// Service is the data the TUI reads and writes.
type Service interface {
	reader.ContentFetcher
	Library(ctx context.Context, query string, first int, after string) (models.Page, error)
	CachedLibrary(ctx context.Context, limit int) ([]models.FeedItem, error)
	SaveURL(ctx context.Context, rawURL string) (dataservice.SaveResult, error)
}

// PageFetcher loads the static pages reachable from settings.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (webpage.Page, error)
}

type Options struct {
	Service  Service
	Settings *settings.Model
	Pages    PageFetcher
	// OpenURL opens a link in the system browser.
	OpenURL func(url string) error
	Query   string
	Limit   int
	Logger  *log.Logger
}

// Navigation messages
type goToReaderMsg struct {
	item models.FeedItem
}
type goToSaveMsg struct{}
type goToSettingsMsg struct{}
type goToTableMsg struct{}
type goToWebMsg struct {
	route settings.Route
}

// loggedOutMsg ends the program after a confirmed logout.
type loggedOutMsg struct{}

type libraryLoadedMsg struct {
	items   []models.FeedItem
	offline bool
	err     error
}

type rootPage struct {
	ctx  context.Context
	opts Options

	viewMode     viewMode
	tablePage    tablePage
	savePage     savePage
	settingsPage settingsPage
	readerPage   readerPage
	webPage      webPage

	loggedOut bool
	width     int
	height    int
	err       error
}

// Run starts the full-screen library browser.
func Run(ctx context.Context, opts Options) error {
	m := newRootPage(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	res, err := p.Run()
	if err != nil {
		return err
	}
	if rp, ok := res.(rootPage); ok && rp.loggedOut {
		fmt.Println("Logged out.")
	}
	return nil
}

func newRootPage(ctx context.Context, opts Options) rootPage {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.OpenURL == nil {
		opts.OpenURL = func(string) error { return nil }
	}
	if opts.Query == "" {
		opts.Query = "in:inbox"
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	surface := &textSurface{}
	return rootPage{
		ctx:          ctx,
		opts:         opts,
		tablePage:    TablePage(nil, 0, 10, 0),
		savePage:     newSavePage(ctx, opts.Service),
		settingsPage: newSettingsPage(ctx, opts.Settings, opts.OpenURL, opts.Logger),
		readerPage:   newReaderPage(ctx, opts.Service, surface, opts.Logger),
		webPage:      newWebPage(ctx, opts.Pages, opts.Settings),
	}
}

func (m rootPage) Init() tea.Cmd {
	return m.loadLibrary()
}

// loadLibrary reads from the network and falls back to the local cache.
func (m rootPage) loadLibrary() tea.Cmd {
	svc, opts := m.opts.Service, m.opts
	ctx := m.ctx
	return func() tea.Msg {
		page, err := svc.Library(ctx, opts.Query, opts.Limit, "")
		if err == nil {
			return libraryLoadedMsg{items: page.Items}
		}
		opts.Logger.Printf("library: %v, using local cache", err)
		items, cerr := svc.CachedLibrary(ctx, opts.Limit)
		if cerr != nil || len(items) == 0 {
			return libraryLoadedMsg{err: err}
		}
		return libraryLoadedMsg{items: items, offline: true}
	}
}

func (m rootPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.viewMode {
	case tableView:
		m.tablePage, cmd = update[tablePage](m.tablePage, msg)
	case saveView:
		m.savePage, cmd = update[savePage](m.savePage, msg)
	case settingsView:
		m.settingsPage, cmd = update[settingsPage](m.settingsPage, msg)
	case readerView:
		m.readerPage, cmd = update[readerPage](m.readerPage, msg)
	case webView:
		m.webPage, cmd = update[webPage](m.webPage, msg)
	}

	switch msg := msg.(type) {
	case libraryLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.tablePage, cmd = update[tablePage](m.tablePage, msg)
	case articleLoadedMsg:
		// The reader may have been left; it still has to see the result.
		if m.viewMode != readerView {
			m.readerPage, cmd = update[readerPage](m.readerPage, msg)
		}
	case pageLoadedMsg:
		if m.viewMode != webView {
			m.webPage, cmd = update[webPage](m.webPage, msg)
		}
	case goToSaveMsg:
		m.viewMode = saveView
		m.savePage, cmd = update[savePage](m.savePage, msg)
	case goToSettingsMsg:
		m.viewMode = settingsView
	case goToTableMsg:
		if m.viewMode == readerView {
			m.readerPage.teardown()
		}
		m.viewMode = tableView
	case goToReaderMsg:
		m.viewMode = readerView
		m.readerPage, cmd = update[readerPage](m.readerPage, msg)
	case goToWebMsg:
		m.viewMode = webView
		m.webPage, cmd = update[webPage](m.webPage, msg)
	case savedMsg:
		if msg.err == nil {
			return m, tea.Batch(cmd, m.loadLibrary())
		}
	case cacheClearedMsg:
		return m, tea.Batch(cmd, m.loadLibrary())
	case loggedOutMsg:
		m.loggedOut = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		var cmds []tea.Cmd

		m.tablePage, cmd = update[tablePage](m.tablePage, msg)
		cmds = append(cmds, cmd)

		m.savePage, cmd = update[savePage](m.savePage, msg)
		cmds = append(cmds, cmd)

		m.settingsPage, cmd = update[settingsPage](m.settingsPage, msg)
		cmds = append(cmds, cmd)

		m.readerPage, cmd = update[readerPage](m.readerPage, msg)
		cmds = append(cmds, cmd)

		m.webPage, cmd = update[webPage](m.webPage, msg)
		cmds = append(cmds, cmd)

		m.width = msg.Width - 4
		m.height = msg.Height - 4

		return m, tea.Batch(cmds...)
	}

	return m, cmd
}

func (m rootPage) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)
	}

	switch m.viewMode {
	case tableView:
		return m.tablePage.View()
	case saveView:
		return m.savePage.View()
	case settingsView:
		return m.settingsPage.View()
	case readerView:
		return m.readerPage.View()
	case webView:
		return m.webPage.View()
	default:
		return "Unknown View"
	}
}

func update[T any](model tea.Model, msg tea.Msg) (T, tea.Cmd) {
	newModel, cmd := model.Update(msg)
	return newModel.(T), cmd
}
