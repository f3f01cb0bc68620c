package tui

import (
	"context"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"omnitui/internal/settings"
)

type cacheClearedMsg struct{}

type settingsPage struct {
	ctx     context.Context
	model   *settings.Model
	openURL func(string) error
	logger  *log.Logger
	rows    []settings.Row
	cursor  int
	width   int
	height  int
}

func newSettingsPage(ctx context.Context, model *settings.Model, openURL func(string) error, logger *log.Logger) settingsPage {
	return settingsPage{ctx: ctx, model: model, openURL: openURL, logger: logger, rows: settings.Rows()}
}

func (m settingsPage) Init() tea.Cmd {
	return nil
}

func (m settingsPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.model == nil {
			return m, func() tea.Msg { return goToTableMsg{} }
		}
		switch m.model.Dialog() {
		case settings.LogoutDialog:
			return m.updateLogoutDialog(msg)
		case settings.ManageAccountDialog:
			return m.updateAccountDialog(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "1":
			return m, m.apply(m.model.Home())
		case "2":
			return m, func() tea.Msg { return goToSaveMsg{} }
		case "k", "up":
			m.cursor = m.step(-1)
		case "j", "down":
			m.cursor = m.step(1)
		case "enter", " ":
			return m, m.apply(m.model.Tap(m.rows[m.cursor].Kind))
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// step moves the cursor by dir, skipping spacers.
func (m settingsPage) step(dir int) int {
	for i := m.cursor + dir; i >= 0 && i < len(m.rows); i += dir {
		if m.rows[i].Kind != settings.RowSpacer {
			return i
		}
	}
	return m.cursor
}

func (m settingsPage) updateLogoutDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		ctx, model := m.ctx, m.model
		// ResolveLogout may block on the network.
		return m, func() tea.Msg {
			model.ResolveLogout(ctx, true)
			return loggedOutMsg{}
		}
	case "n", "esc", "q":
		m.model.ResolveLogout(m.ctx, false)
	}
	return m, nil
}

func (m settingsPage) updateAccountDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "c":
		ctx, model := m.ctx, m.model
		return m, func() tea.Msg {
			model.ResolveManageAccount(ctx, settings.ActionClearCache)
			return cacheClearedMsg{}
		}
	case "o":
		return m, m.apply(m.model.ResolveManageAccount(m.ctx, settings.ActionOpenAccountPage))
	case "esc", "q":
		m.model.ResolveManageAccount(m.ctx, settings.ActionDismiss)
	}
	return m, nil
}

func (m settingsPage) apply(e settings.Effect) tea.Cmd {
	switch e.Kind {
	case settings.EffectNavigate:
		if e.Route == settings.RouteLibrary {
			return func() tea.Msg { return goToTableMsg{} }
		}
		route := e.Route
		return func() tea.Msg { return goToWebMsg{route: route} }
	case settings.EffectOpenSupport, settings.EffectOpenURL:
		if e.URL == "" {
			return nil
		}
		if err := m.openURL(e.URL); err != nil {
			m.logger.Printf("open %s: %v", e.URL, err)
		}
	}
	return nil
}

func (m settingsPage) View() string {
	if m.model == nil {
		return "Settings are unavailable"
	}

	var lines []string
	for i, row := range m.rows {
		if row.Kind == settings.RowSpacer {
			lines = append(lines, "")
			continue
		}
		label := row.Title
		if row.Chevron {
			label += "  ›"
		}
		style := lipgloss.NewStyle().Padding(0, 1)
		if i == m.cursor {
			style = style.Background(accent()).Foreground(lipgloss.Color("0"))
		}
		lines = append(lines, style.Render(label))
	}

	list := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentDark()).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))

	footer := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.model.VersionLabel())

	var dialog string
	switch m.model.Dialog() {
	case settings.LogoutDialog:
		dialog = dialogBox("Are you sure you want to logout?", "y: logout • n/esc: cancel")
	case settings.ManageAccountDialog:
		dialog = dialogBox("Manage Account", "c: clear local cache • o: open account page • esc: dismiss")
	}

	helpInfo := helpBar([]string{"j/k: move", "Enter: select", "esc/1: library", "q: quit"})

	return pageLayout("Settings", lipgloss.JoinVertical(lipgloss.Left,
		renderMenu(2, m.width),
		list,
		dialog,
		footer,
		helpInfo,
	))
}

func dialogBox(title, actions string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(accent()).
		Padding(0, 2).
		MarginTop(1).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(title),
			helpBar([]string{actions}),
		))
}
