package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type savedMsg struct {
	url string
	err error
}

type savePage struct {
	ctx      context.Context
	svc      Service
	width    int
	height   int
	err      error
	saving   bool
	lastSave string
	urlInput textinput.Model
}

func newSavePage(ctx context.Context, svc Service) savePage {
	return savePage{ctx: ctx, svc: svc, urlInput: initializeInput()}
}

func (m savePage) Init() tea.Cmd {
	return nil
}

func (m savePage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter && m.urlInput.Focused() && !m.saving {
			return m.save()
		}
		if msg.Type == tea.KeyTab && !m.urlInput.Focused() {
			m.urlInput.Focus()
			return m, nil
		}
		switch msg.String() {
		case "esc":
			if m.urlInput.Focused() {
				m.urlInput.Blur()
				return m, nil
			}
			return m, tea.Quit
		case "1":
			if !m.urlInput.Focused() {
				return m, func() tea.Msg { return goToTableMsg{} }
			}
		case "3":
			if !m.urlInput.Focused() {
				return m, func() tea.Msg { return goToSettingsMsg{} }
			}
		}
		var cmd tea.Cmd
		m.urlInput, cmd = m.urlInput.Update(msg)
		return m, cmd
	case goToSaveMsg:
		m.err = nil
		m.urlInput.Focus()
		return m, nil
	case savedMsg:
		m.saving = false
		m.err = msg.err
		if msg.err == nil {
			m.lastSave = msg.url
			m.urlInput.SetValue("")
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

func initializeInput() textinput.Model {
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = "https://norvig.com/21-days.html"
	input.Width = 50
	return input
}

func (m savePage) save() (savePage, tea.Cmd) {
	raw := strings.TrimSpace(m.urlInput.Value())
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		m.err = errors.New("please enter a valid url")
		return m, nil
	}
	m.err = nil
	m.saving = true
	ctx, svc := m.ctx, m.svc
	return m, func() tea.Msg {
		res, err := svc.SaveURL(ctx, raw)
		if err != nil {
			return savedMsg{url: raw, err: err}
		}
		if res.URL != "" {
			raw = res.URL
		}
		return savedMsg{url: raw}
	}
}

func (m savePage) View() string {
	instructions := lipgloss.NewStyle().
		MarginTop(min(m.height/4, 10)).
		MarginBottom(2).
		Render("Enter a url below to save it to your library")

	borderColor := lipgloss.Color("8")
	if m.urlInput.Focused() {
		borderColor = lipgloss.Color("15")
	}

	input := lipgloss.NewStyle().
		Width(50).
		AlignHorizontal(lipgloss.Left).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Render(m.urlInput.View())

	var helpInfo string
	if m.urlInput.Focused() {
		helpInfo = helpBar([]string{
			"Enter: save url",
			"Esc: unfocus input",
		})
	} else {
		helpInfo = helpBar([]string{
			"1: library",
			"3: settings",
			"Tab: focus input",
			"Esc: quit",
		})
	}

	var status string
	switch {
	case m.saving:
		status = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("Saving…")
	case m.err != nil:
		status = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Render(fmt.Sprintf("Could not save: %v", m.err))
	case m.lastSave != "":
		status = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Render("Saved " + m.lastSave)
	}

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		renderMenu(1, m.width),
		instructions,
		input,
		status,
		lipgloss.NewStyle().MarginTop(2).Render(helpInfo),
	)

	return pageLayout("Save", content)
}
