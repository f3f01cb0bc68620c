package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"omnitui/internal/models"
)

type tablePage struct {
	items   []models.FeedItem
	table   *table.Table
	offline bool

	ready       bool
	cursor      int
	currentPage int
	totalPages  int
	width       int
	height      int
	titleWidth  int
	authorWidth int
	savedWidth  int
	labelsWidth int
	pageSize    int
}

func TablePage(items []models.FeedItem, cursor int, pageSize int, currentPage int) tablePage {
	return tablePage{
		items:       items,
		cursor:      cursor,
		pageSize:    pageSize,
		currentPage: currentPage,
	}
}

func (m tablePage) Init() tea.Cmd {
	return nil
}

func (m tablePage) selected() (models.FeedItem, bool) {
	i := m.currentPage*m.pageSize + m.cursor
	if i < 0 || i >= len(m.items) {
		return models.FeedItem{}, false
	}
	return m.items[i], true
}

func (m tablePage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "enter":
			if item, ok := m.selected(); ok {
				return m, func() tea.Msg { return goToReaderMsg{item: item} }
			}
			return m, nil
		case "2":
			return m, func() tea.Msg { return goToSaveMsg{} }
		case "3", ",":
			return m, func() tea.Msg { return goToSettingsMsg{} }
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			} else if m.currentPage > 0 {
				m.currentPage--
				m.cursor = m.pageSize - 1
			}
			m.updateTableRows()
			return m, nil
		case "j", "down":
			itemsOnCurrentPage := min(m.pageSize, len(m.items)-m.currentPage*m.pageSize)
			if m.cursor < itemsOnCurrentPage-1 {
				m.cursor++
			} else if m.currentPage < m.totalPages-1 {
				m.currentPage++
				m.cursor = 0
			}
			m.updateTableRows()
			return m, nil
		case "g":
			m.currentPage = 0
			m.cursor = 0
			m.updateTableRows()
			return m, nil
		case "G":
			if len(m.items) == 0 {
				return m, nil
			}
			m.currentPage = m.totalPages - 1
			lastPageItems := len(m.items) % m.pageSize
			if lastPageItems == 0 {
				lastPageItems = m.pageSize
			}
			m.cursor = lastPageItems - 1
			m.updateTableRows()
			return m, nil
		case "l", "right":
			if m.currentPage < m.totalPages-1 {
				m.currentPage++
				m.cursor = 0
				m.updateTableRows()
				return m, tea.ClearScreen
			}
			return m, nil
		case "h", "left":
			if m.currentPage > 0 {
				m.currentPage--
				m.cursor = 0
				m.updateTableRows()
				return m, tea.ClearScreen
			}
			return m, nil
		}
	case libraryLoadedMsg:
		m.items = msg.items
		m.offline = msg.offline
		if m.width > 0 {
			m.configureTable(m.width, m.height)
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width - 2
		m.height = msg.Height - 4
		m.configureTable(m.width, m.height)
		m.ready = true

		return m, tea.ClearScreen
	}

	return m, nil
}

func (m tablePage) View() string {
	if !m.ready {
		return "...Loading"
	}

	menu := renderMenu(0, m.width)
	if len(m.items) == 0 {
		return pageLayout("Library", lipgloss.JoinVertical(lipgloss.Left, menu, "Your library is empty. Press 2 to save a link."))
	}

	var status string
	if m.offline {
		status = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Render("Offline: showing your local copy")
	}

	helpInfo := helpBar([]string{
		"j/k: move",
		"l/h: page",
		"g/G: home/end",
		"Enter: read",
		"q: quit",
	})

	return pageLayout("Library", lipgloss.JoinVertical(lipgloss.Left, menu, status, m.table.Render(), helpInfo))
}

func (m *tablePage) updateTableRows() {
	if len(m.items) == 0 || m.pageSize <= 0 {
		return
	}

	headers := []string{
		truncateString("Title", m.titleWidth),
		truncateString("Author", m.authorWidth),
		truncateString("Saved", m.savedWidth),
		truncateString("Labels", m.labelsWidth),
	}

	var rows [][]string
	startIdx := m.currentPage * m.pageSize
	endIdx := min(startIdx+m.pageSize, len(m.items))

	for i := startIdx; i < endIdx; i++ {
		item := m.items[i]
		title := item.Title
		if title == "" {
			title = item.Slug
		}
		author := item.Author
		if author == "" {
			author = "Unknown author"
		}
		saved := ""
		if !item.SavedAt.IsZero() {
			saved = humanize.Time(item.SavedAt)
		}

		rows = append(rows, []string{
			truncateString(title, m.titleWidth),
			truncateString(author, m.authorWidth),
			truncateString(saved, m.savedWidth),
			truncateString(strings.Join(item.LabelNames(), ", "), m.labelsWidth),
		})
	}

	if n := len(rows); n > 0 {
		if m.cursor >= n {
			m.cursor = n - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
	}

	borderStyle := lipgloss.NewStyle().Foreground(accentDark())
	headerStyle := lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Foreground(accentDark()).
		Align(lipgloss.Center)
	cursor := m.cursor

	m.table = table.New().
		Width(m.width).
		Border(lipgloss.ThickBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 { // header
				return headerStyle
			}
			if row == cursor {
				return lipgloss.NewStyle().
					Padding(0, 1).
					Background(accent()).
					Foreground(lipgloss.Color("0"))
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// configureTable sizes pages and columns to the window.
func (m *tablePage) configureTable(width, height int) {
	m.pageSize = max(5, height-6)
	m.totalPages = max(1, (len(m.items)+m.pageSize-1)/m.pageSize)

	if m.currentPage >= m.totalPages {
		m.currentPage = m.totalPages - 1
	}
	if m.currentPage < 0 {
		m.currentPage = 0
	}

	if len(m.items) > 0 {
		globalCursor := m.currentPage*m.pageSize + m.cursor
		if globalCursor >= len(m.items) {
			globalCursor = len(m.items) - 1
			m.currentPage = globalCursor / m.pageSize
			m.cursor = globalCursor % m.pageSize
		}
	}

	// 4 for borders, 3 padding per column
	borderPaddingWidth := 4 + 3*4
	m.savedWidth = 16
	remaining := width - m.savedWidth - borderPaddingWidth

	m.titleWidth = max(20, remaining*50/100)
	m.authorWidth = max(12, remaining*25/100)
	m.labelsWidth = max(12, remaining*25/100)

	m.updateTableRows()
}
