package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var menuItems = []string{"Library", "Save", "Settings"}

func pageLayout(pageTitle string, content string) string {
	return lipgloss.NewStyle().
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, content))
}

func renderMenu(activeItem int, width int) string {
	divider := strings.Repeat("─", max(0, width))

	styledItems := make([]string, 0, len(menuItems))
	for index, label := range menuItems {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		if activeItem == index {
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Underline(true)
		}

		item := style.Render(label + " [" + strconv.Itoa(index+1) + "]")
		if index != len(menuItems)-1 {
			item += " | "
		}
		styledItems = append(styledItems, item)
	}

	menu := lipgloss.JoinHorizontal(lipgloss.Left, styledItems...)
	return lipgloss.JoinVertical(lipgloss.Left, menu, divider)
}
