package tui

import "github.com/charmbracelet/lipgloss"

// Omnivore brand yellow and its darker shade.
func accent() lipgloss.Color { return lipgloss.Color("#FFD234") }

func accentDark() lipgloss.Color { return lipgloss.Color("#D9A400") }
