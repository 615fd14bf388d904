package main

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7C7AE6"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#00AF87", Dark: "#00D787"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#D7AF00", Dark: "#FFD700"}
	colorError   = lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"}
	colorSubtle  = lipgloss.AdaptiveColor{Light: "#6C6C6C", Dark: "#8A8A8A"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#B2B2B2", Dark: "#585858"}
)

var (
	styleHeading = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).MarginBottom(1)
	styleSubtle  = lipgloss.NewStyle().Foreground(colorSubtle)
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(colorSubtle)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)

	styleBox = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(1, 2)
)

const (
	iconUp      = "✓"
	iconDown    = "✗"
	iconPending = "…"
)
