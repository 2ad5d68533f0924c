package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Panels, left to right.
const (
	panelSessions = 0
	panelDetail   = 1
)

// A session row needs room for the status symbol, a name and the elapsed
// time; the detail panel for a tool name and the a/d/esc hints.
const (
	minSessionsWidth = 26
	minDetailWidth   = 30
)

type panelLayout struct {
	sessionsWidth int
	detailWidth   int
	contentHeight int
}

// computeLayout splits the screen below the header and above the status bar.
// One column goes to the divider.
func computeLayout(width, height int, splitRatio float64) panelLayout {
	contentHeight := max(height-2, 1)

	usable := width - 1
	sessionsWidth := max(int(float64(usable)*splitRatio), minSessionsWidth)
	detailWidth := max(usable-sessionsWidth, minDetailWidth)

	return panelLayout{
		sessionsWidth: sessionsWidth,
		detailWidth:   detailWidth,
		contentHeight: contentHeight,
	}
}

func renderPanels(sessions, detail string, layout panelLayout, focusedPanel int) string {
	sessionsStyle := unfocusedBorderStyle
	detailStyle := unfocusedBorderStyle
	if focusedPanel == panelSessions {
		sessionsStyle = focusedBorderStyle
	} else {
		detailStyle = focusedBorderStyle
	}

	// Borders take one cell on every side.
	sessionsInner := max(layout.sessionsWidth-2, 1)
	detailInner := max(layout.detailWidth-2, 1)
	innerHeight := max(layout.contentHeight-2, 1)

	left := sessionsStyle.
		Width(sessionsInner).
		Height(innerHeight).
		Render(fitContent(sessions, sessionsInner, innerHeight))

	right := detailStyle.
		Width(detailInner).
		Height(innerHeight).
		Render(fitContent(detail, detailInner, innerHeight))

	divider := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(strings.TrimSuffix(strings.Repeat("│\n", lipgloss.Height(left)), "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, left, divider, right)
}

// fitContent clips content to height lines and shortens long lines with an
// ellipsis, so prompts and tool names never wrap inside a panel.
func fitContent(content string, width, height int) string {
	lines := strings.Split(content, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = ansi.Truncate(line, width, "…")
		}
	}
	return strings.Join(lines, "\n")
}
