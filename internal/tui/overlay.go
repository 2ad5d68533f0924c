package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	overlayNone = 0
	overlayHelp = 1
)

// renderOverlay draws content centered over a dimmed base view. Content that
// does not fit the terminal is clipped: the help box is taller than the
// minimum window size.
func renderOverlay(base, content string, width, height int) string {
	rows := strings.Split(base, "\n")
	for i, row := range rows {
		rows[i] = overlayDimStyle.Render(row)
	}

	lines := strings.Split(content, "\n")
	if maxLines := height - 2; maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	boxWidth := 0
	for i, line := range lines {
		if maxWidth := width - 2; maxWidth > 0 && lipgloss.Width(line) > maxWidth {
			lines[i] = ansi.Truncate(line, maxWidth, "")
		}
		boxWidth = max(boxWidth, lipgloss.Width(lines[i]))
	}

	top := max((height-len(lines))/2, 1)
	left := max((width-boxWidth)/2, 1)

	for i, line := range lines {
		row := top + i
		if row >= len(rows) {
			break
		}
		bg := rows[row]
		bgWidth := lipgloss.Width(bg)

		right := ""
		if start := left + lipgloss.Width(line); start < bgWidth {
			right = ansi.Cut(bg, start, bgWidth)
		}
		rows[row] = ansi.Truncate(bg, left, "") + "\033[0m" + line + "\033[0m" + right
	}

	return strings.Join(rows, "\n")
}
