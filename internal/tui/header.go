package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/watchfire-io/hookwatch/internal/daemon/monitor"
	"github.com/watchfire-io/hookwatch/internal/models"
)

func renderHeader(snap monitor.Snapshot, rightTab int, width int) string {
	dot := lipgloss.NewStyle().Foreground(colorCyan).Render("●")
	name := lipgloss.NewStyle().Bold(true).Render("hookwatch")

	counts := snap.CountByStatus()
	summary := dimTextStyle.Render(fmt.Sprintf("%d sessions, %d running",
		len(snap.Sessions), counts[models.SessionStatusRunning]))

	rightTabs := renderTabs([]string{"Pending", "History"}, rightTab)
	badge := renderBadge(len(snap.Pending), len(snap.Unseen))

	left := fmt.Sprintf(" %s %s  %s", dot, name, summary)
	right := fmt.Sprintf("%s  %s ", rightTabs, badge)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return headerStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func renderTabs(tabs []string, active int) string {
	var parts []string
	for i, tab := range tabs {
		if i == active {
			parts = append(parts, activeTabStyle.Render(tab))
		} else {
			parts = append(parts, inactiveTabStyle.Render(tab))
		}
	}
	return strings.Join(parts, tabSepStyle.Render(" | "))
}

func renderBadge(pending, unseen int) string {
	switch {
	case pending > 0:
		return badgePendingStyle.Render(fmt.Sprintf("◆ %d waiting", pending))
	case unseen > 0:
		return badgeUnseenStyle.Render(fmt.Sprintf("● %d new", unseen))
	default:
		return badgeIdleStyle.Render("○ Quiet")
	}
}
