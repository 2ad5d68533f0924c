// Package display maps session states to labels, symbols and colors. The
// state machine in models knows nothing about presentation.
package display

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/watchfire-io/hookwatch/internal/models"
)

// StatusView is how a status is shown.
type StatusView struct {
	Label  string
	Symbol string
	Color  lipgloss.AdaptiveColor
}

var statusViews = map[models.SessionStatus]StatusView{
	models.SessionStatusIdle:       {Label: "Idle", Symbol: "○", Color: lipgloss.AdaptiveColor{Light: "242", Dark: "245"}},
	models.SessionStatusRunning:    {Label: "Running", Symbol: "●", Color: lipgloss.AdaptiveColor{Light: "28", Dark: "40"}},
	models.SessionStatusPermission: {Label: "Needs permission", Symbol: "◆", Color: lipgloss.AdaptiveColor{Light: "166", Dark: "214"}},
	models.SessionStatusFinished:   {Label: "Finished", Symbol: "✓", Color: lipgloss.AdaptiveColor{Light: "30", Dark: "45"}},
	models.SessionStatusEnded:      {Label: "Ended", Symbol: "·", Color: lipgloss.AdaptiveColor{Light: "250", Dark: "238"}},
}

// Status returns the view for status.
func Status(status models.SessionStatus) StatusView {
	if v, ok := statusViews[status]; ok {
		return v
	}
	return StatusView{Label: string(status), Symbol: "?", Color: lipgloss.AdaptiveColor{Light: "242", Dark: "245"}}
}

// Render returns the colored symbol and label.
func (v StatusView) Render() string {
	return lipgloss.NewStyle().Foreground(v.Color).Render(v.Symbol + " " + v.Label)
}

// Duration formats an elapsed running time as 1h02m, 3m05s or 12s.
func Duration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// Tokens formats a token count as 950, 12.3k or 4.1M.
func Tokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
