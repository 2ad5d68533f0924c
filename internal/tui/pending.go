package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/watchfire-io/hookwatch/internal/models"
)

// PendingPanel lists permission requests waiting for an answer.
type PendingPanel struct {
	requests []*models.PermissionRequest
	names    map[string]string
	cursor   int
}

// NewPendingPanel creates an empty panel.
func NewPendingPanel() *PendingPanel {
	return &PendingPanel{names: map[string]string{}}
}

// SetRequests replaces the requests. names maps session ids to display names.
func (p *PendingPanel) SetRequests(requests []*models.PermissionRequest, names map[string]string) {
	p.requests = requests
	p.names = names
	if p.cursor >= len(requests) {
		p.cursor = len(requests) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

// Len returns the number of pending requests.
func (p *PendingPanel) Len() int {
	return len(p.requests)
}

// Selected returns the request under the cursor, or nil.
func (p *PendingPanel) Selected() *models.PermissionRequest {
	if p.cursor < 0 || p.cursor >= len(p.requests) {
		return nil
	}
	return p.requests[p.cursor]
}

// MoveUp moves the cursor up.
func (p *PendingPanel) MoveUp() {
	if p.cursor > 0 {
		p.cursor--
	}
}

// MoveDown moves the cursor down.
func (p *PendingPanel) MoveDown() {
	if p.cursor < len(p.requests)-1 {
		p.cursor++
	}
}

// View renders the requests, newest first.
func (p *PendingPanel) View(width int, now time.Time) string {
	if len(p.requests) == 0 {
		return lipgloss.NewStyle().Foreground(colorDim).Render("No pending permission requests.")
	}

	var lines []string
	for i, req := range p.requests {
		name := p.names[req.SessionID]
		if name == "" {
			name = req.SessionID
		}
		age := now.Sub(req.CreatedAt).Truncate(time.Second)
		head := fmt.Sprintf("%s  %s  %s",
			toolStyle.Render(req.ToolName),
			ansi.Truncate(name, width/2, "…"),
			dimTextStyle.Render(age.String()+" ago"),
		)
		block := []string{head}
		for _, q := range req.Questions {
			block = append(block, "  "+ansi.Truncate(q.Question, width-2, "…"))
			for _, opt := range q.Options {
				block = append(block, dimTextStyle.Render("    - "+ansi.Truncate(opt.Label, width-6, "…")))
			}
		}
		if i == p.cursor {
			for j, l := range block {
				block[j] = selectedItemStyle.Width(width).Render(l)
			}
		}
		lines = append(lines, block...)
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
