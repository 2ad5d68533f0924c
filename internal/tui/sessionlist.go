package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/watchfire-io/hookwatch/internal/display"
	"github.com/watchfire-io/hookwatch/internal/models"
)

// linesPerSession is the rendered height of one row.
const linesPerSession = 2

// SessionList is the session list component for the left panel.
type SessionList struct {
	sessions     []*models.SessionRecord
	unseen       map[string]bool
	cursor       int
	scrollOffset int
	height       int // In rows, not lines
}

// NewSessionList creates an empty session list.
func NewSessionList() *SessionList {
	return &SessionList{unseen: map[string]bool{}}
}

// SetSessions replaces the list, keeping the cursor on the same session.
func (sl *SessionList) SetSessions(sessions []*models.SessionRecord, unseen []string) {
	selected := ""
	if rec := sl.Selected(); rec != nil {
		selected = rec.ID
	}

	sl.sessions = sessions
	sl.unseen = make(map[string]bool, len(unseen))
	for _, id := range unseen {
		sl.unseen[id] = true
	}

	sl.cursor = 0
	for i, rec := range sessions {
		if rec.ID == selected {
			sl.cursor = i
			break
		}
	}
	sl.ensureVisible()
}

// SetHeight sets the visible height in lines.
func (sl *SessionList) SetHeight(h int) {
	sl.height = h / linesPerSession
	if sl.height < 1 {
		sl.height = 1
	}
	sl.ensureVisible()
}

// Selected returns the session under the cursor, or nil.
func (sl *SessionList) Selected() *models.SessionRecord {
	if sl.cursor < 0 || sl.cursor >= len(sl.sessions) {
		return nil
	}
	return sl.sessions[sl.cursor]
}

// IsUnseen reports whether id has an unacknowledged finish.
func (sl *SessionList) IsUnseen(id string) bool {
	return sl.unseen[id]
}

// MoveUp moves the cursor up.
func (sl *SessionList) MoveUp() {
	if sl.cursor > 0 {
		sl.cursor--
		sl.ensureVisible()
	}
}

// MoveDown moves the cursor down.
func (sl *SessionList) MoveDown() {
	if sl.cursor < len(sl.sessions)-1 {
		sl.cursor++
		sl.ensureVisible()
	}
}

func (sl *SessionList) ensureVisible() {
	if sl.height <= 0 {
		return
	}
	if sl.cursor < sl.scrollOffset {
		sl.scrollOffset = sl.cursor
	}
	if sl.cursor >= sl.scrollOffset+sl.height {
		sl.scrollOffset = sl.cursor - sl.height + 1
	}
}

// View renders the list at now.
func (sl *SessionList) View(width int, now time.Time) string {
	if len(sl.sessions) == 0 {
		return lipgloss.NewStyle().Foreground(colorDim).Render("No sessions yet. Configure 'hookwatch hook' as a hook command.")
	}

	var lines []string
	end := sl.scrollOffset + sl.height
	if end > len(sl.sessions) {
		end = len(sl.sessions)
	}
	for i := sl.scrollOffset; i < end; i++ {
		row := sl.renderRow(sl.sessions[i], width, now)
		if i == sl.cursor {
			for j, l := range row {
				row[j] = selectedItemStyle.Width(width).Render(l)
			}
		}
		lines = append(lines, row...)
	}
	return strings.Join(lines, "\n")
}

func (sl *SessionList) renderRow(rec *models.SessionRecord, width int, now time.Time) []string {
	view := display.Status(rec.Status)
	symbol := lipgloss.NewStyle().Foreground(view.Color).Render(view.Symbol)

	marker := " "
	if sl.unseen[rec.ID] {
		marker = unseenStyle.Render("●")
	}

	right := dimTextStyle.Render(fmt.Sprintf("%s  %s", view.Label, display.Duration(rec.Elapsed(now))))
	nameWidth := width - lipgloss.Width(right) - 6
	if nameWidth < 4 {
		nameWidth = 4
	}
	name := ansi.Truncate(rec.Name, nameWidth, "…")
	left := fmt.Sprintf("%s %s %s", marker, symbol, name)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	first := left + strings.Repeat(" ", gap) + right

	detail := rec.LastPrompt
	if detail == "" {
		detail = rec.Detail
	}
	second := "    " + dimTextStyle.Render(ansi.Truncate(detail, width-4, "…"))
	return []string{first, second}
}
