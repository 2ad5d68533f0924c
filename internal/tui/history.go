package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/watchfire-io/hookwatch/internal/display"
	"github.com/watchfire-io/hookwatch/internal/models"
	"github.com/watchfire-io/hookwatch/internal/transcript"
)

// HistoryView shows the conversation of one session.
type HistoryView struct {
	sessionID string
	title     string
	history   *transcript.History
	showAll   bool
	viewport  viewport.Model
	width     int
	height    int
	message   string
}

// NewHistoryView creates an empty history view.
func NewHistoryView() *HistoryView {
	return &HistoryView{viewport: viewport.New(80, 24)}
}

// SetSize updates dimensions.
func (h *HistoryView) SetSize(width, height int) {
	h.width = width
	h.height = height
	h.viewport.Width = width
	h.viewport.Height = height - 1 // Title line
	if h.viewport.Height < 1 {
		h.viewport.Height = 1
	}
	h.render()
}

// SessionID returns the session shown, or "".
func (h *HistoryView) SessionID() string {
	return h.sessionID
}

// Loading clears the view for sessionID.
func (h *HistoryView) Loading(sessionID, title string) {
	h.sessionID = sessionID
	h.title = title
	h.history = nil
	h.message = "Loading…"
	h.render()
}

// SetHistory shows history, scrolled to the latest turn.
func (h *HistoryView) SetHistory(history *transcript.History, err error) {
	h.history = history
	h.message = ""
	if err != nil {
		h.message = err.Error()
	}
	h.render()
	h.viewport.GotoBottom()
}

// ToggleAll switches between final replies only and every entry.
func (h *HistoryView) ToggleAll() {
	h.showAll = !h.showAll
	h.render()
}

// ScrollUp scrolls up one line.
func (h *HistoryView) ScrollUp() { h.viewport.LineUp(1) }

// ScrollDown scrolls down one line.
func (h *HistoryView) ScrollDown() { h.viewport.LineDown(1) }

// PageUp scrolls up half a page.
func (h *HistoryView) PageUp() { h.viewport.HalfViewUp() }

// PageDown scrolls down half a page.
func (h *HistoryView) PageDown() { h.viewport.HalfViewDown() }

func (h *HistoryView) render() {
	if h.history == nil {
		h.viewport.SetContent(dimTextStyle.Render(h.message))
		return
	}

	wrap := lipgloss.NewStyle().Width(h.width)
	var parts []string
	for _, item := range display.History(h.history.Analysis, h.showAll) {
		parts = append(parts, renderHistoryHeader(item), wrap.Render(item.Text), "")
	}
	if len(parts) == 0 {
		parts = append(parts, dimTextStyle.Render("Empty transcript."))
	}
	h.viewport.SetContent(strings.Join(parts, "\n"))
}

func renderHistoryHeader(item display.HistoryItem) string {
	var header string
	switch item.Role {
	case models.RoleUser:
		header = userRoleStyle.Render("You")
	case models.RoleAssistant:
		header = assistantRoleStyle.Render("Assistant")
		if item.Intermediate {
			header = otherRoleStyle.Render("Assistant (working)")
		}
	default:
		header = otherRoleStyle.Render(string(item.Role))
	}
	if item.Usage != nil {
		header += " " + dimTextStyle.Render(display.Tokens(item.Usage.Total())+" tokens")
	}
	return header
}

// View renders the title line and the viewport.
func (h *HistoryView) View() string {
	if h.sessionID == "" {
		return lipgloss.NewStyle().Foreground(colorDim).Render("Select a session and press Enter to view its history.")
	}
	title := sectionHeaderStyle.Render(h.title)
	if h.history != nil {
		total := h.history.Analysis.Total().Total()
		title += "  " + dimTextStyle.Render(display.Tokens(total)+" tokens")
	}
	if h.showAll {
		title += "  " + dimTextStyle.Render("(all entries)")
	}
	return title + "\n" + h.viewport.View()
}
