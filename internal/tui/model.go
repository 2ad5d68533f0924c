package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/watchfire-io/hookwatch/internal/daemon/monitor"
	"github.com/watchfire-io/hookwatch/internal/models"
)

// Right panel tabs.
const (
	tabPending = 0
	tabHistory = 1
)

const (
	minWidth  = 60
	minHeight = 16
)

// Model is the root Bubbletea model for the TUI.
type Model struct {
	backend  *backend
	snapshot monitor.Snapshot
	loaded   bool
	now      func() time.Time

	// UI state
	rightTab      int // tabPending or tabHistory
	focusedPanel  int
	activeOverlay int
	splitRatio    float64
	width         int
	height        int

	// Confirm mode
	confirmMode int
	confirmID   string
	confirmName string

	err error

	// Child components
	sessionList *SessionList
	pending     *PendingPanel
	history     *HistoryView
}

// NewModel creates the initial TUI model.
func NewModel(be *backend) Model {
	return Model{
		backend:     be,
		now:         time.Now,
		splitRatio:  0.45,
		sessionList: NewSessionList(),
		pending:     NewPendingPanel(),
		history:     NewHistoryView(),
	}
}

// Init returns the initial commands.
func (m Model) Init() tea.Cmd {
	return tea.Batch(reloadCmd(m.backend), tick())
}

// Update processes messages and returns an updated model and commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateDimensions()
		return m, nil

	case snapshotMsg:
		m.applySnapshot(msg.snapshot)
		return m, nil

	case historyLoadedMsg:
		if msg.sessionID == m.history.SessionID() {
			m.history.SetHistory(msg.history, msg.err)
		}
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		return m, clearErrorAfter(5 * time.Second)

	case ClearErrorMsg:
		m.err = nil
		return m, nil

	case tickMsg:
		return m, tick()

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) applySnapshot(snap monitor.Snapshot) {
	m.snapshot = snap
	m.loaded = true
	m.sessionList.SetSessions(snap.Sessions, snap.Unseen)

	names := make(map[string]string, len(snap.Sessions))
	for _, rec := range snap.Sessions {
		names[rec.ID] = rec.Name
	}
	m.pending.SetRequests(snap.Pending, names)

	// A new request takes the right panel unless history is being read.
	if len(snap.Pending) > 0 && !(m.rightTab == tabHistory && m.focusedPanel == panelDetail) {
		m.rightTab = tabPending
	}
}

// handleKey processes key events.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	// Confirm mode captures everything
	if m.confirmMode != confirmNone {
		return m.handleConfirmKey(msg)
	}

	if m.activeOverlay != overlayNone {
		if msg.Type == tea.KeyEsc || key.Matches(msg, globalKeys.Help) {
			m.activeOverlay = overlayNone
		}
		return nil
	}

	switch {
	case key.Matches(msg, globalKeys.Quit):
		return tea.Quit

	case key.Matches(msg, globalKeys.Help):
		m.activeOverlay = overlayHelp
		return nil

	case key.Matches(msg, globalKeys.Tab):
		if m.focusedPanel == panelSessions {
			m.focusedPanel = panelDetail
		} else {
			m.focusedPanel = panelSessions
		}
		return nil

	case key.Matches(msg, globalKeys.Pending):
		m.rightTab = tabPending
		return nil

	case key.Matches(msg, globalKeys.History):
		m.rightTab = tabHistory
		return nil
	}

	if m.focusedPanel == panelSessions {
		return m.handleSessionKey(msg)
	}
	if m.rightTab == tabPending {
		return m.handlePendingKey(msg)
	}
	return m.handleHistoryKey(msg)
}

func (m *Model) handleSessionKey(msg tea.KeyMsg) tea.Cmd {
	rec := m.sessionList.Selected()

	switch {
	case key.Matches(msg, sessionKeys.Up):
		m.sessionList.MoveUp()
	case key.Matches(msg, sessionKeys.Down):
		m.sessionList.MoveDown()
	case key.Matches(msg, sessionKeys.Open):
		if rec == nil {
			return nil
		}
		m.history.Loading(rec.ID, rec.Name)
		m.rightTab = tabHistory
		m.focusedPanel = panelDetail
		cmds := []tea.Cmd{loadHistoryCmd(m.backend, rec)}
		if m.sessionList.IsUnseen(rec.ID) {
			cmds = append(cmds, markSeenCmd(m.backend, rec.ID))
		}
		return tea.Batch(cmds...)
	case key.Matches(msg, sessionKeys.Seen):
		if rec != nil {
			return markSeenCmd(m.backend, rec.ID)
		}
	case key.Matches(msg, sessionKeys.Delete):
		if rec != nil {
			m.confirmMode = confirmDelete
			m.confirmID = rec.ID
			m.confirmName = rec.Name
		}
	}
	return nil
}

func (m *Model) handlePendingKey(msg tea.KeyMsg) tea.Cmd {
	req := m.pending.Selected()

	switch {
	case key.Matches(msg, pendingKeys.Up):
		m.pending.MoveUp()
	case key.Matches(msg, pendingKeys.Down):
		m.pending.MoveDown()
	case key.Matches(msg, pendingKeys.Allow):
		if req != nil {
			return answerCmd(m.backend, req.ID, models.DecisionAllow)
		}
	case key.Matches(msg, pendingKeys.Deny):
		if req != nil {
			return answerCmd(m.backend, req.ID, models.DecisionDeny)
		}
	case key.Matches(msg, pendingKeys.Defer):
		if req != nil {
			return answerCmd(m.backend, req.ID, models.DecisionAsk)
		}
	}
	return nil
}

func (m *Model) handleHistoryKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, historyKeys.Up):
		m.history.ScrollUp()
	case key.Matches(msg, historyKeys.Down):
		m.history.ScrollDown()
	case key.Matches(msg, historyKeys.PageUp):
		m.history.PageUp()
	case key.Matches(msg, historyKeys.PageDown):
		m.history.PageDown()
	case key.Matches(msg, historyKeys.Toggle):
		m.history.ToggleAll()
	case key.Matches(msg, historyKeys.Back):
		m.focusedPanel = panelSessions
	}
	return nil
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	id := m.confirmID
	m.confirmMode = confirmNone
	m.confirmID = ""
	m.confirmName = ""

	if key.Matches(msg, confirmKeys.Yes) {
		return deleteSessionCmd(m.backend, id)
	}
	return nil
}

func (m *Model) updateDimensions() {
	layout := computeLayout(m.width, m.height, m.splitRatio)
	innerHeight := layout.contentHeight - 2
	rightInner := layout.detailWidth - 2

	if innerHeight < 1 {
		innerHeight = 1
	}
	if rightInner < 1 {
		rightInner = 1
	}

	m.sessionList.SetHeight(innerHeight)
	m.history.SetSize(rightInner, innerHeight)
}

// View renders the TUI.
func (m Model) View() string {
	// Minimum size check
	if m.width < minWidth || m.height < minHeight {
		sizeStr := fmt.Sprintf("%dx%d", m.width, m.height)
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(colorYellow).
			Render(lipgloss.JoinVertical(lipgloss.Center,
				"Terminal too small",
				lipgloss.NewStyle().Foreground(colorDim).Render(
					fmt.Sprintf("Need %dx%d, have ", minWidth, minHeight)+lipgloss.NewStyle().Bold(true).Render(sizeStr),
				),
			))
	}

	if !m.loaded {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(colorDim).
			Render("Loading sessions...")
	}

	layout := computeLayout(m.width, m.height, m.splitRatio)
	now := m.now()

	header := renderHeader(m.snapshot, m.rightTab, m.width)
	left := m.sessionList.View(layout.sessionsWidth-2, now)

	var right string
	if m.rightTab == tabPending {
		right = m.pending.View(layout.detailWidth-2, now)
	} else {
		right = m.history.View()
	}

	panels := renderPanels(left, right, layout, m.focusedPanel)
	statusBar := renderStatusBar(&m, m.width)

	view := lipgloss.JoinVertical(lipgloss.Left, header, panels, statusBar)

	if m.activeOverlay == overlayHelp {
		view = renderOverlay(view, renderHelp(m.width), m.width, m.height)
	}
	return view
}
