package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/watchfire-io/hookwatch/internal/models"
)

func reloadCmd(be *backend) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{snapshot: be.monitor.Reload()}
	}
}

// loadHistoryCmd reads the archive, creating it from the raw transcript when
// none exists yet.
func loadHistoryCmd(be *backend, rec *models.SessionRecord) tea.Cmd {
	id, path := rec.ID, rec.TranscriptPath
	return func() tea.Msg {
		h, err := be.history.Get(id)
		if err != nil && path != "" {
			h, err = be.history.Refresh(id, path)
		}
		if err != nil {
			err = fmt.Errorf("no transcript for this session")
		}
		return historyLoadedMsg{sessionID: id, history: h, err: err}
	}
}

func answerCmd(be *backend, id string, decision models.Decision) tea.Cmd {
	return func() tea.Msg {
		if err := be.monitor.Answer(id, decision, "", nil); err != nil {
			return ErrorMsg{Err: err}
		}
		return snapshotMsg{snapshot: be.monitor.Snapshot()}
	}
}

func markSeenCmd(be *backend, id string) tea.Cmd {
	return func() tea.Msg {
		if err := be.monitor.MarkSeen(id); err != nil {
			return ErrorMsg{Err: err}
		}
		return snapshotMsg{snapshot: be.monitor.Snapshot()}
	}
}

// deleteSessionCmd removes a session with its archive, statistics and
// pending requests.
func deleteSessionCmd(be *backend, id string) tea.Cmd {
	return func() tea.Msg {
		if _, err := be.gateway.DeletePending(id); err != nil {
			return ErrorMsg{Err: err}
		}
		if err := be.history.Archiver().Delete(id); err != nil {
			return ErrorMsg{Err: err}
		}
		be.history.Forget(id)
		if err := be.stats.Forget(id); err != nil {
			return ErrorMsg{Err: err}
		}
		if err := be.registry.Delete(id); err != nil {
			return ErrorMsg{Err: err}
		}
		return snapshotMsg{snapshot: be.monitor.Reload()}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return tickMsg{}
	})
}

func clearErrorAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return ClearErrorMsg{}
	})
}
