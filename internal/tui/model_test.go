package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/watchfire-io/hookwatch/internal/daemon/monitor"
	"github.com/watchfire-io/hookwatch/internal/models"
	"github.com/watchfire-io/hookwatch/internal/permission"
	"github.com/watchfire-io/hookwatch/internal/registry"
	"github.com/watchfire-io/hookwatch/internal/transcript"
	"github.com/watchfire-io/hookwatch/internal/usage"
)

func newTestBackend(t *testing.T) *backend {
	t.Helper()
	dir := t.TempDir()
	reg := registry.New(filepath.Join(dir, "sessions.yaml"))
	gw := permission.New(filepath.Join(dir, "permission"), permission.Options{}, nil)
	history, err := transcript.NewStore(transcript.NewArchiver(filepath.Join(dir, "archives")), 4)
	if err != nil {
		t.Fatal(err)
	}
	return &backend{
		monitor:  monitor.New(monitor.Options{Registry: reg, Gateway: gw}),
		registry: reg,
		gateway:  gw,
		history:  history,
		stats:    usage.NewRecorder(filepath.Join(dir, "stats.json")),
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send applies msg and runs the returned command once, feeding its result back.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil {
		if out := cmd(); out != nil {
			if _, isBatch := out.(tea.BatchMsg); !isBatch {
				next, _ = m.Update(out)
				m = next.(Model)
			}
		}
	}
	return m
}

func TestSnapshotPopulatesPanels(t *testing.T) {
	be := newTestBackend(t)
	if err := be.registry.UpsertStart("s1", "/repo/api", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := be.gateway.SubmitRequest("s1", "Bash", "/repo/api", nil); err != nil {
		t.Fatal(err)
	}

	m := NewModel(be)
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = send(t, m, snapshotMsg{snapshot: be.monitor.Reload()})

	if got := m.sessionList.Selected(); got == nil || got.ID != "s1" {
		t.Fatalf("selected session = %v, want s1", got)
	}
	if m.pending.Len() != 1 {
		t.Fatalf("pending = %d, want 1", m.pending.Len())
	}

	view := m.View()
	for _, want := range []string{"hookwatch", "api", "Bash", "1 waiting"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestPendingKeysAnswer(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want models.Decision
	}{
		{key: runes("a"), want: models.DecisionAllow},
		{key: runes("d"), want: models.DecisionDeny},
		{key: tea.KeyMsg{Type: tea.KeyEsc}, want: models.DecisionAsk},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			be := newTestBackend(t)
			id, err := be.gateway.SubmitRequest("s1", "Bash", "/repo", nil)
			if err != nil {
				t.Fatal(err)
			}

			m := NewModel(be)
			m = send(t, m, snapshotMsg{snapshot: be.monitor.Reload()})
			m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
			m = send(t, m, tt.key)

			resp, err := be.gateway.WaitForResponse(t.Context(), id)
			if err != nil {
				t.Fatalf("WaitForResponse() error = %v", err)
			}
			if resp.Decision != tt.want {
				t.Errorf("decision = %q, want %q", resp.Decision, tt.want)
			}
			if m.pending.Len() != 0 {
				t.Errorf("pending after answer = %d, want 0", m.pending.Len())
			}
		})
	}
}

func TestOpenHistoryMarksSeen(t *testing.T) {
	be := newTestBackend(t)
	transcriptPath := filepath.Join(t.TempDir(), "t.jsonl")
	writeFile(t, transcriptPath, `{"type":"user","uuid":"u1","message":{"role":"user","content":"hello"}}
{"type":"assistant","uuid":"a1","requestId":"r1","message":{"role":"assistant","content":[{"type":"text","text":"hi there"}],"usage":{"input_tokens":3,"output_tokens":2}}}
`)
	if err := be.registry.UpsertStart("s1", "/repo", transcriptPath); err != nil {
		t.Fatal(err)
	}
	if err := be.registry.UpdateStatus("s1", registry.Update{Status: models.SessionStatusFinished}); err != nil {
		t.Fatal(err)
	}

	m := NewModel(be)
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = send(t, m, snapshotMsg{snapshot: be.monitor.Reload()})
	if !m.sessionList.IsUnseen("s1") {
		t.Fatal("finished session should start unseen")
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if m.rightTab != tabHistory || m.focusedPanel != panelDetail {
		t.Fatalf("rightTab = %d, focusedPanel = %d, want history focused", m.rightTab, m.focusedPanel)
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("Enter returned %T, want tea.BatchMsg", cmd())
	}
	for _, c := range batch {
		if out := c(); out != nil {
			next, _ = m.Update(out)
			m = next.(Model)
		}
	}

	if !be.registry.IsSeen("s1") {
		t.Error("opening history should mark the session seen")
	}
	view := m.history.View()
	if !strings.Contains(view, "hi there") {
		t.Errorf("history view = %q, want final reply", view)
	}
}

func TestDeleteConfirm(t *testing.T) {
	be := newTestBackend(t)
	if err := be.registry.UpsertStart("s1", "/repo", ""); err != nil {
		t.Fatal(err)
	}

	m := NewModel(be)
	m = send(t, m, snapshotMsg{snapshot: be.monitor.Reload()})

	m = send(t, m, runes("x"))
	if m.confirmMode != confirmDelete {
		t.Fatalf("confirmMode = %d, want confirmDelete", m.confirmMode)
	}
	m = send(t, m, runes("n"))
	if _, ok := be.registry.Get("s1"); !ok {
		t.Fatal("session deleted after declining")
	}

	m = send(t, m, runes("x"))
	m = send(t, m, runes("y"))
	if _, ok := be.registry.Get("s1"); ok {
		t.Error("session still present after confirming delete")
	}
	if m.sessionList.Selected() != nil {
		t.Error("session list should be empty")
	}
}

func TestViewTooSmall(t *testing.T) {
	m := NewModel(newTestBackend(t))
	m = send(t, m, tea.WindowSizeMsg{Width: 40, Height: 10})
	if !strings.Contains(m.View(), "Terminal too small") {
		t.Errorf("View() = %q, want size warning", m.View())
	}
}

func TestRenderBadge(t *testing.T) {
	tests := []struct {
		pending, unseen int
		want            string
	}{
		{0, 0, "○ Quiet"},
		{0, 2, "● 2 new"},
		{1, 2, "◆ 1 waiting"},
	}
	for _, tt := range tests {
		if got := renderBadge(tt.pending, tt.unseen); got != tt.want {
			t.Errorf("renderBadge(%d, %d) = %q, want %q", tt.pending, tt.unseen, got, tt.want)
		}
	}
}

func TestSessionListKeepsCursor(t *testing.T) {
	now := time.Now()
	a := models.NewSessionRecord("a", "a", "/a", now)
	b := models.NewSessionRecord("b", "b", "/b", now)
	c := models.NewSessionRecord("c", "c", "/c", now)

	sl := NewSessionList()
	sl.SetHeight(10)
	sl.SetSessions([]*models.SessionRecord{a, b, c}, nil)
	sl.MoveDown()
	if got := sl.Selected().ID; got != "b" {
		t.Fatalf("Selected() = %q, want b", got)
	}

	sl.SetSessions([]*models.SessionRecord{b, c, a}, nil)
	if got := sl.Selected().ID; got != "b" {
		t.Errorf("Selected() after reorder = %q, want b", got)
	}
}
