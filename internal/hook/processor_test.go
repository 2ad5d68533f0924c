package hook

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/watchfire-io/hookwatch/internal/broadcast"
	"github.com/watchfire-io/hookwatch/internal/models"
	"github.com/watchfire-io/hookwatch/internal/permission"
	"github.com/watchfire-io/hookwatch/internal/registry"
	"github.com/watchfire-io/hookwatch/internal/transcript"
	"github.com/watchfire-io/hookwatch/internal/usage"
)

type notification struct {
	Title   string
	Message string
}

// recordingNotifier keeps notifications in memory.
type recordingNotifier struct {
	Sent []notification
}

func (r *recordingNotifier) Notify(title, message string) error {
	r.Sent = append(r.Sent, notification{Title: title, Message: message})
	return nil
}

type harness struct {
	dir      string
	proc     *Processor
	registry *registry.Store
	gateway  *permission.Gateway
	stats    *usage.Recorder
	notifier *recordingNotifier
	signals  *int32

	mu  sync.Mutex
	now time.Time
}

func newHarness(t *testing.T, settings *models.Settings) *harness {
	t.Helper()
	if settings == nil {
		settings = models.NewSettings()
	}
	dir := t.TempDir()
	h := &harness{
		dir:      dir,
		notifier: &recordingNotifier{},
		signals:  new(int32),
		now:      time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	bc := broadcast.Func(func() { atomic.AddInt32(h.signals, 1) })
	h.registry = registry.New(filepath.Join(dir, "sessions.yaml"), registry.WithClock(h.clock))
	h.gateway = permission.New(filepath.Join(dir, "permission"), permission.Options{PollInterval: 5 * time.Millisecond}, nil)
	h.stats = usage.NewRecorder(filepath.Join(dir, "stats.json"))
	h.proc = New(Options{
		Settings:    settings,
		Registry:    h.registry,
		Gateway:     h.gateway,
		Archiver:    transcript.NewArchiver(filepath.Join(dir, "archives")),
		Stats:       h.stats,
		Notifier:    h.notifier,
		Broadcaster: bc,
		Clock:       h.clock,
	})
	return h
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

func (h *harness) send(t *testing.T, event string) string {
	t.Helper()
	var out bytes.Buffer
	if err := h.proc.Process(context.Background(), strings.NewReader(event), &out); err != nil {
		t.Fatalf("Process(%s): %v", event, err)
	}
	return strings.TrimSpace(out.String())
}

func (h *harness) status(t *testing.T, id string) models.SessionStatus {
	t.Helper()
	rec, ok := h.registry.Get(id)
	if !ok {
		t.Fatalf("session %s not found", id)
	}
	return rec.Status
}

// respondWhenPending answers the first pending request that appears.
func (h *harness) respondWhenPending(t *testing.T, fn func(req *models.PermissionRequest)) {
	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			requests, _ := h.gateway.ListPending()
			if len(requests) > 0 {
				fn(requests[0])
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Errorf("no pending request appeared")
	}()
}

func TestIgnoresBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace", input: "  \n"},
		{name: "not json", input: "{oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			if out := h.send(t, tt.input); out != "" {
				t.Errorf("output = %q, want empty", out)
			}
			if got := atomic.LoadInt32(h.signals); got != 0 {
				t.Errorf("signals = %d, want 0", got)
			}
		})
	}
}

func TestUnknownEventStillBroadcasts(t *testing.T) {
	h := newHarness(t, nil)
	if out := h.send(t, `{"hook_event_name":"Notification","session_id":"s1"}`); out != "" {
		t.Errorf("output = %q, want empty", out)
	}
	if got := atomic.LoadInt32(h.signals); got != 1 {
		t.Errorf("signals = %d, want 1", got)
	}
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	transcriptPath := filepath.Join(h.dir, "s1.jsonl")

	h.send(t, `{"hook_event_name":"SessionStart","session_id":"s1","cwd":"/repo","transcript_path":"`+transcriptPath+`"}`)
	if got := h.status(t, "s1"); got != models.SessionStatusIdle {
		t.Fatalf("status after start = %q, want idle", got)
	}

	h.send(t, `{"hook_event_name":"UserPromptSubmit","session_id":"s1","prompt":"do X"}`)
	rec, _ := h.registry.Get("s1")
	if rec.Status != models.SessionStatusRunning || rec.Duration != 0 || rec.LastPrompt != "do X" {
		t.Fatalf("after prompt = %+v", rec)
	}

	h.advance(4 * time.Second)
	h.respondWhenPending(t, func(req *models.PermissionRequest) {
		if err := h.gateway.Respond(req.ID, models.DecisionAllow, "", nil); err != nil {
			t.Errorf("Respond: %v", err)
		}
	})
	out := h.send(t, `{"hook_event_name":"PermissionRequest","session_id":"s1","cwd":"/repo","tool_name":"Bash"}`)
	if want := `{"hookSpecificOutput":{"hookEventName":"PermissionRequest","decision":{"behavior":"allow"}}}`; out != want {
		t.Errorf("PermissionRequest output = %s, want %s", out, want)
	}
	rec, _ = h.registry.Get("s1")
	if rec.Status != models.SessionStatusPermission || rec.Duration != 4 || rec.StartedAt != nil {
		t.Errorf("after permission = %+v", rec)
	}

	h.advance(time.Minute)
	h.send(t, `{"hook_event_name":"PostToolUse","session_id":"s1","tool_name":"Bash"}`)
	rec, _ = h.registry.Get("s1")
	if rec.Status != models.SessionStatusRunning || rec.Duration != 4 || rec.StartedAt == nil {
		t.Errorf("after post tool use = %+v", rec)
	}

	transcriptLines := `{"type":"user","uuid":"u1","message":{"role":"user","content":"do X"}}
{"type":"assistant","uuid":"a1","requestId":"r1","message":{"role":"assistant","content":[{"type":"text","text":"X is done"}],"usage":{"input_tokens":10,"output_tokens":2}}}
`
	if err := os.WriteFile(transcriptPath, []byte(transcriptLines), 0644); err != nil {
		t.Fatal(err)
	}
	h.advance(6 * time.Second)
	h.send(t, `{"hook_event_name":"Stop","session_id":"s1","cwd":"/repo","transcript_path":"`+transcriptPath+`"}`)
	rec, _ = h.registry.Get("s1")
	if rec.Status != models.SessionStatusFinished || rec.Duration != 10 {
		t.Errorf("after stop = %+v", rec)
	}
	if rec.LastResponse != "X is done" {
		t.Errorf("LastResponse = %q, want %q", rec.LastResponse, "X is done")
	}
	if got := h.stats.Load().Sessions["s1"].Total(); got != 12 {
		t.Errorf("recorded usage = %d, want 12", got)
	}

	h.send(t, `{"hook_event_name":"SessionEnd","session_id":"s1"}`)
	if got := h.status(t, "s1"); got != models.SessionStatusEnded {
		t.Errorf("status after end = %q, want ended", got)
	}
}

func TestPermissionRequestWithAnswers(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, `{"hook_event_name":"SessionStart","session_id":"s1","cwd":"/repo"}`)

	h.respondWhenPending(t, func(req *models.PermissionRequest) {
		if len(req.Questions) != 1 || len(req.Questions[0].Options) != 2 {
			t.Errorf("questions = %+v", req.Questions)
		}
		if err := h.gateway.Respond(req.ID, models.DecisionAllow, "", map[string]string{"Pick a color": "Blue"}); err != nil {
			t.Errorf("Respond: %v", err)
		}
	})
	out := h.send(t, `{"hook_event_name":"PermissionRequest","session_id":"s1","tool_name":"AskUserQuestion","tool_input":{"questions":[{"question":"Pick a color","header":"Color","multiSelect":false,"options":[{"label":"Red"},{"label":"Blue","description":"calm"}]}]}}`)

	want := `{"hookSpecificOutput":{"hookEventName":"PermissionRequest","decision":{"behavior":"allow","updatedInput":{"answers":{"Pick a color":"Blue"}}}}}`
	if out != want {
		t.Errorf("output = %s, want %s", out, want)
	}
	if len(h.notifier.Sent) != 1 || !strings.Contains(h.notifier.Sent[0].Message, "1 question") {
		t.Errorf("notifications = %+v", h.notifier.Sent)
	}
}

func TestPermissionRequestCancelled(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, `{"hook_event_name":"SessionStart","session_id":"s1","cwd":"/repo"}`)
	h.send(t, `{"hook_event_name":"UserPromptSubmit","session_id":"s1","prompt":"go"}`)

	h.respondWhenPending(t, func(req *models.PermissionRequest) {
		if _, err := h.gateway.DeletePending(req.SessionID); err != nil {
			t.Errorf("DeletePending: %v", err)
		}
	})
	out := h.send(t, `{"hook_event_name":"PermissionRequest","session_id":"s1","tool_name":"Bash"}`)
	if out != "" {
		t.Errorf("output = %q, want empty", out)
	}
	if got := h.status(t, "s1"); got != models.SessionStatusRunning {
		t.Errorf("status = %q, want running", got)
	}
}

func TestPermissionRequestNonInteractive(t *testing.T) {
	settings := models.NewSettings()
	settings.Permissions.Interactive = false
	h := newHarness(t, settings)
	h.send(t, `{"hook_event_name":"SessionStart","session_id":"s1","cwd":"/repo"}`)

	if out := h.send(t, `{"hook_event_name":"PermissionRequest","session_id":"s1","tool_name":"Bash"}`); out != "" {
		t.Errorf("output = %q, want empty", out)
	}
	if got := h.status(t, "s1"); got != models.SessionStatusPermission {
		t.Errorf("status = %q, want permission", got)
	}
	if len(h.notifier.Sent) != 1 {
		t.Errorf("notifications = %d, want 1", len(h.notifier.Sent))
	}
	if requests, _ := h.gateway.ListPending(); len(requests) != 0 {
		t.Errorf("pending = %d, want 0", len(requests))
	}
}

func TestPreToolUse(t *testing.T) {
	tests := []struct {
		name        string
		interactive bool
		tool        string
		notices     int
	}{
		{name: "interactive never notifies", interactive: true, tool: "AskUserQuestion", notices: 0},
		{name: "matching tool", interactive: false, tool: "AskUserQuestion", notices: 1},
		{name: "other tool", interactive: false, tool: "Bash", notices: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := models.NewSettings()
			settings.Permissions.Interactive = tt.interactive
			h := newHarness(t, settings)

			out := h.send(t, `{"hook_event_name":"PreToolUse","session_id":"s1","tool_name":"`+tt.tool+`"}`)
			if out != `{"allow":true}` {
				t.Errorf("output = %s, want {\"allow\":true}", out)
			}
			if len(h.notifier.Sent) != tt.notices {
				t.Errorf("notifications = %d, want %d", len(h.notifier.Sent), tt.notices)
			}
		})
	}
}

func TestSessionEndWithoutPromptDeletes(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, `{"hook_event_name":"SessionStart","session_id":"s2","cwd":"/repo"}`)
	if _, err := h.gateway.SubmitRequest("s2", "Bash", "/repo", nil); err != nil {
		t.Fatal(err)
	}

	h.send(t, `{"hook_event_name":"SessionEnd","session_id":"s2","reason":"exit"}`)
	if _, ok := h.registry.Get("s2"); ok {
		t.Error("session without prompts should be deleted")
	}
	if requests, _ := h.gateway.ListPending(); len(requests) != 0 {
		t.Errorf("pending = %d, want 0", len(requests))
	}
}

func TestCaptureKeepsMostRecent(t *testing.T) {
	settings := models.NewSettings()
	h := newHarness(t, settings)
	capture := NewCapture(filepath.Join(h.dir, "debug", "events.jsonl"), 2)
	h.proc.capture = capture

	for _, id := range []string{"a", "b", "c"} {
		h.send(t, `{"hook_event_name":"Notification",  "session_id":"`+id+`"}`)
	}

	events, err := capture.Events()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if got := string(events[1]); got != `{"hook_event_name":"Notification","session_id":"c"}` {
		t.Errorf("last event = %s", got)
	}
}

func TestEventQuestions(t *testing.T) {
	ev := Event{ToolInput: []byte(`{"questions":[{"question":"Q1","multiSelect":true,"options":[{"label":"A"}]},{"question":""}]}`)}
	qs := ev.Questions()
	if len(qs) != 1 || !qs[0].MultiSelect || qs[0].Options[0].Label != "A" {
		t.Errorf("Questions() = %+v", qs)
	}
	if qs := (&Event{ToolInput: []byte(`"nope"`)}).Questions(); qs != nil {
		t.Errorf("Questions() = %+v, want nil", qs)
	}
}
