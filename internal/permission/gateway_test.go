package permission

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/watchfire-io/hookwatch/internal/broadcast"
	"github.com/watchfire-io/hookwatch/internal/models"
)

func newTestGateway(t *testing.T, opts Options) *Gateway {
	t.Helper()
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	return New(t.TempDir(), opts, broadcast.Nop{})
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0
		}
		t.Fatalf("ReadDir(%s): %v", dir, err)
	}
	return len(entries)
}

func TestRoundTripLeavesNoFiles(t *testing.T) {
	g := newTestGateway(t, Options{})
	questions := []models.Question{{Question: "Pick one", Options: []models.Option{{Label: "A"}, {Label: "B"}}}}

	id, err := g.SubmitRequest("s1", "AskUserQuestion", "/repo", questions)
	if err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		if err := g.Respond(id, models.DecisionAllow, "", map[string]string{"Pick one": "B"}); err != nil {
			t.Errorf("Respond: %v", err)
		}
	}()

	resp, err := g.WaitForResponse(context.Background(), id)
	if err != nil {
		t.Fatalf("WaitForResponse: %v", err)
	}
	if resp == nil {
		t.Fatal("WaitForResponse returned nil response")
	}
	if resp.Decision != models.DecisionAllow || resp.Answers["Pick one"] != "B" {
		t.Errorf("response = %+v", resp)
	}

	if n := countFiles(t, g.PendingDir()); n != 0 {
		t.Errorf("pending files = %d, want 0", n)
	}
	if n := countFiles(t, g.ResponseDir()); n != 0 {
		t.Errorf("response files = %d, want 0", n)
	}
}

func TestResponseAlreadyPresent(t *testing.T) {
	g := newTestGateway(t, Options{})
	id, err := g.SubmitRequest("s1", "Bash", "/repo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Respond(id, models.DecisionDeny, "no", nil); err != nil {
		t.Fatal(err)
	}

	// The pending file is gone, but the response must still be consumed.
	resp, err := g.WaitForResponse(context.Background(), id)
	if err != nil || resp == nil {
		t.Fatalf("WaitForResponse = %v, %v", resp, err)
	}
	if resp.Decision != models.DecisionDeny || resp.Message != "no" {
		t.Errorf("response = %+v", resp)
	}
}

func TestExternalCancellation(t *testing.T) {
	g := newTestGateway(t, Options{})
	id, err := g.SubmitRequest("s1", "Bash", "/repo", nil)
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		if _, err := g.DeletePending("s1"); err != nil {
			t.Errorf("DeletePending: %v", err)
		}
	}()

	resp, err := g.WaitForResponse(context.Background(), id)
	if err != nil {
		t.Fatalf("WaitForResponse: %v", err)
	}
	if resp != nil {
		t.Errorf("response = %+v, want nil", resp)
	}
}

func TestWaitAbandoned(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		cancel bool
	}{
		{name: "max wait", opts: Options{MaxWait: 30 * time.Millisecond}},
		{name: "context cancelled", cancel: true},
		{name: "orphaned", opts: Options{Orphaned: func() bool { return true }}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, tt.opts)
			id, err := g.SubmitRequest("s1", "Bash", "/repo", nil)
			if err != nil {
				t.Fatal(err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				go func() {
					time.Sleep(20 * time.Millisecond)
					cancel()
				}()
			}

			resp, err := g.WaitForResponse(ctx, id)
			if !errors.Is(err, ErrWaitAbandoned) {
				t.Fatalf("err = %v, want ErrWaitAbandoned", err)
			}
			if resp != nil {
				t.Errorf("response = %+v, want nil", resp)
			}
			if n := countFiles(t, g.PendingDir()); n != 0 {
				t.Errorf("pending files = %d, want 0", n)
			}
		})
	}
}

func TestRespondIsIdempotent(t *testing.T) {
	g := newTestGateway(t, Options{})
	id, err := g.SubmitRequest("s1", "Bash", "/repo", nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := g.Respond(id, models.DecisionAllow, "", nil); err != nil {
			t.Fatalf("Respond #%d: %v", i+1, err)
		}
	}
	if n := countFiles(t, g.ResponseDir()); n != 1 {
		t.Errorf("response files = %d, want 1", n)
	}
}

func TestRespondToWithdrawnRequest(t *testing.T) {
	g := newTestGateway(t, Options{})
	id, err := g.SubmitRequest("s1", "Bash", "/repo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if n, err := g.DeletePending("s1"); err != nil || n != 1 {
		t.Fatalf("DeletePending = %d, %v, want 1, nil", n, err)
	}

	if err := g.Respond(id, models.DecisionAllow, "", nil); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if n := countFiles(t, g.ResponseDir()); n != 0 {
		t.Errorf("response files = %d, want 0", n)
	}
}

func TestRespondValidation(t *testing.T) {
	g := newTestGateway(t, Options{})
	if err := g.Respond("../escape", models.DecisionAllow, "", nil); err == nil {
		t.Error("expected error for non-uuid id")
	}
	if err := g.Respond("0b6c5f39-2d35-4a53-9f5b-2f1f0a3c8e11", "maybe", "", nil); err == nil {
		t.Error("expected error for invalid decision")
	}
}

func TestListPending(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := newTestGateway(t, Options{Clock: func() time.Time { return now }})

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := g.SubmitRequest("s1", "Bash", "/repo", nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
		now = now.Add(time.Second)
	}
	if err := os.WriteFile(filepath.Join(g.PendingDir(), "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	requests, err := g.ListPending()
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(requests) != 3 {
		t.Fatalf("len = %d, want 3", len(requests))
	}
	for i, req := range requests {
		if want := ids[len(ids)-1-i]; req.ID != want {
			t.Errorf("requests[%d] = %s, want %s", i, req.ID, want)
		}
	}
}

func TestListPendingMissingDir(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "missing"), Options{}, nil)
	requests, err := g.ListPending()
	if err != nil || len(requests) != 0 {
		t.Errorf("ListPending = %v, %v; want empty", requests, err)
	}
}

func TestDeletePendingOnlyForSession(t *testing.T) {
	g := newTestGateway(t, Options{})
	for _, session := range []string{"s1", "s1", "s2"} {
		if _, err := g.SubmitRequest(session, "Bash", "/repo", nil); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := g.DeletePending("s1")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	requests, _ := g.ListPending()
	if len(requests) != 1 || requests[0].SessionID != "s2" {
		t.Errorf("remaining = %+v", requests)
	}
}

func TestCleanupExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := newTestGateway(t, Options{Clock: func() time.Time { return now }})

	oldID, err := g.SubmitRequest("s1", "Bash", "/repo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Respond(oldID, models.DecisionAllow, "", nil); err != nil {
		t.Fatal(err)
	}

	brokenPath := filepath.Join(g.PendingDir(), "broken.json")
	if err := os.WriteFile(brokenPath, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	old := now.Add(-48 * time.Hour)
	if err := os.Chtimes(brokenPath, old, old); err != nil {
		t.Fatal(err)
	}

	now = now.Add(25 * time.Hour)
	freshID, err := g.SubmitRequest("s2", "Bash", "/repo", nil)
	if err != nil {
		t.Fatal(err)
	}

	removed, err := g.CleanupExpired(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, err := g.Get(freshID); err != nil {
		t.Errorf("fresh request removed: %v", err)
	}
	if n := countFiles(t, g.ResponseDir()); n != 0 {
		t.Errorf("response files = %d, want 0", n)
	}
}

func TestSubmitBroadcasts(t *testing.T) {
	signals := 0
	g := New(t.TempDir(), Options{}, broadcast.Func(func() { signals++ }))
	if _, err := g.SubmitRequest("s1", "Bash", "/repo", nil); err != nil {
		t.Fatal(err)
	}
	if signals != 1 {
		t.Errorf("signals = %d, want 1", signals)
	}
}
