package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/daemon/monitor"
	"github.com/watchfire-io/hookwatch/internal/models"
	"github.com/watchfire-io/hookwatch/internal/permission"
	"github.com/watchfire-io/hookwatch/internal/registry"
)

type fixture struct {
	srv     *Server
	mon     *monitor.Monitor
	reg     *registry.Store
	gateway *permission.Gateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	reg := registry.New(filepath.Join(dir, "sessions.yaml"))
	gw := permission.New(filepath.Join(dir, "permission"), permission.Options{}, nil)
	mon := monitor.New(monitor.Options{Registry: reg, Gateway: gw})
	return &fixture{srv: newServer(mon), mon: mon, reg: reg, gateway: gw}
}

func TestServer_State(t *testing.T) {
	f := newFixture(t)
	if err := f.reg.UpsertStart("s1", "/repo", ""); err != nil {
		t.Fatal(err)
	}
	f.mon.Reload()

	req := httptest.NewRequest("GET", "/api/state", nil)
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var snap monitor.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Sessions) != 1 || snap.Sessions[0].ID != "s1" {
		t.Errorf("sessions = %+v", snap.Sessions)
	}
}

func TestServer_Answer(t *testing.T) {
	f := newFixture(t)
	id, err := f.gateway.SubmitRequest("s1", "Bash", "/repo", nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		id          string
		body        string
		contentType string
		origin      string
		status      int
	}{
		{name: "bad json", id: id, body: "nope", status: http.StatusBadRequest},
		{name: "bad decision", id: id, body: `{"decision":"maybe"}`, status: http.StatusBadRequest},
		{name: "bad id", id: "not-a-uuid", body: `{"decision":"allow"}`, status: http.StatusBadRequest},
		{name: "text body", id: id, body: `{"decision":"allow"}`, contentType: "text/plain", status: http.StatusUnsupportedMediaType},
		{name: "form body", id: id, body: `{"decision":"allow"}`, contentType: "application/x-www-form-urlencoded", status: http.StatusUnsupportedMediaType},
		{name: "foreign origin", id: id, body: `{"decision":"allow"}`, origin: "https://evil.example", status: http.StatusForbidden},
		{name: "null origin", id: id, body: `{"decision":"allow"}`, origin: "null", status: http.StatusForbidden},
		{name: "allow from loopback page", id: id, body: `{"decision":"allow"}`, contentType: "application/json; charset=utf-8", origin: "http://127.0.0.1:8080", status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/permissions/"+tt.id, strings.NewReader(tt.body))
			contentType := tt.contentType
			if contentType == "" {
				contentType = "application/json"
			}
			req.Header.Set("Content-Type", contentType)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			f.srv.Handler().ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			if tt.status != http.StatusNoContent && config.FileExists(filepath.Join(f.gateway.ResponseDir(), id+".json")) {
				t.Error("rejected request wrote a response")
			}
		})
	}

	if pending, _ := f.gateway.ListPending(); len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t)
	if err := f.reg.UpsertStart("s1", "/repo", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.gateway.SubmitRequest("s1", "Bash", "/repo", nil); err != nil {
		t.Fatal(err)
	}
	f.mon.Reload()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)

	body, _ := io.ReadAll(w.Body)
	for _, want := range []string{
		`hookwatch_sessions{status="idle"} 1`,
		`hookwatch_sessions{status="running"} 0`,
		`hookwatch_pending_permission_requests 1`,
		`hookwatch_reloads_total 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServer_WebSocketFeed(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	if msg := read(); msg.Type != "snapshot" || len(msg.Data.Sessions) != 0 {
		t.Errorf("initial message = %+v", msg)
	}

	if err := f.reg.UpsertStart("s1", "/repo", ""); err != nil {
		t.Fatal(err)
	}
	f.mon.Reload()

	msg := read()
	if len(msg.Data.Sessions) != 1 || msg.Data.Sessions[0].Status != models.SessionStatusIdle {
		t.Errorf("update message = %+v", msg)
	}
}

func TestTrayState(t *testing.T) {
	f := newFixture(t)
	if err := f.reg.UpsertStart("s1", "/work/app", ""); err != nil {
		t.Fatal(err)
	}
	id, err := f.gateway.SubmitRequest("s1", "AskUserQuestion", "/work/app", []models.Question{{Question: "?"}})
	if err != nil {
		t.Fatal(err)
	}
	f.mon.Reload()

	ts := NewTrayState(f.mon, "")
	requests := ts.PendingRequests()
	if len(requests) != 1 || requests[0].SessionName != "app" || requests[0].Questions != 1 {
		t.Fatalf("PendingRequests() = %+v", requests)
	}
	if sessions := ts.Sessions(); len(sessions) != 1 || sessions[0].Name != "app" {
		t.Errorf("Sessions() = %+v", sessions)
	}

	if err := ts.Answer(id, models.DecisionAllow); err != nil {
		t.Fatal(err)
	}
	if got := len(ts.PendingRequests()); got != 0 {
		t.Errorf("PendingRequests() after answer = %d", got)
	}
}

func TestServer_WebSocketRejectsForeignOrigin(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{name: "no origin", ok: true},
		{name: "localhost", origin: "http://localhost:3000", ok: true},
		{name: "loopback ipv6", origin: "http://[::1]:3000", ok: true},
		{name: "foreign", origin: "https://evil.example"},
		{name: "rebound host", origin: "http://127.0.0.1.evil.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if tt.ok {
				if err != nil {
					t.Fatalf("dial with origin %q: %v", tt.origin, err)
				}
				conn.Close()
				return
			}
			if err == nil {
				conn.Close()
				t.Fatalf("dial with origin %q succeeded, want 403", tt.origin)
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("dial with origin %q response = %v, want 403", tt.origin, resp)
			}
		})
	}
}
