// Package server exposes daemon state over HTTP: Prometheus metrics, a
// websocket change feed and a small JSON API for answering permission
// requests.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"time"

	"github.com/watchfire-io/hookwatch/internal/daemon/monitor"
	"github.com/watchfire-io/hookwatch/internal/daemon/tray"
	"github.com/watchfire-io/hookwatch/internal/models"
)

// Server is the daemon's HTTP server.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	monitor    *monitor.Monitor
	metrics    *Metrics
	hub        *Hub
}

// New creates a server listening on addr and subscribes it to mon.
func New(addr string, mon *monitor.Monitor) (*Server, error) {
	listener, err := (&net.ListenConfig{}).Listen(context.TODO(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	srv := newServer(mon)
	srv.listener = listener
	srv.httpServer = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv, nil
}

func newServer(mon *monitor.Monitor) *Server {
	srv := &Server{
		monitor: mon,
		metrics: NewMetrics(),
		hub:     NewHub(mon.Snapshot),
	}
	mon.Subscribe(srv.metrics.Observe)
	mon.Subscribe(srv.hub.Publish)
	return srv
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.Handle("/ws", s.hub)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/permissions/{id}", s.handleAnswer)
	return mux
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve starts serving requests. This blocks until Stop is called.
func (s *Server) Serve() error {
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("[server] shutdown: %v", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Snapshot())
}

type answerRequest struct {
	Decision models.Decision   `json:"decision"`
	Message  string            `json:"message"`
	Answers  map[string]string `json:"answers"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if !isLocalOrigin(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "origin not allowed"})
		return
	}
	// Browsers send text/plain and form bodies cross-origin without a
	// preflight; a JSON content type cannot be sent that way.
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "expected application/json"})
		return
	}

	var req answerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if err := s.monitor.Answer(r.PathValue("id"), req.Decision, req.Message, req.Answers); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// isLocalOrigin accepts requests without an Origin header (CLI clients) and
// browser requests from localhost or a loopback address.
func isLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] failed to write response: %v", err)
	}
}

// TrayState adapts a Monitor to the tray.DaemonState interface.
type TrayState struct {
	mon        *monitor.Monitor
	listenAddr string
}

// NewTrayState creates a TrayState for the given monitor. listenAddr is shown
// in the menu and may be empty.
func NewTrayState(mon *monitor.Monitor, listenAddr string) *TrayState {
	return &TrayState{mon: mon, listenAddr: listenAddr}
}

// ListenAddr returns the metrics address, or "" when disabled.
func (t *TrayState) ListenAddr() string {
	return t.listenAddr
}

// Sessions returns the tracked sessions for display.
func (t *TrayState) Sessions() []tray.SessionInfo {
	snap := t.mon.Snapshot()
	unseen := make(map[string]bool, len(snap.Unseen))
	for _, id := range snap.Unseen {
		unseen[id] = true
	}
	out := make([]tray.SessionInfo, 0, len(snap.Sessions))
	for _, rec := range snap.Sessions {
		out = append(out, tray.SessionInfo{
			ID:      rec.ID,
			Name:    rec.Name,
			Status:  rec.Status,
			Elapsed: rec.Elapsed(time.Now()),
			Unseen:  unseen[rec.ID],
		})
	}
	return out
}

// PendingRequests returns the pending permission requests.
func (t *TrayState) PendingRequests() []tray.RequestInfo {
	snap := t.mon.Snapshot()
	out := make([]tray.RequestInfo, 0, len(snap.Pending))
	for _, req := range snap.Pending {
		name := req.SessionID
		if rec, ok := snap.Session(req.SessionID); ok {
			name = rec.Name
		}
		out = append(out, tray.RequestInfo{
			ID:          req.ID,
			SessionName: name,
			ToolName:    req.ToolName,
			Questions:   len(req.Questions),
		})
	}
	return out
}

// Answer responds to a pending request.
func (t *TrayState) Answer(id string, decision models.Decision) error {
	return t.mon.Answer(id, decision, "", nil)
}

// MarkSeen acknowledges a session.
func (t *TrayState) MarkSeen(id string) error {
	return t.mon.MarkSeen(id)
}

// RequestShutdown sends SIGINT to the current process to trigger a graceful shutdown.
func (t *TrayState) RequestShutdown() {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return
	}
	_ = p.Signal(syscall.SIGINT)
}
