// Package tray implements the system tray icon and menu for the daemon.
package tray

import (
	"time"

	"github.com/watchfire-io/hookwatch/internal/models"
)

// DaemonState provides access to daemon state for the tray.
type DaemonState interface {
	ListenAddr() string
	Sessions() []SessionInfo
	PendingRequests() []RequestInfo
	Answer(id string, decision models.Decision) error
	MarkSeen(id string) error
	RequestShutdown()
}

// SessionInfo describes a tracked session for display in the tray menu.
type SessionInfo struct {
	ID      string
	Name    string
	Status  models.SessionStatus
	Elapsed time.Duration
	Unseen  bool
}

// RequestInfo describes a pending permission request.
type RequestInfo struct {
	ID          string
	SessionName string
	ToolName    string
	Questions   int
}
