package tui

import (
	"github.com/watchfire-io/hookwatch/internal/daemon/monitor"
	"github.com/watchfire-io/hookwatch/internal/transcript"
)

// snapshotMsg carries fresh registry and gateway state.
type snapshotMsg struct {
	snapshot monitor.Snapshot
}

// historyLoadedMsg carries an analysed transcript.
type historyLoadedMsg struct {
	sessionID string
	history   *transcript.History
	err       error
}

// ErrorMsg carries an error to display.
type ErrorMsg struct {
	Err error
}

// ClearErrorMsg clears the error display.
type ClearErrorMsg struct{}

// tickMsg refreshes elapsed times.
type tickMsg struct{}
