package models

import "time"

// DaemonInfo represents the daemon process information.
// This corresponds to ~/.hookwatch/daemon.yaml.
type DaemonInfo struct {
	Version       int       `yaml:"version"`
	PID           int       `yaml:"pid"`
	MetricsListen string    `yaml:"metrics_listen,omitempty"`
	StartedAt     time.Time `yaml:"started_at"`
}

// NewDaemonInfo creates a new daemon info with current values.
func NewDaemonInfo(pid int, metricsListen string) *DaemonInfo {
	return &DaemonInfo{
		Version:       1,
		PID:           pid,
		MetricsListen: metricsListen,
		StartedAt:     time.Now().UTC(),
	}
}
