// Package models contains shared data structures used across the application.
package models

import "time"

// SessionStatus is the lifecycle state of a tracked session.
type SessionStatus string

const (
	SessionStatusIdle       SessionStatus = "idle"
	SessionStatusRunning    SessionStatus = "running"
	SessionStatusPermission SessionStatus = "permission"
	SessionStatusFinished   SessionStatus = "finished"
	SessionStatusEnded      SessionStatus = "ended"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusIdle, SessionStatusRunning, SessionStatusPermission,
		SessionStatusFinished, SessionStatusEnded:
		return true
	}
	return false
}

// IsTimed reports whether the duration timer runs while in this status.
func (s SessionStatus) IsTimed() bool {
	return s == SessionStatusRunning
}

// IsTerminal reports whether the status ends a prompt cycle.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusFinished || s == SessionStatusEnded
}

// SessionRecord is one tracked session of the external CLI tool.
// Records are stored in order inside RegistryFile.
type SessionRecord struct {
	ID             string        `yaml:"id"`
	Name           string        `yaml:"name"`
	Detail         string        `yaml:"detail,omitempty"`
	Cwd            string        `yaml:"cwd,omitempty"`
	TranscriptPath string        `yaml:"transcript_path,omitempty"`
	Status         SessionStatus `yaml:"status"`
	UpdatedAt      time.Time     `yaml:"updated_at"`
	StartedAt      *time.Time    `yaml:"started_at,omitempty"` // Only while status is timed
	Duration       float64       `yaml:"duration"`             // Accumulated seconds in running
	LastPrompt     string        `yaml:"last_prompt,omitempty"`
	LastResponse   string        `yaml:"last_response,omitempty"`
}

// NewSessionRecord creates an idle record for a freshly started session.
func NewSessionRecord(id, name, cwd string, now time.Time) *SessionRecord {
	return &SessionRecord{
		ID:        id,
		Name:      name,
		Detail:    cwd,
		Cwd:       cwd,
		Status:    SessionStatusIdle,
		UpdatedAt: now,
	}
}

// Elapsed returns the accumulated running time including the open interval.
func (r *SessionRecord) Elapsed(now time.Time) time.Duration {
	d := time.Duration(r.Duration * float64(time.Second))
	if r.StartedAt != nil && now.After(*r.StartedAt) {
		d += now.Sub(*r.StartedAt)
	}
	return d
}

// Clone returns a deep copy of the record.
func (r *SessionRecord) Clone() *SessionRecord {
	c := *r
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	return &c
}

// RegistryFile is the on-disk shape of sessions.yaml.
type RegistryFile struct {
	Version  int              `yaml:"version"`
	Sessions []*SessionRecord `yaml:"sessions"`
	Seen     []string         `yaml:"seen,omitempty"`
}

// NewRegistryFile creates an empty registry file.
func NewRegistryFile() *RegistryFile {
	return &RegistryFile{
		Version:  1,
		Sessions: []*SessionRecord{},
	}
}
