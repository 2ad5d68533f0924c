package models

import "time"

// PermissionConfig controls the interactive permission gateway.
type PermissionConfig struct {
	Interactive     bool `yaml:"interactive"`       // Hand permission prompts to the app
	PollIntervalMs  int  `yaml:"poll_interval_ms"`  // Gateway poll interval
	MaxWaitSeconds  int  `yaml:"max_wait_seconds"`  // 0 = wait until cancelled
	RequestTTLHours int  `yaml:"request_ttl_hours"` // Age after which stale files are removed
}

// NotificationConfig controls desktop notifications sent from hooks.
type NotificationConfig struct {
	Enabled bool     `yaml:"enabled"`
	Tools   []string `yaml:"tools"` // PreToolUse tool names that trigger a notice
}

// DebugConfig controls raw hook event capture.
type DebugConfig struct {
	Capture     bool `yaml:"capture"`
	CaptureSize int  `yaml:"capture_size"` // Most recent N events kept
}

// DaemonConfig holds settings for the long-running process.
type DaemonConfig struct {
	ReloadDebounceMs       int    `yaml:"reload_debounce_ms"`
	CleanupIntervalMinutes int    `yaml:"cleanup_interval_minutes"`
	MetricsListen          string `yaml:"metrics_listen"` // "" disables /metrics and /ws
}

// Settings represents global application settings.
// This corresponds to ~/.hookwatch/settings.yaml.
type Settings struct {
	Version       int                `yaml:"version"`
	Permissions   PermissionConfig   `yaml:"permissions"`
	Notifications NotificationConfig `yaml:"notifications"`
	Debug         DebugConfig        `yaml:"debug"`
	Daemon        DaemonConfig       `yaml:"daemon"`
}

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Permissions: PermissionConfig{
			Interactive:     true,
			PollIntervalMs:  300,
			MaxWaitSeconds:  3600,
			RequestTTLHours: 24,
		},
		Notifications: NotificationConfig{
			Enabled: true,
			Tools:   []string{"AskUserQuestion", "ExitPlanMode"},
		},
		Debug: DebugConfig{
			Capture:     false,
			CaptureSize: 50,
		},
		Daemon: DaemonConfig{
			ReloadDebounceMs:       150,
			CleanupIntervalMinutes: 30,
			MetricsListen:          "",
		},
	}
}

// ApplyDefaults fills zero values left by older settings files.
func (s *Settings) ApplyDefaults() {
	d := NewSettings()
	if s.Version == 0 {
		s.Version = d.Version
	}
	if s.Permissions.PollIntervalMs <= 0 {
		s.Permissions.PollIntervalMs = d.Permissions.PollIntervalMs
	}
	if s.Permissions.MaxWaitSeconds < 0 {
		s.Permissions.MaxWaitSeconds = 0
	}
	if s.Permissions.RequestTTLHours <= 0 {
		s.Permissions.RequestTTLHours = d.Permissions.RequestTTLHours
	}
	if s.Debug.CaptureSize <= 0 {
		s.Debug.CaptureSize = d.Debug.CaptureSize
	}
	if s.Daemon.ReloadDebounceMs <= 0 {
		s.Daemon.ReloadDebounceMs = d.Daemon.ReloadDebounceMs
	}
	if s.Daemon.CleanupIntervalMinutes <= 0 {
		s.Daemon.CleanupIntervalMinutes = d.Daemon.CleanupIntervalMinutes
	}
}

// PollInterval returns the gateway poll interval.
func (p PermissionConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

// MaxWait returns the maximum time a hook blocks on a request, 0 for no limit.
func (p PermissionConfig) MaxWait() time.Duration {
	return time.Duration(p.MaxWaitSeconds) * time.Second
}

// RequestTTL returns the age after which gateway files are garbage collected.
func (p PermissionConfig) RequestTTL() time.Duration {
	return time.Duration(p.RequestTTLHours) * time.Hour
}

// NotifiesFor reports whether a PreToolUse for toolName should raise a notice.
func (n NotificationConfig) NotifiesFor(toolName string) bool {
	for _, t := range n.Tools {
		if t == toolName || t == "*" {
			return true
		}
	}
	return false
}
