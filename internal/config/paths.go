// Package config handles configuration loading, saving, and path management.
package config

import (
	"os"
	"path/filepath"
)

const (
	// GlobalDirName is the name of the global hookwatch directory.
	GlobalDirName = ".hookwatch"

	// HomeEnv overrides the global directory location.
	HomeEnv = "HOOKWATCH_HOME"

	// PermissionDirName is the gateway root inside the global directory.
	PermissionDirName = "permission"

	// ArchivesDirName holds parsed transcript archives.
	ArchivesDirName = "archives"

	// LogsDirName is the name of the logs directory.
	LogsDirName = "logs"

	// DebugDirName holds captured raw hook events.
	DebugDirName = "debug"
)

// File names
const (
	DaemonFileName   = "daemon.yaml"
	SettingsFileName = "settings.yaml"
	SessionsFileName = "sessions.yaml"
	SessionsLockName = "sessions.lock"
	SignalFileName   = "signal"
	StatsFileName    = "stats.json"
	StatsLockName    = "stats.lock"
	HookLogFileName  = "hookwatch.log"
	EventsFileName   = "events.jsonl"
)

// GlobalDir returns the path to the global hookwatch directory (~/.hookwatch/).
func GlobalDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, GlobalDirName), nil
}

func globalPath(elem ...string) (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{dir}, elem...)...), nil
}

// GlobalDaemonFile returns the path to the daemon.yaml file.
func GlobalDaemonFile() (string, error) {
	return globalPath(DaemonFileName)
}

// GlobalSettingsFile returns the path to the settings.yaml file.
func GlobalSettingsFile() (string, error) {
	return globalPath(SettingsFileName)
}

// GlobalSessionsFile returns the path to the session registry file.
func GlobalSessionsFile() (string, error) {
	return globalPath(SessionsFileName)
}

// GlobalSignalFile returns the path of the "registry changed" signal file.
func GlobalSignalFile() (string, error) {
	return globalPath(SignalFileName)
}

// GlobalStatsFile returns the path to the usage statistics file.
func GlobalStatsFile() (string, error) {
	return globalPath(StatsFileName)
}

// GlobalPermissionDir returns the gateway root (pending/ and response/ live below it).
func GlobalPermissionDir() (string, error) {
	return globalPath(PermissionDirName)
}

// GlobalArchivesDir returns the path to the transcript archives directory.
func GlobalArchivesDir() (string, error) {
	return globalPath(ArchivesDirName)
}

// GlobalLogsDir returns the path to the logs directory.
func GlobalLogsDir() (string, error) {
	return globalPath(LogsDirName)
}

// GlobalEventsFile returns the path of the debug capture ring.
func GlobalEventsFile() (string, error) {
	return globalPath(DebugDirName, EventsFileName)
}

// EnsureGlobalDir creates the global hookwatch directory if it doesn't exist.
func EnsureGlobalDir() error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// EnsureGlobalLogsDir creates the global logs directory if it doesn't exist.
func EnsureGlobalLogsDir() error {
	dir, err := GlobalLogsDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
