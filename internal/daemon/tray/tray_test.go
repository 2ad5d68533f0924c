package tray

import (
	"testing"
	"time"

	"github.com/watchfire-io/hookwatch/internal/models"
)

func TestFormatSessionTitle(t *testing.T) {
	tests := []struct {
		name     string
		session  SessionInfo
		expected string
	}{
		{
			name:     "idle",
			session:  SessionInfo{Name: "app", Status: models.SessionStatusIdle},
			expected: "○ app: Idle",
		},
		{
			name:     "running with time",
			session:  SessionInfo{Name: "app", Status: models.SessionStatusRunning, Elapsed: 75 * time.Second},
			expected: "● app: Running (1m15s)",
		},
		{
			name:     "unseen",
			session:  SessionInfo{Name: "lib", Status: models.SessionStatusFinished, Elapsed: 5 * time.Second, Unseen: true},
			expected: "✓ lib: Finished (5s) *",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatSessionTitle(tt.session); got != tt.expected {
				t.Errorf("formatSessionTitle() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatRequestTitle(t *testing.T) {
	if got := formatRequestTitle(RequestInfo{SessionName: "app", ToolName: "Bash"}); got != "app: Bash" {
		t.Errorf("formatRequestTitle() = %q", got)
	}
	if got := formatRequestTitle(RequestInfo{SessionName: "app", ToolName: "AskUserQuestion", Questions: 2}); got != "app: AskUserQuestion (2 questions)" {
		t.Errorf("formatRequestTitle() = %q", got)
	}
}

func TestFormatTooltip(t *testing.T) {
	if got := formatTooltip(3, 1, 0); got != "hookwatch: 3 sessions, 1 pending" {
		t.Errorf("formatTooltip() = %q", got)
	}
	if got := formatTooltip(3, 0, 2); got != "hookwatch: 3 sessions, 0 pending, 2 new" {
		t.Errorf("formatTooltip() = %q", got)
	}
}
