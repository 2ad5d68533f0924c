package permission

import (
	"testing"

	"github.com/watchfire-io/hookwatch/internal/models"
)

func TestFormatDecisionPayload(t *testing.T) {
	tests := []struct {
		name     string
		decision models.Decision
		message  string
		answers  map[string]string
		expected string
	}{
		{
			name:     "allow",
			decision: models.DecisionAllow,
			expected: `{"hookSpecificOutput":{"hookEventName":"PermissionRequest","decision":{"behavior":"allow"}}}`,
		},
		{
			name:     "allow drops message",
			decision: models.DecisionAllow,
			message:  "ignored",
			expected: `{"hookSpecificOutput":{"hookEventName":"PermissionRequest","decision":{"behavior":"allow"}}}`,
		},
		{
			name:     "deny with message",
			decision: models.DecisionDeny,
			message:  "not now",
			expected: `{"hookSpecificOutput":{"hookEventName":"PermissionRequest","decision":{"behavior":"deny","message":"not now"}}}`,
		},
		{
			name:     "answers",
			decision: models.DecisionAllow,
			answers:  map[string]string{"Ship it?": "Yes", "Pick a color": "Blue"},
			expected: `{"hookSpecificOutput":{"hookEventName":"PermissionRequest","decision":{"behavior":"allow","updatedInput":{"answers":{"Pick a color":"Blue","Ship it?":"Yes"}}}}}`,
		},
		{
			name:     "empty answers omitted",
			decision: models.DecisionAsk,
			answers:  map[string]string{},
			expected: `{"hookSpecificOutput":{"hookEventName":"PermissionRequest","decision":{"behavior":"ask"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatDecisionPayload(tt.decision, tt.message, tt.answers)
			if err != nil {
				t.Fatalf("FormatDecisionPayload: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("FormatDecisionPayload() = %s, want %s", got, tt.expected)
			}
		})
	}
}
