package models

import "time"

// Decision is the answer given to a permission request.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
	DecisionAsk   Decision = "ask" // Defer to the external tool's own UI
)

// ParseDecision maps user input to a Decision.
func ParseDecision(s string) (Decision, bool) {
	switch s {
	case "allow", "a", "yes", "y":
		return DecisionAllow, true
	case "deny", "d", "no", "n":
		return DecisionDeny, true
	case "ask", "defer":
		return DecisionAsk, true
	}
	return "", false
}

// Option is one selectable answer of a Question.
type Option struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Question is an interactive selection embedded in a permission request.
type Question struct {
	Header      string   `json:"header,omitempty"`
	Question    string   `json:"question"`
	MultiSelect bool     `json:"multi_select,omitempty"`
	Options     []Option `json:"options,omitempty"`
}

// PermissionRequest is written to permission/pending/<id>.json by a hook.
// The file existing is what makes the request pending.
type PermissionRequest struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	ToolName  string     `json:"tool_name"`
	Cwd       string     `json:"cwd,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Questions []Question `json:"questions,omitempty"`
}

// PermissionResponse is written to permission/response/<id>.json by the app.
type PermissionResponse struct {
	ID          string            `json:"id"`
	Decision    Decision          `json:"decision"`
	Message     string            `json:"message,omitempty"`
	Answers     map[string]string `json:"answers,omitempty"` // Question text -> answer text
	RespondedAt time.Time         `json:"responded_at"`
}
