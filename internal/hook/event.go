// Package hook handles one lifecycle event delivered by the external tool to
// a short-lived hook process.
package hook

import (
	"encoding/json"

	"github.com/watchfire-io/hookwatch/internal/models"
)

// Event kinds, as sent in hook_event_name.
const (
	EventSessionStart      = "SessionStart"
	EventUserPromptSubmit  = "UserPromptSubmit"
	EventPreToolUse        = "PreToolUse"
	EventPermissionRequest = "PermissionRequest"
	EventPostToolUse       = "PostToolUse"
	EventStop              = "Stop"
	EventSessionEnd        = "SessionEnd"
)

// Event is the JSON object read from stdin.
type Event struct {
	HookEventName  string          `json:"hook_event_name"`
	SessionID      string          `json:"session_id"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
	Cwd            string          `json:"cwd,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolInput      json.RawMessage `json:"tool_input,omitempty"`
	Source         string          `json:"source,omitempty"` // SessionStart: startup, resume, clear
	Reason         string          `json:"reason,omitempty"` // SessionEnd
}

type toolInput struct {
	Questions []struct {
		Question    string `json:"question"`
		Header      string `json:"header"`
		MultiSelect bool   `json:"multiSelect"`
		Options     []struct {
			Label       string `json:"label"`
			Description string `json:"description"`
		} `json:"options"`
	} `json:"questions"`
}

// Questions extracts the interactive questions carried in tool_input.
func (e *Event) Questions() []models.Question {
	if len(e.ToolInput) == 0 {
		return nil
	}
	var in toolInput
	if err := json.Unmarshal(e.ToolInput, &in); err != nil {
		return nil
	}

	var questions []models.Question
	for _, q := range in.Questions {
		if q.Question == "" {
			continue
		}
		mq := models.Question{
			Header:      q.Header,
			Question:    q.Question,
			MultiSelect: q.MultiSelect,
		}
		for _, o := range q.Options {
			mq.Options = append(mq.Options, models.Option{Label: o.Label, Description: o.Description})
		}
		questions = append(questions, mq)
	}
	return questions
}
