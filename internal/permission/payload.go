package permission

import (
	"encoding/json"

	"github.com/watchfire-io/hookwatch/internal/models"
)

// PermissionRequestEvent is the hook event name echoed in decision payloads.
const PermissionRequestEvent = "PermissionRequest"

type decisionPayload struct {
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput"`
}

type hookSpecificOutput struct {
	HookEventName string       `json:"hookEventName"`
	Decision      decisionBody `json:"decision"`
}

type decisionBody struct {
	Behavior     models.Decision `json:"behavior"`
	Message      string          `json:"message,omitempty"`
	UpdatedInput *updatedInput   `json:"updatedInput,omitempty"`
}

type updatedInput struct {
	Answers map[string]string `json:"answers"`
}

// FormatDecisionPayload builds the JSON body the external tool reads from the
// hook's stdout. Only a deny carries the message; answers are nested under
// updatedInput when there are any.
func FormatDecisionPayload(decision models.Decision, message string, answers map[string]string) ([]byte, error) {
	body := decisionBody{Behavior: decision}
	if decision == models.DecisionDeny {
		body.Message = message
	}
	if len(answers) > 0 {
		body.UpdatedInput = &updatedInput{Answers: answers}
	}
	return json.Marshal(decisionPayload{
		HookSpecificOutput: hookSpecificOutput{
			HookEventName: PermissionRequestEvent,
			Decision:      body,
		},
	})
}

// PayloadFor formats the payload for a consumed response.
func PayloadFor(resp *models.PermissionResponse) ([]byte, error) {
	return FormatDecisionPayload(resp.Decision, resp.Message, resp.Answers)
}
