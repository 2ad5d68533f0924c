package transcript

import (
	"strconv"
	"strings"

	"github.com/watchfire-io/hookwatch/internal/models"
)

// systemTags mark user-role text injected by the tool rather than typed.
var systemTags = []string{
	"<command-name>",
	"<command-message>",
	"<command-args>",
	"<local-command-stdout>",
	"<local-command-stderr>",
	"<local-command-caveat>",
	"<system-reminder>",
	"<tool_use_error>",
	"<bash-input>",
	"<bash-stdout>",
	"<bash-stderr>",
	"<user-prompt-submit-hook>",
	"<task-notification>",
}

// IsDirectUserInput reports whether e is text the user typed at the top
// level, as opposed to a tool result or an injected reminder.
func IsDirectUserInput(e *models.TranscriptEntry) bool {
	if e.Role != models.RoleUser || e.Meta == nil {
		return false
	}
	m := e.Meta
	if m.Kind != string(models.RoleUser) || m.IsMeta || !m.ContentIsString {
		return false
	}
	if m.MessageRole != "" && m.MessageRole != string(models.RoleUser) {
		return false
	}
	for _, tag := range systemTags {
		if strings.Contains(e.Text, tag) {
			return false
		}
	}
	return true
}

// Group is one prompt cycle: an optional direct user input and everything up
// to the next one.
type Group struct {
	InputIndex int   // -1 for the preamble before the first input
	Indices    []int // Entry indices in order, including the input
	FinalIndex int   // Last assistant entry, -1 if none
	Usage      models.TokenUsage
}

// Analysis is the precomputed grouping of a transcript.
type Analysis struct {
	Entries []models.TranscriptEntry
	Groups  []Group

	keys         []string
	intermediate map[string]bool
	cumulative   map[string]models.TokenUsage
}

// EntryKey identifies entry i: its id, or "#<i>" when it has none.
func EntryKey(e *models.TranscriptEntry, i int) string {
	if e.ID != "" {
		return e.ID
	}
	return "#" + strconv.Itoa(i)
}

// Analyze groups entries and computes per-entry flags and usage in one pass.
func Analyze(entries []models.TranscriptEntry) *Analysis {
	a := &Analysis{
		Entries:      entries,
		keys:         make([]string, len(entries)),
		intermediate: make(map[string]bool),
		cumulative:   make(map[string]models.TokenUsage),
	}

	current := Group{InputIndex: -1, FinalIndex: -1}
	for i := range entries {
		e := &entries[i]
		a.keys[i] = EntryKey(e, i)
		if IsDirectUserInput(e) {
			if current.InputIndex >= 0 || len(current.Indices) > 0 {
				a.Groups = append(a.Groups, current)
			}
			current = Group{InputIndex: i, FinalIndex: -1}
		}
		current.Indices = append(current.Indices, i)
		if e.Role == models.RoleAssistant {
			current.FinalIndex = i
		}
	}
	if current.InputIndex >= 0 || len(current.Indices) > 0 {
		a.Groups = append(a.Groups, current)
	}

	for g := range a.Groups {
		group := &a.Groups[g]
		group.Usage = groupUsage(entries, group.Indices)
		for _, i := range group.Indices {
			if entries[i].Role != models.RoleAssistant {
				continue
			}
			key := a.keys[i]
			if i == group.FinalIndex {
				a.cumulative[key] = group.Usage
			} else {
				a.intermediate[key] = true
			}
		}
	}
	return a
}

// groupUsage sums assistant usage once per request id. Streamed chunks of
// one request repeat the snapshot, so the latest one is kept.
func groupUsage(entries []models.TranscriptEntry, indices []int) models.TokenUsage {
	var total models.TokenUsage
	byRequest := make(map[string]models.TokenUsage)
	var order []string
	for _, i := range indices {
		e := &entries[i]
		if e.Role != models.RoleAssistant || e.Meta == nil || e.Meta.Usage == nil {
			continue
		}
		if e.Meta.RequestID == "" {
			total = total.Add(*e.Meta.Usage)
			continue
		}
		if _, ok := byRequest[e.Meta.RequestID]; !ok {
			order = append(order, e.Meta.RequestID)
		}
		byRequest[e.Meta.RequestID] = *e.Meta.Usage
	}
	for _, id := range order {
		total = total.Add(byRequest[id])
	}
	return total
}

// Key returns the key of entry i.
func (a *Analysis) Key(i int) string {
	return a.keys[i]
}

// IsIntermediate reports whether the assistant entry is not the final reply
// of its group.
func (a *Analysis) IsIntermediate(key string) bool {
	return a.intermediate[key]
}

// CumulativeUsage returns the group usage attributed to a final entry.
func (a *Analysis) CumulativeUsage(key string) (models.TokenUsage, bool) {
	u, ok := a.cumulative[key]
	return u, ok
}

// FinalIDs returns the keys of the final assistant entries in order.
func (a *Analysis) FinalIDs() []string {
	var ids []string
	for _, g := range a.Groups {
		if g.FinalIndex >= 0 {
			ids = append(ids, a.keys[g.FinalIndex])
		}
	}
	return ids
}

// Visible returns the indices shown in a collapsed history: direct user
// inputs and final replies.
func (a *Analysis) Visible() []int {
	var out []int
	for _, g := range a.Groups {
		if g.InputIndex >= 0 {
			out = append(out, g.InputIndex)
		}
		if g.FinalIndex >= 0 {
			out = append(out, g.FinalIndex)
		}
	}
	return out
}

// Total returns the usage of the whole transcript.
func (a *Analysis) Total() models.TokenUsage {
	var total models.TokenUsage
	for _, g := range a.Groups {
		total = total.Add(g.Usage)
	}
	return total
}
