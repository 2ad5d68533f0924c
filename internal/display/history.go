package display

import (
	"github.com/watchfire-io/hookwatch/internal/models"
	"github.com/watchfire-io/hookwatch/internal/transcript"
)

// HistoryItem is one rendered turn of a conversation history.
type HistoryItem struct {
	Role         models.Role
	Text         string
	Intermediate bool
	Usage        *models.TokenUsage // Set on final replies only
}

// History flattens an analysed transcript. The collapsed form keeps direct
// user inputs and final replies; all also keeps tool traffic and
// intermediate replies.
func History(a *transcript.Analysis, all bool) []HistoryItem {
	var indices []int
	if all {
		indices = make([]int, len(a.Entries))
		for i := range indices {
			indices[i] = i
		}
	} else {
		indices = a.Visible()
	}

	items := make([]HistoryItem, 0, len(indices))
	for _, i := range indices {
		e := &a.Entries[i]
		if e.Text == "" {
			continue
		}
		key := a.Key(i)
		item := HistoryItem{
			Role:         e.Role,
			Text:         e.Text,
			Intermediate: a.IsIntermediate(key),
		}
		if u, ok := a.CumulativeUsage(key); ok && !u.IsZero() {
			item.Usage = &u
		}
		items = append(items, item)
	}
	return items
}
