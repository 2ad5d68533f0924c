package display

import (
	"testing"

	"github.com/watchfire-io/hookwatch/internal/models"
	"github.com/watchfire-io/hookwatch/internal/transcript"
)

func TestHistory(t *testing.T) {
	entries := []models.TranscriptEntry{
		{ID: "u1", Role: models.RoleUser, Text: "fix the build", Meta: &models.EntryMeta{Kind: "user", ContentIsString: true}},
		{ID: "a1", Role: models.RoleAssistant, Text: "running tests", Meta: &models.EntryMeta{RequestID: "r1", Usage: &models.TokenUsage{InputTokens: 10, OutputTokens: 2}}},
		{ID: "t1", Role: models.RoleUser, Text: "ok", Meta: &models.EntryMeta{Kind: "user"}},
		{ID: "a2", Role: models.RoleAssistant, Text: "fixed", Meta: &models.EntryMeta{RequestID: "r2", Usage: &models.TokenUsage{InputTokens: 20, OutputTokens: 3}}},
	}
	a := transcript.Analyze(entries)

	collapsed := History(a, false)
	if len(collapsed) != 2 {
		t.Fatalf("History(collapsed) = %d items, want 2", len(collapsed))
	}
	if collapsed[0].Text != "fix the build" || collapsed[1].Text != "fixed" {
		t.Errorf("History(collapsed) = %+v", collapsed)
	}
	if collapsed[1].Usage == nil || collapsed[1].Usage.Total() != 35 {
		t.Errorf("final usage = %v, want total 35", collapsed[1].Usage)
	}

	all := History(a, true)
	if len(all) != 4 {
		t.Fatalf("History(all) = %d items, want 4", len(all))
	}
	if !all[1].Intermediate {
		t.Errorf("entry a1 Intermediate = false, want true")
	}
	if all[1].Usage != nil {
		t.Errorf("intermediate entry carries usage %v", all[1].Usage)
	}
}
