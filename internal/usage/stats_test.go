package usage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/watchfire-io/hookwatch/internal/models"
)

func tokens(in, out int64) models.TokenUsage {
	return models.TokenUsage{InputTokens: in, OutputTokens: out}
}

func TestRecordAccumulatesDeltas(t *testing.T) {
	r := NewRecorder(filepath.Join(t.TempDir(), "stats.json"))
	day1 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.Local)
	day2 := day1.Add(24 * time.Hour)

	steps := []struct {
		session    string
		project    string
		cumulative models.TokenUsage
		now        time.Time
	}{
		{"s1", "app", tokens(10, 5), day1},
		{"s1", "app", tokens(30, 10), day1},
		{"s2", "lib", tokens(7, 1), day1},
		{"s1", "app", tokens(40, 10), day2},
		{"s1", "app", tokens(40, 10), day2},
	}
	for _, st := range steps {
		if err := r.Record(st.session, st.project, st.cumulative, st.now); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	stats := r.Load()
	if got := stats.Sessions["s1"]; got.Total() != 50 {
		t.Errorf("Sessions[s1] total = %d, want 50", got.Total())
	}
	if got := stats.Daily[day1.Format(DateLayout)]["app"]; got.Total() != 40 {
		t.Errorf("day1 app total = %d, want 40", got.Total())
	}
	if got := stats.Daily[day1.Format(DateLayout)]["lib"]; got.Total() != 8 {
		t.Errorf("day1 lib total = %d, want 8", got.Total())
	}
	if got := stats.Daily[day2.Format(DateLayout)]["app"]; got.Total() != 10 {
		t.Errorf("day2 app total = %d, want 10", got.Total())
	}
}

func TestRecordTranscriptReset(t *testing.T) {
	r := NewRecorder(filepath.Join(t.TempDir(), "stats.json"))
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.Local)

	if err := r.Record("s1", "app", tokens(100, 0), now); err != nil {
		t.Fatal(err)
	}
	if err := r.Record("s1", "app", tokens(20, 0), now); err != nil {
		t.Fatal(err)
	}

	stats := r.Load()
	if got := stats.Daily[now.Format(DateLayout)]["app"].Total(); got != 120 {
		t.Errorf("daily total = %d, want 120", got)
	}
	if got := stats.Last["s1"].Total(); got != 20 {
		t.Errorf("last = %d, want 20", got)
	}
}

func TestForgetKeepsDaily(t *testing.T) {
	r := NewRecorder(filepath.Join(t.TempDir(), "stats.json"))
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.Local)
	if err := r.Record("s1", "", tokens(1, 1), now); err != nil {
		t.Fatal(err)
	}
	if err := r.Forget("s1"); err != nil {
		t.Fatal(err)
	}

	stats := r.Load()
	if _, ok := stats.Sessions["s1"]; ok {
		t.Error("session should be forgotten")
	}
	if got := stats.Daily[now.Format(DateLayout)]["unknown"].Total(); got != 2 {
		t.Errorf("daily total = %d, want 2", got)
	}
}

func TestDailyOrdering(t *testing.T) {
	stats := models.NewStatistics()
	stats.Daily["2026-04-01"] = map[string]models.TokenUsage{"b": tokens(1, 0), "a": tokens(1, 0)}
	stats.Daily["2026-04-03"] = map[string]models.TokenUsage{"a": tokens(1, 0)}
	stats.Daily["2026-03-01"] = map[string]models.TokenUsage{"a": tokens(1, 0)}

	got := Daily(stats, "2026-04-01")
	want := []string{"2026-04-03/a", "2026-04-01/a", "2026-04-01/b"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, d := range got {
		if key := d.Day + "/" + d.Project; key != want[i] {
			t.Errorf("Daily()[%d] = %s, want %s", i, key, want[i])
		}
	}
}
