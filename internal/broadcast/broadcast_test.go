package broadcast

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSignalRewritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "signal")
	b := NewFile(path)

	b.Signal()
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("signal file not written: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("signal file is empty")
	}

	b.Signal()
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("signal file not rewritten: %v", err)
	}
	if string(first) == string(second) {
		t.Errorf("Signal() did not change payload: %q", second)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the signal file, found %d entries", len(entries))
	}
}

func TestFuncBroadcaster(t *testing.T) {
	count := 0
	var b Broadcaster = Func(func() { count++ })
	b.Signal()
	b.Signal()
	if count != 2 {
		t.Errorf("Func.Signal() called %d times, want 2", count)
	}
}
