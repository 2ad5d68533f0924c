package hook

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/watchfire-io/hookwatch/internal/config"
)

// Capture keeps the most recent raw events in a JSON-lines file.
type Capture struct {
	path string
	size int
	lock *config.FileLock
}

// NewCapture creates a ring of size events stored at path.
func NewCapture(path string, size int) *Capture {
	if size <= 0 {
		size = 1
	}
	return &Capture{
		path: path,
		size: size,
		lock: config.NewFileLock(strings.TrimSuffix(path, ".jsonl") + ".lock"),
	}
}

// Append adds raw to the ring, dropping the oldest events beyond its size.
func (c *Capture) Append(raw []byte) error {
	var line bytes.Buffer
	if err := json.Compact(&line, raw); err != nil {
		return fmt.Errorf("failed to compact event: %w", err)
	}

	return c.lock.With(func() error {
		lines, err := c.readLines()
		if err != nil {
			return err
		}
		lines = append(lines, line.String())
		if len(lines) > c.size {
			lines = lines[len(lines)-c.size:]
		}
		return config.WriteFileAtomic(c.path, []byte(strings.Join(lines, "\n")+"\n"))
	})
}

// Events returns the captured events, oldest first.
func (c *Capture) Events() ([]json.RawMessage, error) {
	lines, err := c.readLines()
	if err != nil {
		return nil, err
	}
	events := make([]json.RawMessage, 0, len(lines))
	for _, l := range lines {
		events = append(events, json.RawMessage(l))
	}
	return events, nil
}

func (c *Capture) readLines() ([]string, error) {
	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), MaxEventSize)
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}
	return lines, nil
}
