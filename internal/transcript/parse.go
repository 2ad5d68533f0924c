// Package transcript parses the external tool's append-only transcript logs,
// archives them per session and groups entries into prompt cycles.
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/watchfire-io/hookwatch/internal/models"
)

// maxLineSize bounds a single log line (large tool outputs).
const maxLineSize = 10 * 1024 * 1024

type rawLine struct {
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	UUID      string          `json:"uuid"`
	RequestID string          `json:"requestId"`
	IsMeta    bool            `json:"isMeta"`
	Timestamp string          `json:"timestamp"`
	Text      json.RawMessage `json:"text"`
	Content   json.RawMessage `json:"content"`
	Message   json.RawMessage `json:"message"`
}

type rawMessage struct {
	Role    string             `json:"role"`
	Content json.RawMessage    `json:"content"`
	Text    json.RawMessage    `json:"text"`
	Usage   *models.TokenUsage `json:"usage"`
}

// ParseFile parses the transcript at path.
func ParseFile(path string) ([]models.TranscriptEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads one JSON object per line. Lines that do not parse or carry no
// text are skipped. A read error stops parsing and is returned together with
// the entries read so far.
func Parse(r io.Reader) ([]models.TranscriptEntry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256*1024), maxLineSize)

	var entries []models.TranscriptEntry
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if entry, ok := parseLine(line); ok {
			entries = append(entries, entry)
		}
	}
	if err := sc.Err(); err != nil {
		return entries, fmt.Errorf("failed to read transcript: %w", err)
	}
	return entries, nil
}

func parseLine(line []byte) (models.TranscriptEntry, bool) {
	var raw rawLine
	if err := json.Unmarshal(line, &raw); err != nil {
		return models.TranscriptEntry{}, false
	}

	// message is usually an object but some producers write a bare string.
	var msg rawMessage
	var msgText string
	msgIsString := false
	if len(raw.Message) > 0 {
		if err := json.Unmarshal(raw.Message, &msg); err != nil {
			if err := json.Unmarshal(raw.Message, &msgText); err == nil {
				msgIsString = true
			}
		}
	}

	text, isString := "", false
	switch {
	case msgIsString:
		text, isString = msgText, true
	case len(msg.Content) > 0:
		text, isString = extractText(msg.Content)
	case len(msg.Text) > 0:
		text, isString = extractText(msg.Text)
	case len(raw.Content) > 0:
		text, isString = extractText(raw.Content)
	case len(raw.Text) > 0:
		text, isString = extractText(raw.Text)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.TranscriptEntry{}, false
	}

	entry := models.TranscriptEntry{
		ID:   raw.UUID,
		Role: resolveRole(raw.Role, msg.Role, raw.Type),
		Text: text,
		Meta: &models.EntryMeta{
			Kind:            raw.Type,
			MessageRole:     msg.Role,
			IsMeta:          raw.IsMeta,
			ContentIsString: isString,
			RequestID:       raw.RequestID,
			Usage:           msg.Usage,
		},
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp); err == nil {
		entry.CreatedAt = &ts
	}
	return entry, true
}

func resolveRole(candidates ...string) models.Role {
	for _, c := range candidates {
		switch models.Role(strings.ToLower(c)) {
		case models.RoleUser:
			return models.RoleUser
		case models.RoleAssistant:
			return models.RoleAssistant
		case models.RoleSystem:
			return models.RoleSystem
		}
	}
	return models.RoleUnknown
}

// extractText returns the text of a content value and whether it was a
// plain string. Arrays of blocks contribute their text or content fields,
// joined with spaces.
func extractText(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var blocks []json.RawMessage
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if t, _ := extractText(b); strings.TrimSpace(t) != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, " "), false
	}

	var block struct {
		Text    json.RawMessage `json:"text"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &block); err == nil {
		if len(block.Text) > 0 {
			t, _ := extractText(block.Text)
			return t, false
		}
		if len(block.Content) > 0 {
			t, _ := extractText(block.Content)
			return t, false
		}
	}
	return "", false
}

// Summarize returns the last prompt and last response of entries.
//
// LastPrompt is the last direct user input, not the last user-role entry:
// tool results and injected reminders are user-role too and would replace the
// prompt the user typed. The last user-role entry is used only when no direct
// input exists.
func Summarize(entries []models.TranscriptEntry) models.ArchiveSummary {
	var summary models.ArchiveSummary
	lastUser := ""
	for i := range entries {
		e := &entries[i]
		switch e.Role {
		case models.RoleUser:
			lastUser = e.Text
			if IsDirectUserInput(e) {
				summary.LastPrompt = e.Text
			}
		case models.RoleAssistant:
			summary.LastResponse = e.Text
		}
	}
	if summary.LastPrompt == "" {
		summary.LastPrompt = lastUser
	}
	return summary
}
