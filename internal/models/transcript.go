package models

import "time"

// Role is the speaker of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleUnknown   Role = "unknown"
)

// TokenUsage is a token-usage snapshot reported by the API.
type TokenUsage struct {
	InputTokens         int64  `json:"input_tokens"`
	OutputTokens        int64  `json:"output_tokens"`
	CacheCreationTokens *int64 `json:"cache_creation_input_tokens,omitempty"`
	CacheReadTokens     *int64 `json:"cache_read_input_tokens,omitempty"`
}

// Total returns input + cache creation + cache read + output.
func (u TokenUsage) Total() int64 {
	total := u.InputTokens + u.OutputTokens
	if u.CacheCreationTokens != nil {
		total += *u.CacheCreationTokens
	}
	if u.CacheReadTokens != nil {
		total += *u.CacheReadTokens
	}
	return total
}

// Add returns the field-wise sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:         u.InputTokens + o.InputTokens,
		OutputTokens:        u.OutputTokens + o.OutputTokens,
		CacheCreationTokens: addOptional(u.CacheCreationTokens, o.CacheCreationTokens),
		CacheReadTokens:     addOptional(u.CacheReadTokens, o.CacheReadTokens),
	}
}

// Sub returns u - o, clamping every field at zero.
func (u TokenUsage) Sub(o TokenUsage) TokenUsage {
	sub := func(a, b int64) int64 {
		if a < b {
			return 0
		}
		return a - b
	}
	out := TokenUsage{
		InputTokens:  sub(u.InputTokens, o.InputTokens),
		OutputTokens: sub(u.OutputTokens, o.OutputTokens),
	}
	if u.CacheCreationTokens != nil || o.CacheCreationTokens != nil {
		v := sub(deref(u.CacheCreationTokens), deref(o.CacheCreationTokens))
		out.CacheCreationTokens = &v
	}
	if u.CacheReadTokens != nil || o.CacheReadTokens != nil {
		v := sub(deref(u.CacheReadTokens), deref(o.CacheReadTokens))
		out.CacheReadTokens = &v
	}
	return out
}

// IsZero reports whether no tokens are recorded.
func (u TokenUsage) IsZero() bool {
	return u.Total() == 0
}

func addOptional(a, b *int64) *int64 {
	if a == nil && b == nil {
		return nil
	}
	v := deref(a) + deref(b)
	return &v
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// EntryMeta is the raw-log metadata kept alongside a parsed entry.
type EntryMeta struct {
	Kind            string      `json:"kind,omitempty"`         // Raw "type" field
	MessageRole     string      `json:"message_role,omitempty"` // message.role
	IsMeta          bool        `json:"is_meta,omitempty"`
	ContentIsString bool        `json:"content_is_string,omitempty"`
	RequestID       string      `json:"request_id,omitempty"`
	Usage           *TokenUsage `json:"usage,omitempty"`
}

// TranscriptEntry is one parsed line of a raw transcript log.
type TranscriptEntry struct {
	ID        string     `json:"id,omitempty"`
	Role      Role       `json:"role"`
	Text      string     `json:"text"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Meta      *EntryMeta `json:"meta,omitempty"`
}

// ArchiveSummary holds the last user and assistant texts of a transcript.
type ArchiveSummary struct {
	LastPrompt   string `json:"last_prompt,omitempty"`
	LastResponse string `json:"last_response,omitempty"`
}

// Archive is the persisted, parsed form of a session transcript.
type Archive struct {
	Version        int               `json:"version"`
	SessionID      string            `json:"session_id"`
	TranscriptPath string            `json:"transcript_path,omitempty"`
	ArchivedAt     time.Time         `json:"archived_at"`
	Entries        []TranscriptEntry `json:"entries"`
	Summary        ArchiveSummary    `json:"summary"`
}
