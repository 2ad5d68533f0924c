package models

// Statistics is the on-disk shape of stats.json.
type Statistics struct {
	Version int `json:"version"`
	// Sessions holds cumulative usage per session, overwritten on each record.
	Sessions map[string]TokenUsage `json:"sessions"`
	// Daily accumulates usage deltas by date (YYYY-MM-DD) and project.
	Daily map[string]map[string]TokenUsage `json:"daily"`
	// Last is the last cumulative usage seen per session, used to derive deltas.
	Last map[string]TokenUsage `json:"last"`
}

// NewStatistics creates empty statistics.
func NewStatistics() *Statistics {
	return &Statistics{
		Version:  1,
		Sessions: map[string]TokenUsage{},
		Daily:    map[string]map[string]TokenUsage{},
		Last:     map[string]TokenUsage{},
	}
}
