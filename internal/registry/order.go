package registry

import "github.com/watchfire-io/hookwatch/internal/models"

func indexOf(records []*models.SessionRecord, id string) int {
	for i, rec := range records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func removeAt(records []*models.SessionRecord, i int) []*models.SessionRecord {
	return append(records[:i:i], records[i+1:]...)
}

func insertAt(records []*models.SessionRecord, i int, rec *models.SessionRecord) []*models.SessionRecord {
	if i < 0 {
		i = 0
	}
	if i > len(records) {
		i = len(records)
	}
	out := make([]*models.SessionRecord, 0, len(records)+1)
	out = append(out, records[:i]...)
	out = append(out, rec)
	return append(out, records[i:]...)
}

// groupPosition returns the index of the first record sharing cwd, or 0 when
// the working directory has no other sessions.
func groupPosition(records []*models.SessionRecord, cwd string) int {
	if cwd == "" {
		return 0
	}
	for i, rec := range records {
		if rec.Cwd == cwd {
			return i
		}
	}
	return 0
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
