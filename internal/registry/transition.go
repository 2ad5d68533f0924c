package registry

import (
	"path/filepath"
	"time"

	"github.com/watchfire-io/hookwatch/internal/models"
)

// applyStatus moves rec to status and keeps the duration invariants:
// StartedAt is set only while the status is timed, and Duration only grows
// except for an explicit reset.
func applyStatus(rec *models.SessionRecord, status models.SessionStatus, reset bool, now time.Time) {
	if status.IsTimed() {
		switch {
		case reset:
			rec.Duration = 0
			rec.StartedAt = timePtr(now)
		case rec.Status.IsTimed() && rec.StartedAt != nil:
			// Already running: the timer keeps going.
		default:
			rec.StartedAt = timePtr(now)
		}
	} else {
		foldTimer(rec, now)
	}
	rec.Status = status
}

// foldTimer adds the open running interval to Duration and stops the timer.
func foldTimer(rec *models.SessionRecord, now time.Time) {
	if rec.StartedAt == nil {
		return
	}
	if elapsed := now.Sub(*rec.StartedAt).Seconds(); elapsed > 0 {
		rec.Duration += elapsed
	}
	rec.StartedAt = nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// defaultName is the last path component of cwd, or a short id.
func defaultName(id, cwd string) string {
	if cwd != "" {
		base := filepath.Base(filepath.Clean(cwd))
		if base != "/" && base != "." && base != string(filepath.Separator) {
			return base
		}
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
