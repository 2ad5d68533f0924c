// Package usage keeps token statistics per session and per day and project.
package usage

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/models"
)

// DateLayout keys the daily collection.
const DateLayout = "2006-01-02"

// Recorder updates stats.json under a file lock.
type Recorder struct {
	path string
	lock *config.FileLock
}

// NewRecorder creates a recorder for the statistics file at path.
func NewRecorder(path string) *Recorder {
	lockPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".lock"
	return &Recorder{path: path, lock: config.NewFileLock(lockPath)}
}

// DefaultRecorder creates a recorder for ~/.hookwatch/stats.json.
func DefaultRecorder() (*Recorder, error) {
	path, err := config.GlobalStatsFile()
	if err != nil {
		return nil, err
	}
	return NewRecorder(path), nil
}

// Record stores the cumulative usage of a session and adds the growth since
// the previous record to today's total for project. A cumulative value below
// the last one means the transcript was reset, so it counts from zero.
func (r *Recorder) Record(sessionID, project string, cumulative models.TokenUsage, now time.Time) error {
	if sessionID == "" {
		return nil
	}
	if project == "" {
		project = "unknown"
	}
	return r.lock.With(func() error {
		stats := r.read()

		last, ok := stats.Last[sessionID]
		delta := cumulative
		if ok && cumulative.Total() >= last.Total() {
			delta = cumulative.Sub(last)
		}

		stats.Sessions[sessionID] = cumulative
		stats.Last[sessionID] = cumulative
		if !delta.IsZero() {
			day := now.Local().Format(DateLayout)
			if stats.Daily[day] == nil {
				stats.Daily[day] = map[string]models.TokenUsage{}
			}
			stats.Daily[day][project] = stats.Daily[day][project].Add(delta)
		}

		if err := config.SaveJSON(r.path, stats); err != nil {
			return fmt.Errorf("failed to save statistics: %w", err)
		}
		return nil
	})
}

// Load returns the current statistics.
func (r *Recorder) Load() *models.Statistics {
	return r.read()
}

// Forget drops a session from the per-session collections. Daily totals keep
// its contribution.
func (r *Recorder) Forget(sessionID string) error {
	return r.lock.With(func() error {
		stats := r.read()
		if _, ok := stats.Last[sessionID]; !ok {
			if _, ok := stats.Sessions[sessionID]; !ok {
				return nil
			}
		}
		delete(stats.Sessions, sessionID)
		delete(stats.Last, sessionID)
		return config.SaveJSON(r.path, stats)
	})
}

func (r *Recorder) read() *models.Statistics {
	stats, err := config.LoadJSONOrDefault(r.path, models.NewStatistics)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[usage] treating unreadable statistics as empty: %v", err)
		}
		return models.NewStatistics()
	}
	if stats.Sessions == nil {
		stats.Sessions = map[string]models.TokenUsage{}
	}
	if stats.Daily == nil {
		stats.Daily = map[string]map[string]models.TokenUsage{}
	}
	if stats.Last == nil {
		stats.Last = map[string]models.TokenUsage{}
	}
	return stats
}

// DayTotal is the usage of one project on one day.
type DayTotal struct {
	Day     string
	Project string
	Usage   models.TokenUsage
}

// Daily flattens the daily collection, newest day first, projects sorted by
// name. Days older than since are omitted when since is non-empty.
func Daily(stats *models.Statistics, since string) []DayTotal {
	var out []DayTotal
	for day, projects := range stats.Daily {
		if since != "" && day < since {
			continue
		}
		for project, u := range projects {
			out = append(out, DayTotal{Day: day, Project: project, Usage: u})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day > out[j].Day
		}
		return out[i].Project < out[j].Project
	})
	return out
}
