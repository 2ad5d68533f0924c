// Package registry is the persisted, ordered list of tracked sessions and the
// session lifecycle state machine.
//
// Every hook process and the long-running consumers share sessions.yaml.
// Mutations run as a read-modify-write cycle under a cross-process file lock,
// always re-reading the file inside the lock, so concurrent hooks for
// different sessions cannot overwrite each other's updates.
package registry

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/watchfire-io/hookwatch/internal/broadcast"
	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/models"
)

// Update describes a status transition.
type Update struct {
	Status        models.SessionStatus
	Prompt        *string // Recorded as LastPrompt when set
	Reorder       bool    // Move to the head of its working-directory group
	ResetDuration bool    // Start a fresh timer (new prompt)
}

// Store is the session registry.
type Store struct {
	path string
	lock *config.FileLock
	bc   broadcast.Broadcaster
	now  func() time.Time

	mu     sync.RWMutex
	loaded bool
	cache  []*models.SessionRecord
	index  map[string]int
	seen   map[string]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// WithBroadcaster sets the broadcaster signalled after each mutation.
func WithBroadcaster(b broadcast.Broadcaster) Option {
	return func(s *Store) { s.bc = b }
}

// New creates a registry backed by the YAML file at path.
func New(path string, opts ...Option) *Store {
	lockPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".lock"
	s := &Store{
		path: path,
		lock: config.NewFileLock(lockPath),
		bc:   broadcast.Nop{},
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Default creates a registry for ~/.hookwatch/sessions.yaml.
func Default(opts ...Option) (*Store, error) {
	path, err := config.GlobalSessionsFile()
	if err != nil {
		return nil, err
	}
	return New(path, opts...), nil
}

// Path returns the registry file path.
func (s *Store) Path() string {
	return s.path
}

// Invalidate drops the in-memory cache. Listeners call it on every external
// signal so the next read observes other processes' writes.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.cache = nil
	s.index = nil
	s.seen = nil
}

// Load returns the ordered records. The slice and records are copies.
func (s *Store) Load() []*models.SessionRecord {
	s.ensureLoaded()

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.SessionRecord, len(s.cache))
	for i, rec := range s.cache {
		out[i] = rec.Clone()
	}
	return out
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (*models.SessionRecord, bool) {
	s.ensureLoaded()

	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.cache[i].Clone(), true
}

// IsSeen reports whether the session was acknowledged.
func (s *Store) IsSeen(id string) bool {
	s.ensureLoaded()

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// IsUnseen reports whether rec is a finished session not yet acknowledged.
func (s *Store) IsUnseen(rec *models.SessionRecord) bool {
	return rec.Status == models.SessionStatusFinished && !s.IsSeen(rec.ID)
}

// UpsertStart records a session start. A known session keeps its display
// name; either way the record moves to the head of the list as idle.
func (s *Store) UpsertStart(id, cwd, transcriptPath string) error {
	if id == "" {
		return nil
	}
	now := s.now()
	return s.mutate(func(f *models.RegistryFile) bool {
		var rec *models.SessionRecord
		if i := indexOf(f.Sessions, id); i >= 0 {
			rec = f.Sessions[i]
			f.Sessions = removeAt(f.Sessions, i)
			if cwd != "" {
				rec.Cwd = cwd
				rec.Detail = cwd
			}
			foldTimer(rec, now)
		} else {
			rec = models.NewSessionRecord(id, defaultName(id, cwd), cwd, now)
		}
		rec.Status = models.SessionStatusIdle
		rec.UpdatedAt = now
		if transcriptPath != "" {
			rec.TranscriptPath = transcriptPath
		}
		f.Sessions = insertAt(f.Sessions, 0, rec)
		return true
	})
}

// UpdateStatus applies a status transition. Unknown ids are ignored.
func (s *Store) UpdateStatus(id string, u Update) error {
	if !u.Status.Valid() {
		return fmt.Errorf("invalid session status %q", u.Status)
	}
	now := s.now()
	return s.mutate(func(f *models.RegistryFile) bool {
		i := indexOf(f.Sessions, id)
		if i < 0 {
			return false
		}
		rec := f.Sessions[i]
		applyStatus(rec, u.Status, u.ResetDuration, now)
		if u.Prompt != nil {
			rec.LastPrompt = NormalizeText(*u.Prompt)
		}
		if u.Status == models.SessionStatusRunning {
			f.Seen = removeString(f.Seen, id)
		}
		rec.UpdatedAt = now

		f.Sessions = removeAt(f.Sessions, i)
		pos := i
		if u.Reorder {
			pos = groupPosition(f.Sessions, rec.Cwd)
		}
		f.Sessions = insertAt(f.Sessions, pos, rec)
		return true
	})
}

// UpdateArchiveSummary copies the transcript summary into the record.
// Empty values keep what the hooks already recorded.
func (s *Store) UpdateArchiveSummary(id string, lastPrompt, lastResponse *string) error {
	return s.mutate(func(f *models.RegistryFile) bool {
		i := indexOf(f.Sessions, id)
		if i < 0 {
			return false
		}
		rec := f.Sessions[i]
		changed := false
		if lastPrompt != nil {
			if p := NormalizeText(*lastPrompt); p != "" && p != rec.LastPrompt {
				rec.LastPrompt = p
				changed = true
			}
		}
		if lastResponse != nil {
			if r := NormalizeText(*lastResponse); r != "" && r != rec.LastResponse {
				rec.LastResponse = r
				changed = true
			}
		}
		return changed
	})
}

// Rename sets the display name. An empty label restores the default name.
func (s *Store) Rename(id, label string) error {
	label = strings.TrimSpace(label)
	return s.mutate(func(f *models.RegistryFile) bool {
		i := indexOf(f.Sessions, id)
		if i < 0 {
			return false
		}
		rec := f.Sessions[i]
		if label == "" {
			label = defaultName(rec.ID, rec.Cwd)
		}
		if rec.Name == label {
			return false
		}
		rec.Name = label
		return true
	})
}

// Delete removes the record and its seen marker.
func (s *Store) Delete(id string) error {
	return s.mutate(func(f *models.RegistryFile) bool {
		i := indexOf(f.Sessions, id)
		if i < 0 {
			return false
		}
		f.Sessions = removeAt(f.Sessions, i)
		f.Seen = removeString(f.Seen, id)
		return true
	})
}

// MarkSeen acknowledges a session.
func (s *Store) MarkSeen(id string) error {
	return s.mutate(func(f *models.RegistryFile) bool {
		if indexOf(f.Sessions, id) < 0 || containsString(f.Seen, id) {
			return false
		}
		f.Seen = append(f.Seen, id)
		return true
	})
}

// MarkUnseen clears the acknowledgement.
func (s *Store) MarkUnseen(id string) error {
	return s.mutate(func(f *models.RegistryFile) bool {
		if !containsString(f.Seen, id) {
			return false
		}
		f.Seen = removeString(f.Seen, id)
		return true
	})
}

// mutate runs fn on a fresh copy of the file under the lock, persists it when
// fn reports a change, refreshes the cache and broadcasts.
func (s *Store) mutate(fn func(f *models.RegistryFile) bool) error {
	changed := false
	err := s.lock.With(func() error {
		f := s.readFile()
		changed = fn(f)
		if changed {
			if err := config.SaveYAML(s.path, f); err != nil {
				return fmt.Errorf("failed to save registry: %w", err)
			}
		}
		s.setCache(f)
		return nil
	})
	if err != nil {
		return err
	}
	if changed {
		s.bc.Signal()
	}
	return nil
}

func (s *Store) ensureLoaded() {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return
	}
	s.setCache(s.readFile())
}

// readFile reads sessions.yaml. Missing or unreadable files read as empty.
func (s *Store) readFile() *models.RegistryFile {
	f, err := config.LoadYAMLOrDefault(s.path, models.NewRegistryFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[registry] treating unreadable registry as empty: %v", err)
		}
		return models.NewRegistryFile()
	}
	if f.Sessions == nil {
		f.Sessions = []*models.SessionRecord{}
	}
	// Drop nil or duplicate entries left by hand edits.
	clean := f.Sessions[:0]
	ids := make(map[string]struct{}, len(f.Sessions))
	for _, rec := range f.Sessions {
		if rec == nil || rec.ID == "" {
			continue
		}
		if _, dup := ids[rec.ID]; dup {
			continue
		}
		ids[rec.ID] = struct{}{}
		clean = append(clean, rec)
	}
	f.Sessions = clean
	return f
}

func (s *Store) setCache(f *models.RegistryFile) {
	index := make(map[string]int, len(f.Sessions))
	cache := make([]*models.SessionRecord, len(f.Sessions))
	for i, rec := range f.Sessions {
		cache[i] = rec.Clone()
		index[rec.ID] = i
	}
	seen := make(map[string]struct{}, len(f.Seen))
	for _, id := range f.Seen {
		seen[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = cache
	s.index = index
	s.seen = seen
	s.loaded = true
}
