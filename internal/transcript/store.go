package transcript

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/watchfire-io/hookwatch/internal/models"
)

// DefaultCacheSize is the number of analysed archives kept in memory.
const DefaultCacheSize = 32

// History is a loaded archive with its grouping.
type History struct {
	Archive  *models.Archive
	Analysis *Analysis
}

type cachedHistory struct {
	history *History
	modTime time.Time
}

// Store serves archives to long-running consumers, caching the analysis of
// recently viewed sessions until the archive file changes.
type Store struct {
	archiver *Archiver
	cache    *lru.Cache[string, cachedHistory]
}

// NewStore creates a store holding up to size analysed archives.
func NewStore(archiver *Archiver, size int) (*Store, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cachedHistory](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive cache: %w", err)
	}
	return &Store{archiver: archiver, cache: cache}, nil
}

// Archiver returns the underlying archiver.
func (s *Store) Archiver() *Archiver {
	return s.archiver
}

// Get returns the history for sessionID.
func (s *Store) Get(sessionID string) (*History, error) {
	path := s.archiver.Path(sessionID)
	if info, err := os.Stat(path); err == nil {
		if c, ok := s.cache.Get(sessionID); ok && c.modTime.Equal(info.ModTime()) {
			return c.history, nil
		}
	}

	archive, err := s.archiver.Load(sessionID)
	if err != nil {
		s.cache.Remove(sessionID)
		return nil, err
	}
	return s.put(sessionID, archive), nil
}

// Refresh re-archives the transcript and returns the new history.
func (s *Store) Refresh(sessionID, transcriptPath string) (*History, error) {
	archive, err := s.archiver.Archive(sessionID, transcriptPath)
	if err != nil {
		return nil, err
	}
	return s.put(sessionID, archive), nil
}

// Forget drops the cached history for sessionID.
func (s *Store) Forget(sessionID string) {
	s.cache.Remove(sessionID)
}

func (s *Store) put(sessionID string, archive *models.Archive) *History {
	h := &History{Archive: archive, Analysis: Analyze(archive.Entries)}
	if info, err := os.Stat(s.archiver.Path(sessionID)); err == nil {
		s.cache.Add(sessionID, cachedHistory{history: h, modTime: info.ModTime()})
	}
	return h
}
