package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/models"
)

// ArchiveVersion is the current archive format.
const ArchiveVersion = 1

// Archiver persists parsed transcripts under archives/<sha256(session)>.json.
type Archiver struct {
	dir string
	now func() time.Time
}

// NewArchiver creates an archiver writing into dir.
func NewArchiver(dir string) *Archiver {
	return &Archiver{
		dir: dir,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// DefaultArchiver creates an archiver for ~/.hookwatch/archives.
func DefaultArchiver() (*Archiver, error) {
	dir, err := config.GlobalArchivesDir()
	if err != nil {
		return nil, err
	}
	return NewArchiver(dir), nil
}

// Dir returns the archive directory.
func (a *Archiver) Dir() string {
	return a.dir
}

// ArchiveKey returns the opaque file key for a session id.
func ArchiveKey(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}

// Path returns the archive path for sessionID.
func (a *Archiver) Path(sessionID string) string {
	return filepath.Join(a.dir, ArchiveKey(sessionID)+".json")
}

// legacyPath returns the unhashed archive path, or "" when the id cannot be
// used as a file name.
func (a *Archiver) legacyPath(sessionID string) string {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return ""
	}
	return filepath.Join(a.dir, sessionID+".json")
}

// Archive parses the transcript and writes the archive for sessionID.
func (a *Archiver) Archive(sessionID, transcriptPath string) (*models.Archive, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	if transcriptPath == "" {
		return nil, errors.New("transcript path is required")
	}

	entries, err := ParseFile(transcriptPath)
	if err != nil {
		if entries == nil {
			return nil, err
		}
		log.Printf("[transcript] partial parse of %s: %v", transcriptPath, err)
	}

	archive := &models.Archive{
		Version:        ArchiveVersion,
		SessionID:      sessionID,
		TranscriptPath: transcriptPath,
		ArchivedAt:     a.now(),
		Entries:        entries,
		Summary:        Summarize(entries),
	}
	if archive.Entries == nil {
		archive.Entries = []models.TranscriptEntry{}
	}
	if err := config.SaveJSON(a.Path(sessionID), archive); err != nil {
		return nil, fmt.Errorf("failed to save archive: %w", err)
	}
	return archive, nil
}

// Load reads the archive for sessionID. An archive still stored under the
// legacy unhashed name is moved to the hashed name on first load.
func (a *Archiver) Load(sessionID string) (*models.Archive, error) {
	var archive models.Archive
	err := config.LoadJSON(a.Path(sessionID), &archive)
	if err == nil {
		return &archive, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	legacy := a.legacyPath(sessionID)
	if legacy == "" {
		return nil, err
	}
	if lerr := config.LoadJSON(legacy, &archive); lerr != nil {
		return nil, err
	}
	if archive.SessionID == "" {
		archive.SessionID = sessionID
	}
	if archive.Version == 0 {
		archive.Version = ArchiveVersion
	}
	if werr := config.SaveJSON(a.Path(sessionID), &archive); werr != nil {
		log.Printf("[transcript] failed to migrate legacy archive %s: %v", legacy, werr)
		return &archive, nil
	}
	if rerr := os.Remove(legacy); rerr != nil {
		log.Printf("[transcript] failed to remove legacy archive %s: %v", legacy, rerr)
	}
	return &archive, nil
}

// Delete removes the archive for sessionID in both layouts.
func (a *Archiver) Delete(sessionID string) error {
	paths := []string{a.Path(sessionID)}
	if legacy := a.legacyPath(sessionID); legacy != "" {
		paths = append(paths, legacy)
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete archive: %w", err)
		}
	}
	return nil
}
