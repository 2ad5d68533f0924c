// Package permission implements the file-based request/response channel that
// lets a blocking hook process hand an interactive decision to a long-running
// consumer.
//
// Requests live in pending/<id>.json (hook to app) and answers in
// response/<id>.json (app to hook). A request is pending exactly while its
// file exists, so deleting the pending file is the only cancellation signal.
package permission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/watchfire-io/hookwatch/internal/broadcast"
	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/models"
)

const (
	// PendingDirName holds requests waiting for a decision.
	PendingDirName = "pending"
	// ResponseDirName holds decisions not yet consumed by the hook.
	ResponseDirName = "response"

	// DefaultPollInterval is used when Options.PollInterval is zero.
	DefaultPollInterval = 300 * time.Millisecond
)

// ErrWaitAbandoned is returned when the hook stops waiting without an answer:
// the context ended, the maximum wait elapsed, or the parent process is gone.
// The pending request is withdrawn before it is returned.
var ErrWaitAbandoned = errors.New("permission wait abandoned")

// Options configures a Gateway.
type Options struct {
	PollInterval time.Duration
	MaxWait      time.Duration    // Zero waits until cancelled
	Orphaned     func() bool      // Reports that the waiting process lost its parent
	Clock        func() time.Time // Defaults to time.Now
}

// Gateway is the permission request/response channel rooted at a directory.
type Gateway struct {
	pendingDir  string
	responseDir string
	opts        Options
	bc          broadcast.Broadcaster
}

// New creates a gateway rooted at baseDir.
func New(baseDir string, opts Options, bc broadcast.Broadcaster) *Gateway {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if bc == nil {
		bc = broadcast.Nop{}
	}
	return &Gateway{
		pendingDir:  filepath.Join(baseDir, PendingDirName),
		responseDir: filepath.Join(baseDir, ResponseDirName),
		opts:        opts,
		bc:          bc,
	}
}

// Default creates a gateway under ~/.hookwatch/permission using settings for
// the poll interval and maximum wait.
func Default(settings *models.Settings, bc broadcast.Broadcaster) (*Gateway, error) {
	dir, err := config.GlobalPermissionDir()
	if err != nil {
		return nil, err
	}
	return New(dir, Options{
		PollInterval: settings.Permissions.PollInterval(),
		MaxWait:      settings.Permissions.MaxWait(),
	}, bc), nil
}

// PendingDir returns the directory of pending requests.
func (g *Gateway) PendingDir() string {
	return g.pendingDir
}

// ResponseDir returns the directory of unconsumed responses.
func (g *Gateway) ResponseDir() string {
	return g.responseDir
}

// SubmitRequest writes a pending request and returns its id without waiting.
func (g *Gateway) SubmitRequest(sessionID, toolName, cwd string, questions []models.Question) (string, error) {
	req := &models.PermissionRequest{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		ToolName:  toolName,
		Cwd:       cwd,
		CreatedAt: g.opts.Clock(),
		Questions: questions,
	}
	if err := config.SaveJSON(g.pendingPath(req.ID), req); err != nil {
		return "", fmt.Errorf("failed to write permission request: %w", err)
	}
	g.bc.Signal()
	return req.ID, nil
}

// ListPending returns the well-formed pending requests, newest first.
// Malformed files are skipped.
func (g *Gateway) ListPending() ([]*models.PermissionRequest, error) {
	entries, err := os.ReadDir(g.pendingDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pending requests: %w", err)
	}

	var requests []*models.PermissionRequest
	for _, entry := range entries {
		id, ok := requestID(entry)
		if !ok {
			continue
		}
		req, err := g.readRequest(id)
		if err != nil {
			continue
		}
		requests = append(requests, req)
	}

	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

// Get returns the pending request with the given id.
func (g *Gateway) Get(id string) (*models.PermissionRequest, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return g.readRequest(id)
}

// Respond answers a request: the response is written first, then the pending
// file is removed. Answering a request that is no longer pending is a no-op,
// since no hook is left to consume the response.
func (g *Gateway) Respond(id string, decision models.Decision, message string, answers map[string]string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if _, ok := models.ParseDecision(string(decision)); !ok {
		return fmt.Errorf("invalid decision %q", decision)
	}
	if !config.FileExists(g.pendingPath(id)) {
		return nil
	}

	resp := &models.PermissionResponse{
		ID:          id,
		Decision:    decision,
		Message:     message,
		Answers:     answers,
		RespondedAt: g.opts.Clock(),
	}
	if err := config.SaveJSON(g.responsePath(id), resp); err != nil {
		return fmt.Errorf("failed to write permission response: %w", err)
	}
	if err := os.Remove(g.pendingPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove pending request: %w", err)
	}
	g.bc.Signal()
	return nil
}

// WaitForResponse blocks until the request is answered or withdrawn.
//
// It returns the response once it has been consumed, or nil when the pending
// file disappeared without an answer (the request was handled elsewhere).
// Abandoning the wait withdraws the request and returns ErrWaitAbandoned.
func (g *Gateway) WaitForResponse(ctx context.Context, id string) (*models.PermissionResponse, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(g.opts.PollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if g.opts.MaxWait > 0 {
		timer := time.NewTimer(g.opts.MaxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		if resp := g.takeResponse(id); resp != nil {
			return resp, nil
		}
		if !config.FileExists(g.pendingPath(id)) {
			// Respond writes the response before removing the request, but
			// the response may have landed between the two checks above.
			if resp := g.takeResponse(id); resp != nil {
				return resp, nil
			}
			return nil, nil
		}
		if g.opts.Orphaned != nil && g.opts.Orphaned() {
			g.withdraw(id)
			return nil, fmt.Errorf("%w: parent process exited", ErrWaitAbandoned)
		}

		select {
		case <-ctx.Done():
			g.withdraw(id)
			return nil, fmt.Errorf("%w: %v", ErrWaitAbandoned, ctx.Err())
		case <-deadline:
			g.withdraw(id)
			return nil, fmt.Errorf("%w: no response after %s", ErrWaitAbandoned, g.opts.MaxWait)
		case <-ticker.C:
		}
	}
}

// DeletePending removes every pending request owned by sessionID and
// returns how many were removed.
func (g *Gateway) DeletePending(sessionID string) (int, error) {
	requests, err := g.ListPending()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, req := range requests {
		if req.SessionID != sessionID {
			continue
		}
		if err := os.Remove(g.pendingPath(req.ID)); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Printf("[permission] failed to remove request %s: %v", req.ID, err)
			}
			continue
		}
		removed++
	}
	if removed > 0 {
		g.bc.Signal()
	}
	return removed, nil
}

// CleanupExpired removes requests and responses older than maxAge. Age comes
// from the recorded timestamp, or the file modification time when the file
// cannot be parsed.
func (g *Gateway) CleanupExpired(maxAge time.Duration) (int, error) {
	cutoff := g.opts.Clock().Add(-maxAge)
	removed := 0
	for _, dir := range []string{g.pendingDir, g.responseDir} {
		n, err := g.cleanupDir(dir, cutoff)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	if removed > 0 {
		g.bc.Signal()
	}
	return removed, nil
}

func (g *Gateway) cleanupDir(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		stamp, ok := fileTimestamp(path)
		if !ok {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			stamp = info.ModTime()
		}
		if !stamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Printf("[permission] failed to remove expired %s: %v", path, err)
			}
			continue
		}
		removed++
	}
	return removed, nil
}

// takeResponse reads and deletes the response for id. A response that
// cannot be parsed is discarded.
func (g *Gateway) takeResponse(id string) *models.PermissionResponse {
	path := g.responsePath(id)
	var resp models.PermissionResponse
	if err := config.LoadJSON(path, &resp); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[permission] discarding unreadable response %s: %v", id, err)
			os.Remove(path)
		}
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[permission] failed to consume response %s: %v", id, err)
	}
	return &resp
}

// withdraw removes the request and any response that raced with it.
func (g *Gateway) withdraw(id string) {
	for _, path := range []string{g.pendingPath(id), g.responsePath(id)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("[permission] failed to withdraw %s: %v", path, err)
		}
	}
	g.bc.Signal()
}

func (g *Gateway) readRequest(id string) (*models.PermissionRequest, error) {
	var req models.PermissionRequest
	if err := config.LoadJSON(g.pendingPath(id), &req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = id
	}
	return &req, nil
}

func (g *Gateway) pendingPath(id string) string {
	return filepath.Join(g.pendingDir, id+".json")
}

func (g *Gateway) responsePath(id string) string {
	return filepath.Join(g.responseDir, id+".json")
}

// requestID extracts the id from a pending file name, skipping temp files.
func requestID(entry os.DirEntry) (string, bool) {
	name := entry.Name()
	if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(name, ".json"), true
}

// validateID rejects ids that are not UUIDs so they cannot escape the
// gateway directories.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid request id %q: %w", id, err)
	}
	return nil
}

// fileTimestamp reads created_at or responded_at from a gateway file.
func fileTimestamp(path string) (time.Time, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, false
	}
	var stamps struct {
		CreatedAt   time.Time `json:"created_at"`
		RespondedAt time.Time `json:"responded_at"`
	}
	if err := json.Unmarshal(data, &stamps); err != nil {
		return time.Time{}, false
	}
	switch {
	case !stamps.CreatedAt.IsZero():
		return stamps.CreatedAt, true
	case !stamps.RespondedAt.IsZero():
		return stamps.RespondedAt, true
	}
	return time.Time{}, false
}
