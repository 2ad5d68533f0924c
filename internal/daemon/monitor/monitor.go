// Package monitor keeps the daemon's view of sessions and pending permission
// requests current.
//
// Hook processes announce changes through the signal file. The monitor never
// applies deltas: every coalesced signal re-reads the registry and the
// pending directory, so missed or reordered signals correct themselves.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/watchfire-io/hookwatch/internal/daemon/watcher"
	"github.com/watchfire-io/hookwatch/internal/models"
	"github.com/watchfire-io/hookwatch/internal/permission"
	"github.com/watchfire-io/hookwatch/internal/registry"
)

// Snapshot is the full state published to the tray, metrics and websocket
// clients.
type Snapshot struct {
	Sessions  []*models.SessionRecord     `json:"sessions"`
	Pending   []*models.PermissionRequest `json:"pending"`
	Unseen    []string                    `json:"unseen"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// CountByStatus returns the number of sessions per status.
func (s Snapshot) CountByStatus() map[models.SessionStatus]int {
	counts := make(map[models.SessionStatus]int)
	for _, rec := range s.Sessions {
		counts[rec.Status]++
	}
	return counts
}

// Session returns the session with id, if present.
func (s Snapshot) Session(id string) (*models.SessionRecord, bool) {
	for _, rec := range s.Sessions {
		if rec.ID == id {
			return rec, true
		}
	}
	return nil, false
}

// Options configures a Monitor.
type Options struct {
	Registry        *registry.Store
	Gateway         *permission.Gateway
	RequestTTL      time.Duration // Age after which gateway files are removed
	CleanupInterval time.Duration // Zero disables periodic cleanup
}

// Monitor owns the latest Snapshot.
type Monitor struct {
	registry        *registry.Store
	gateway         *permission.Gateway
	requestTTL      time.Duration
	cleanupInterval time.Duration

	mu       sync.RWMutex
	snapshot Snapshot
	subs     []func(Snapshot)
}

// New creates a monitor.
func New(opts Options) *Monitor {
	return &Monitor{
		registry:        opts.Registry,
		gateway:         opts.Gateway,
		requestTTL:      opts.RequestTTL,
		cleanupInterval: opts.CleanupInterval,
	}
}

// Subscribe registers fn to receive every new snapshot.
func (m *Monitor) Subscribe(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Snapshot returns the latest snapshot.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Reload re-reads the registry and the pending directory and publishes the
// result.
func (m *Monitor) Reload() Snapshot {
	m.registry.Invalidate()
	sessions := m.registry.Load()

	pending, err := m.gateway.ListPending()
	if err != nil {
		log.Printf("[monitor] failed to list pending requests: %v", err)
	}

	var unseen []string
	for _, rec := range sessions {
		if m.registry.IsUnseen(rec) {
			unseen = append(unseen, rec.ID)
		}
	}

	snap := Snapshot{
		Sessions:  sessions,
		Pending:   pending,
		Unseen:    unseen,
		UpdatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.snapshot = snap
	subs := append([]func(Snapshot){}, m.subs...)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

// Run reloads on every watcher event and cleans up expired gateway files
// until ctx is done.
func (m *Monitor) Run(ctx context.Context, events <-chan watcher.Event) {
	m.cleanup()
	m.Reload()

	var tick <-chan time.Time
	if m.cleanupInterval > 0 {
		ticker := time.NewTicker(m.cleanupInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case watcher.EventRegistryChanged, watcher.EventPendingChanged:
				m.Reload()
			case watcher.EventSettingsChanged:
				log.Printf("[monitor] settings changed; restart the daemon to apply daemon settings")
			}
		case <-tick:
			if m.cleanup() > 0 {
				m.Reload()
			}
		}
	}
}

// Answer responds to a pending request and republishes state.
func (m *Monitor) Answer(id string, decision models.Decision, message string, answers map[string]string) error {
	if err := m.gateway.Respond(id, decision, message, answers); err != nil {
		return err
	}
	m.Reload()
	return nil
}

// MarkSeen acknowledges a finished session.
func (m *Monitor) MarkSeen(id string) error {
	if err := m.registry.MarkSeen(id); err != nil {
		return err
	}
	m.Reload()
	return nil
}

func (m *Monitor) cleanup() int {
	if m.requestTTL <= 0 {
		return 0
	}
	removed, err := m.gateway.CleanupExpired(m.requestTTL)
	if err != nil {
		log.Printf("[monitor] cleanup failed: %v", err)
	}
	if removed > 0 {
		log.Printf("[monitor] removed %d expired permission files", removed)
	}
	return removed
}
