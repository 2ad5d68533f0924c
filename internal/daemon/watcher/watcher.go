// Package watcher handles file system watching for the daemon.
package watcher

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/permission"
)

// EventType represents the type of file system event.
type EventType int

// Event types for file system changes.
const (
	EventRegistryChanged EventType = iota // signal file or sessions.yaml rewritten
	EventPendingChanged                   // permission request added or removed
	EventSettingsChanged                  // settings.yaml rewritten
)

func (t EventType) String() string {
	switch t {
	case EventRegistryChanged:
		return "registry"
	case EventPendingChanged:
		return "pending"
	case EventSettingsChanged:
		return "settings"
	}
	return "unknown"
}

// DefaultDebounce is the quiet period before a burst of changes is reported.
const DefaultDebounce = 100 * time.Millisecond

// Event represents a coalesced file system change.
type Event struct {
	Type EventType
	Path string // Last path that triggered the event
}

// Watcher watches the state directory and coalesces bursts of writes into one
// event per type.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	eventsChan chan Event
	done       chan struct{}
	globalDir  string
	pendingDir string
	delay      time.Duration
	debounce   map[EventType]*time.Timer
	debounceMu sync.Mutex
	stopOnce   sync.Once
}

// New creates a watcher for globalDir and the gateway's pending directory.
func New(globalDir, pendingDir string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		fsWatcher:  fsWatcher,
		eventsChan: make(chan Event, 16),
		done:       make(chan struct{}),
		globalDir:  filepath.Clean(globalDir),
		pendingDir: filepath.Clean(pendingDir),
		delay:      debounce,
		debounce:   make(map[EventType]*time.Timer),
	}

	return w, nil
}

// Default creates a watcher for ~/.hookwatch.
func Default(debounce time.Duration) (*Watcher, error) {
	globalDir, err := config.GlobalDir()
	if err != nil {
		return nil, err
	}
	permDir, err := config.GlobalPermissionDir()
	if err != nil {
		return nil, err
	}
	return New(globalDir, filepath.Join(permDir, permission.PendingDirName), debounce)
}

// Events returns the channel for receiving events.
func (w *Watcher) Events() <-chan Event {
	return w.eventsChan
}

// Start starts the watcher. Missing directories are created so they can be
// watched before the first hook runs.
func (w *Watcher) Start() error {
	for _, dir := range []string{w.globalDir, w.pendingDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
	}
	log.Printf("[watcher] Watching %s and %s", w.globalDir, w.pendingDir)

	go w.processEvents()

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsWatcher.Close()

		w.debounceMu.Lock()
		for _, timer := range w.debounce {
			timer.Stop()
		}
		w.debounceMu.Unlock()
	})
}

// processEvents processes file system events.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] error: %v", err)
		}
	}
}

// handleEvent classifies a single file system event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Atomic writes land as Create or Rename on the target; withdrawn
	// requests show up as Remove.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	eventType, ok := w.classify(event.Name)
	if !ok {
		return
	}
	w.debounceEvent(eventType, event.Name)
}

func (w *Watcher) classify(path string) (EventType, bool) {
	filename := filepath.Base(path)
	dir := filepath.Dir(path)

	if strings.HasPrefix(filename, ".") {
		return 0, false // temp files of atomic writes
	}

	switch {
	case dir == w.pendingDir && filepath.Ext(filename) == ".json":
		return EventPendingChanged, true
	case dir == w.globalDir && (filename == config.SignalFileName || filename == config.SessionsFileName):
		return EventRegistryChanged, true
	case dir == w.globalDir && filename == config.SettingsFileName:
		return EventSettingsChanged, true
	}
	return 0, false
}

// debounceEvent coalesces events of the same type.
func (w *Watcher) debounceEvent(eventType EventType, path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.debounce[eventType]; ok {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(w.delay, func() {
		w.fire(eventType, timer, path)
	})
	w.debounce[eventType] = timer
}

// fire delivers a debounced event. The map entry is only cleared when it still
// belongs to timer, so Stop can reach a newer timer for the same type.
func (w *Watcher) fire(eventType EventType, timer *time.Timer, path string) {
	w.debounceMu.Lock()
	if w.debounce[eventType] == timer {
		delete(w.debounce, eventType)
	}
	w.debounceMu.Unlock()

	select {
	case w.eventsChan <- Event{Type: eventType, Path: path}:
	case <-w.done:
	}
}
