// Package broadcast implements the payload-less "registry changed" signal
// shared between hook processes and long-running listeners.
//
// A signal is a rewrite of a single file. Listeners watch it with fsnotify and
// re-read full state, so lost or coalesced signals are harmless.
package broadcast

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/watchfire-io/hookwatch/internal/config"
)

// Broadcaster announces that shared state changed.
type Broadcaster interface {
	Signal()
}

// File is a Broadcaster backed by a signal file.
type File struct {
	path string
}

// NewFile returns a broadcaster that rewrites the file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Default returns a broadcaster for ~/.hookwatch/signal.
func Default() (*File, error) {
	path, err := config.GlobalSignalFile()
	if err != nil {
		return nil, err
	}
	return NewFile(path), nil
}

// Path returns the signal file path.
func (f *File) Path() string {
	return f.path
}

// Signal rewrites the signal file. Failures are logged and dropped.
func (f *File) Signal() {
	payload := fmt.Sprintf("%d %d\n", time.Now().UnixNano(), os.Getpid())
	if err := config.WriteFileAtomic(f.path, []byte(payload)); err != nil {
		log.Printf("[broadcast] signal failed: %v", err)
	}
}

// Nop discards signals.
type Nop struct{}

// Signal does nothing.
func (Nop) Signal() {}

// Func adapts a function to Broadcaster.
type Func func()

// Signal calls f.
func (f Func) Signal() { f() }
