// Package tui implements the interactive hookwatch dashboard.
package tui

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/watchfire-io/hookwatch/internal/broadcast"
	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/daemon/monitor"
	"github.com/watchfire-io/hookwatch/internal/daemon/watcher"
	"github.com/watchfire-io/hookwatch/internal/permission"
	"github.com/watchfire-io/hookwatch/internal/registry"
	"github.com/watchfire-io/hookwatch/internal/transcript"
	"github.com/watchfire-io/hookwatch/internal/usage"
)

// programRef is a shared reference to the tea.Program for goroutine sends.
// It's set after tea.NewProgram but before p.Run().
type programRef struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *programRef) Set(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = p
}

func (r *programRef) Send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Clear nils out the program reference, preventing post-exit sends.
func (r *programRef) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = nil
}

// backend is the state the dashboard reads and mutates.
type backend struct {
	monitor  *monitor.Monitor
	registry *registry.Store
	gateway  *permission.Gateway
	history  *transcript.Store
	stats    *usage.Recorder
}

func newBackend() (*backend, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	bc, err := broadcast.Default()
	if err != nil {
		return nil, err
	}
	reg, err := registry.Default(registry.WithBroadcaster(bc))
	if err != nil {
		return nil, err
	}
	gw, err := permission.Default(settings, bc)
	if err != nil {
		return nil, err
	}
	archiver, err := transcript.DefaultArchiver()
	if err != nil {
		return nil, err
	}
	history, err := transcript.NewStore(archiver, transcript.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	stats, err := usage.DefaultRecorder()
	if err != nil {
		return nil, err
	}

	return &backend{
		// Expired-file cleanup is left to the daemon.
		monitor:  monitor.New(monitor.Options{Registry: reg, Gateway: gw}),
		registry: reg,
		gateway:  gw,
		history:  history,
		stats:    stats,
	}, nil
}

// Run launches the dashboard and blocks until it exits.
func Run() error {
	if err := config.EnsureGlobalDir(); err != nil {
		return err
	}
	// Keep library log lines off the alternate screen.
	if err := config.EnsureGlobalLogsDir(); err == nil {
		if dir, err := config.GlobalLogsDir(); err == nil {
			if f, err := tea.LogToFile(filepath.Join(dir, "tui.log"), "[tui] "); err == nil {
				defer f.Close()
			}
		}
	}

	be, err := newBackend()
	if err != nil {
		return err
	}

	settings := config.LoadSettingsOrDefault()
	w, err := watcher.Default(time.Duration(settings.Daemon.ReloadDebounceMs) * time.Millisecond)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	ref := &programRef{}
	defer ref.Clear()
	be.monitor.Subscribe(func(s monitor.Snapshot) {
		ref.Send(snapshotMsg{snapshot: s})
	})

	p := tea.NewProgram(NewModel(be), tea.WithAltScreen())

	// Store program reference for goroutine sends
	ref.Set(p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go be.monitor.Run(ctx, w.Events())

	if _, err := p.Run(); err != nil {
		log.Printf("program exited: %v", err)
		return err
	}
	return nil
}
