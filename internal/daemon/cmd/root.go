// Package cmd implements the hookwatchd command line.
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/hookwatch/internal/broadcast"
	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/daemon/monitor"
	"github.com/watchfire-io/hookwatch/internal/daemon/server"
	"github.com/watchfire-io/hookwatch/internal/daemon/tray"
	"github.com/watchfire-io/hookwatch/internal/daemon/watcher"
	"github.com/watchfire-io/hookwatch/internal/models"
	"github.com/watchfire-io/hookwatch/internal/permission"
	"github.com/watchfire-io/hookwatch/internal/registry"
)

var (
	foreground    bool
	metricsListen string
)

var rootCmd = &cobra.Command{
	Use:           "hookwatchd",
	Short:         "hookwatch daemon: tray, metrics and live session feed",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDaemon,
}

func init() {
	rootCmd.Flags().BoolVar(&foreground, "foreground", false, "Run in foreground (no system tray)")
	rootCmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Address for /metrics and /ws (overrides settings)")
}

// Execute runs the daemon command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

// daemon holds the running components.
type daemon struct {
	settings *models.Settings
	monitor  *monitor.Monitor
	watcher  *watcher.Watcher
	server   *server.Server
	cancel   context.CancelFunc
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.SetPrefix("[hookwatchd] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := config.EnsureGlobalDir(); err != nil {
		return fmt.Errorf("failed to create global directory: %w", err)
	}

	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon already running (PID %d)", info.PID)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if cmd.Flags().Changed("metrics-listen") {
		settings.Daemon.MetricsListen = metricsListen
	}

	if foreground {
		log.Println("Running in foreground mode (no system tray)")
		return runForeground(settings)
	}
	log.Println("Running in background mode (with system tray)")
	runWithTray(settings)
	return nil
}

func newDaemon(settings *models.Settings) (*daemon, error) {
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

	mon := monitor.New(monitor.Options{
		Registry:        reg,
		Gateway:         gw,
		RequestTTL:      settings.Permissions.RequestTTL(),
		CleanupInterval: time.Duration(settings.Daemon.CleanupIntervalMinutes) * time.Minute,
	})

	w, err := watcher.Default(time.Duration(settings.Daemon.ReloadDebounceMs) * time.Millisecond)
	if err != nil {
		return nil, err
	}

	d := &daemon{settings: settings, monitor: mon, watcher: w}
	if addr := settings.Daemon.MetricsListen; addr != "" {
		d.server, err = server.New(addr, mon)
		if err != nil {
			w.Stop()
			return nil, err
		}
	}
	return d, nil
}

// start launches the watcher, monitor loop and optional server.
// errCh receives a server failure.
func (d *daemon) start(errCh chan<- error) error {
	if err := d.watcher.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go d.monitor.Run(ctx, d.watcher.Events())

	listen := ""
	if d.server != nil {
		listen = d.server.Addr()
		go func() {
			if err := d.server.Serve(); err != nil {
				errCh <- err
			}
		}()
	}

	if err := config.SaveDaemonInfo(models.NewDaemonInfo(os.Getpid(), listen)); err != nil {
		return fmt.Errorf("failed to write daemon info: %w", err)
	}

	if listen != "" {
		log.Printf("Daemon started, metrics on %s (PID %d)", listen, os.Getpid())
	} else {
		log.Printf("Daemon started (PID %d)", os.Getpid())
	}
	return nil
}

func (d *daemon) stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.watcher.Stop()
	if d.server != nil {
		d.server.Stop()
	}
	if err := config.RemoveDaemonInfo(); err != nil {
		log.Printf("Failed to remove daemon info: %v", err)
	}
	fmt.Println("Daemon stopped")
}

func (d *daemon) listenAddr() string {
	if d.server == nil {
		return ""
	}
	return d.server.Addr()
}

// runForeground runs the daemon without a system tray, blocking on signals.
func runForeground(settings *models.Settings) error {
	d, err := newDaemon(settings)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	if err := d.start(errCh); err != nil {
		d.stop()
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case err := <-errCh:
		log.Printf("Server error: %v", err)
	}

	d.stop()
	return nil
}

// runWithTray runs the daemon with a system tray icon on the main goroutine.
// systray.Run must occupy the main goroutine on macOS (Cocoa requirement).
func runWithTray(settings *models.Settings) {
	d, err := newDaemon(settings)
	if err != nil {
		log.Fatalf("Failed to create daemon: %v", err)
	}

	d.monitor.Subscribe(func(monitor.Snapshot) { tray.Refresh() })
	state := server.NewTrayState(d.monitor, d.listenAddr())

	onStart := func() {
		errCh := make(chan error, 1)
		if err := d.start(errCh); err != nil {
			log.Printf("Failed to start daemon: %v", err)
			tray.Quit()
			return
		}

		go func() {
			err := <-errCh
			log.Printf("Server error: %v", err)
			tray.Quit()
		}()

		// Handle OS signals; quit tray on SIGINT/SIGTERM
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			log.Printf("Received signal %v, shutting down...", sig)
			tray.Quit()
		}()
	}

	// This blocks the main goroutine until tray exits.
	tray.Run(state, onStart, d.stop)
}
