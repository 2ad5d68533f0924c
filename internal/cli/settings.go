package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/models"
)

var settingsCmd = &cobra.Command{
	Use:     "settings",
	Aliases: []string{"config"},
	Short:   "Show or update global settings",
	Long: `Show or update ~/.hookwatch/settings.yaml.

Without flags the current settings are printed. Daemon settings take effect
after the daemon restarts.`,
	RunE: runSettings,
}

var (
	setInteractive   bool
	setNotifications bool
	setNotifyTools   string
	setCapture       bool
	setCaptureSize   int
	setPollInterval  int
	setMaxWait       int
	setRequestTTL    int
	setMetricsListen string
)

func init() {
	f := settingsCmd.Flags()
	f.BoolVar(&setInteractive, "interactive", true, "Hand permission prompts to hookwatch")
	f.BoolVar(&setNotifications, "notifications", true, "Send desktop notifications")
	f.StringVar(&setNotifyTools, "notify-tools", "", "Comma-separated tool names that trigger a notice")
	f.BoolVar(&setCapture, "debug-capture", false, "Keep a ring of raw hook events")
	f.IntVar(&setCaptureSize, "debug-capture-size", 0, "Number of captured events kept")
	f.IntVar(&setPollInterval, "poll-interval-ms", 0, "Permission poll interval")
	f.IntVar(&setMaxWait, "max-wait-seconds", 0, "Maximum permission wait (0 for no limit)")
	f.IntVar(&setRequestTTL, "request-ttl-hours", 0, "Age after which stale permission files are removed")
	f.StringVar(&setMetricsListen, "metrics-listen", "", "Daemon metrics address (empty disables)")
}

func runSettings(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	f := cmd.Flags()
	changed := false
	if f.Changed("interactive") {
		settings.Permissions.Interactive = setInteractive
		changed = true
	}
	if f.Changed("notifications") {
		settings.Notifications.Enabled = setNotifications
		changed = true
	}
	if f.Changed("notify-tools") {
		settings.Notifications.Tools = splitList(setNotifyTools)
		changed = true
	}
	if f.Changed("debug-capture") {
		settings.Debug.Capture = setCapture
		changed = true
	}
	if f.Changed("debug-capture-size") {
		settings.Debug.CaptureSize = setCaptureSize
		changed = true
	}
	if f.Changed("poll-interval-ms") {
		settings.Permissions.PollIntervalMs = setPollInterval
		changed = true
	}
	if f.Changed("max-wait-seconds") {
		settings.Permissions.MaxWaitSeconds = setMaxWait
		changed = true
	}
	if f.Changed("request-ttl-hours") {
		settings.Permissions.RequestTTLHours = setRequestTTL
		changed = true
	}
	if f.Changed("metrics-listen") {
		settings.Daemon.MetricsListen = setMetricsListen
		changed = true
	}

	if changed {
		settings.ApplyDefaults()
		if err := config.SaveSettings(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		fmt.Println(styleSuccess.Render("✓"), "Settings updated.")
	}

	printSettings(settings)
	return nil
}

func printSettings(s *models.Settings) {
	row := func(label string, value any) {
		fmt.Printf("  %s %s\n", styleLabel.Render(fmt.Sprintf("%-22s", label)), styleValue.Render(fmt.Sprint(value)))
	}
	fmt.Println(styleHeader.Render("Permissions"))
	row("interactive", s.Permissions.Interactive)
	row("poll_interval_ms", s.Permissions.PollIntervalMs)
	row("max_wait_seconds", s.Permissions.MaxWaitSeconds)
	row("request_ttl_hours", s.Permissions.RequestTTLHours)
	fmt.Println(styleHeader.Render("Notifications"))
	row("enabled", s.Notifications.Enabled)
	row("tools", strings.Join(s.Notifications.Tools, ", "))
	fmt.Println(styleHeader.Render("Debug"))
	row("capture", s.Debug.Capture)
	row("capture_size", s.Debug.CaptureSize)
	fmt.Println(styleHeader.Render("Daemon"))
	row("reload_debounce_ms", s.Daemon.ReloadDebounceMs)
	row("cleanup_interval_min", s.Daemon.CleanupIntervalMinutes)
	listen := s.Daemon.MetricsListen
	if listen == "" {
		listen = "disabled"
	}
	row("metrics_listen", listen)
}

// splitList parses a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
