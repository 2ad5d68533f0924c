package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/display"
	"github.com/watchfire-io/hookwatch/internal/models"
	"github.com/watchfire-io/hookwatch/internal/permission"
	"github.com/watchfire-io/hookwatch/internal/registry"
	"github.com/watchfire-io/hookwatch/internal/transcript"
	"github.com/watchfire-io/hookwatch/internal/usage"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session", "s"},
	Short:   "List and manage tracked sessions",
	RunE:    runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List sessions in display order",
	RunE:    runSessionsList,
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename [session-id] [name]",
	Short: "Set a custom name (empty name restores the default)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSessionsRename,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:     "delete [session-id]",
	Aliases: []string{"rm"},
	Short:   "Remove a session, its archive and pending requests",
	Args:    cobra.ExactArgs(1),
	RunE:    runSessionsDelete,
}

var sessionsSeenCmd = &cobra.Command{
	Use:   "seen [session-id]",
	Short: "Acknowledge a finished session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsSeen,
}

func init() {
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	sessionsCmd.AddCommand(sessionsSeenCmd)
}

func openRegistry() (*registry.Store, error) {
	return registry.Default(registry.WithBroadcaster(defaultBroadcaster()))
}

// resolveSession accepts a full id or an unambiguous prefix.
func resolveSession(reg *registry.Store, arg string) (*models.SessionRecord, error) {
	if rec, ok := reg.Get(arg); ok {
		return rec, nil
	}
	var match *models.SessionRecord
	for _, rec := range reg.Load() {
		if strings.HasPrefix(rec.ID, arg) {
			if match != nil {
				return nil, fmt.Errorf("session id %q is ambiguous", arg)
			}
			match = rec
		}
	}
	if match == nil {
		return nil, fmt.Errorf("session %q not found", arg)
	}
	return match, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}

	records := reg.Load()
	if len(records) == 0 {
		fmt.Println("No sessions. Configure 'hookwatch hook' as a hook command to start tracking.")
		return nil
	}

	now := time.Now()
	for _, rec := range records {
		fmt.Println(formatSessionRow(rec, reg.IsUnseen(rec), now))
	}
	return nil
}

// formatSessionRow renders one session line for the list command.
func formatSessionRow(rec *models.SessionRecord, unseen bool, now time.Time) string {
	marker := " "
	if unseen {
		marker = styleWarning.Render("*")
	}
	id := rec.ID
	if len(id) > 8 {
		id = id[:8]
	}
	row := fmt.Sprintf("%s %s  %-24s %s  %s",
		marker,
		styleHint.Render(id),
		truncate(rec.Name, 24),
		display.Status(rec.Status).Render(),
		styleLabel.Render(display.Duration(rec.Elapsed(now))),
	)
	if rec.LastPrompt != "" {
		row += "\n    " + styleHint.Render(truncate(rec.LastPrompt, 72))
	}
	return row
}

func runSessionsRename(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	rec, err := resolveSession(reg, args[0])
	if err != nil {
		return err
	}

	label := ""
	if len(args) == 2 {
		label = args[1]
	}
	if err := reg.Rename(rec.ID, label); err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	if updated, ok := reg.Get(rec.ID); ok {
		fmt.Printf("Session renamed to %s.\n", styleValue.Render(updated.Name))
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	rec, err := resolveSession(reg, args[0])
	if err != nil {
		return err
	}

	settings := config.LoadSettingsOrDefault()
	if gw, err := permission.Default(settings, defaultBroadcaster()); err == nil {
		if _, err := gw.DeletePending(rec.ID); err != nil {
			fmt.Println(styleWarning.Render("Warning:"), "failed to remove pending requests:", err)
		}
	}
	if archiver, err := transcript.DefaultArchiver(); err == nil {
		if err := archiver.Delete(rec.ID); err != nil {
			fmt.Println(styleWarning.Render("Warning:"), err)
		}
	}
	if stats, err := usage.DefaultRecorder(); err == nil {
		if err := stats.Forget(rec.ID); err != nil {
			fmt.Println(styleWarning.Render("Warning:"), "failed to update statistics:", err)
		}
	}

	if err := reg.Delete(rec.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Printf("Session %s deleted.\n", rec.Name)
	return nil
}

func runSessionsSeen(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	rec, err := resolveSession(reg, args[0])
	if err != nil {
		return err
	}
	if err := reg.MarkSeen(rec.ID); err != nil {
		return err
	}
	fmt.Println(styleSuccess.Render("✓"), rec.Name, "marked as seen.")
	return nil
}
