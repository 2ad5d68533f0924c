package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/hookwatch/internal/display"
	"github.com/watchfire-io/hookwatch/internal/models"
	"github.com/watchfire-io/hookwatch/internal/transcript"
)

var transcriptCmd = &cobra.Command{
	Use:     "transcript",
	Aliases: []string{"history"},
	Short:   "Show and archive session transcripts",
}

var transcriptShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show the conversation history of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscriptShow,
}

var transcriptArchiveCmd = &cobra.Command{
	Use:   "archive [session-id]",
	Short: "Re-archive a session from its raw transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscriptArchive,
}

var showAll bool

func init() {
	transcriptShowCmd.Flags().BoolVarP(&showAll, "all", "a", false, "Include tool traffic and intermediate replies")

	transcriptCmd.AddCommand(transcriptArchiveCmd)
	transcriptCmd.AddCommand(transcriptShowCmd)
}

func runTranscriptShow(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	rec, err := resolveSession(reg, args[0])
	if err != nil {
		return err
	}

	store, err := openTranscriptStore()
	if err != nil {
		return err
	}
	history, err := store.Get(rec.ID)
	if err != nil {
		return fmt.Errorf("no archive for %s; run 'hookwatch transcript archive %s'", rec.Name, args[0])
	}

	for _, item := range display.History(history.Analysis, showAll) {
		fmt.Println(formatHistoryItem(item))
		fmt.Println()
	}
	fmt.Printf("%s %s\n", styleLabel.Render("Total tokens:"), styleValue.Render(display.Tokens(history.Analysis.Total().Total())))
	return nil
}

func runTranscriptArchive(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	rec, err := resolveSession(reg, args[0])
	if err != nil {
		return err
	}
	if rec.TranscriptPath == "" {
		return fmt.Errorf("session %s has no transcript path", rec.Name)
	}

	store, err := openTranscriptStore()
	if err != nil {
		return err
	}
	history, err := store.Refresh(rec.ID, rec.TranscriptPath)
	if err != nil {
		return err
	}

	summary := history.Archive.Summary
	if err := reg.UpdateArchiveSummary(rec.ID, &summary.LastPrompt, &summary.LastResponse); err != nil {
		return err
	}
	fmt.Printf("Archived %d entries for %s.\n", len(history.Archive.Entries), rec.Name)
	return nil
}

func openTranscriptStore() (*transcript.Store, error) {
	archiver, err := transcript.DefaultArchiver()
	if err != nil {
		return nil, err
	}
	return transcript.NewStore(archiver, 1)
}

// formatHistoryItem renders one turn with its role header.
func formatHistoryItem(item display.HistoryItem) string {
	var header string
	switch item.Role {
	case models.RoleUser:
		header = roleUser.Render("You")
	case models.RoleAssistant:
		header = roleAssistant.Render("Assistant")
		if item.Intermediate {
			header = roleOther.Render("Assistant (working)")
		}
	default:
		header = roleOther.Render(string(item.Role))
	}
	if item.Usage != nil {
		header += " " + styleHint.Render(display.Tokens(item.Usage.Total())+" tokens")
	}
	return header + "\n" + item.Text
}
