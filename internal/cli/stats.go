package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/hookwatch/internal/display"
	"github.com/watchfire-io/hookwatch/internal/usage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage by day and project",
	RunE:  runStats,
}

var statsDays int

func init() {
	statsCmd.Flags().IntVarP(&statsDays, "days", "d", 7, "Number of days to show (0 for all)")
}

func runStats(cmd *cobra.Command, args []string) error {
	rec, err := usage.DefaultRecorder()
	if err != nil {
		return err
	}

	since := ""
	if statsDays > 0 {
		since = time.Now().AddDate(0, 0, -(statsDays - 1)).Format(usage.DateLayout)
	}

	days := usage.Daily(rec.Load(), since)
	if len(days) == 0 {
		fmt.Println("No usage recorded.")
		return nil
	}

	lastDay := ""
	for _, d := range days {
		if d.Day != lastDay {
			if lastDay != "" {
				fmt.Println()
			}
			fmt.Println(styleHeader.Render(d.Day))
			lastDay = d.Day
		}
		fmt.Printf("  %-24s %8s  %s\n",
			truncate(d.Project, 24),
			styleValue.Render(display.Tokens(d.Usage.Total())),
			styleHint.Render(fmt.Sprintf("in %s / out %s", display.Tokens(d.Usage.InputTokens), display.Tokens(d.Usage.OutputTokens))),
		)
	}
	return nil
}
