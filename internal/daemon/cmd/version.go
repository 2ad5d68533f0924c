package cmd

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/watchfire-io/hookwatch/internal/buildinfo"
	"github.com/watchfire-io/hookwatch/internal/config"
)

var (
	dStyleBrand   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "30", Dark: "45"})
	dStyleVersion = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "40"})
	dStyleLabel   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "242", Dark: "240"})
	dStyleValue   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "0", Dark: "15"})
)

var daemonVersionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Show version and state directory",
	Run: func(cmd *cobra.Command, args []string) {
		state, err := config.GlobalDir()
		if err != nil {
			state = "unavailable: " + err.Error()
		}
		metrics := config.LoadSettingsOrDefault().Daemon.MetricsListen
		if metrics == "" {
			metrics = "disabled"
		}

		fmt.Printf("  %s %s\n", dStyleBrand.Render("hookwatchd"), dStyleVersion.Render(buildinfo.Version))
		for _, row := range [][2]string{
			{"Commit", buildinfo.CommitHash},
			{"Built", buildinfo.BuildDate},
			{"OS/Arch", runtime.GOOS + "/" + runtime.GOARCH},
			{"Go", runtime.Version()},
			{"State", state},
			{"Metrics", metrics},
		} {
			fmt.Printf("    %s %s\n", dStyleLabel.Render(fmt.Sprintf("%7s", row[0])), dStyleValue.Render(row[1]))
		}
	},
}

func init() {
	rootCmd.AddCommand(daemonVersionCmd)
}
