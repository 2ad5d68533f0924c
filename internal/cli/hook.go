package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/watchfire-io/hookwatch/internal/config"
	"github.com/watchfire-io/hookwatch/internal/hook"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle one hook event from stdin",
	Long: `Reads one hook event as JSON from stdin, updates the session registry and
writes the hook response to stdout.

Configure it as the command for every hook event of the coding agent CLI.
It always exits successfully so a failure never blocks the agent.`,
	Args: cobra.NoArgs,
	RunE: runHook,
}

func runHook(cmd *cobra.Command, args []string) error {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("hook expects an event on stdin; configure it as a hook command")
	}

	closer := config.SetupHookLogging()
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	proc, err := hook.Default(config.LoadSettingsOrDefault())
	if err != nil {
		log.Printf("setup failed: %v", err)
		return nil
	}
	if err := proc.Process(ctx, os.Stdin, os.Stdout); err != nil {
		log.Printf("%v", err)
	}
	return nil
}
