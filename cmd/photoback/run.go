package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one backup loop in the foreground",
	Long: `Run the backup loop directly, printing progress to stdout.

The loop keeps cycling over the library until interrupted with Ctrl-C.
Interrupting is always safe: progress is persisted after every page and
the next run resumes where this one stopped.`,
	Example: `  photoback run`,
	RunE:    runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.log.InfoWithFields("starting backup run", map[string]interface{}{
		"account": a.user.Email,
	})

	for line := range a.service.Run(ctx) {
		fmt.Println(line)
	}

	if ctx.Err() != nil {
		fmt.Println("interrupted; progress is saved, the next run resumes here")
	}
	return nil
}
