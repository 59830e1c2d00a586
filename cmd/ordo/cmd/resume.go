package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var resumeFromStage int

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume a failed or paused session",
	Long: `Resume restores a session from its latest checkpoint and executes
the remaining stages in a fresh run. Agents already completed in the
session are skipped. --from-stage overrides the checkpoint-derived resume
point.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().IntVar(&resumeFromStage, "from-stage", -1, "stage index to resume from (default: after the latest checkpoint)")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	sessionID := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			for _, run := range a.engine.ActiveRuns() {
				_ = a.engine.CancelWorkflow(context.Background(), run.ID, false)
			}
		case <-done:
		}
	}()

	fmt.Printf("Resuming session %s\n", sessionID)
	run, err := a.engine.ResumeWorkflow(ctx, sessionID, resumeFromStage)
	close(done)
	if err != nil {
		if run != nil {
			fmt.Printf("Resume failed; the session remains resumable: ordo resume %s\n", sessionID)
		}
		return err
	}

	fmt.Printf("Workflow completed in %s\n", run.Duration().Round(time.Second))
	printUsageSummary(a, run.SessionID)
	return nil
}
