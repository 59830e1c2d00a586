package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ordo-ai/ordo/internal/core"
)

var (
	cancelCleanup bool
	cancelForce   bool
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <session-id>",
	Short: "Cancel a running session",
	Long: `Cancel stops the live run for a session at its next stage boundary.
With --force, a session with no live run in this process (a zombie from a
crashed run) is marked failed directly so it can be resumed or cleaned up.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	cancelCmd.Flags().BoolVar(&cancelCleanup, "cleanup", false, "delete the run's VCS branch (best effort)")
	cancelCmd.Flags().BoolVar(&cancelForce, "force", false, "mark the session failed even without a live run")
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()
	sessionID := args[0]

	if run := a.engine.RunForSession(sessionID); run != nil {
		if err := a.engine.CancelWorkflow(ctx, run.ID, cancelCleanup); err != nil {
			return err
		}
		fmt.Printf("Cancelled run %s for session %s\n", run.ID, sessionID)
		return nil
	}

	if !cancelForce {
		return fmt.Errorf("session %s has no live run in this process; use --force to mark it failed", sessionID)
	}

	sess, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.IsTerminal() {
		return fmt.Errorf("session %s is already %s", sessionID, sess.Status)
	}
	if err := a.store.UpdateStatus(ctx, sessionID, core.SessionFailed, "cancelled by force"); err != nil {
		return err
	}
	fmt.Printf("Marked session %s failed\n", sessionID)
	return nil
}
