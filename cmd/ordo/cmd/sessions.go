package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ordo-ai/ordo/internal/core"
)

var (
	sessionsStatus   string
	sessionsWorkflow string
	sessionsZombies  bool
	sessionsJSON     bool

	cleanupOlderThan time.Duration
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions",
	RunE:  runSessions,
}

var sessionsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete terminal sessions past the retention window",
	Long: `Cleanup deletes completed and failed sessions whose last update is
older than the configured retention. Running sessions are never deleted,
even when stale; staleness of a running session is a zombie concern.`,
	RunE: runSessionsCleanup,
}

var sessionsReapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Mark zombie sessions as failed",
	Long: `Reap finds sessions persisted as running whose heartbeat is older
than the zombie threshold and marks them failed, making them resumable.`,
	RunE: runSessionsReap,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsStatus, "status", "", "filter by status (running, paused, completed, failed)")
	sessionsCmd.Flags().StringVar(&sessionsWorkflow, "workflow", "", "filter by workflow ID")
	sessionsCmd.Flags().BoolVar(&sessionsZombies, "zombies", false, "only sessions running with a stale heartbeat")
	sessionsCmd.Flags().BoolVar(&sessionsJSON, "json", false, "machine-readable output")
	sessionsCleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 0, "retention override (e.g. 72h; default: configured retention)")
	sessionsCmd.AddCommand(sessionsCleanupCmd)
	sessionsCmd.AddCommand(sessionsReapCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	var sessions []*core.Session
	if sessionsZombies {
		sessions, err = a.store.ListZombies(ctx, a.cfg.Engine.ZombieThresholdDuration())
	} else {
		sessions, err = a.store.List(ctx, core.SessionFilter{
			Status:     core.SessionStatus(sessionsStatus),
			WorkflowID: sessionsWorkflow,
		})
	}
	if err != nil {
		return err
	}
	if sessionsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tWORKFLOW\tSTATUS\tSTAGE\tUPDATED\tRESUMABLE")
	for _, sess := range sessions {
		resumable := ""
		if sess.IsResumable() {
			resumable = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			sess.ID, sess.WorkflowID, sess.Status, sess.CurrentStage,
			sess.UpdatedAt.Format(time.RFC3339), resumable)
	}
	return w.Flush()
}

func runSessionsCleanup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	retention := a.cfg.Sessions.RetentionDuration()
	if cleanupOlderThan > 0 {
		retention = cleanupOlderThan
	}
	removed, err := a.store.Cleanup(cmd.Context(), retention)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d session(s).\n", removed)
	return nil
}

func runSessionsReap(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	reaped, err := a.store.ReapZombies(cmd.Context(), a.cfg.Engine.ZombieThresholdDuration())
	if err != nil {
		return err
	}
	if len(reaped) == 0 {
		fmt.Println("No zombie sessions found.")
		return nil
	}
	for _, sess := range reaped {
		fmt.Printf("Marked %s failed (resumable: %v)\n", sess.ID, sess.IsResumable())
	}
	return nil
}
