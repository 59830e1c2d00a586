package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ordo-ai/ordo/internal/core"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show the status of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "machine-readable output")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := a.store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	}

	printSession(a, sess)
	return nil
}

func printSession(a *app, sess *core.Session) {
	fmt.Printf("Session:   %s\n", sess.ID)
	fmt.Printf("Workflow:  %s\n", sess.WorkflowID)
	fmt.Printf("Status:    %s%s\n", sess.Status, zombieSuffix(a, sess))
	fmt.Printf("Stage:     %d\n", sess.CurrentStage)
	fmt.Printf("Created:   %s\n", sess.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated:   %s\n", sess.UpdatedAt.Format(time.RFC3339))
	if sess.Error != "" {
		fmt.Printf("Error:     %s\n", sess.Error)
	}
	if len(sess.CompletedAgents) > 0 {
		fmt.Printf("Completed: %v\n", sess.CompletedAgents)
	}
	if cp := sess.LatestCheckpoint(); cp != nil {
		fmt.Printf("Checkpoint: stage %d (%s) at %s\n",
			cp.StageIndex, cp.StageName, cp.Timestamp.Format(time.RFC3339))
	}
	if sess.IsResumable() {
		fmt.Printf("Resumable: yes (ordo resume %s)\n", sess.ID)
	}
}

// zombieSuffix annotates a persisted-running session with no live run.
func zombieSuffix(a *app, sess *core.Session) string {
	if sess.Status == core.SessionRunning && !a.engine.HasActiveRun(sess.ID) {
		return " (zombie: no live run in this process)"
	}
	return ""
}
