package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var usageJSON bool

var usageCmd = &cobra.Command{
	Use:   "usage <session-id>",
	Short: "Show aggregate and per-agent resource usage for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsage,
}

func init() {
	usageCmd.Flags().BoolVar(&usageJSON, "json", false, "machine-readable output")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if usageJSON {
		sess, err := a.store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sess.Metadata)
	}
	return printUsage(cmd.Context(), a, args[0])
}

func printUsage(ctx context.Context, a *app, sessionID string) error {
	sess, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	fmt.Printf("Session %s (%s)\n", sess.ID, sess.WorkflowID)
	fmt.Printf("Total resource units: %d\n", sess.Metadata.TotalResourceUnits)
	fmt.Printf("Total execution time: %s\n", sess.Metadata.TotalExecutionTime.Round(time.Millisecond))
	if len(sess.Metadata.AgentExecutions) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(rootCmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tSTATUS\tTIER\tUNITS\tTIME")
	for _, exec := range sess.Metadata.AgentExecutions {
		units := 0
		if exec.Output != nil {
			units = exec.Output.Metadata.ResourceUnits
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			exec.AgentTag, exec.Status, exec.Tier, units,
			exec.Duration().Round(time.Millisecond))
	}
	return w.Flush()
}

// printUsageSummary prints usage after a successful run, swallowing errors
// since the run itself already succeeded.
func printUsageSummary(a *app, sessionID string) {
	if err := printUsage(context.Background(), a, sessionID); err != nil {
		a.logger.Warn("usage summary unavailable", "error", err)
	}
}
