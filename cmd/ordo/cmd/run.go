package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ordo-ai/ordo/internal/core"
	"github.com/ordo-ai/ordo/internal/engine"
)

var (
	runTask        string
	runDescription string
	runMaxTier     string
	runComplexity  string
	runNoPR        bool
	runDraft       bool
)

var runCmd = &cobra.Command{
	Use:   "run [workflow]",
	Short: "Run a workflow to completion",
	Long: `Run executes the named workflow (or the configured default) stage by
stage, checkpointing the session after each stage. A SIGINT cancels the run
at the next stage boundary, leaving the session resumable.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runTask, "task", "t", "", "task title (required)")
	runCmd.Flags().StringVarP(&runDescription, "description", "d", "", "longer task description")
	runCmd.Flags().StringVar(&runMaxTier, "max-tier", "", "tier ceiling for this run (economy, standard, premium)")
	runCmd.Flags().StringVar(&runComplexity, "complexity", "", "task complexity hint (low, medium, high)")
	runCmd.Flags().BoolVar(&runNoPR, "no-pr", false, "skip pull request creation on completion")
	runCmd.Flags().BoolVar(&runDraft, "draft", false, "create the pull request as a draft")
	_ = runCmd.MarkFlagRequired("task")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	workflowID := a.cfg.Engine.DefaultWorkflow
	if len(args) > 0 {
		workflowID = args[0]
	}
	def, err := a.registry.Get(workflowID)
	if err != nil {
		return err
	}

	if runMaxTier != "" {
		maxTier := core.Tier(runMaxTier)
		if !maxTier.Valid() {
			return fmt.Errorf("invalid max tier %q", runMaxTier)
		}
		a.cfg.Tiers.MaxTier = runMaxTier
		// Rebuilding the app for one field is heavier than reconfiguring.
		reconfigureSelector(a, maxTier)
	}

	runContext := map[string]any{"task": runTask}
	if runDescription != "" {
		runContext["description"] = runDescription
	}
	if runComplexity != "" {
		runContext["complexity"] = runComplexity
	}

	opts := resolveWorkflowOptions(def, a.cfg, runNoPR, runDraft)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			// Cancel the live run at the next stage boundary.
			for _, run := range a.engine.ActiveRuns() {
				_ = a.engine.CancelWorkflow(context.Background(), run.ID, false)
			}
		case <-done:
		}
	}()

	fmt.Printf("Starting workflow %q: %s\n", workflowID, runTask)
	agents := def.AgentTags()
	fmt.Printf("Agents: %d, estimated cost weight: %.1f\n",
		len(agents), a.selector.EstimateCost(agents, 1))
	run, err := a.engine.StartWorkflow(ctx, workflowID, runContext, &opts)
	close(done)
	if run != nil {
		fmt.Printf("Session: %s\n", run.SessionID)
	}
	if err != nil {
		if engine.IsRetryExhausted(err) {
			fmt.Println("An agent exhausted its retry attempts.")
		}
		if run != nil {
			fmt.Printf("Workflow failed; resume with: ordo resume %s\n", run.SessionID)
		}
		return err
	}

	fmt.Printf("Workflow completed in %s\n", run.Duration().Round(time.Second))
	printUsageSummary(a, run.SessionID)
	return nil
}

// reconfigureSelector applies a run-scoped tier ceiling.
func reconfigureSelector(a *app, maxTier core.Tier) {
	overrides := make(map[core.AgentTag]core.Tier, len(a.cfg.Tiers.Overrides))
	for tag, t := range a.cfg.Tiers.Overrides {
		overrides[core.AgentTag(tag)] = core.Tier(t)
	}
	a.engine.ConfigureTiers(overrides, maxTier, a.cfg.Tiers.CostOptimization)
}
