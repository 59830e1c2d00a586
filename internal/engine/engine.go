// Package engine coordinates multi-stage agent workflows: it resolves a
// workflow definition, drives stage-by-stage execution against the agent
// graph, invokes the external runner per agent, applies retry policy,
// checkpoints the session after each stage, and exposes cancel and resume.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ordo-ai/ordo/internal/core"
	"github.com/ordo-ai/ordo/internal/events"
	"github.com/ordo-ai/ordo/internal/graph"
	"github.com/ordo-ai/ordo/internal/logging"
	"github.com/ordo-ai/ordo/internal/session"
	"github.com/ordo-ai/ordo/internal/tier"
)

// Options tunes engine behavior that is not part of a workflow definition.
type Options struct {
	// AgentTimeout bounds a single runner invocation when the agent
	// descriptor does not declare its own timeout.
	AgentTimeout time.Duration
	// HeartbeatInterval is how often a live run refreshes its session's
	// heartbeat. Zero disables the heartbeat goroutine.
	HeartbeatInterval time.Duration
	// BranchPrefix prefixes VCS branch names created for runs.
	BranchPrefix string
	// Retry shapes the backoff between attempts of a failing agent. The
	// attempt bound itself comes from each agent's descriptor.
	Retry *RetryPolicy
}

// Engine is the single-process workflow coordinator. It owns the in-memory
// registry of live runs; sessions are the durable projection.
type Engine struct {
	graph    *graph.AgentGraph
	registry *Registry
	selector *tier.Selector
	sessions *session.Store
	runner   core.AgentRunner
	parser   core.ResponseParser
	tasks    core.TaskStore
	vcs      core.VCSClient
	bus      *events.Bus
	logger   *logging.Logger
	opts     Options

	mu   sync.RWMutex
	runs map[string]*core.WorkflowRun // keyed by run ID
}

// Deps bundles the engine's collaborators. Graph, registry, selector,
// sessions, runner and parser are required; tasks and vcs may be nil, which
// disables the corresponding side effects.
type Deps struct {
	Graph    *graph.AgentGraph
	Registry *Registry
	Selector *tier.Selector
	Sessions *session.Store
	Runner   core.AgentRunner
	Parser   core.ResponseParser
	Tasks    core.TaskStore
	VCS      core.VCSClient
	Bus      *events.Bus
	Logger   *logging.Logger
}

// New constructs an engine with explicit dependencies.
func New(deps Deps, opts Options) *Engine {
	if opts.AgentTimeout <= 0 {
		opts.AgentTimeout = 10 * time.Minute
	}
	if opts.BranchPrefix == "" {
		opts.BranchPrefix = "ordo/"
	}
	if opts.Retry == nil {
		opts.Retry = DefaultRetryPolicy()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		graph:    deps.Graph,
		registry: deps.Registry,
		selector: deps.Selector,
		sessions: deps.Sessions,
		runner:   deps.Runner,
		parser:   deps.Parser,
		tasks:    deps.Tasks,
		vcs:      deps.VCS,
		bus:      deps.Bus,
		logger:   logger,
		opts:     opts,
		runs:     make(map[string]*core.WorkflowRun),
	}
}

// StartWorkflow creates a session for the named workflow and executes it to
// completion. The call is synchronous: it returns once the run reached a
// terminal state. The returned run carries the session ID needed to resume
// after a failure.
func (e *Engine) StartWorkflow(ctx context.Context, workflowID string, runContext map[string]any, opts *core.WorkflowOptions) (*core.WorkflowRun, error) {
	def, err := e.registry.Get(workflowID)
	if err != nil {
		return nil, err
	}
	options := def.Options
	if opts != nil {
		options = *opts
	}

	sess, err := e.sessions.Create(ctx, workflowID, runContext, options)
	if err != nil {
		return nil, err
	}

	run := core.NewWorkflowRun(uuid.NewString(), def, sess.ID, sess.Context, nil, 0)
	e.register(run)
	defer e.unregister(run.ID)

	log := e.logger.WithWorkflow(workflowID).WithSession(sess.ID)
	log.Info("workflow started", "run_id", run.ID, "stages", len(def.Stages))
	e.publish(events.NewWorkflowStartedEvent(sess.ID, workflowID, taskSummary(runContext)))

	if options.CreateBranch && e.vcs != nil {
		branchID, err := e.vcs.CreateBranch(ctx, e.branchName(workflowID, sess.ID))
		if err != nil {
			return run, e.failRun(ctx, run, err)
		}
		run.SetBranchID(branchID)
		log.Info("branch created", "branch", branchID)
	}

	if err := e.executeWorkflow(ctx, run, options); err != nil {
		return run, e.failRun(ctx, run, err)
	}
	if err := e.finalize(ctx, run, options); err != nil {
		return run, e.failRun(ctx, run, err)
	}
	return run, nil
}

// ResumeWorkflow restores a resumable session and executes the remaining
// stages in a fresh run. fromStage overrides the checkpoint-derived resume
// point when non-negative. Retry counters live only in run context, so a
// resumed agent starts with a clean attempt budget.
func (e *Engine) ResumeWorkflow(ctx context.Context, sessionID string, fromStage int) (*core.WorkflowRun, error) {
	if e.HasActiveRun(sessionID) {
		return nil, core.ErrValidation("RUN_ACTIVE",
			fmt.Sprintf("session %s already has a live run", sessionID))
	}

	sess, resumeStage, err := e.sessions.Restore(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	def, err := e.registry.Get(sess.WorkflowID)
	if err != nil {
		return nil, err
	}
	if fromStage >= 0 {
		if fromStage > len(def.Stages) {
			return nil, core.ErrValidation("STAGE_OUT_OF_RANGE",
				fmt.Sprintf("workflow %s has %d stages, cannot resume at %d",
					def.ID, len(def.Stages), fromStage))
		}
		resumeStage = fromStage
	}

	// A forced resume stage can skip agents whose successors depend on
	// them. Refuse to start rather than fail mid-run.
	completed := make(map[core.AgentTag]bool, len(sess.CompletedAgents))
	for _, tag := range sess.CompletedAgents {
		completed[tag] = true
	}
	var pending []core.AgentTag
	for i := resumeStage; i < len(def.Stages); i++ {
		for _, tag := range def.Stages[i].Agents {
			if !completed[tag] {
				pending = append(pending, tag)
			}
		}
	}
	if unmet := e.graph.ValidateSatisfied(pending, completed); len(unmet) > 0 {
		parts := make([]string, len(unmet))
		for i, u := range unmet {
			parts[i] = fmt.Sprintf("%s requires %s", u.Agent, u.Missing)
		}
		return nil, core.ErrValidation(core.CodeUnmetDependency,
			fmt.Sprintf("cannot resume session %s: %s", sess.ID, strings.Join(parts, "; ")))
	}

	run := core.NewWorkflowRun(uuid.NewString(), def, sess.ID, sess.Context, sess.CompletedAgents, resumeStage)
	e.register(run)
	defer e.unregister(run.ID)

	e.logger.WithWorkflow(def.ID).WithSession(sess.ID).
		Info("workflow resumed", "run_id", run.ID, "resume_stage", resumeStage)

	if err := e.executeWorkflow(ctx, run, sess.Options); err != nil {
		return run, e.failRun(ctx, run, err)
	}
	if err := e.finalize(ctx, run, sess.Options); err != nil {
		return run, e.failRun(ctx, run, err)
	}
	return run, nil
}

// CancelWorkflow marks a live run cancelled. The flag is consulted at stage
// boundaries, so an in-flight batch settles before the run stops. Every
// execution still tracked as active is failed immediately and the session
// is marked failed so it stays resumable. Cleanup is best-effort branch
// deletion; its errors are swallowed.
func (e *Engine) CancelWorkflow(ctx context.Context, runID string, cleanup bool) error {
	run := e.GetRun(runID)
	if run == nil {
		return core.ErrValidation("RUN_NOT_FOUND", fmt.Sprintf("no live run %s", runID))
	}

	cancelErr := core.ErrCancelled("workflow cancelled by request")
	run.SetStatus(core.RunCancelled, cancelErr)
	run.FailActiveExecutions(cancelErr.Error())

	log := e.logger.WithSession(run.SessionID)
	if err := e.sessions.UpdateStatus(ctx, run.SessionID, core.SessionFailed, cancelErr.Error()); err != nil {
		log.Warn("cancel: session update failed", "error", err)
	}

	if cleanup && e.vcs != nil && run.BranchID() != "" {
		if err := e.vcs.DeleteBranch(ctx, run.BranchID()); err != nil {
			log.Warn("cancel: branch cleanup failed", "branch", run.BranchID(), "error", err)
		}
	}

	e.unregister(runID)
	e.publish(events.NewWorkflowCancelledEvent(run.SessionID, run.Definition.ID, stageName(run)))
	log.Info("workflow cancelled", "run_id", runID)
	return nil
}

// HasActiveRun reports whether a live run references the session. A session
// persisted as running with no live run is a zombie.
func (e *Engine) HasActiveRun(sessionID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, run := range e.runs {
		if run.SessionID == sessionID {
			return true
		}
	}
	return false
}

// GetRun returns a live run by ID, or nil.
func (e *Engine) GetRun(runID string) *core.WorkflowRun {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runs[runID]
}

// ConfigureTiers replaces the tier selector's override table, ceiling and
// cost-optimization setting for subsequent runs.
func (e *Engine) ConfigureTiers(overrides map[core.AgentTag]core.Tier, maxTier core.Tier, costOptimization bool) {
	e.selector.Configure(tier.Options{
		Overrides:        overrides,
		MaxTier:          maxTier,
		CostOptimization: costOptimization,
	})
}

// ActiveRuns returns every live run in the registry.
func (e *Engine) ActiveRuns() []*core.WorkflowRun {
	e.mu.RLock()
	defer e.mu.RUnlock()
	runs := make([]*core.WorkflowRun, 0, len(e.runs))
	for _, run := range e.runs {
		runs = append(runs, run)
	}
	return runs
}

// RunForSession returns the live run bound to a session, or nil.
func (e *Engine) RunForSession(sessionID string) *core.WorkflowRun {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, run := range e.runs {
		if run.SessionID == sessionID {
			return run
		}
	}
	return nil
}

// executeWorkflow iterates stages from the run's cursor, checkpointing the
// session after each. Cancellation is observed once per stage boundary.
func (e *Engine) executeWorkflow(ctx context.Context, run *core.WorkflowRun, options core.WorkflowOptions) error {
	stop := e.startHeartbeat(ctx, run.SessionID)
	defer stop()

	def := run.Definition
	for i := run.CurrentStage(); i < len(def.Stages); i++ {
		if run.Status() == core.RunCancelled {
			return core.ErrCancelled(fmt.Sprintf("run %s cancelled before stage %d", run.ID, i))
		}
		stage := def.Stages[i]
		if err := e.executeStage(ctx, run, stage, i); err != nil {
			return err
		}

		_, err := e.sessions.Checkpoint(ctx, run.SessionID, i, stage.Name,
			run.CompletedAgents(), run.ContextSnapshot())
		if err != nil {
			return err
		}
		run.SetCurrentStage(i + 1)
		e.publish(events.NewStageCompletedEvent(run.SessionID, i, stage.Name, agentNames(stage.Agents)))
	}
	return nil
}

// executeStage runs the stage's agents that have not already completed,
// honoring the stage's execution mode. In parallel mode the first failure
// does not cancel siblings: every agent settles through its own retry path,
// and the stage fails only once all have finished and at least one failed.
func (e *Engine) executeStage(ctx context.Context, run *core.WorkflowRun, stage core.Stage, stageIndex int) error {
	var pending []core.AgentTag
	for _, tag := range stage.Agents {
		if !run.HasCompleted(tag) {
			pending = append(pending, tag)
		}
	}
	if len(pending) == 0 {
		e.logger.WithSession(run.SessionID).WithStage(stage.Name).
			Debug("stage already satisfied, skipping")
		return nil
	}

	log := e.logger.WithSession(run.SessionID).WithStage(stage.Name)
	log.Info("stage started", "mode", string(stage.Mode), "agents", len(pending))

	if stage.Mode == core.ModeParallel {
		var g errgroup.Group
		for _, tag := range pending {
			g.Go(func() error {
				return e.executeAgentWithRetry(ctx, run, stage, tag)
			})
		}
		return g.Wait()
	}

	for _, tag := range pending {
		if err := e.executeAgentWithRetry(ctx, run, stage, tag); err != nil {
			return err
		}
	}
	return nil
}

// executeAgentWithRetry drives one agent to a settled state through the
// retry policy. Each retry restarts the agent from scratch; the attempt
// bound comes from the agent descriptor, and the retry counter is mirrored
// into the run context under the agent's retry key.
func (e *Engine) executeAgentWithRetry(ctx context.Context, run *core.WorkflowRun, stage core.Stage, tag core.AgentTag) error {
	desc, err := e.graph.Get(tag)
	if err != nil {
		return err
	}
	retryKey := core.ContextKeyRetries(tag)
	log := e.logger.WithSession(run.SessionID).WithAgent(string(tag))

	policy := *e.opts.Retry
	policy.MaxAttempts = desc.MaxRetries + 1

	attempts := 1
	err = policy.ExecuteWithNotify(ctx,
		func(ctx context.Context) error {
			return e.executeAgentOnce(ctx, run, stage, tag, desc)
		},
		func(attempt int, attemptErr error, delay time.Duration) {
			attempts = attempt + 1
			run.SetContextValue(retryKey, attempt)
			log.Warn("agent failed, retrying", "attempt", attempt, "max_retries", desc.MaxRetries,
				"delay", delay.String(), "error", attemptErr)
			e.publish(events.NewAgentRetryingEvent(run.SessionID, string(tag), attempt, attemptErr))
		})
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var exhausted *RetryExhaustedError
	if errors.As(err, &exhausted) {
		attempts = exhausted.Attempts
		if desc.MaxRetries == 0 {
			// A single-attempt agent fails with its own error, not an
			// exhaustion wrapper.
			err = exhausted.LastErr
		}
	}
	e.publish(events.NewAgentFailedEvent(run.SessionID, string(tag), stage.Name, attempts, err))
	return err
}

// executeAgentOnce performs a single attempt: spawn the execution record,
// select a tier, bundle dependency outputs, create the external task, invoke
// the runner under the agent's timeout, parse the result, persist artifacts,
// fold the output into the run context and record the execution.
func (e *Engine) executeAgentOnce(ctx context.Context, run *core.WorkflowRun, stage core.Stage, tag core.AgentTag, desc *core.AgentDescriptor) error {
	exec := &core.AgentExecution{
		ID:        uuid.NewString(),
		AgentTag:  tag,
		Status:    core.ExecutionSpawning,
		StartedAt: time.Now(),
	}
	run.AddExecution(exec)

	snapshot := run.ContextSnapshot()
	selected := e.selector.Select(tag, snapshot)

	agentCtx := snapshot
	if bundle := e.dependencyBundle(run, tag); len(bundle) > 0 {
		agentCtx["dependency_outputs"] = bundle
	}

	taskID := ""
	if e.tasks != nil {
		id, err := e.tasks.Create(ctx, core.TaskRequest{
			AgentTag:    tag,
			Summary:     fmt.Sprintf("%s: %s", tag, taskSummary(snapshot)),
			Description: taskDescription(snapshot),
			Context:     agentCtx,
		})
		if err != nil {
			// Task bookkeeping is audit-only; a broken store does not
			// block the workflow.
			e.logger.WithSession(run.SessionID).Warn("task creation failed",
				"agent", string(tag), "error", err)
		} else {
			taskID = id
		}
	}

	run.StartExecution(exec, selected, taskID)
	e.publish(events.NewAgentStartedEvent(run.SessionID, string(tag), stage.Name, string(selected)))

	output, err := e.invokeRunner(ctx, tag, taskID, agentCtx, selected, desc.Timeout)
	if err != nil {
		return e.settleFailure(ctx, run, exec, err)
	}
	if !output.Success {
		err := core.ErrExecution(core.CodeAgentFailed,
			fmt.Sprintf("agent %s reported failure: %s", tag, output.Summary))
		return e.settleFailure(ctx, run, exec, err)
	}

	if e.tasks != nil && taskID != "" {
		if err := e.tasks.Complete(ctx, taskID, output); err != nil {
			e.logger.WithSession(run.SessionID).Warn("task completion failed",
				"task_id", taskID, "error", err)
		}
	}

	if err := e.commitArtifacts(ctx, run, tag, output); err != nil {
		return e.settleFailure(ctx, run, exec, err)
	}

	record := run.CompleteExecution(exec, output)

	outputKey := core.ContextKeyOutput(tag)
	run.SetContextValue(outputKey, output)
	run.MarkCompleted(tag)

	if err := e.sessions.SetContextValue(ctx, run.SessionID, outputKey, output); err != nil {
		return err
	}
	if err := e.sessions.RecordAgentExecution(ctx, run.SessionID, record); err != nil {
		return err
	}

	e.publish(events.NewAgentCompletedEvent(run.SessionID, string(tag), stage.Name,
		record.Duration(), output.Summary))
	e.logger.WithSession(run.SessionID).WithAgent(string(tag)).
		Info("agent completed", "tier", string(selected),
			"resource_units", output.Metadata.ResourceUnits)
	return nil
}

// invokeRunner calls the external runner under the agent timeout and parses
// the raw response. Timeouts and parse failures both surface as retryable
// execution errors.
func (e *Engine) invokeRunner(ctx context.Context, tag core.AgentTag, taskID string, agentCtx map[string]any, selected core.Tier, timeout time.Duration) (*core.AgentOutput, error) {
	if timeout <= 0 {
		timeout = e.opts.AgentTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := e.runner.Execute(runCtx, core.ExecuteRequest{
		AgentTag: tag,
		TaskID:   taskID,
		Context:  agentCtx,
		Tier:     selected,
		Timeout:  timeout,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, core.ErrTimeout(
				fmt.Sprintf("agent %s exceeded its %s timeout", tag, timeout)).WithCause(err)
		}
		if core.IsCategory(err, core.ErrCatTimeout) || core.IsRetryable(err) {
			return nil, err
		}
		return nil, core.ErrExecution(core.CodeAgentFailed,
			fmt.Sprintf("agent %s execution failed", tag)).WithCause(err)
	}

	output, err := e.parser.Parse(raw)
	if err != nil {
		return nil, core.ErrExecution(core.CodeParseFailed,
			fmt.Sprintf("agent %s returned an unparseable response", tag)).WithCause(err)
	}
	return output, nil
}

// settleFailure records a failed attempt: the execution is marked failed,
// the external task is failure-marked, the session logs and records the
// attempt, and the error propagates to the retry loop.
func (e *Engine) settleFailure(ctx context.Context, run *core.WorkflowRun, exec *core.AgentExecution, cause error) error {
	record := run.FailExecution(exec, cause.Error())

	if e.tasks != nil && record.TaskID != "" {
		if err := e.tasks.Fail(ctx, record.TaskID, cause.Error()); err != nil {
			e.logger.WithSession(run.SessionID).Warn("task failure-marking failed",
				"task_id", record.TaskID, "error", err)
		}
	}
	if err := e.sessions.RecordAgentExecution(ctx, run.SessionID, record); err != nil {
		e.logger.WithSession(run.SessionID).Warn("failed execution not recorded", "error", err)
	}
	if err := e.sessions.AddLog(ctx, run.SessionID, "error",
		fmt.Sprintf("agent %s failed: %v", record.AgentTag, cause)); err != nil {
		e.logger.WithSession(run.SessionID).Warn("session log append failed", "error", err)
	}
	return cause
}

// commitArtifacts persists the output's file artifacts through the VCS
// collaborator. A commit failure escalates the workflow.
func (e *Engine) commitArtifacts(ctx context.Context, run *core.WorkflowRun, tag core.AgentTag, output *core.AgentOutput) error {
	if e.vcs == nil || run.BranchID() == "" {
		return nil
	}
	artifacts := output.FileArtifacts()
	if len(artifacts) == 0 {
		return nil
	}
	files := make([]core.CommitFile, 0, len(artifacts))
	for _, a := range artifacts {
		files = append(files, core.CommitFile{Path: a.Path, Content: a.Content})
	}
	message := fmt.Sprintf("%s: %s", strings.ToLower(string(tag)), output.Summary)
	return e.vcs.CommitFiles(ctx, files, message)
}

// finalize completes a run whose stages all succeeded: PR creation if
// configured, then the session flips to completed. A PR failure honors the
// workflow's failure mode: fail propagates, warn logs and continues.
func (e *Engine) finalize(ctx context.Context, run *core.WorkflowRun, options core.WorkflowOptions) error {
	log := e.logger.WithSession(run.SessionID)

	if options.CreatePR && e.vcs != nil && run.BranchID() != "" {
		prURL, err := e.vcs.CreatePullRequest(ctx, run.BranchID(), core.PROptions{
			Title: fmt.Sprintf("%s: %s", run.Definition.ID, taskSummary(run.ContextSnapshot())),
			Body:  prBody(run),
			Draft: options.Draft,
		})
		if err != nil {
			if options.PRFailureMode == core.PRFailureFail {
				return err
			}
			log.Warn("pull request creation failed, continuing", "error", err)
			if logErr := e.sessions.AddLog(ctx, run.SessionID, "warn",
				fmt.Sprintf("pull request creation failed: %v", err)); logErr != nil {
				log.Warn("session log append failed", "error", logErr)
			}
		} else {
			log.Info("pull request created", "url", prURL)
			if err := e.sessions.SetContextValue(ctx, run.SessionID, "pr_url", prURL); err != nil {
				return err
			}
		}
	}

	if err := e.sessions.UpdateStatus(ctx, run.SessionID, core.SessionCompleted, ""); err != nil {
		return err
	}
	run.SetStatus(core.RunCompleted, nil)

	totalUnits := 0
	if sess, err := e.sessions.Get(ctx, run.SessionID); err == nil {
		totalUnits = sess.Metadata.TotalResourceUnits
	}
	e.publish(events.NewWorkflowCompletedEvent(run.SessionID, run.Definition.ID,
		run.Duration(), float64(totalUnits)))
	log.Info("workflow completed", "run_id", run.ID,
		"duration", run.Duration().String(), "resource_units", totalUnits)
	return nil
}

// failRun marks run and session failed, preserving checkpoints so the
// session stays resumable, and returns the original error. A cancelled run
// keeps its cancelled status.
func (e *Engine) failRun(ctx context.Context, run *core.WorkflowRun, cause error) error {
	if run.Status() != core.RunCancelled {
		run.SetStatus(core.RunFailed, cause)
	}
	if err := e.sessions.UpdateStatus(ctx, run.SessionID, core.SessionFailed, cause.Error()); err != nil {
		e.logger.WithSession(run.SessionID).Warn("session failure update failed", "error", err)
	}
	e.publish(events.NewWorkflowFailedEvent(run.SessionID, run.Definition.ID, stageName(run), cause))
	e.logger.WithSession(run.SessionID).Error("workflow failed",
		"run_id", run.ID, "stage", stageName(run), "error", cause)
	return cause
}

// dependencyBundle gathers each declared dependency's prior output from the
// run context. Dependencies always completed in an earlier stage, so the
// context is already populated.
func (e *Engine) dependencyBundle(run *core.WorkflowRun, tag core.AgentTag) map[string]any {
	bundle := make(map[string]any)
	for _, dep := range e.graph.DependenciesOf(tag) {
		if v, ok := run.ContextValue(core.ContextKeyOutput(dep)); ok {
			bundle[string(dep)] = v
		}
	}
	return bundle
}

func (e *Engine) register(run *core.WorkflowRun) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs[run.ID] = run
}

func (e *Engine) unregister(runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.runs, runID)
}

func (e *Engine) publish(event events.Event) {
	if e.bus == nil {
		return
	}
	switch event.EventType() {
	case events.TypeWorkflowCompleted, events.TypeWorkflowFailed:
		e.bus.PublishPriority(event)
	default:
		e.bus.Publish(event)
	}
}

func (e *Engine) branchName(workflowID, sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return e.opts.BranchPrefix + workflowID + "-" + short
}

// taskSummary extracts the caller-supplied task title from the context.
func taskSummary(runContext map[string]any) string {
	for _, key := range []string{"task", "project_name", "title"} {
		if v, ok := runContext[key].(string); ok && v != "" {
			return v
		}
	}
	return "workflow run"
}

// taskDescription extracts the caller-supplied long description.
func taskDescription(runContext map[string]any) string {
	if v, ok := runContext["description"].(string); ok {
		return v
	}
	return ""
}

// prBody summarizes the run's agent work for the pull-request description.
func prBody(run *core.WorkflowRun) string {
	var b strings.Builder
	b.WriteString("Automated workflow run ")
	b.WriteString(run.ID)
	b.WriteString("\n\nCompleted agents:\n")
	for _, tag := range run.CompletedAgents() {
		b.WriteString("- ")
		b.WriteString(string(tag))
		b.WriteString("\n")
	}
	return b.String()
}

func stageName(run *core.WorkflowRun) string {
	def := run.Definition
	i := run.CurrentStage()
	if i >= 0 && i < len(def.Stages) {
		return def.Stages[i].Name
	}
	return ""
}

func agentNames(tags []core.AgentTag) []string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = string(tag)
	}
	return names
}
