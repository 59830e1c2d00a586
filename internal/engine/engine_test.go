package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ordo-ai/ordo/internal/adapters/state"
	"github.com/ordo-ai/ordo/internal/core"
	"github.com/ordo-ai/ordo/internal/graph"
	"github.com/ordo-ai/ordo/internal/logging"
	"github.com/ordo-ai/ordo/internal/parse"
	"github.com/ordo-ai/ordo/internal/session"
	"github.com/ordo-ai/ordo/internal/tier"
)

// fakeRunner scripts per-agent behavior: a number of failures before
// success, a permanent failure, or a blocking gate for cancellation tests.
type fakeRunner struct {
	mu        sync.Mutex
	calls     map[core.AgentTag]int
	failLeft  map[core.AgentTag]int
	alwaysErr map[core.AgentTag]error
	responses map[core.AgentTag]string
	sawDeps   map[core.AgentTag][]string
	gate      map[core.AgentTag]chan struct{}
	started   chan core.AgentTag
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		calls:     make(map[core.AgentTag]int),
		failLeft:  make(map[core.AgentTag]int),
		alwaysErr: make(map[core.AgentTag]error),
		responses: make(map[core.AgentTag]string),
		sawDeps:   make(map[core.AgentTag][]string),
		gate:      make(map[core.AgentTag]chan struct{}),
	}
}

func (r *fakeRunner) Execute(ctx context.Context, req core.ExecuteRequest) (string, error) {
	r.mu.Lock()
	r.calls[req.AgentTag]++
	if deps, ok := req.Context["dependency_outputs"].(map[string]any); ok {
		for name := range deps {
			r.sawDeps[req.AgentTag] = append(r.sawDeps[req.AgentTag], name)
		}
	}
	gate := r.gate[req.AgentTag]
	started := r.started
	r.mu.Unlock()

	if started != nil {
		started <- req.AgentTag
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.alwaysErr[req.AgentTag]; ok {
		return "", err
	}
	if r.failLeft[req.AgentTag] > 0 {
		r.failLeft[req.AgentTag]--
		return "", core.ErrExecution(core.CodeAgentFailed, "scripted failure")
	}
	if resp, ok := r.responses[req.AgentTag]; ok {
		return resp, nil
	}
	return fmt.Sprintf(`{"success": true, "summary": "%s done", "metadata": {"resource_units": 5, "execution_time_ms": 10}}`, req.AgentTag), nil
}

func (r *fakeRunner) callCount(tag core.AgentTag) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[tag]
}

// fakeTaskStore records bookkeeping calls.
type fakeTaskStore struct {
	mu        sync.Mutex
	created   []core.TaskRequest
	completed []string
	failed    []string
	nextID    int
}

func (f *fakeTaskStore) Create(ctx context.Context, req core.TaskRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	f.nextID++
	return fmt.Sprintf("task-%d", f.nextID), nil
}

func (f *fakeTaskStore) Complete(ctx context.Context, taskID string, output *core.AgentOutput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, taskID)
	return nil
}

func (f *fakeTaskStore) Fail(ctx context.Context, taskID string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, taskID)
	return nil
}

// fakeVCS records branch, commit and PR operations, with injectable errors.
type fakeVCS struct {
	mu        sync.Mutex
	branches  []string
	deleted   []string
	commits   []string
	prs       []string
	branchErr error
	prErr     error
}

func (f *fakeVCS) CreateBranch(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.branchErr != nil {
		return "", f.branchErr
	}
	f.branches = append(f.branches, name)
	return name, nil
}

func (f *fakeVCS) CommitFiles(ctx context.Context, files []core.CommitFile, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, message)
	return nil
}

func (f *fakeVCS) DeleteBranch(ctx context.Context, branchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, branchID)
	return nil
}

func (f *fakeVCS) CreatePullRequest(ctx context.Context, branch string, opts core.PROptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prErr != nil {
		return "", f.prErr
	}
	url := "https://example.test/pr/" + branch
	f.prs = append(f.prs, url)
	return url, nil
}

type testEnv struct {
	engine *Engine
	store  *session.Store
	runner *fakeRunner
	tasks  *fakeTaskStore
	vcs    *fakeVCS
}

// testGraph registers a minimal pipeline: A feeds B and C.
func testGraph(t *testing.T) *graph.AgentGraph {
	t.Helper()
	g := graph.New()
	descs := []core.AgentDescriptor{
		{Tag: "A", DefaultTier: core.TierStandard, MaxRetries: 2, Timeout: time.Second},
		{Tag: "B", Dependencies: []core.AgentTag{"A"}, DefaultTier: core.TierStandard, MaxRetries: 2, Timeout: time.Second},
		{Tag: "C", Dependencies: []core.AgentTag{"A"}, DefaultTier: core.TierStandard, MaxRetries: 2, Timeout: time.Second},
		{Tag: "D", DefaultTier: core.TierEconomy, MaxRetries: 0, Timeout: time.Second},
	}
	for _, d := range descs {
		if err := g.Register(d); err != nil {
			t.Fatalf("Register(%s) error = %v", d.Tag, err)
		}
	}
	return g
}

func pipelineDefinition(opts core.WorkflowOptions) *core.WorkflowDefinition {
	return &core.WorkflowDefinition{
		ID: "pipeline",
		Stages: []core.Stage{
			{Name: "Foundation", Agents: []core.AgentTag{"A"}, Mode: core.ModeSequential},
			{Name: "Fanout", Agents: []core.AgentTag{"B", "C"}, Mode: core.ModeParallel, After: "Foundation"},
		},
		Options: opts,
	}
}

func newTestEnv(t *testing.T, opts core.WorkflowOptions) *testEnv {
	t.Helper()
	g := testGraph(t)
	// The builtins live on the default catalog; the pipeline workflow needs
	// a registry over the test graph instead.
	registry := &Registry{graph: g, defs: make(map[string]*core.WorkflowDefinition)}
	if err := registry.Register(pipelineDefinition(opts)); err != nil {
		t.Fatalf("Register(pipeline) error = %v", err)
	}

	storage := state.NewJSONSessionStorage(t.TempDir())
	store := session.NewStore(storage, nil, logging.NewNop())
	runner := newFakeRunner()
	tasks := &fakeTaskStore{}
	vcs := &fakeVCS{}

	eng := New(Deps{
		Graph:    g,
		Registry: registry,
		Selector: tier.NewSelector(g, tier.Options{MaxTier: core.TierPremium}),
		Sessions: store,
		Runner:   runner,
		Parser:   parse.New(),
		Tasks:    tasks,
		VCS:      vcs,
		Logger:   logging.NewNop(),
	}, Options{
		AgentTimeout: time.Second,
		Retry:        NewRetryPolicy(WithBaseDelay(time.Millisecond), WithJitter(0)),
	})

	return &testEnv{engine: eng, store: store, runner: runner, tasks: tasks, vcs: vcs}
}

func TestEngine_RunsWorkflowToCompletion(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{})
	ctx := context.Background()

	run, err := env.engine.StartWorkflow(ctx, "pipeline", map[string]any{"task": "build it"}, nil)
	if err != nil {
		t.Fatalf("StartWorkflow() error = %v", err)
	}
	if run.Status() != core.RunCompleted {
		t.Errorf("run status = %s, want completed", run.Status())
	}

	sess, err := env.store.Get(ctx, run.SessionID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.Status != core.SessionCompleted {
		t.Errorf("session status = %s, want completed", sess.Status)
	}
	if len(sess.Checkpoints) != 2 {
		t.Errorf("checkpoints = %d, want 2", len(sess.Checkpoints))
	}
	if sess.Metadata.TotalResourceUnits != 15 {
		t.Errorf("total resource units = %d, want 15", sess.Metadata.TotalResourceUnits)
	}
	if len(sess.Metadata.AgentExecutions) != 3 {
		t.Errorf("executions = %d, want 3", len(sess.Metadata.AgentExecutions))
	}

	// B and C both read A's output through the dependency bundle.
	for _, tag := range []core.AgentTag{"B", "C"} {
		deps := env.runner.sawDeps[tag]
		if len(deps) != 1 || deps[0] != "A" {
			t.Errorf("%s dependency bundle = %v, want [A]", tag, deps)
		}
	}

	env.tasks.mu.Lock()
	defer env.tasks.mu.Unlock()
	if len(env.tasks.created) != 3 || len(env.tasks.completed) != 3 {
		t.Errorf("tasks created/completed = %d/%d, want 3/3",
			len(env.tasks.created), len(env.tasks.completed))
	}
}

func TestEngine_RetryBoundRespected(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{})
	ctx := context.Background()

	// A is configured with max-retries 2 and always fails: exactly 3
	// attempts, then the failure propagates.
	env.runner.alwaysErr["A"] = core.ErrExecution(core.CodeAgentFailed, "broken")

	run, err := env.engine.StartWorkflow(ctx, "pipeline", map[string]any{"task": "doomed"}, nil)
	if err == nil {
		t.Fatal("StartWorkflow() succeeded, want failure")
	}
	if !IsRetryExhausted(err) {
		t.Errorf("err = %v, want RetryExhaustedError", err)
	}
	if got := env.runner.callCount("A"); got != 3 {
		t.Errorf("A attempts = %d, want 3 (1 initial + 2 retries)", got)
	}
	if run.Status() != core.RunFailed {
		t.Errorf("run status = %s, want failed", run.Status())
	}

	sess, err := env.store.Get(ctx, run.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != core.SessionFailed {
		t.Errorf("session status = %s, want failed", sess.Status)
	}
	// No checkpoint and no completed agent: not resumable.
	if sess.IsResumable() {
		t.Error("session with no progress should not be resumable")
	}
	env.tasks.mu.Lock()
	defer env.tasks.mu.Unlock()
	if len(env.tasks.failed) != 3 {
		t.Errorf("failed task markings = %d, want 3", len(env.tasks.failed))
	}
}

func TestEngine_SingleAttemptAgentFailsWithOwnError(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{})
	ctx := context.Background()

	// D allows no retries: one attempt, and the failure surfaces as the
	// agent's own error rather than an exhaustion wrapper.
	solo := &core.WorkflowDefinition{
		ID: "solo",
		Stages: []core.Stage{
			{Name: "Only", Agents: []core.AgentTag{"D"}, Mode: core.ModeSequential},
		},
	}
	if err := env.engine.registry.Register(solo); err != nil {
		t.Fatalf("Register(solo) error = %v", err)
	}
	env.runner.alwaysErr["D"] = core.ErrExecution(core.CodeAgentFailed, "broken")

	_, err := env.engine.StartWorkflow(ctx, "solo", map[string]any{"task": "one shot"}, nil)
	if err == nil {
		t.Fatal("StartWorkflow() succeeded, want failure")
	}
	if IsRetryExhausted(err) {
		t.Errorf("err = %v, want the raw agent error", err)
	}
	if !core.IsCategory(err, core.ErrCatExecution) {
		t.Errorf("err category = %v, want execution", core.GetCategory(err))
	}
	if got := env.runner.callCount("D"); got != 1 {
		t.Errorf("D attempts = %d, want 1", got)
	}
}

func TestEngine_TransientFailureRecovers(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{})
	env.runner.failLeft["A"] = 2

	run, err := env.engine.StartWorkflow(context.Background(), "pipeline", nil, nil)
	if err != nil {
		t.Fatalf("StartWorkflow() error = %v", err)
	}
	if run.Status() != core.RunCompleted {
		t.Errorf("run status = %s, want completed", run.Status())
	}
	if got := env.runner.callCount("A"); got != 3 {
		t.Errorf("A attempts = %d, want 3", got)
	}
}

func TestEngine_ParallelSiblingsSettleIndependently(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{})
	ctx := context.Background()

	env.runner.alwaysErr["C"] = core.ErrExecution(core.CodeAgentFailed, "C broken")

	run, err := env.engine.StartWorkflow(ctx, "pipeline", map[string]any{"task": "partial"}, nil)
	if err == nil {
		t.Fatal("StartWorkflow() succeeded, want failure")
	}

	// B settles successfully even though its sibling failed.
	if got := env.runner.callCount("B"); got != 1 {
		t.Errorf("B attempts = %d, want 1", got)
	}
	if got := env.runner.callCount("C"); got != 3 {
		t.Errorf("C attempts = %d, want 3", got)
	}

	sess, err := env.store.Get(ctx, run.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if !sess.HasCompleted("B") {
		t.Error("B should be recorded as completed")
	}
	// The stage-0 checkpoint persists, so the session is resumable.
	if len(sess.Checkpoints) != 1 {
		t.Errorf("checkpoints = %d, want 1", len(sess.Checkpoints))
	}
	if !sess.IsResumable() {
		t.Error("failed session with a checkpoint should be resumable")
	}
}

func TestEngine_ResumeSkipsCompletedAgents(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{})
	ctx := context.Background()

	env.runner.alwaysErr["C"] = core.ErrExecution(core.CodeAgentFailed, "C broken")
	run, err := env.engine.StartWorkflow(ctx, "pipeline", map[string]any{"task": "resume me"}, nil)
	if err == nil {
		t.Fatal("StartWorkflow() succeeded, want failure")
	}

	callsA := env.runner.callCount("A")
	callsB := env.runner.callCount("B")

	// Fix C and resume: A and B must not run again.
	env.runner.mu.Lock()
	delete(env.runner.alwaysErr, "C")
	env.runner.mu.Unlock()

	resumed, err := env.engine.ResumeWorkflow(ctx, run.SessionID, -1)
	if err != nil {
		t.Fatalf("ResumeWorkflow() error = %v", err)
	}
	if resumed.Status() != core.RunCompleted {
		t.Errorf("resumed run status = %s, want completed", resumed.Status())
	}
	if got := env.runner.callCount("A"); got != callsA {
		t.Errorf("A re-executed on resume: %d -> %d", callsA, got)
	}
	if got := env.runner.callCount("B"); got != callsB {
		t.Errorf("B re-executed on resume: %d -> %d", callsB, got)
	}

	// C reads A's checkpointed output even in the fresh run.
	deps := env.runner.sawDeps["C"]
	if len(deps) == 0 || deps[len(deps)-1] != "A" {
		t.Errorf("C dependency bundle after resume = %v, want A present", deps)
	}

	sess, err := env.store.Get(ctx, run.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != core.SessionCompleted {
		t.Errorf("session status = %s, want completed", sess.Status)
	}
}

func TestEngine_ResumeCompletedSessionRejected(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{})
	ctx := context.Background()

	run, err := env.engine.StartWorkflow(ctx, "pipeline", nil, nil)
	if err != nil {
		t.Fatalf("StartWorkflow() error = %v", err)
	}

	_, err = env.engine.ResumeWorkflow(ctx, run.SessionID, -1)
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr.Code != core.CodeAlreadyCompleted {
		t.Fatalf("ResumeWorkflow() error = %v, want code %s", err, core.CodeAlreadyCompleted)
	}
}

func TestEngine_ResumeRejectsStageSkippingDependencies(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{})
	ctx := context.Background()

	gap := &core.WorkflowDefinition{
		ID: "gap",
		Stages: []core.Stage{
			{Name: "Prep", Agents: []core.AgentTag{"D"}, Mode: core.ModeSequential},
			{Name: "Foundation", Agents: []core.AgentTag{"A"}, Mode: core.ModeSequential},
			{Name: "Build", Agents: []core.AgentTag{"B"}, Mode: core.ModeSequential},
		},
	}
	if err := env.engine.registry.Register(gap); err != nil {
		t.Fatalf("Register(gap) error = %v", err)
	}

	env.runner.alwaysErr["A"] = core.ErrExecution(core.CodeAgentFailed, "A broken")
	run, err := env.engine.StartWorkflow(ctx, "gap", map[string]any{"task": "gap"}, nil)
	if err == nil {
		t.Fatal("StartWorkflow() succeeded, want failure at A")
	}

	// Forcing the resume past the failed stage would leave B without A's
	// output; the engine must refuse up front.
	_, err = env.engine.ResumeWorkflow(ctx, run.SessionID, 2)
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr.Code != core.CodeUnmetDependency {
		t.Fatalf("ResumeWorkflow() error = %v, want code %s", err, core.CodeUnmetDependency)
	}
	callsB := env.runner.callCount("B")
	if callsB != 0 {
		t.Errorf("B executed despite rejected resume: %d calls", callsB)
	}
}

func TestEngine_UnknownWorkflow(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{})

	_, err := env.engine.StartWorkflow(context.Background(), "ghost", nil, nil)
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr.Code != core.CodeUnknownWorkflow {
		t.Fatalf("StartWorkflow() error = %v, want code %s", err, core.CodeUnknownWorkflow)
	}
}

func TestEngine_CancelWorkflow(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{})
	ctx := context.Background()

	gate := make(chan struct{})
	env.runner.gate["A"] = gate
	env.runner.started = make(chan core.AgentTag, 1)

	type result struct {
		run *core.WorkflowRun
		err error
	}
	done := make(chan result, 1)
	go func() {
		run, err := env.engine.StartWorkflow(ctx, "pipeline", map[string]any{"task": "cancel me"}, nil)
		done <- result{run, err}
	}()

	<-env.runner.started
	runs := env.engine.ActiveRuns()
	if len(runs) != 1 {
		t.Fatalf("active runs = %d, want 1", len(runs))
	}
	if !env.engine.HasActiveRun(runs[0].SessionID) {
		t.Error("HasActiveRun() = false for a live run")
	}

	if err := env.engine.CancelWorkflow(ctx, runs[0].ID, false); err != nil {
		t.Fatalf("CancelWorkflow() error = %v", err)
	}
	close(gate)

	res := <-done
	if res.err == nil {
		t.Fatal("StartWorkflow() succeeded after cancel")
	}
	if !core.IsCategory(res.err, core.ErrCatCancelled) {
		t.Errorf("err category = %v, want cancelled", core.GetCategory(res.err))
	}
	if res.run.Status() != core.RunCancelled {
		t.Errorf("run status = %s, want cancelled", res.run.Status())
	}

	sess, err := env.store.Get(ctx, res.run.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != core.SessionFailed {
		t.Errorf("session status = %s, want failed", sess.Status)
	}
	if env.engine.HasActiveRun(res.run.SessionID) {
		t.Error("cancelled run still in the live registry")
	}
}

func TestEngine_ZombieSessionHasNoActiveRun(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{})
	ctx := context.Background()

	sess, err := env.store.Create(ctx, "pipeline", nil, core.WorkflowOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if env.engine.HasActiveRun(sess.ID) {
		t.Error("session without a run reported as active")
	}
	zombies, err := env.store.ListZombies(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, z := range zombies {
		if z.ID == sess.ID {
			found = true
		}
	}
	if !found {
		t.Error("running session with stale heartbeat not reported as zombie")
	}
}

func TestEngine_BranchAndArtifactsAndPR(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{
		CreateBranch:  true,
		CreatePR:      true,
		PRFailureMode: core.PRFailureFail,
	})
	ctx := context.Background()

	env.runner.responses["A"] = `{"success": true, "summary": "scaffold", "artifacts": [{"name": "readme", "type": "file", "path": "README.md", "content": "hello"}], "metadata": {"resource_units": 1}}`

	run, err := env.engine.StartWorkflow(ctx, "pipeline", map[string]any{"task": "ship"}, nil)
	if err != nil {
		t.Fatalf("StartWorkflow() error = %v", err)
	}

	env.vcs.mu.Lock()
	defer env.vcs.mu.Unlock()
	if len(env.vcs.branches) != 1 {
		t.Fatalf("branches = %v, want one", env.vcs.branches)
	}
	if env.vcs.branches[0] != run.BranchID() {
		t.Errorf("run branch = %q, want %q", run.BranchID(), env.vcs.branches[0])
	}
	if len(env.vcs.commits) != 1 {
		t.Errorf("commits = %d, want 1 (only A produced file artifacts)", len(env.vcs.commits))
	}
	if len(env.vcs.prs) != 1 {
		t.Errorf("prs = %d, want 1", len(env.vcs.prs))
	}

	sess, err := env.store.Get(ctx, run.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if url, ok := sess.Context["pr_url"].(string); !ok || url == "" {
		t.Error("pr_url not recorded in session context")
	}
}

func TestEngine_PRFailureModeFail(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{
		CreateBranch:  true,
		CreatePR:      true,
		PRFailureMode: core.PRFailureFail,
	})
	env.vcs.prErr = core.ErrCollaborator(core.CodePRFailed, "gh is down")

	run, err := env.engine.StartWorkflow(context.Background(), "pipeline", nil, nil)
	if err == nil {
		t.Fatal("StartWorkflow() succeeded, want PR failure to propagate")
	}
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr.Code != core.CodePRFailed {
		t.Errorf("err = %v, want code %s", err, core.CodePRFailed)
	}

	sess, getErr := env.store.Get(context.Background(), run.SessionID)
	if getErr != nil {
		t.Fatal(getErr)
	}
	if sess.Status != core.SessionFailed {
		t.Errorf("session status = %s, want failed", sess.Status)
	}
}

func TestEngine_PRFailureModeWarn(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{
		CreateBranch:  true,
		CreatePR:      true,
		PRFailureMode: core.PRFailureWarn,
	})
	env.vcs.prErr = core.ErrCollaborator(core.CodePRFailed, "gh is down")

	run, err := env.engine.StartWorkflow(context.Background(), "pipeline", nil, nil)
	if err != nil {
		t.Fatalf("StartWorkflow() error = %v, want warn mode to swallow PR failure", err)
	}
	if run.Status() != core.RunCompleted {
		t.Errorf("run status = %s, want completed", run.Status())
	}

	sess, getErr := env.store.Get(context.Background(), run.SessionID)
	if getErr != nil {
		t.Fatal(getErr)
	}
	if sess.Status != core.SessionCompleted {
		t.Errorf("session status = %s, want completed", sess.Status)
	}
}

func TestEngine_BranchFailureEscalates(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{CreateBranch: true})
	env.vcs.branchErr = core.ErrCollaborator(core.CodeBranchFailed, "remote rejected")

	run, err := env.engine.StartWorkflow(context.Background(), "pipeline", nil, nil)
	if err == nil {
		t.Fatal("StartWorkflow() succeeded, want branch failure to escalate")
	}
	if run.Status() != core.RunFailed {
		t.Errorf("run status = %s, want failed", run.Status())
	}
	if got := env.runner.callCount("A"); got != 0 {
		t.Errorf("runner invoked %d times after branch failure, want 0", got)
	}
}

func TestEngine_TimeoutIsRetried(t *testing.T) {
	env := newTestEnv(t, core.WorkflowOptions{})
	env.runner.alwaysErr["A"] = core.ErrTimeout("runner exceeded deadline")

	_, err := env.engine.StartWorkflow(context.Background(), "pipeline", nil, nil)
	if !IsRetryExhausted(err) {
		t.Fatalf("err = %v, want RetryExhaustedError", err)
	}
	if got := env.runner.callCount("A"); got != 3 {
		t.Errorf("A attempts = %d, want 3", got)
	}
}
