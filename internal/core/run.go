package core

import (
	"sync"
	"time"
)

// RunStatus represents the state of an in-memory workflow run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// WorkflowRun is the in-memory, process-lifetime execution handle for a
// session. It exists only while the engine process is alive; the session is
// the durable projection. At most one live run per session at a time.
type WorkflowRun struct {
	ID         string
	Definition *WorkflowDefinition
	SessionID  string

	mu              sync.RWMutex
	status          RunStatus
	context         map[string]any
	currentStage    int
	executions      []*AgentExecution
	completedAgents map[AgentTag]bool
	startedAt       time.Time
	endedAt         *time.Time
	branchID        string
	err             error
}

// NewWorkflowRun creates a run bound to a session. The working context is
// initialized from the session's accumulated context and diverges during
// execution.
func NewWorkflowRun(id string, def *WorkflowDefinition, sessionID string, context map[string]any, completed []AgentTag, startStage int) *WorkflowRun {
	ctx := make(map[string]any, len(context))
	for k, v := range context {
		ctx[k] = v
	}
	done := make(map[AgentTag]bool, len(completed))
	for _, tag := range completed {
		done[tag] = true
	}
	return &WorkflowRun{
		ID:              id,
		Definition:      def,
		SessionID:       sessionID,
		status:          RunRunning,
		context:         ctx,
		currentStage:    startStage,
		completedAgents: done,
		startedAt:       time.Now(),
	}
}

// Status returns the run status.
func (r *WorkflowRun) Status() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// SetStatus transitions the run status. Terminal states also stamp the end
// time and, for failures, keep the first error.
func (r *WorkflowRun) SetStatus(status RunStatus, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	if status == RunCompleted || status == RunFailed || status == RunCancelled {
		now := time.Now()
		r.endedAt = &now
	}
	if err != nil && r.err == nil {
		r.err = err
	}
}

// Err returns the terminal error, if any.
func (r *WorkflowRun) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// CurrentStage returns the index of the next stage to execute.
func (r *WorkflowRun) CurrentStage() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentStage
}

// SetCurrentStage advances the stage cursor.
func (r *WorkflowRun) SetCurrentStage(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentStage = i
}

// ContextValue reads a key from the working context.
func (r *WorkflowRun) ContextValue(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.context[key]
	return v, ok
}

// SetContextValue writes a key into the working context. Concurrent agents
// in a parallel stage never write the same key, so a single mutex suffices.
func (r *WorkflowRun) SetContextValue(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.context[key] = value
}

// ContextSnapshot returns a shallow copy of the working context.
func (r *WorkflowRun) ContextSnapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(map[string]any, len(r.context))
	for k, v := range r.context {
		snap[k] = v
	}
	return snap
}

// MarkCompleted adds an agent to the completed set.
func (r *WorkflowRun) MarkCompleted(tag AgentTag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completedAgents[tag] = true
}

// HasCompleted reports whether an agent already completed in this run
// (including agents carried over from a resumed session).
func (r *WorkflowRun) HasCompleted(tag AgentTag) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.completedAgents[tag]
}

// CompletedAgents returns the completed set as a sorted-insensitive slice.
func (r *WorkflowRun) CompletedAgents() []AgentTag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]AgentTag, 0, len(r.completedAgents))
	for tag := range r.completedAgents {
		tags = append(tags, tag)
	}
	return tags
}

// AddExecution tracks an agent execution on the run.
func (r *WorkflowRun) AddExecution(exec *AgentExecution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions = append(r.executions, exec)
}

// StartExecution stamps the selected tier and external task on a tracked
// execution and transitions it to running. The transition is skipped when a
// concurrent cancel already settled the execution.
func (r *WorkflowRun) StartExecution(exec *AgentExecution, tier Tier, taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if exec.IsTerminal() {
		return false
	}
	exec.Tier = tier
	exec.TaskID = taskID
	exec.Status = ExecutionRunning
	return true
}

// CompleteExecution settles a tracked execution as completed and returns a
// copy safe to persist without holding the run lock. An execution already
// settled by a concurrent cancel is returned unchanged.
func (r *WorkflowRun) CompleteExecution(exec *AgentExecution, output *AgentOutput) AgentExecution {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !exec.IsTerminal() {
		now := time.Now()
		exec.Status = ExecutionCompleted
		exec.CompletedAt = &now
		exec.Output = output
	}
	return *exec
}

// FailExecution settles a tracked execution as failed and returns a copy
// safe to persist without holding the run lock.
func (r *WorkflowRun) FailExecution(exec *AgentExecution, errMsg string) AgentExecution {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !exec.IsTerminal() {
		now := time.Now()
		exec.Status = ExecutionFailed
		exec.Error = errMsg
		exec.CompletedAt = &now
	}
	return *exec
}

// FailActiveExecutions settles every execution still in flight as failed.
func (r *WorkflowRun) FailActiveExecutions(errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, exec := range r.executions {
		if exec.IsTerminal() {
			continue
		}
		exec.Status = ExecutionFailed
		exec.Error = errMsg
		exec.CompletedAt = &now
	}
}

// ActiveExecutions returns executions still in spawning or running state.
func (r *WorkflowRun) ActiveExecutions() []*AgentExecution {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var active []*AgentExecution
	for _, exec := range r.executions {
		if !exec.IsTerminal() {
			active = append(active, exec)
		}
	}
	return active
}

// SetBranchID records the VCS branch associated with this run.
func (r *WorkflowRun) SetBranchID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.branchID = id
}

// BranchID returns the associated VCS branch, if any.
func (r *WorkflowRun) BranchID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.branchID
}

// StartedAt returns the run start time.
func (r *WorkflowRun) StartedAt() time.Time {
	return r.startedAt
}

// Duration returns the run's wall time.
func (r *WorkflowRun) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	end := time.Now()
	if r.endedAt != nil {
		end = *r.endedAt
	}
	return end.Sub(r.startedAt)
}
