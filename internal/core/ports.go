package core

import (
	"context"
	"time"
)

// =============================================================================
// Agent Runner Port
// =============================================================================

// ExecuteRequest carries everything the external runner needs to execute
// one agent.
type ExecuteRequest struct {
	AgentTag AgentTag
	TaskID   string
	Context  map[string]any
	Tier     Tier
	Timeout  time.Duration
}

// AgentRunner is the external unit-of-work executor. It turns an agent's
// serialized input into a raw textual response. A timeout surfaces as a
// timeout-category DomainError, distinguishable from other execution errors.
type AgentRunner interface {
	Execute(ctx context.Context, req ExecuteRequest) (string, error)
}

// ResponseParser turns the runner's raw response into structured output.
// Pure function of its input; well-defined at the boundary.
type ResponseParser interface {
	Parse(raw string) (*AgentOutput, error)
}

// =============================================================================
// Task Store Port
// =============================================================================

// TaskRequest describes the external bookkeeping task created for one
// agent execution.
type TaskRequest struct {
	AgentTag          AgentTag
	Summary           string
	Description       string
	Context           map[string]any
	DependencyTaskIDs []string
}

// TaskStore is the external task bookkeeping collaborator. The engine only
// needs create/complete/fail.
type TaskStore interface {
	Create(ctx context.Context, req TaskRequest) (string, error)
	Complete(ctx context.Context, taskID string, output *AgentOutput) error
	Fail(ctx context.Context, taskID string, reason string) error
}

// =============================================================================
// VCS Port
// =============================================================================

// CommitFile is one file to commit.
type CommitFile struct {
	Path    string
	Content string
}

// PROptions configures pull-request creation.
type PROptions struct {
	Title string
	Body  string
	Draft bool
}

// VCSClient is the version-control collaborator invoked at defined points:
// branch creation at workflow start, artifact commits after agents, PR
// creation on completion, branch deletion on cancel cleanup.
type VCSClient interface {
	CreateBranch(ctx context.Context, name string) (string, error)
	CommitFiles(ctx context.Context, files []CommitFile, message string) error
	DeleteBranch(ctx context.Context, branchID string) error
	CreatePullRequest(ctx context.Context, branch string, opts PROptions) (string, error)
}

// =============================================================================
// Session Storage Port
// =============================================================================

// SessionFilter narrows session listings.
type SessionFilter struct {
	Status     SessionStatus
	WorkflowID string
}

// Matches reports whether a session passes the filter.
func (f SessionFilter) Matches(s *Session) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.WorkflowID != "" && s.WorkflowID != f.WorkflowID {
		return false
	}
	return true
}

// SessionStorage is the durable backend behind the session store. The
// default implementation is one JSON file per session; a database can
// substitute without touching the engine.
type SessionStorage interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	Delete(ctx context.Context, id string) error
}
