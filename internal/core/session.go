package core

import (
	"time"
)

// SessionStatus represents the durable status of a workflow session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// MaxSessionLogs bounds the session log ring. Oldest entries are dropped
// once the cap is reached.
const MaxSessionLogs = 1000

// LogEntry is one line in a session's bounded log ring.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Checkpoint is an immutable snapshot of progress taken after a stage
// completes. Append-only; never mutated once written.
type Checkpoint struct {
	ID              string         `json:"id"`
	SessionID       string         `json:"session_id"`
	StageIndex      int            `json:"stage_index"`
	StageName       string         `json:"stage_name"`
	CompletedAgents []AgentTag     `json:"completed_agents"`
	State           map[string]any `json:"state,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// SessionMetadata aggregates resource accounting across a session.
type SessionMetadata struct {
	TotalResourceUnits int              `json:"total_resource_units"`
	TotalExecutionTime time.Duration    `json:"total_execution_time"`
	AgentExecutions    []AgentExecution `json:"agent_executions,omitempty"`
}

// Session is the durable record of one workflow execution attempt, across
// possible crashes and resumes. It exclusively owns its checkpoints and logs.
type Session struct {
	ID              string          `json:"id"`
	WorkflowID      string          `json:"workflow_id"`
	Status          SessionStatus   `json:"status"`
	Context         map[string]any  `json:"context"`
	Options         WorkflowOptions `json:"options"`
	Checkpoints     []Checkpoint    `json:"checkpoints"`
	Logs            []LogEntry      `json:"logs,omitempty"`
	CompletedAgents []AgentTag      `json:"completed_agents,omitempty"`
	CurrentStage    int             `json:"current_stage"`
	Metadata        SessionMetadata `json:"metadata"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Error           string          `json:"error,omitempty"`
}

// AppendLog adds an entry to the log ring, dropping the oldest entry once
// MaxSessionLogs is exceeded.
func (s *Session) AppendLog(level, message string) {
	s.Logs = append(s.Logs, LogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: message,
	})
	if len(s.Logs) > MaxSessionLogs {
		s.Logs = s.Logs[len(s.Logs)-MaxSessionLogs:]
	}
}

// RecordExecution appends an execution record and folds its resource usage
// into the aggregate metadata.
func (s *Session) RecordExecution(exec AgentExecution) {
	s.Metadata.AgentExecutions = append(s.Metadata.AgentExecutions, exec)
	if exec.Output != nil {
		s.Metadata.TotalResourceUnits += exec.Output.Metadata.ResourceUnits
		s.Metadata.TotalExecutionTime += exec.Output.Metadata.ExecutionTime
	} else {
		s.Metadata.TotalExecutionTime += exec.Duration()
	}
}

// LatestCheckpoint returns the most recent checkpoint, or nil if the session
// never checkpointed.
func (s *Session) LatestCheckpoint() *Checkpoint {
	if len(s.Checkpoints) == 0 {
		return nil
	}
	return &s.Checkpoints[len(s.Checkpoints)-1]
}

// IsResumable reports whether the session can be restored: it must be failed
// or paused and carry either a checkpoint or at least one completed agent.
func (s *Session) IsResumable() bool {
	if s.Status != SessionFailed && s.Status != SessionPaused {
		return false
	}
	return len(s.Checkpoints) > 0 || len(s.CompletedAgents) > 0
}

// IsTerminal returns true if the session reached its final state.
// Failed sessions are terminal for the run that produced them but may still
// be restored into a new run.
func (s *Session) IsTerminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionFailed
}

// HasCompleted reports whether the given agent is in the completed set.
func (s *Session) HasCompleted(tag AgentTag) bool {
	for _, t := range s.CompletedAgents {
		if t == tag {
			return true
		}
	}
	return false
}

// ContextKeyOutput returns the session-context key holding an agent's output.
func ContextKeyOutput(tag AgentTag) string {
	return "output:" + string(tag)
}

// ContextKeyRetries returns the session-context key holding an agent's
// retry counter. The counter lives only in the run context: a resume builds
// a fresh run, so retry counts do not survive a restart.
func ContextKeyRetries(tag AgentTag) string {
	return "retries:" + string(tag)
}
