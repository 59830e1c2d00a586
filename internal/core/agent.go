package core

import (
	"fmt"
	"time"
)

// AgentTag uniquely identifies an agent type in the graph.
type AgentTag string

// AgentDescriptor describes a registered agent: its identity, declared
// dependencies and per-agent execution policy. Immutable after registration.
type AgentDescriptor struct {
	Tag          AgentTag      `json:"tag"`
	Description  string        `json:"description,omitempty"`
	Dependencies []AgentTag    `json:"dependencies,omitempty"`
	DefaultTier  Tier          `json:"default_tier"`
	MaxRetries   int           `json:"max_retries"`
	Timeout      time.Duration `json:"timeout"`
}

// Validate checks descriptor invariants.
func (d *AgentDescriptor) Validate() error {
	if d.Tag == "" {
		return ErrValidation("AGENT_TAG_REQUIRED", "agent tag cannot be empty")
	}
	if !d.DefaultTier.Valid() {
		return ErrValidation("AGENT_TIER_INVALID",
			fmt.Sprintf("agent %s has invalid default tier %q", d.Tag, d.DefaultTier))
	}
	if d.MaxRetries < 0 {
		return ErrValidation("AGENT_RETRIES_INVALID",
			fmt.Sprintf("agent %s has negative max retries", d.Tag))
	}
	return nil
}

// ExecutionStatus represents the state of a single agent execution.
type ExecutionStatus string

const (
	ExecutionSpawning  ExecutionStatus = "spawning"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// AgentExecution records one attempt to run an agent within a workflow run.
type AgentExecution struct {
	ID          string          `json:"id"`
	AgentTag    AgentTag        `json:"agent_tag"`
	TaskID      string          `json:"task_id,omitempty"`
	Status      ExecutionStatus `json:"status"`
	Tier        Tier            `json:"tier"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Output      *AgentOutput    `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Duration returns the execution's wall time.
func (e *AgentExecution) Duration() time.Duration {
	if e.StartedAt.IsZero() {
		return 0
	}
	end := time.Now()
	if e.CompletedAt != nil {
		end = *e.CompletedAt
	}
	return end.Sub(e.StartedAt)
}

// IsTerminal returns true if the execution settled.
func (e *AgentExecution) IsTerminal() bool {
	return e.Status == ExecutionCompleted || e.Status == ExecutionFailed
}

// Artifact is a named output produced by an agent.
type Artifact struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`
}

// OutputMetadata carries resource accounting for one agent execution.
type OutputMetadata struct {
	ResourceUnits int           `json:"resource_units"`
	ExecutionTime time.Duration `json:"execution_time"`
	FilesCreated  []string      `json:"files_created,omitempty"`
	FilesModified []string      `json:"files_modified,omitempty"`
}

// AgentOutput is the structured result of a successful agent execution,
// produced by the response parser at the runner boundary.
type AgentOutput struct {
	Success   bool           `json:"success"`
	Summary   string         `json:"summary"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	Metadata  OutputMetadata `json:"metadata"`
	NextSteps []string       `json:"next_steps,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
}

// FileArtifacts returns the artifacts that carry file content.
func (o *AgentOutput) FileArtifacts() []Artifact {
	var files []Artifact
	for _, a := range o.Artifacts {
		if a.Type == "file" && a.Path != "" {
			files = append(files, a)
		}
	}
	return files
}
