package core

import "fmt"

// ExecutionMode controls how a stage runs its agents.
type ExecutionMode string

const (
	ModeSequential ExecutionMode = "sequential"
	ModeParallel   ExecutionMode = "parallel"
)

// Valid returns true if the mode is a known value.
func (m ExecutionMode) Valid() bool {
	return m == ModeSequential || m == ModeParallel
}

// PRFailureMode controls how a pull-request creation failure is handled.
type PRFailureMode string

const (
	// PRFailureFail propagates the PR error to the workflow.
	PRFailureFail PRFailureMode = "fail"
	// PRFailureWarn logs the PR error and continues.
	PRFailureWarn PRFailureMode = "warn"
)

// Stage is a named set of agents executed together within a workflow.
type Stage struct {
	Name   string        `json:"name" yaml:"name"`
	Agents []AgentTag    `json:"agents" yaml:"agents"`
	Mode   ExecutionMode `json:"mode" yaml:"mode"`
	// After names the declared predecessor stage. Informational only: the
	// real ordering enforcement is the stage list order plus the agent graph.
	After string `json:"after,omitempty" yaml:"after,omitempty"`
}

// WorkflowOptions holds workflow-level completion options.
type WorkflowOptions struct {
	CreateBranch  bool          `json:"create_branch" yaml:"create_branch"`
	CreatePR      bool          `json:"create_pr" yaml:"create_pr"`
	Draft         bool          `json:"draft" yaml:"draft"`
	PRFailureMode PRFailureMode `json:"pr_failure_mode" yaml:"pr_failure_mode"`
}

// WorkflowDefinition is an ordered list of stages plus completion options.
type WorkflowDefinition struct {
	ID          string          `json:"id" yaml:"id"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Stages      []Stage         `json:"stages" yaml:"stages"`
	Options     WorkflowOptions `json:"options" yaml:"options"`
}

// StageIndexOf returns the index of the stage containing the given agent,
// or -1 if the agent appears in no stage.
func (d *WorkflowDefinition) StageIndexOf(tag AgentTag) int {
	for i, stage := range d.Stages {
		for _, a := range stage.Agents {
			if a == tag {
				return i
			}
		}
	}
	return -1
}

// AgentTags returns every agent tag referenced by the definition, in stage
// order, without duplicates.
func (d *WorkflowDefinition) AgentTags() []AgentTag {
	seen := make(map[AgentTag]bool)
	var tags []AgentTag
	for _, stage := range d.Stages {
		for _, a := range stage.Agents {
			if !seen[a] {
				seen[a] = true
				tags = append(tags, a)
			}
		}
	}
	return tags
}

// Validate checks structural invariants that do not require the agent graph.
// Dependency-ordering validation happens at definition load time, where the
// graph is available.
func (d *WorkflowDefinition) Validate() error {
	if d.ID == "" {
		return ErrValidation("WORKFLOW_ID_REQUIRED", "workflow ID cannot be empty")
	}
	if len(d.Stages) == 0 {
		return ErrValidation("WORKFLOW_STAGES_REQUIRED",
			fmt.Sprintf("workflow %s has no stages", d.ID))
	}
	seen := make(map[string]bool)
	for i, stage := range d.Stages {
		if stage.Name == "" {
			return ErrValidation("STAGE_NAME_REQUIRED",
				fmt.Sprintf("workflow %s: stage %d has no name", d.ID, i))
		}
		if seen[stage.Name] {
			return ErrValidation("STAGE_NAME_DUPLICATE",
				fmt.Sprintf("workflow %s: duplicate stage name %q", d.ID, stage.Name))
		}
		seen[stage.Name] = true
		if len(stage.Agents) == 0 {
			return ErrValidation("STAGE_AGENTS_REQUIRED",
				fmt.Sprintf("workflow %s: stage %q has no agents", d.ID, stage.Name))
		}
		if !stage.Mode.Valid() {
			return ErrValidation("STAGE_MODE_INVALID",
				fmt.Sprintf("workflow %s: stage %q has invalid mode %q", d.ID, stage.Name, stage.Mode))
		}
	}
	if d.Options.PRFailureMode != "" &&
		d.Options.PRFailureMode != PRFailureFail &&
		d.Options.PRFailureMode != PRFailureWarn {
		return ErrValidation("PR_FAILURE_MODE_INVALID",
			fmt.Sprintf("workflow %s: invalid pr_failure_mode %q", d.ID, d.Options.PRFailureMode))
	}
	return nil
}
