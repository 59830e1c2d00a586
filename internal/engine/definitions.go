package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ordo-ai/ordo/internal/core"
	"github.com/ordo-ai/ordo/internal/graph"
)

// Registry resolves workflow identities to validated definitions. Built-in
// workflows are registered at construction; additional definitions load from
// YAML files. Every definition is validated against the agent graph before
// it becomes resolvable.
type Registry struct {
	mu    sync.RWMutex
	graph *graph.AgentGraph
	defs  map[string]*core.WorkflowDefinition
}

// NewRegistry creates a registry over the given agent graph, pre-populated
// with the built-in workflows.
func NewRegistry(g *graph.AgentGraph) (*Registry, error) {
	r := &Registry{
		graph: g,
		defs:  make(map[string]*core.WorkflowDefinition),
	}
	for _, def := range builtinWorkflows() {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates and adds a definition. Registering an existing ID
// replaces it, which lets a YAML file override a built-in workflow.
func (r *Registry) Register(def *core.WorkflowDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if err := r.validateAgainstGraph(def); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.ID] = def
	return nil
}

// Get resolves a workflow by identity.
func (r *Registry) Get(id string) (*core.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	if !ok {
		return nil, core.ErrConfiguration(core.CodeUnknownWorkflow,
			fmt.Sprintf("unknown workflow %q", id))
	}
	return def, nil
}

// ExecutionLevels returns the workflow's agents grouped into dependency
// levels: every agent's in-workflow dependencies sit in an earlier level.
func (r *Registry) ExecutionLevels(id string) ([][]core.AgentTag, error) {
	def, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return r.graph.TopologicalLevels(def.AgentTags())
}

// IDs returns the registered workflow identities, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDir registers every .yml/.yaml definition found in dir. A missing
// directory is not an error; a malformed or invalid definition is.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return core.ErrConfiguration("WORKFLOW_DIR_UNREADABLE",
			fmt.Sprintf("cannot read workflow directory %s", dir)).WithCause(err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		def, err := loadDefinitionFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// loadDefinitionFile parses one YAML workflow definition.
func loadDefinitionFile(path string) (*core.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.ErrConfiguration("WORKFLOW_FILE_UNREADABLE",
			fmt.Sprintf("cannot read workflow file %s", path)).WithCause(err)
	}
	var def core.WorkflowDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, core.ErrConfiguration("WORKFLOW_FILE_INVALID",
			fmt.Sprintf("cannot parse workflow file %s", path)).WithCause(err)
	}
	if def.ID == "" {
		base := filepath.Base(path)
		def.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &def, nil
}

// validateAgainstGraph checks that every referenced agent is registered and
// that no agent is scheduled in an earlier-or-same stage than any of its
// declared dependencies. Violations are workflow-authoring defects, caught
// at load time rather than auto-corrected.
func (r *Registry) validateAgainstGraph(def *core.WorkflowDefinition) error {
	for _, tag := range def.AgentTags() {
		if !r.graph.Has(tag) {
			return core.ErrConfiguration(core.CodeUnknownAgent,
				fmt.Sprintf("workflow %s references unregistered agent %s", def.ID, tag))
		}
	}
	var violations []string
	for i, stage := range def.Stages {
		for _, tag := range stage.Agents {
			for _, dep := range r.graph.DependenciesOf(tag) {
				depStage := def.StageIndexOf(dep)
				if depStage == -1 {
					// Dependency satisfied outside this workflow; the
					// engine validates against the completed set at run
					// time instead.
					continue
				}
				if depStage >= i {
					violations = append(violations,
						fmt.Sprintf("agent %s in stage %q requires %s, scheduled in stage %q",
							tag, stage.Name, dep, def.Stages[depStage].Name))
				}
			}
		}
	}
	if len(violations) > 0 {
		// Report every violation at once so an author fixes the whole
		// workflow in a single pass.
		return core.ErrValidation(core.CodeStageOrdering,
			fmt.Sprintf("workflow %s: %s", def.ID, strings.Join(violations, "; ")))
	}
	return nil
}

// builtinWorkflows returns the definitions shipped with the engine, built
// over the default agent catalog.
func builtinWorkflows() []*core.WorkflowDefinition {
	return []*core.WorkflowDefinition{
		{
			ID:          "feature",
			Description: "Full delivery pipeline from product framing through deployment",
			Stages: []core.Stage{
				{Name: "Product Definition", Agents: []core.AgentTag{"PM"}, Mode: core.ModeSequential},
				{Name: "Architecture", Agents: []core.AgentTag{"ARCHITECT"}, Mode: core.ModeSequential, After: "Product Definition"},
				{Name: "Technical Leadership", Agents: []core.AgentTag{"TL_FRONTEND", "TL_BACKEND"}, Mode: core.ModeParallel, After: "Architecture"},
				{Name: "Development", Agents: []core.AgentTag{"DEV_FRONTEND", "DEV_BACKEND"}, Mode: core.ModeParallel, After: "Technical Leadership"},
				{Name: "Quality Assurance", Agents: []core.AgentTag{"QA"}, Mode: core.ModeSequential, After: "Development"},
				{Name: "Deployment", Agents: []core.AgentTag{"DEVOPS"}, Mode: core.ModeSequential, After: "Quality Assurance"},
			},
			Options: core.WorkflowOptions{
				CreateBranch:  true,
				CreatePR:      true,
				PRFailureMode: core.PRFailureWarn,
			},
		},
		{
			ID:          "backend-only",
			Description: "Backend slice of the delivery pipeline",
			Stages: []core.Stage{
				{Name: "Product Definition", Agents: []core.AgentTag{"PM"}, Mode: core.ModeSequential},
				{Name: "Architecture", Agents: []core.AgentTag{"ARCHITECT"}, Mode: core.ModeSequential, After: "Product Definition"},
				{Name: "Technical Leadership", Agents: []core.AgentTag{"TL_BACKEND"}, Mode: core.ModeSequential, After: "Architecture"},
				{Name: "Development", Agents: []core.AgentTag{"DEV_BACKEND"}, Mode: core.ModeSequential, After: "Technical Leadership"},
			},
			Options: core.WorkflowOptions{
				CreateBranch:  true,
				PRFailureMode: core.PRFailureWarn,
			},
		},
	}
}
