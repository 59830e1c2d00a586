package core

import (
	"sync"
	"testing"
)

func testRun() *WorkflowRun {
	def := &WorkflowDefinition{
		ID:     "pipeline",
		Stages: []Stage{{Name: "Only", Agents: []AgentTag{"A"}, Mode: ModeSequential}},
	}
	return NewWorkflowRun("run-1", def, "sess-1", nil, nil, 0)
}

func TestWorkflowRun_ExecutionLifecycle(t *testing.T) {
	run := testRun()
	exec := &AgentExecution{ID: "exec-1", AgentTag: "A", Status: ExecutionSpawning}
	run.AddExecution(exec)

	if !run.StartExecution(exec, TierStandard, "task-1") {
		t.Fatal("StartExecution on a fresh execution should apply")
	}
	if len(run.ActiveExecutions()) != 1 {
		t.Fatalf("active executions = %d, want 1", len(run.ActiveExecutions()))
	}

	record := run.CompleteExecution(exec, &AgentOutput{Success: true, Summary: "done"})
	if record.Status != ExecutionCompleted || record.Tier != TierStandard || record.TaskID != "task-1" {
		t.Errorf("unexpected record: %+v", record)
	}
	if len(run.ActiveExecutions()) != 0 {
		t.Error("completed execution still reported active")
	}
}

func TestWorkflowRun_CancelSettlesInFlightExecutions(t *testing.T) {
	run := testRun()
	exec := &AgentExecution{ID: "exec-1", AgentTag: "A", Status: ExecutionRunning}
	run.AddExecution(exec)

	run.FailActiveExecutions("workflow cancelled")

	// The executing goroutine loses the settle race: its completion must
	// not overwrite the cancelled record.
	record := run.CompleteExecution(exec, &AgentOutput{Success: true})
	if record.Status != ExecutionFailed {
		t.Errorf("status = %s, want failed after cancel", record.Status)
	}
	if record.Error != "workflow cancelled" {
		t.Errorf("error = %q, want cancel message", record.Error)
	}
	if record.Output != nil {
		t.Error("output should not be attached to a cancelled execution")
	}
	if run.StartExecution(exec, TierPremium, "task-2") {
		t.Error("StartExecution should not revive a settled execution")
	}
}

func TestWorkflowRun_ConcurrentSettles(t *testing.T) {
	run := testRun()
	execs := make([]*AgentExecution, 8)
	for i := range execs {
		execs[i] = &AgentExecution{ID: string(rune('a' + i)), AgentTag: "A", Status: ExecutionRunning}
		run.AddExecution(execs[i])
	}

	var wg sync.WaitGroup
	wg.Add(len(execs) + 1)
	go func() {
		defer wg.Done()
		run.FailActiveExecutions("cancelled")
	}()
	for _, exec := range execs {
		go func() {
			defer wg.Done()
			run.CompleteExecution(exec, &AgentOutput{Success: true})
		}()
	}
	wg.Wait()

	if active := run.ActiveExecutions(); len(active) != 0 {
		t.Errorf("unsettled executions remain: %d", len(active))
	}
}
