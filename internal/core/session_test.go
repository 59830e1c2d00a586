package core

import (
	"fmt"
	"testing"
	"time"
)

func TestSession_AppendLogRing(t *testing.T) {
	s := &Session{ID: "s1"}
	for i := 0; i < MaxSessionLogs+50; i++ {
		s.AppendLog("info", fmt.Sprintf("entry %d", i))
	}
	if len(s.Logs) != MaxSessionLogs {
		t.Fatalf("expected %d logs, got %d", MaxSessionLogs, len(s.Logs))
	}
	// The oldest 50 entries were dropped.
	if s.Logs[0].Message != "entry 50" {
		t.Fatalf("expected oldest surviving entry 50, got %q", s.Logs[0].Message)
	}
	if s.Logs[len(s.Logs)-1].Message != fmt.Sprintf("entry %d", MaxSessionLogs+49) {
		t.Fatalf("unexpected newest entry %q", s.Logs[len(s.Logs)-1].Message)
	}
}

func TestSession_IsResumable(t *testing.T) {
	cp := Checkpoint{ID: "c1", StageIndex: 0}

	cases := []struct {
		name      string
		status    SessionStatus
		cps       []Checkpoint
		completed []AgentTag
		want      bool
	}{
		{"failed with checkpoint", SessionFailed, []Checkpoint{cp}, nil, true},
		{"failed with completed agents", SessionFailed, nil, []AgentTag{"PM"}, true},
		{"failed empty", SessionFailed, nil, nil, false},
		{"paused with checkpoint", SessionPaused, []Checkpoint{cp}, nil, true},
		{"completed with checkpoint", SessionCompleted, []Checkpoint{cp}, nil, false},
		{"running with checkpoint", SessionRunning, []Checkpoint{cp}, nil, false},
	}
	for _, tc := range cases {
		s := &Session{Status: tc.status, Checkpoints: tc.cps, CompletedAgents: tc.completed}
		if got := s.IsResumable(); got != tc.want {
			t.Errorf("%s: IsResumable() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSession_RecordExecution(t *testing.T) {
	s := &Session{ID: "s1"}
	done := time.Now()
	s.RecordExecution(AgentExecution{
		ID:          "e1",
		AgentTag:    "PM",
		Status:      ExecutionCompleted,
		StartedAt:   done.Add(-2 * time.Second),
		CompletedAt: &done,
		Output: &AgentOutput{
			Success: true,
			Metadata: OutputMetadata{
				ResourceUnits: 120,
				ExecutionTime: 2 * time.Second,
			},
		},
	})
	if s.Metadata.TotalResourceUnits != 120 {
		t.Fatalf("expected 120 resource units, got %d", s.Metadata.TotalResourceUnits)
	}
	if s.Metadata.TotalExecutionTime != 2*time.Second {
		t.Fatalf("expected 2s execution time, got %s", s.Metadata.TotalExecutionTime)
	}
	if len(s.Metadata.AgentExecutions) != 1 {
		t.Fatalf("expected 1 recorded execution")
	}
}

func TestSession_LatestCheckpoint(t *testing.T) {
	s := &Session{}
	if s.LatestCheckpoint() != nil {
		t.Fatalf("expected nil checkpoint for fresh session")
	}
	s.Checkpoints = append(s.Checkpoints,
		Checkpoint{ID: "c1", StageIndex: 0},
		Checkpoint{ID: "c2", StageIndex: 1},
	)
	cp := s.LatestCheckpoint()
	if cp == nil || cp.ID != "c2" {
		t.Fatalf("expected latest checkpoint c2, got %+v", cp)
	}
}

func TestSession_HasCompleted(t *testing.T) {
	s := &Session{CompletedAgents: []AgentTag{"PM", "ARCHITECT"}}
	if !s.HasCompleted("PM") || s.HasCompleted("QA") {
		t.Fatalf("unexpected completed-set membership")
	}
}
