package events

import "time"

// Event type constants for workflow run events.
const (
	TypeWorkflowStarted   = "workflow_started"
	TypeStageCompleted    = "stage_completed"
	TypeWorkflowCompleted = "workflow_completed"
	TypeWorkflowFailed    = "workflow_failed"
	TypeWorkflowCancelled = "workflow_cancelled"
)

// WorkflowStartedEvent is emitted when a workflow run begins.
type WorkflowStartedEvent struct {
	BaseEvent
	WorkflowID string `json:"workflow_id"`
	Task       string `json:"task"`
}

// NewWorkflowStartedEvent creates a new workflow started event.
func NewWorkflowStartedEvent(sessionID, workflowID, task string) WorkflowStartedEvent {
	return WorkflowStartedEvent{
		BaseEvent:  NewBaseEvent(TypeWorkflowStarted, sessionID),
		WorkflowID: workflowID,
		Task:       task,
	}
}

// StageCompletedEvent is emitted when every agent in a stage has finished.
type StageCompletedEvent struct {
	BaseEvent
	StageIndex int      `json:"stage_index"`
	StageName  string   `json:"stage_name"`
	Agents     []string `json:"agents"`
}

// NewStageCompletedEvent creates a new stage completed event.
func NewStageCompletedEvent(sessionID string, stageIndex int, stageName string, agents []string) StageCompletedEvent {
	return StageCompletedEvent{
		BaseEvent:  NewBaseEvent(TypeStageCompleted, sessionID),
		StageIndex: stageIndex,
		StageName:  stageName,
		Agents:     agents,
	}
}

// WorkflowCompletedEvent is emitted when a workflow run finishes successfully.
// This is a priority event, never dropped.
type WorkflowCompletedEvent struct {
	BaseEvent
	WorkflowID string        `json:"workflow_id"`
	Duration   time.Duration `json:"duration"`
	TotalUnits float64       `json:"total_units"`
}

// NewWorkflowCompletedEvent creates a new workflow completed event.
func NewWorkflowCompletedEvent(sessionID, workflowID string, duration time.Duration, totalUnits float64) WorkflowCompletedEvent {
	return WorkflowCompletedEvent{
		BaseEvent:  NewBaseEvent(TypeWorkflowCompleted, sessionID),
		WorkflowID: workflowID,
		Duration:   duration,
		TotalUnits: totalUnits,
	}
}

// WorkflowFailedEvent is emitted when a workflow run fails.
// This is a priority event, never dropped.
type WorkflowFailedEvent struct {
	BaseEvent
	WorkflowID string `json:"workflow_id"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
}

// NewWorkflowFailedEvent creates a new workflow failed event.
func NewWorkflowFailedEvent(sessionID, workflowID, stage string, err error) WorkflowFailedEvent {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	return WorkflowFailedEvent{
		BaseEvent:  NewBaseEvent(TypeWorkflowFailed, sessionID),
		WorkflowID: workflowID,
		Stage:      stage,
		Error:      errStr,
	}
}

// WorkflowCancelledEvent is emitted when a workflow run is cancelled.
type WorkflowCancelledEvent struct {
	BaseEvent
	WorkflowID string `json:"workflow_id"`
	Stage      string `json:"stage"`
}

// NewWorkflowCancelledEvent creates a new workflow cancelled event.
func NewWorkflowCancelledEvent(sessionID, workflowID, stage string) WorkflowCancelledEvent {
	return WorkflowCancelledEvent{
		BaseEvent:  NewBaseEvent(TypeWorkflowCancelled, sessionID),
		WorkflowID: workflowID,
		Stage:      stage,
	}
}
