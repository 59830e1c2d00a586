package events

// Event type constants for session lifecycle events.
const (
	TypeSessionCreated       = "session_created"
	TypeSessionStatusChanged = "session_status_changed"
	TypeCheckpointCreated    = "checkpoint_created"
	TypeSessionRestored      = "session_restored"
)

// SessionCreatedEvent is emitted when a new session is created.
type SessionCreatedEvent struct {
	BaseEvent
	WorkflowID string `json:"workflow_id"`
}

// NewSessionCreatedEvent creates a new session created event.
func NewSessionCreatedEvent(sessionID, workflowID string) SessionCreatedEvent {
	return SessionCreatedEvent{
		BaseEvent:  NewBaseEvent(TypeSessionCreated, sessionID),
		WorkflowID: workflowID,
	}
}

// SessionStatusChangedEvent is emitted on every session status transition.
type SessionStatusChangedEvent struct {
	BaseEvent
	From string `json:"from"`
	To   string `json:"to"`
}

// NewSessionStatusChangedEvent creates a new status changed event.
func NewSessionStatusChangedEvent(sessionID, from, to string) SessionStatusChangedEvent {
	return SessionStatusChangedEvent{
		BaseEvent: NewBaseEvent(TypeSessionStatusChanged, sessionID),
		From:      from,
		To:        to,
	}
}

// CheckpointCreatedEvent is emitted after a stage checkpoint is persisted.
type CheckpointCreatedEvent struct {
	BaseEvent
	CheckpointID string `json:"checkpoint_id"`
	StageIndex   int    `json:"stage_index"`
	StageName    string `json:"stage_name"`
}

// NewCheckpointCreatedEvent creates a new checkpoint created event.
func NewCheckpointCreatedEvent(sessionID, checkpointID string, stageIndex int, stageName string) CheckpointCreatedEvent {
	return CheckpointCreatedEvent{
		BaseEvent:    NewBaseEvent(TypeCheckpointCreated, sessionID),
		CheckpointID: checkpointID,
		StageIndex:   stageIndex,
		StageName:    stageName,
	}
}

// SessionRestoredEvent is emitted when a session is restored from a
// checkpoint for resumption.
type SessionRestoredEvent struct {
	BaseEvent
	CheckpointID string `json:"checkpoint_id"`
	ResumeStage  int    `json:"resume_stage"`
}

// NewSessionRestoredEvent creates a new session restored event.
func NewSessionRestoredEvent(sessionID, checkpointID string, resumeStage int) SessionRestoredEvent {
	return SessionRestoredEvent{
		BaseEvent:    NewBaseEvent(TypeSessionRestored, sessionID),
		CheckpointID: checkpointID,
		ResumeStage:  resumeStage,
	}
}
