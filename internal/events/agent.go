package events

import "time"

// Event type constants for agent execution events.
const (
	TypeAgentStarted   = "agent_started"
	TypeAgentCompleted = "agent_completed"
	TypeAgentFailed    = "agent_failed"
	TypeAgentRetrying  = "agent_retrying"
)

// AgentStartedEvent is emitted when an agent begins executing.
type AgentStartedEvent struct {
	BaseEvent
	Agent string `json:"agent"`
	Stage string `json:"stage"`
	Tier  string `json:"tier"`
}

// NewAgentStartedEvent creates a new agent started event.
func NewAgentStartedEvent(sessionID, agent, stage, tier string) AgentStartedEvent {
	return AgentStartedEvent{
		BaseEvent: NewBaseEvent(TypeAgentStarted, sessionID),
		Agent:     agent,
		Stage:     stage,
		Tier:      tier,
	}
}

// AgentCompletedEvent is emitted when an agent finishes successfully.
type AgentCompletedEvent struct {
	BaseEvent
	Agent    string        `json:"agent"`
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
	Summary  string        `json:"summary,omitempty"`
}

// NewAgentCompletedEvent creates a new agent completed event.
func NewAgentCompletedEvent(sessionID, agent, stage string, duration time.Duration, summary string) AgentCompletedEvent {
	return AgentCompletedEvent{
		BaseEvent: NewBaseEvent(TypeAgentCompleted, sessionID),
		Agent:     agent,
		Stage:     stage,
		Duration:  duration,
		Summary:   summary,
	}
}

// AgentFailedEvent is emitted when an agent exhausts its retries.
type AgentFailedEvent struct {
	BaseEvent
	Agent    string `json:"agent"`
	Stage    string `json:"stage"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

// NewAgentFailedEvent creates a new agent failed event.
func NewAgentFailedEvent(sessionID, agent, stage string, attempts int, err error) AgentFailedEvent {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	return AgentFailedEvent{
		BaseEvent: NewBaseEvent(TypeAgentFailed, sessionID),
		Agent:     agent,
		Stage:     stage,
		Attempts:  attempts,
		Error:     errStr,
	}
}

// AgentRetryingEvent is emitted before an agent attempt is retried.
type AgentRetryingEvent struct {
	BaseEvent
	Agent   string `json:"agent"`
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`
}

// NewAgentRetryingEvent creates a new agent retrying event.
func NewAgentRetryingEvent(sessionID, agent string, attempt int, err error) AgentRetryingEvent {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	return AgentRetryingEvent{
		BaseEvent: NewBaseEvent(TypeAgentRetrying, sessionID),
		Agent:     agent,
		Attempt:   attempt,
		Error:     errStr,
	}
}
