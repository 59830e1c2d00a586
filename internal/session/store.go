// Package session implements the durable session store: the single owner of
// session documents, their checkpoints and their log rings.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ordo-ai/ordo/internal/core"
	"github.com/ordo-ai/ordo/internal/events"
	"github.com/ordo-ai/ordo/internal/logging"
)

// Store coordinates all session mutations. Every write goes through the
// store and is persisted before the call returns, so a crash at any point
// loses at most the operation in flight.
type Store struct {
	mu      sync.Mutex
	storage core.SessionStorage
	bus     *events.Bus
	logger  *logging.Logger
	cache   map[string]*core.Session
}

// NewStore creates a session store over the given storage backend.
func NewStore(storage core.SessionStorage, bus *events.Bus, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		storage: storage,
		bus:     bus,
		logger:  logger,
		cache:   make(map[string]*core.Session),
	}
}

// Create starts a new session for a workflow run.
func (s *Store) Create(ctx context.Context, workflowID string, runContext map[string]any, opts core.WorkflowOptions) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runContext == nil {
		runContext = make(map[string]any)
	}
	now := time.Now()
	session := &core.Session{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Status:     core.SessionRunning,
		Context:    runContext,
		Options:    opts,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	session.AppendLog("info", fmt.Sprintf("session created for workflow %s", workflowID))

	if err := s.storage.Save(ctx, session); err != nil {
		return nil, err
	}
	s.cache[session.ID] = session

	s.publish(events.NewSessionCreatedEvent(session.ID, workflowID))
	s.logger.WithSession(session.ID).Info("session created", "workflow_id", workflowID)
	return session, nil
}

// Get returns a session by ID.
func (s *Store) Get(ctx context.Context, id string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(ctx, id)
}

func (s *Store) get(ctx context.Context, id string) (*core.Session, error) {
	if session, ok := s.cache[id]; ok {
		return session, nil
	}
	session, err := s.storage.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache[id] = session
	return session, nil
}

// UpdateStatus transitions a session to a new status. The transition is
// persisted and announced before the call returns.
func (s *Store) UpdateStatus(ctx context.Context, id string, status core.SessionStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	from := session.Status
	session.Status = status
	session.Error = errMsg
	session.AppendLog("info", fmt.Sprintf("status %s -> %s", from, status))

	if err := s.storage.Save(ctx, session); err != nil {
		return err
	}

	event := events.NewSessionStatusChangedEvent(id, string(from), string(status))
	if s.bus != nil {
		if status == core.SessionCompleted || status == core.SessionFailed {
			s.bus.PublishPriority(event)
		} else {
			s.bus.Publish(event)
		}
	}
	return nil
}

// Checkpoint appends an immutable snapshot after a completed stage and
// advances the session's stage cursor past it.
func (s *Store) Checkpoint(ctx context.Context, id string, stageIndex int, stageName string, completedAgents []core.AgentTag, state map[string]any) (*core.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	cp := core.Checkpoint{
		ID:              uuid.NewString(),
		SessionID:       id,
		StageIndex:      stageIndex,
		StageName:       stageName,
		CompletedAgents: append([]core.AgentTag(nil), completedAgents...),
		State:           state,
		Timestamp:       time.Now(),
	}
	session.Checkpoints = append(session.Checkpoints, cp)
	session.CompletedAgents = cp.CompletedAgents
	session.CurrentStage = stageIndex + 1
	session.AppendLog("info", fmt.Sprintf("checkpoint after stage %d (%s)", stageIndex, stageName))

	if err := s.storage.Save(ctx, session); err != nil {
		return nil, err
	}

	s.publish(events.NewCheckpointCreatedEvent(id, cp.ID, stageIndex, stageName))
	s.logger.WithSession(id).Debug("checkpoint created", "stage", stageName, "stage_index", stageIndex)
	return &cp, nil
}

// Restore prepares a resumable session for a new run. It returns the session
// and the stage index to resume from: the stage after the latest checkpoint,
// or the recorded current stage when only completed agents exist.
func (s *Store) Restore(ctx context.Context, id string) (*core.Session, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.get(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	if session.Status == core.SessionCompleted {
		return nil, 0, core.ErrValidation(core.CodeAlreadyCompleted,
			fmt.Sprintf("session %s already completed", id))
	}
	if !session.IsResumable() {
		return nil, 0, core.ErrValidation(core.CodeNoCheckpoints,
			fmt.Sprintf("session %s has no checkpoint or completed work to resume from", id))
	}

	resumeStage := session.CurrentStage
	checkpointID := ""
	if cp := session.LatestCheckpoint(); cp != nil {
		resumeStage = cp.StageIndex + 1
		checkpointID = cp.ID
		// The recorded set may hold agents that completed mid-stage after
		// this checkpoint was taken; union rather than overwrite so a
		// resumed run does not re-execute them.
		for _, tag := range cp.CompletedAgents {
			if !session.HasCompleted(tag) {
				session.CompletedAgents = append(session.CompletedAgents, tag)
			}
		}
		for k, v := range cp.State {
			session.Context[k] = v
		}
	}

	session.Status = core.SessionRunning
	session.Error = ""
	session.CurrentStage = resumeStage
	session.AppendLog("info", fmt.Sprintf("restored, resuming at stage %d", resumeStage))

	if err := s.storage.Save(ctx, session); err != nil {
		return nil, 0, err
	}

	s.publish(events.NewSessionRestoredEvent(id, checkpointID, resumeStage))
	s.logger.WithSession(id).Info("session restored", "resume_stage", resumeStage)
	return session, resumeStage, nil
}

// AddLog appends a line to the session's bounded log ring.
func (s *Store) AddLog(ctx context.Context, id, level, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	session.AppendLog(level, message)
	return s.storage.Save(ctx, session)
}

// RecordAgentExecution appends an execution record and folds its resource
// usage into the session totals.
func (s *Store) RecordAgentExecution(ctx context.Context, id string, exec core.AgentExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	session.RecordExecution(exec)
	if exec.Status == core.ExecutionCompleted && !session.HasCompleted(exec.AgentTag) {
		session.CompletedAgents = append(session.CompletedAgents, exec.AgentTag)
	}
	return s.storage.Save(ctx, session)
}

// SetContextValue writes one key into the session context and persists it.
func (s *Store) SetContextValue(ctx context.Context, id, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if session.Context == nil {
		session.Context = make(map[string]any)
	}
	session.Context[key] = value
	return s.storage.Save(ctx, session)
}

// Touch refreshes the session's heartbeat. Running sessions whose heartbeat
// goes stale are treated as abandoned by ListZombies.
func (s *Store) Touch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	// Save stamps UpdatedAt.
	return s.storage.Save(ctx, session)
}

// IsResumable reports whether a session can be restored.
func (s *Store) IsResumable(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.get(ctx, id)
	if err != nil {
		return false, err
	}
	return session.IsResumable(), nil
}

// List returns sessions matching the filter.
func (s *Store) List(ctx context.Context, filter core.SessionFilter) ([]*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.storage.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]*core.Session, 0, len(sessions))
	for _, session := range sessions {
		// Prefer the cached copy, which may be ahead of disk.
		if cached, ok := s.cache[session.ID]; ok {
			session = cached
		}
		if filter.Matches(session) {
			matched = append(matched, session)
		}
	}
	return matched, nil
}

// ListZombies returns running sessions whose heartbeat is older than the
// threshold. These belong to crashed or killed processes.
func (s *Store) ListZombies(ctx context.Context, threshold time.Duration) ([]*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.storage.List(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-threshold)
	var zombies []*core.Session
	for _, session := range sessions {
		if session.Status == core.SessionRunning && session.UpdatedAt.Before(cutoff) {
			zombies = append(zombies, session)
		}
	}
	return zombies, nil
}

// ReapZombies marks stale running sessions as failed so they become
// resumable. Returns the sessions it reaped.
func (s *Store) ReapZombies(ctx context.Context, threshold time.Duration) ([]*core.Session, error) {
	zombies, err := s.ListZombies(ctx, threshold)
	if err != nil {
		return nil, err
	}
	for _, z := range zombies {
		if err := s.UpdateStatus(ctx, z.ID, core.SessionFailed, "abandoned: no heartbeat"); err != nil {
			return zombies, err
		}
		s.logger.WithSession(z.ID).Warn("reaped abandoned session",
			"last_heartbeat", z.UpdatedAt)
	}
	return zombies, nil
}

// Delete removes a session document.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cache, id)
	return s.storage.Delete(ctx, id)
}

// Cleanup deletes terminal sessions older than the retention period and
// returns how many were removed.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.storage.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, session := range sessions {
		// Only a running session is protected; stale paused sessions age
		// out like completed ones.
		if session.Status == core.SessionRunning || session.UpdatedAt.After(cutoff) {
			continue
		}
		if err := s.storage.Delete(ctx, session.ID); err != nil {
			return removed, err
		}
		delete(s.cache, session.ID)
		removed++
	}
	if removed > 0 {
		s.logger.Info("cleaned up old sessions", "removed", removed)
	}
	return removed, nil
}

func (s *Store) publish(event events.Event) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}
