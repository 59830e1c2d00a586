// Package taskstore implements the external task bookkeeping collaborator
// over SQLite.
package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ordo-ai/ordo/internal/core"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id            TEXT PRIMARY KEY,
	agent_tag     TEXT NOT NULL,
	summary       TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	context       TEXT NOT NULL DEFAULT '{}',
	dependencies  TEXT NOT NULL DEFAULT '[]',
	status        TEXT NOT NULL DEFAULT 'open',
	output        TEXT,
	fail_reason   TEXT,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_agent ON tasks(agent_tag);
`

// Task statuses as stored in the tasks table.
const (
	StatusOpen      = "open"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// SQLiteTaskStore implements core.TaskStore with SQLite storage.
type SQLiteTaskStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteTaskStore opens (creating if needed) the task database at dbPath.
func NewSQLiteTaskStore(dbPath string) (*SQLiteTaskStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating task store directory: %w", err)
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening task database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying task schema: %w", err)
	}

	return &SQLiteTaskStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteTaskStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Create records a new task and returns its ID.
func (s *SQLiteTaskStore) Create(ctx context.Context, req core.TaskRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.AgentTag == "" {
		return "", core.ErrCollaborator(core.CodeTaskStore, "task has no agent tag")
	}

	contextJSON, err := json.Marshal(req.Context)
	if err != nil {
		return "", core.ErrCollaborator(core.CodeTaskStore, "serializing task context").WithCause(err)
	}
	depsJSON, err := json.Marshal(req.DependencyTaskIDs)
	if err != nil {
		return "", core.ErrCollaborator(core.CodeTaskStore, "serializing task dependencies").WithCause(err)
	}

	id := uuid.NewString()
	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, agent_tag, summary, description, context, dependencies, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(req.AgentTag), req.Summary, req.Description,
		string(contextJSON), string(depsJSON), StatusOpen, now, now,
	)
	if err != nil {
		return "", core.ErrCollaborator(core.CodeTaskStore, "inserting task").WithCause(err)
	}
	return id, nil
}

// Complete marks a task completed and stores the structured output.
func (s *SQLiteTaskStore) Complete(ctx context.Context, taskID string, output *core.AgentOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	outputJSON, err := json.Marshal(output)
	if err != nil {
		return core.ErrCollaborator(core.CodeTaskStore, "serializing task output").WithCause(err)
	}
	return s.setStatus(ctx, taskID, StatusCompleted, string(outputJSON), "")
}

// Fail marks a task failed with a reason.
func (s *SQLiteTaskStore) Fail(ctx context.Context, taskID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setStatus(ctx, taskID, StatusFailed, "", reason)
}

func (s *SQLiteTaskStore) setStatus(ctx context.Context, taskID, status, output, failReason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, output = NULLIF(?, ''), fail_reason = NULLIF(?, ''), updated_at = ?
		WHERE id = ?`,
		status, output, failReason, time.Now(), taskID,
	)
	if err != nil {
		return core.ErrCollaborator(core.CodeTaskStore, "updating task").WithCause(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.ErrCollaborator(core.CodeTaskStore, "checking task update").WithCause(err)
	}
	if n == 0 {
		return core.ErrCollaborator(core.CodeTaskStore,
			fmt.Sprintf("task %s not found", taskID))
	}
	return nil
}

// TaskRecord is a stored task row, used by the CLI and tests.
type TaskRecord struct {
	ID         string
	AgentTag   core.AgentTag
	Summary    string
	Status     string
	FailReason string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Get returns one task row.
func (s *SQLiteTaskStore) Get(ctx context.Context, taskID string) (*TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent_tag, summary, status, COALESCE(fail_reason, ''), created_at, updated_at
		FROM tasks WHERE id = ?`, taskID)

	var rec TaskRecord
	var tag string
	if err := row.Scan(&rec.ID, &tag, &rec.Summary, &rec.Status, &rec.FailReason, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrCollaborator(core.CodeTaskStore,
				fmt.Sprintf("task %s not found", taskID))
		}
		return nil, core.ErrCollaborator(core.CodeTaskStore, "reading task").WithCause(err)
	}
	rec.AgentTag = core.AgentTag(tag)
	return &rec, nil
}

// ListByStatus returns tasks in a given status, newest first.
func (s *SQLiteTaskStore) ListByStatus(ctx context.Context, status string) ([]TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_tag, summary, status, COALESCE(fail_reason, ''), created_at, updated_at
		FROM tasks WHERE status = ? ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, core.ErrCollaborator(core.CodeTaskStore, "listing tasks").WithCause(err)
	}
	defer rows.Close()

	var records []TaskRecord
	for rows.Next() {
		var rec TaskRecord
		var tag string
		if err := rows.Scan(&rec.ID, &tag, &rec.Summary, &rec.Status, &rec.FailReason, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, core.ErrCollaborator(core.CodeTaskStore, "scanning task").WithCause(err)
		}
		rec.AgentTag = core.AgentTag(tag)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Verify that SQLiteTaskStore implements core.TaskStore.
var _ core.TaskStore = (*SQLiteTaskStore)(nil)
