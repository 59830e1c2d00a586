// Package state persists sessions as one JSON document per session.
package state

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ordo-ai/ordo/internal/core"
)

// JSONSessionStorage implements core.SessionStorage with one file per
// session under a directory. Writes are atomic; a corrupted document is
// surfaced as a persistence error rather than a partial session.
type JSONSessionStorage struct {
	dir string
}

// NewJSONSessionStorage creates storage rooted at dir.
func NewJSONSessionStorage(dir string) *JSONSessionStorage {
	return &JSONSessionStorage{dir: dir}
}

// envelope wraps a session with integrity metadata. The session is kept as
// raw bytes so the checksum covers exactly what is stored; re-marshaling a
// decoded document does not reproduce the original key order.
type envelope struct {
	Version   int             `json:"version"`
	Checksum  string          `json:"checksum"`
	UpdatedAt time.Time       `json:"updated_at"`
	Session   json.RawMessage `json:"session"`
}

// Save persists a session atomically.
func (s *JSONSessionStorage) Save(_ context.Context, session *core.Session) error {
	if session.ID == "" {
		return core.ErrValidation(core.CodeSessionNotFound, "session has no ID")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating sessions directory: %w", err)
	}

	session.UpdatedAt = time.Now()

	sessionBytes, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	hash := sha256.Sum256(sessionBytes)

	env := envelope{
		Version:   1,
		Checksum:  hex.EncodeToString(hash[:]),
		UpdatedAt: session.UpdatedAt,
		Session:   sessionBytes,
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	if err := atomicWriteFile(s.pathFor(session.ID), data, 0o644); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// Load retrieves a session by ID.
func (s *JSONSessionStorage) Load(_ context.Context, id string) (*core.Session, error) {
	data, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrPersistence(core.CodeSessionNotFound,
				fmt.Sprintf("session %s not found", id))
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	return decode(data)
}

// List returns all sessions in the directory, skipping unreadable documents.
func (s *JSONSessionStorage) List(_ context.Context) ([]*core.Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	sessions := make([]*core.Session, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		session, err := decode(data)
		if err != nil {
			// One corrupted document must not hide the rest.
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Delete removes a session document. Deleting a missing session is not an
// error.
func (s *JSONSessionStorage) Delete(_ context.Context, id string) error {
	if err := os.Remove(s.pathFor(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting session file: %w", err)
	}
	return nil
}

// Dir returns the storage directory.
func (s *JSONSessionStorage) Dir() string {
	return s.dir
}

func (s *JSONSessionStorage) pathFor(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func decode(data []byte) (*core.Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, core.ErrPersistence(core.CodeStateCorrupted, "malformed session document").WithCause(err)
	}
	if len(env.Session) == 0 {
		return nil, core.ErrPersistence(core.CodeStateCorrupted, "envelope has no session")
	}

	// The envelope is written indented, so compact back to the byte form
	// the checksum was computed over. Compaction only strips whitespace;
	// key order is untouched.
	var compact bytes.Buffer
	if err := json.Compact(&compact, env.Session); err != nil {
		return nil, core.ErrPersistence(core.CodeStateCorrupted, "malformed session body").WithCause(err)
	}
	hash := sha256.Sum256(compact.Bytes())
	if hex.EncodeToString(hash[:]) != env.Checksum {
		return nil, core.ErrPersistence(core.CodeStateCorrupted, "checksum mismatch")
	}

	var session core.Session
	if err := json.Unmarshal(env.Session, &session); err != nil {
		return nil, core.ErrPersistence(core.CodeStateCorrupted, "malformed session body").WithCause(err)
	}
	return &session, nil
}

// Verify that JSONSessionStorage implements core.SessionStorage.
var _ core.SessionStorage = (*JSONSessionStorage)(nil)
