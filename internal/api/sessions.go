package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ordo-ai/ordo/internal/core"
)

// sessionSummary is the list-view projection of a session.
type sessionSummary struct {
	ID            string    `json:"id"`
	WorkflowID    string    `json:"workflow_id"`
	Status        string    `json:"status"`
	CurrentStage  int       `json:"current_stage"`
	Checkpoints   int       `json:"checkpoints"`
	Resumable     bool      `json:"resumable"`
	Zombie        bool      `json:"zombie"`
	ResourceUnits int       `json:"resource_units"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Error         string    `json:"error,omitempty"`
}

func (s *Server) summarize(sess *core.Session) sessionSummary {
	zombie := false
	if sess.Status == core.SessionRunning && s.engine != nil {
		zombie = !s.engine.HasActiveRun(sess.ID)
	}
	return sessionSummary{
		ID:            sess.ID,
		WorkflowID:    sess.WorkflowID,
		Status:        string(sess.Status),
		CurrentStage:  sess.CurrentStage,
		Checkpoints:   len(sess.Checkpoints),
		Resumable:     sess.IsResumable(),
		Zombie:        zombie,
		ResourceUnits: sess.Metadata.TotalResourceUnits,
		CreatedAt:     sess.CreatedAt,
		UpdatedAt:     sess.UpdatedAt,
		Error:         sess.Error,
	}
}

// handleListSessions lists sessions, optionally filtered by status, workflow
// or zombies=true.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filter := core.SessionFilter{
		Status:     core.SessionStatus(r.URL.Query().Get("status")),
		WorkflowID: r.URL.Query().Get("workflow"),
	}
	sessions, err := s.sessions.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	zombiesOnly := r.URL.Query().Get("zombies") == "true"
	summaries := make([]sessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summary := s.summarize(sess)
		if zombiesOnly && !summary.Zombie {
			continue
		}
		summaries = append(summaries, summary)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sessions": summaries,
		"count":    len(summaries),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// handleSessionLogs returns the session's log ring, newest last.
func (s *Server) handleSessionLogs(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"logs":       sess.Logs,
	})
}

// agentUsage is the per-agent slice of a session's resource accounting.
type agentUsage struct {
	AgentTag      string `json:"agent_tag"`
	Status        string `json:"status"`
	Tier          string `json:"tier"`
	ResourceUnits int    `json:"resource_units"`
	ExecutionMS   int64  `json:"execution_ms"`
}

// handleSessionUsage returns aggregate and per-agent resource usage.
func (s *Server) handleSessionUsage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	perAgent := make([]agentUsage, 0, len(sess.Metadata.AgentExecutions))
	for _, exec := range sess.Metadata.AgentExecutions {
		usage := agentUsage{
			AgentTag:    string(exec.AgentTag),
			Status:      string(exec.Status),
			Tier:        string(exec.Tier),
			ExecutionMS: exec.Duration().Milliseconds(),
		}
		if exec.Output != nil {
			usage.ResourceUnits = exec.Output.Metadata.ResourceUnits
		}
		perAgent = append(perAgent, usage)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id":           sess.ID,
		"total_resource_units": sess.Metadata.TotalResourceUnits,
		"total_execution_ms":   sess.Metadata.TotalExecutionTime.Milliseconds(),
		"agents":               perAgent,
	})
}

// handleListWorkflows lists the registered workflow definitions.
func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	ids := s.registry.IDs()
	defs := make([]any, 0, len(ids))
	for _, id := range ids {
		def, err := s.registry.Get(id)
		if err != nil {
			continue
		}
		entry := map[string]any{"definition": def}
		if levels, err := s.registry.ExecutionLevels(id); err == nil {
			entry["plan"] = levels
		}
		defs = append(defs, entry)
	}
	respondJSON(w, http.StatusOK, map[string]any{"workflows": defs})
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*core.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		var domErr *core.DomainError
		if errors.As(err, &domErr) && domErr.Code == core.CodeSessionNotFound {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return sess, true
}
