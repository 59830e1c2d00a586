// Package runner invokes the external agent executor as a subprocess. The
// engine hands it a serialized request on stdin and reads the raw response
// from stdout; response parsing happens at the engine boundary.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ordo-ai/ordo/internal/core"
	"github.com/ordo-ai/ordo/internal/logging"
)

// wireRequest is the JSON document written to the runner's stdin.
type wireRequest struct {
	AgentTag  string         `json:"agent_tag"`
	TaskID    string         `json:"task_id,omitempty"`
	Tier      string         `json:"tier"`
	TimeoutMS int64          `json:"timeout_ms"`
	Context   map[string]any `json:"context,omitempty"`
}

// ExecRunner implements core.AgentRunner by spawning the configured
// executable once per agent execution.
type ExecRunner struct {
	path    string
	args    []string
	workDir string
	logger  *logging.Logger
}

// NewExecRunner creates a runner for the given executable path. Extra args
// are passed before the agent tag.
func NewExecRunner(path string, args []string, logger *logging.Logger) (*ExecRunner, error) {
	if path == "" {
		return nil, core.ErrConfiguration("RUNNER_PATH_REQUIRED", "runner path cannot be empty")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ExecRunner{path: path, args: args, logger: logger}, nil
}

// WithWorkDir sets the subprocess working directory.
func (r *ExecRunner) WithWorkDir(dir string) *ExecRunner {
	r.workDir = dir
	return r
}

// Execute spawns the runner process and returns its stdout. The supplied
// context already carries the engine's per-agent deadline; a deadline hit
// surfaces as a timeout-category error.
func (r *ExecRunner) Execute(ctx context.Context, req core.ExecuteRequest) (string, error) {
	payload, err := json.Marshal(wireRequest{
		AgentTag:  string(req.AgentTag),
		TaskID:    req.TaskID,
		Tier:      string(req.Tier),
		TimeoutMS: req.Timeout.Milliseconds(),
		Context:   req.Context,
	})
	if err != nil {
		return "", core.ErrExecution(core.CodeAgentFailed, "cannot serialize runner request").WithCause(err)
	}

	// Multi-word paths ("npx my-runner") split into path plus leading args.
	path := r.path
	args := append([]string(nil), r.args...)
	if parts := strings.Fields(path); len(parts) > 1 {
		path = parts[0]
		args = append(parts[1:], args...)
	}
	args = append(args, string(req.AgentTag))

	// #nosec G204 -- path and args come from validated config
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = r.workDir
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(),
		"ORDO_MANAGED=true",
		"ORDO_AGENT="+string(req.AgentTag),
		"ORDO_TIER="+string(req.Tier),
	)

	start := time.Now()
	r.logger.WithAgent(string(req.AgentTag)).Debug("runner: spawning",
		"path", path, "tier", string(req.Tier), "timeout", req.Timeout.String())

	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", core.ErrTimeout(
				fmt.Sprintf("agent %s runner exceeded its deadline after %s", req.AgentTag, elapsed.Round(time.Millisecond)))
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 400 {
			detail = detail[:400] + "... [truncated]"
		}
		return "", core.ErrExecution(core.CodeAgentFailed,
			fmt.Sprintf("agent %s runner exited with an error: %s", req.AgentTag, detail)).WithCause(runErr)
	}

	r.logger.WithAgent(string(req.AgentTag)).Debug("runner: finished",
		"duration", elapsed.Round(time.Millisecond).String(), "stdout_bytes", stdout.Len())
	return stdout.String(), nil
}

var _ core.AgentRunner = (*ExecRunner)(nil)
