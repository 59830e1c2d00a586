package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ordo-ai/ordo/internal/core"
	"github.com/ordo-ai/ordo/internal/logging"
)

// writeScript drops an executable shell script into a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}
	path := filepath.Join(t.TempDir(), "agent.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecRunner_EmptyPathRejected(t *testing.T) {
	_, err := NewExecRunner("", nil, nil)
	if !core.IsCategory(err, core.ErrCatConfiguration) {
		t.Fatalf("NewExecRunner(\"\") error = %v, want configuration error", err)
	}
}

func TestExecRunner_CapturesStdout(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
echo '{"success": true, "summary": "done"}'`)
	r, err := NewExecRunner(script, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	out, err := r.Execute(context.Background(), core.ExecuteRequest{
		AgentTag: "PM",
		Tier:     core.TierStandard,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, `"success": true`) {
		t.Errorf("stdout = %q, want the script's response", out)
	}
}

func TestExecRunner_RequestOnStdin(t *testing.T) {
	// The script echoes its stdin back, letting the test see the request.
	script := writeScript(t, `cat`)
	r, err := NewExecRunner(script, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	out, err := r.Execute(context.Background(), core.ExecuteRequest{
		AgentTag: "ARCHITECT",
		TaskID:   "task-9",
		Tier:     core.TierPremium,
		Timeout:  5 * time.Second,
		Context:  map[string]any{"task": "design"},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{`"agent_tag":"ARCHITECT"`, `"task_id":"task-9"`, `"tier":"premium"`} {
		if !strings.Contains(out, want) {
			t.Errorf("request %q missing %q", out, want)
		}
	}
}

func TestExecRunner_NonZeroExitIsExecutionError(t *testing.T) {
	script := writeScript(t, `echo "it broke" >&2
exit 1`)
	r, err := NewExecRunner(script, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	_, err = r.Execute(context.Background(), core.ExecuteRequest{
		AgentTag: "PM",
		Tier:     core.TierStandard,
		Timeout:  5 * time.Second,
	})
	if !core.IsCategory(err, core.ErrCatExecution) {
		t.Fatalf("Execute() error = %v, want execution category", err)
	}
	if !strings.Contains(err.Error(), "it broke") {
		t.Errorf("error %q should carry stderr detail", err)
	}
	if !core.IsRetryable(err) {
		t.Error("runner failure should be retryable")
	}
}

func TestExecRunner_DeadlineBecomesTimeout(t *testing.T) {
	script := writeScript(t, `sleep 10`)
	r, err := NewExecRunner(script, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = r.Execute(ctx, core.ExecuteRequest{
		AgentTag: "PM",
		Tier:     core.TierStandard,
		Timeout:  50 * time.Millisecond,
	})
	if !core.IsTimeout(err) {
		t.Fatalf("Execute() error = %v, want timeout category", err)
	}
}

func TestExecRunner_CancellationPassesThrough(t *testing.T) {
	script := writeScript(t, `sleep 10`)
	r, err := NewExecRunner(script, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err = r.Execute(ctx, core.ExecuteRequest{
		AgentTag: "PM",
		Tier:     core.TierStandard,
		Timeout:  time.Minute,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
}
