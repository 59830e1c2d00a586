package git

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ordo-ai/ordo/internal/core"
	"github.com/ordo-ai/ordo/internal/logging"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	cmds := [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
		{"commit", "--allow-empty", "-m", "initial"},
	}
	for _, args := range cmds {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	return dir
}

func TestNewClient_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	if _, err := NewClient(t.TempDir(), "origin", logging.NewNop()); err == nil {
		t.Fatal("expected error for non-repository directory")
	}
}

func TestClient_CreateBranch(t *testing.T) {
	dir := initRepo(t)
	client, err := NewClient(dir, "origin", logging.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	id, err := client.CreateBranch(ctx, "ordo/sess-1")
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}
	if id != "ordo/sess-1" {
		t.Errorf("unexpected branch id %q", id)
	}

	current, err := client.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		t.Fatalf("rev-parse: %v", err)
	}
	if current != "ordo/sess-1" {
		t.Errorf("expected checkout of new branch, on %q", current)
	}
}

func TestClient_CommitFiles(t *testing.T) {
	dir := initRepo(t)
	client, err := NewClient(dir, "origin", logging.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	files := []core.CommitFile{
		{Path: "docs/plan.md", Content: "# Plan\n"},
		{Path: "api/handler.go", Content: "package api\n"},
	}
	if err := client.CommitFiles(ctx, files, "add agent artifacts"); err != nil {
		t.Fatalf("commit files: %v", err)
	}

	subject, err := client.git(ctx, "log", "-1", "--format=%s")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if subject != "add agent artifacts" {
		t.Errorf("unexpected commit subject %q", subject)
	}

	tracked, err := client.git(ctx, "ls-files")
	if err != nil {
		t.Fatalf("ls-files: %v", err)
	}
	for _, want := range []string{filepath.ToSlash("docs/plan.md"), filepath.ToSlash("api/handler.go")} {
		if !contains(tracked, want) {
			t.Errorf("expected %s in tracked files:\n%s", want, tracked)
		}
	}
}

func TestClient_CommitFiles_PathEscape(t *testing.T) {
	dir := initRepo(t)
	client, err := NewClient(dir, "origin", logging.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	err = client.CommitFiles(context.Background(), []core.CommitFile{
		{Path: "../outside.txt", Content: "nope"},
	}, "escape attempt")
	if err == nil {
		t.Fatal("expected error for path escaping the repository")
	}
}

func TestClient_CommitFiles_Empty(t *testing.T) {
	dir := initRepo(t)
	client, err := NewClient(dir, "origin", logging.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.CommitFiles(context.Background(), nil, "noop"); err != nil {
		t.Fatalf("empty commit should be a no-op: %v", err)
	}
}

func TestClient_DeleteBranch(t *testing.T) {
	dir := initRepo(t)
	client, err := NewClient(dir, "origin", logging.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	if _, err := client.CreateBranch(ctx, "ordo/doomed"); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	// Deleting the checked-out branch forces a switch back first.
	if err := client.DeleteBranch(ctx, "ordo/doomed"); err != nil {
		t.Fatalf("delete branch: %v", err)
	}

	if _, err := client.git(ctx, "rev-parse", "--verify", "ordo/doomed"); err == nil {
		t.Error("branch should be gone")
	}
}

func contains(haystack, needle string) bool {
	for _, line := range strings.Split(haystack, "\n") {
		if line == needle {
			return true
		}
	}
	return false
}
