// Package git implements the VCS collaborator over the git and gh CLIs.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ordo-ai/ordo/internal/core"
	"github.com/ordo-ai/ordo/internal/logging"
)

// Client implements core.VCSClient by shelling out to git, and to gh for
// pull requests.
type Client struct {
	repoPath string
	remote   string
	timeout  time.Duration
	logger   *logging.Logger
}

// NewClient creates a VCS client rooted at repoPath.
func NewClient(repoPath, remote string, logger *logging.Logger) (*Client, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	client := &Client{
		repoPath: absPath,
		remote:   remote,
		timeout:  60 * time.Second,
		logger:   logger,
	}

	if _, err := client.git(context.Background(), "rev-parse", "--git-dir"); err != nil {
		return nil, core.ErrValidation("NOT_GIT_REPO",
			fmt.Sprintf("%s is not a git repository", absPath))
	}
	return client, nil
}

// WithTimeout returns a client with a custom per-command timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	clone := *c
	clone.timeout = d
	return &clone
}

func (c *Client) git(ctx context.Context, args ...string) (string, error) {
	return c.exec(ctx, "git", args...)
}

func (c *Client) gh(ctx context.Context, args ...string) (string, error) {
	return c.exec(ctx, "gh", args...)
}

func (c *Client) exec(ctx context.Context, bin string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = c.repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", core.ErrTimeout(fmt.Sprintf("%s command timed out", bin))
		}
		return "", fmt.Errorf("%s %s: %s: %w", bin, strings.Join(args, " "), stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// CreateBranch creates and checks out a new branch. The branch name doubles
// as its identifier.
func (c *Client) CreateBranch(ctx context.Context, name string) (string, error) {
	if _, err := c.git(ctx, "checkout", "-b", name); err != nil {
		return "", core.ErrCollaborator(core.CodeBranchFailed,
			fmt.Sprintf("creating branch %s", name)).WithCause(err)
	}
	c.logger.Debug("created branch", "branch", name)
	return name, nil
}

// CommitFiles writes the given files into the worktree and commits them.
func (c *Client) CommitFiles(ctx context.Context, files []core.CommitFile, message string) error {
	if len(files) == 0 {
		return nil
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		target := filepath.Join(c.repoPath, filepath.FromSlash(f.Path))
		rel, err := filepath.Rel(c.repoPath, target)
		if err != nil || strings.HasPrefix(rel, "..") {
			return core.ErrCollaborator(core.CodeCommitFailed,
				fmt.Sprintf("artifact path %s escapes the repository", f.Path))
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return core.ErrCollaborator(core.CodeCommitFailed,
				fmt.Sprintf("creating directory for %s", f.Path)).WithCause(err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
			return core.ErrCollaborator(core.CodeCommitFailed,
				fmt.Sprintf("writing %s", f.Path)).WithCause(err)
		}
		paths = append(paths, rel)
	}

	if _, err := c.git(ctx, append([]string{"add", "--"}, paths...)...); err != nil {
		return core.ErrCollaborator(core.CodeCommitFailed, "staging artifacts").WithCause(err)
	}
	if _, err := c.git(ctx, "commit", "-m", message); err != nil {
		return core.ErrCollaborator(core.CodeCommitFailed, "committing artifacts").WithCause(err)
	}
	c.logger.Debug("committed artifacts", "files", len(paths))
	return nil
}

// DeleteBranch removes a branch, switching away from it first if needed.
func (c *Client) DeleteBranch(ctx context.Context, branchID string) error {
	current, err := c.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err == nil && current == branchID {
		if def, derr := c.defaultBranch(ctx); derr == nil {
			_, _ = c.git(ctx, "checkout", def)
		}
	}
	if _, err := c.git(ctx, "branch", "-D", branchID); err != nil {
		return core.ErrCollaborator(core.CodeBranchFailed,
			fmt.Sprintf("deleting branch %s", branchID)).WithCause(err)
	}
	return nil
}

// CreatePullRequest pushes the branch and opens a PR via gh. Returns the PR
// URL.
func (c *Client) CreatePullRequest(ctx context.Context, branch string, opts core.PROptions) (string, error) {
	if _, err := c.git(ctx, "push", "-u", c.remote, branch); err != nil {
		return "", core.ErrCollaborator(core.CodePRFailed,
			fmt.Sprintf("pushing branch %s", branch)).WithCause(err)
	}

	args := []string{"pr", "create", "--head", branch, "--title", opts.Title, "--body", opts.Body}
	if opts.Draft {
		args = append(args, "--draft")
	}
	url, err := c.gh(ctx, args...)
	if err != nil {
		return "", core.ErrCollaborator(core.CodePRFailed, "creating pull request").WithCause(err)
	}
	c.logger.Info("pull request created", "url", url)
	return url, nil
}

func (c *Client) defaultBranch(ctx context.Context) (string, error) {
	out, err := c.git(ctx, "symbolic-ref", "--short", "refs/remotes/"+c.remote+"/HEAD")
	if err != nil {
		// Fall back to the common defaults.
		for _, name := range []string{"main", "master"} {
			if _, err := c.git(ctx, "rev-parse", "--verify", name); err == nil {
				return name, nil
			}
		}
		return "", err
	}
	return strings.TrimPrefix(out, c.remote+"/"), nil
}

// Verify that Client implements core.VCSClient.
var _ core.VCSClient = (*Client)(nil)
