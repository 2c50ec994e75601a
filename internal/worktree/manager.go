package worktree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmr-tortoise/banyan/internal/executor"
	"github.com/mmr-tortoise/banyan/internal/model"
)

// Manager provides git operations by invoking the git CLI through a
// Runner. Every method takes the repository (or working tree) directory the
// command should run in.
type Manager struct {
	runner executor.Runner
}

// NewManager creates a Manager that runs git through runner.
func NewManager(runner executor.Runner) *Manager {
	return &Manager{runner: runner}
}

// List returns every working tree attached to the repository at repoPath,
// including the main one, keyed by canonical path.
//
// It runs `git worktree list --porcelain -z`, whose records are separated by
// empty lines and whose lines are NUL-terminated so that paths containing
// newlines survive. A non-zero exit is returned as
// *model.BackendCommandError and no partial registry is produced.
func (m *Manager) List(ctx context.Context, repoPath string) (Registry, error) {
	output, err := m.git(ctx, repoPath, "worktree", "list", "--porcelain", "-z")
	if err != nil {
		return nil, err
	}
	return ParseListing(output)
}

// BranchExists checks whether a local branch with the given name exists.
//
// `git show-ref --verify --quiet` exits 1 without output for a missing ref;
// any other failure (not a repository, corrupt refs) is returned as an
// error rather than being read as "missing". show-ref takes the full ref
// name literally, so branch names containing revision syntax characters
// such as braces are safe.
func (m *Manager) BranchExists(ctx context.Context, repoPath, branch string) (bool, error) {
	_, err := m.git(ctx, repoPath, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	if err == nil {
		return true, nil
	}
	if isExitStatus(err, 1) {
		return false, nil
	}
	return false, err
}

// CreateBranch creates branch pointing at startPoint without checking it
// out. An empty startPoint means HEAD.
func (m *Manager) CreateBranch(ctx context.Context, repoPath, branch, startPoint string) error {
	if startPoint == "" {
		startPoint = "HEAD"
	}
	_, err := m.git(ctx, repoPath, "branch", branch, startPoint)
	return err
}

// AddWorktree creates a linked working tree at worktreePath with the
// existing branch checked out. Missing parent directories are created by
// git.
func (m *Manager) AddWorktree(ctx context.Context, repoPath, worktreePath, branch string) error {
	_, err := m.git(ctx, repoPath, "worktree", "add", worktreePath, branch)
	return err
}

// Init runs `git init` in dir, creating dir if needed.
func (m *Manager) Init(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	_, err := m.git(ctx, dir, "init", "--quiet")
	return err
}

// AddFiles stages the given repository-relative paths.
func (m *Manager) AddFiles(ctx context.Context, repoPath string, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := m.git(ctx, repoPath, args...)
	return err
}

// CommitOptions controls Commit.
type CommitOptions struct {
	// Message is the commit message. An empty message requires
	// AllowEmptyMessage.
	Message string

	// AllowEmptyMessage passes --allow-empty-message.
	AllowEmptyMessage bool

	// AllowEmpty passes --allow-empty, permitting a commit with no changes.
	AllowEmpty bool
}

// Commit records the staged changes.
func (m *Manager) Commit(ctx context.Context, repoPath string, opts CommitOptions) error {
	args := []string{"commit", "--quiet", "-m", opts.Message}
	if opts.AllowEmptyMessage {
		args = append(args, "--allow-empty-message")
	}
	if opts.AllowEmpty {
		args = append(args, "--allow-empty")
	}
	_, err := m.git(ctx, repoPath, args...)
	return err
}

// MainWorktreeRoot returns the root of the main working tree of the
// repository containing path, even when path lies inside a linked working
// tree.
func (m *Manager) MainWorktreeRoot(ctx context.Context, path string) (string, error) {
	output, err := m.git(ctx, path, "rev-parse", "--path-format=absolute", "--git-common-dir")
	if err != nil {
		return "", err
	}
	commonDir := strings.TrimSpace(string(output))
	if filepath.Base(commonDir) != ".git" {
		return "", fmt.Errorf("repository at %s has no main working tree (git dir %s)", path, commonDir)
	}
	return filepath.Dir(commonDir), nil
}

// IsWorktree reports whether path is the root of a linked working tree.
//
// Linked working trees have a .git FILE containing a "gitdir:" pointer into
// the main repository's .git/worktrees/<name>; the main working tree has a
// .git DIRECTORY.
func (m *Manager) IsWorktree(path string) bool {
	gitPath := filepath.Join(path, ".git")

	info, err := os.Lstat(gitPath)
	if err != nil || info.IsDir() {
		return false
	}

	content, err := os.ReadFile(gitPath)
	if err != nil {
		return false
	}
	return strings.HasPrefix(string(content), "gitdir:")
}

// IsRepo reports whether dir is the top of a git working tree (main or
// linked).
func (m *Manager) IsRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir() || info.Mode().IsRegular()
}

func (m *Manager) git(ctx context.Context, dir string, args ...string) ([]byte, error) {
	return m.runner.Run(ctx, dir, append([]string{"git"}, args...)...)
}

func isExitStatus(err error, status int) bool {
	var berr *model.BackendCommandError
	return errors.As(err, &berr) && berr.Status == status
}
