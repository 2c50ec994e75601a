package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmr-tortoise/banyan/internal/depot"
	"github.com/mmr-tortoise/banyan/internal/executor"
	"github.com/mmr-tortoise/banyan/internal/fsutil"
	"github.com/mmr-tortoise/banyan/internal/model"
	"github.com/mmr-tortoise/banyan/internal/worktree"
)

// session holds what every command needs: where it was started and how to
// talk to git.
type session struct {
	dir     string
	manager *worktree.Manager
}

// newSession resolves the starting directory from -C (relative to the
// process working directory) or the process working directory itself.
func newSession() (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}
	dir := cwd
	if chdir != "" {
		dir = chdir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cwd, dir)
		}
	}

	return &session{
		dir:     dir,
		manager: worktree.NewManager(executor.Default()),
	}, nil
}

// openDepot opens the depot whose main working tree contains the starting
// directory. Starting inside a mount works too: git reports the main
// working tree for linked ones.
func (s *session) openDepot(ctx context.Context) (*depot.Depot, error) {
	root, err := s.manager.MainWorktreeRoot(ctx, s.dir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGitError, "not inside a git repository", err)
	}
	VerboseLog("Depot root: %s", root)

	return depot.Open(root)
}

// openWorkspace opens the workspace named by -w, or the nearest one above
// the starting directory.
func (s *session) openWorkspace(ctx context.Context, workspace string) (*depot.Workspace, error) {
	d, err := s.openDepot(ctx)
	if err != nil {
		return nil, err
	}

	if workspace == "" {
		start, err := s.searchStart(ctx, d)
		if err != nil {
			return nil, err
		}
		workspace, err = d.FindWorkspace(start)
		if err != nil {
			return nil, err
		}
	}
	VerboseLog("Workspace: %s", workspace)

	return d.Workspace(workspace)
}

// searchStart returns the directory the workspace search begins at. A
// mount's working tree carries its own copy of every workspace file, so
// starting inside one moves the search to the directory holding the mount.
func (s *session) searchStart(ctx context.Context, d *depot.Depot) (string, error) {
	start, err := fsutil.Canonical(s.dir)
	if err != nil {
		return "", err
	}

	registry, err := s.manager.List(ctx, d.Root)
	if err != nil {
		return "", err
	}

	for moved := true; moved; {
		moved = false
		for _, p := range registry.Paths() {
			if p == d.Root {
				continue
			}
			if start == p || strings.HasPrefix(start, p+string(filepath.Separator)) {
				start = filepath.Dir(p)
				moved = true
			}
		}
	}
	return start, nil
}
