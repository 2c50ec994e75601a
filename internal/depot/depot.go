// Package depot models a banyan depot: one git repository whose root holds
// BANYAN_DEPOT.toml, hosting workspaces that each declare mounts in a
// BANYAN_WORKSPACE.toml file.
//
// Layout example:
//
//	/src/depot/BANYAN_DEPOT.toml
//	/src/depot/BANYAN_WORKSPACE.toml        [mount."scratch/pad1"]
//	/src/depot/apps/web/BANYAN_WORKSPACE.toml
//	                                        [mount."tools"]
//
// The first workspace's mount lives at /src/depot/scratch/pad1 on branch
// mount/default{scratch/pad1}; the second at /src/depot/apps/web/tools on
// branch mount/default{apps/web/tools}.
//
// Design decisions:
//   - Everything here is derived from static configuration. Whether a mount
//     is materialized is answered by joining a Mount against a
//     worktree.Registry snapshot; nothing in this package runs git.
//   - Mount paths are canonical: symlinks along the joined path are
//     followed, so they match the keys of a Registry exactly.
//   - Every problem with the configuration files (missing, unparsable, a
//     malformed or duplicate mount entry, an unusable path) is a
//     *model.ConfigError naming the file, reported when the workspace is
//     loaded rather than when a mount is used.
//   - Branch names depend only on the workspace and mount local paths, so
//     re-running a checkout always targets the same branch.
package depot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/mmr-tortoise/banyan/internal/config"
	"github.com/mmr-tortoise/banyan/internal/fsutil"
	"github.com/mmr-tortoise/banyan/internal/model"
)

const (
	// DepotFilename is the depot configuration file at the repository root.
	DepotFilename = "BANYAN_DEPOT.toml"

	// WorkspaceFilename marks a directory as a workspace.
	WorkspaceFilename = "BANYAN_WORKSPACE.toml"
)

// Depot is an opened depot. It is immutable after Open.
type Depot struct {
	// Root is the canonical, symlink-free path of the depot's main working
	// tree.
	Root string

	// Config is the decoded BANYAN_DEPOT.toml.
	Config *config.Document
}

// Open loads the depot rooted at root.
//
// A missing or malformed BANYAN_DEPOT.toml is a *model.ConfigError. The
// depot file may be empty.
func Open(root string) (*Depot, error) {
	canonical, err := fsutil.Canonical(root)
	if err != nil {
		return nil, err
	}

	doc, err := config.Load(filepath.Join(canonical, DepotFilename))
	if err != nil {
		return nil, err
	}

	return &Depot{Root: canonical, Config: doc}, nil
}

// Workspace loads the workspace at the depot-relative localPath. "" and "."
// both name the workspace at the depot root.
//
// The workspace must have a BANYAN_WORKSPACE.toml file; its absence is a
// *model.ConfigError mentioning that the file does not exist.
func (d *Depot) Workspace(localPath string) (*Workspace, error) {
	local, err := fsutil.CleanLocal(localPath)
	if err != nil {
		return nil, model.NewConfigError(
			filepath.Join(d.Root, filepath.FromSlash(localPath), WorkspaceFilename),
			fmt.Sprintf("invalid workspace path %q", localPath),
			err,
		)
	}

	wsPath, err := fsutil.JoinWithin(d.Root, local)
	if err != nil {
		return nil, model.NewConfigError(
			filepath.Join(d.Root, filepath.FromSlash(local), WorkspaceFilename),
			fmt.Sprintf("cannot resolve workspace path %q", localPath),
			err,
		)
	}

	doc, err := config.Load(filepath.Join(wsPath, WorkspaceFilename))
	if err != nil {
		return nil, err
	}

	return newWorkspace(d, local, wsPath, doc)
}

// FindWorkspace returns the depot-relative path of the nearest workspace
// containing dir: dir itself or its closest ancestor, up to and including
// the depot root, that holds a BANYAN_WORKSPACE.toml.
//
// dir must lie inside the depot.
func (d *Depot) FindWorkspace(dir string) (string, error) {
	current, err := fsutil.Canonical(dir)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(d.Root, current)
	if err != nil {
		return "", err
	}
	if _, err := fsutil.CleanLocal(rel); err != nil {
		return "", fmt.Errorf("%s is outside the depot at %s", dir, d.Root)
	}

	local := filepath.ToSlash(rel)
	for {
		_, err := os.Stat(filepath.Join(d.Root, filepath.FromSlash(local), WorkspaceFilename))
		if err == nil {
			return local, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if local == "." {
			break
		}
		local = path.Dir(local)
	}

	return "", model.NewConfigError(
		filepath.Join(d.Root, WorkspaceFilename),
		fmt.Sprintf("no %s found between %s and the depot root", WorkspaceFilename, dir),
		nil,
	)
}
