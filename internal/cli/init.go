// init.go implements "banyan init", which turns a directory into a depot:
// a git repository whose root holds BANYAN_DEPOT.toml and a root
// workspace.
//
// Steps:
//  1. git init, unless the directory already has a .git
//  2. write any missing BANYAN_DEPOT.toml / BANYAN_WORKSPACE.toml
//  3. stage and commit the files that were written
//
// Running init on an existing depot changes nothing.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/banyan/internal/depot"
	"github.com/mmr-tortoise/banyan/internal/fsutil"
	"github.com/mmr-tortoise/banyan/internal/model"
	"github.com/mmr-tortoise/banyan/internal/worktree"
)

// workspaceTemplate is written to a new root workspace. It declares no
// mounts.
const workspaceTemplate = `# Mounts are tables keyed by workspace-relative path, for example:
#
# [mount."scratch/pad1"]
`

// NewInitCommand creates the "init" command.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a depot in a new or existing directory",
		Long: `Create a depot: initialize a git repository if needed, add
BANYAN_DEPOT.toml and a root BANYAN_WORKSPACE.toml, and commit them.

Examples:
  banyan init
  banyan init ~/src/depot`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd.Context(), cmd.OutOrStdout(), dir)
		},
	}
}

type initView struct {
	Root    string   `json:"root" yaml:"root"`
	Created []string `json:"created" yaml:"created"`
}

func runInit(ctx context.Context, w io.Writer, dir string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.dir, dir)
	}

	root, err := fsutil.Canonical(dir)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "cannot resolve depot directory", err)
	}

	view := initView{Root: root, Created: []string{}}

	if !s.manager.IsRepo(root) {
		VerboseLog("Initializing git repository in %s", root)
		if err := s.manager.Init(ctx, root); err != nil {
			return model.WrapCLIError(model.ExitGitError, "git init failed", err)
		}
		view.Created = append(view.Created, ".git")
	}

	var written []string
	for _, f := range []struct {
		name     string
		contents string
	}{
		{depot.DepotFilename, ""},
		{depot.WorkspaceFilename, workspaceTemplate},
	} {
		created, err := writeIfMissing(filepath.Join(root, f.name), f.contents)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("cannot write %s", f.name), err)
		}
		if created {
			written = append(written, f.name)
		}
	}

	if len(written) > 0 {
		if err := commitFiles(ctx, s.manager, root, written); err != nil {
			return err
		}
		view.Created = append(view.Created, written...)
	}

	// Validate what is now on disk, including files that already existed.
	d, err := depot.Open(root)
	if err != nil {
		return err
	}
	if _, err := d.Workspace("."); err != nil {
		return err
	}

	return render(w, view, func(w io.Writer) {
		if len(view.Created) == 0 {
			fmt.Fprintf(w, "Depot already initialized in %s\n", root)
			return
		}
		fmt.Fprintf(w, "Initialized banyan depot in %s\n", root)
	})
}

// writeIfMissing creates path with contents unless something already exists
// there. It reports whether the file was created.
func writeIfMissing(path, contents string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := io.WriteString(f, contents); err != nil {
		_ = f.Close()
		return false, err
	}
	return true, f.Close()
}

func commitFiles(ctx context.Context, m *worktree.Manager, root string, names []string) error {
	if err := m.AddFiles(ctx, root, names...); err != nil {
		return model.WrapCLIError(model.ExitGitError, "cannot stage depot files", err)
	}
	err := m.Commit(ctx, root, worktree.CommitOptions{Message: "Initialize banyan depot"})
	if err != nil {
		return model.WrapCLIError(model.ExitGitError, "cannot commit depot files", err)
	}
	return nil
}
