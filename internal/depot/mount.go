package depot

import (
	"fmt"
	"path"

	"github.com/mmr-tortoise/banyan/internal/config"
	"github.com/mmr-tortoise/banyan/internal/fsutil"
	"github.com/mmr-tortoise/banyan/internal/model"
	"github.com/mmr-tortoise/banyan/internal/worktree"
)

// MountSpec is one entry of a workspace's mount table, before it is bound to
// a workspace.
type MountSpec struct {
	// LocalPath is the workspace-relative path exactly as written in the
	// configuration file.
	LocalPath string

	// Settings is the mount's table. Its contents are not interpreted.
	Settings *config.Table
}

// ParseMounts turns a mount table into specs, in declaration order.
//
// A nil or empty table yields no specs. Every value must itself be a table;
// otherwise a *model.ConfigError naming the offending local path is
// returned.
func ParseMounts(table *config.Table) ([]MountSpec, error) {
	specs := make([]MountSpec, 0, table.Len())
	for _, localPath := range table.Keys() {
		v, _ := table.Get(localPath)
		settings, ok := v.Table()
		if !ok {
			return nil, model.NewConfigError("", fmt.Sprintf("mount `%s` must be a table, found %s", localPath, v.Kind()), nil)
		}
		specs = append(specs, MountSpec{LocalPath: localPath, Settings: settings})
	}
	return specs, nil
}

// BranchName returns the branch bound to the mount at mountPath inside the
// workspace at workspacePath, both slash-separated local paths:
//
//	mount/default{<workspace>/<mount>}
//
// The braces are literal. The result depends only on the two paths.
func BranchName(workspacePath, mountPath string) string {
	return "mount/default{" + path.Join(workspacePath, mountPath) + "}"
}

// Mount is a MountSpec bound to its workspace.
type Mount struct {
	Spec MountSpec

	// Workspace is the owning workspace.
	Workspace *Workspace

	// LocalPath is the cleaned, slash-separated, workspace-relative path.
	LocalPath string

	// Path is the canonical filesystem path the mount materializes at:
	// the workspace path joined with LocalPath, with every symlink along
	// the way resolved. It may lie outside the depot when a directory of
	// the depot is a symlink to somewhere else.
	Path string

	// Branch is the mount's deterministic branch name.
	Branch string
}

// IsPopulated reports whether a working tree is registered at the mount's
// path. Only the path is compared; the branch checked out there is not.
func (m *Mount) IsPopulated(reg worktree.Registry) bool {
	return reg.Contains(m.Path)
}

// DepotPath returns the mount's depot-relative path, the same path the
// branch name embeds.
func (m *Mount) DepotPath() string {
	return path.Join(m.Workspace.LocalPath, m.LocalPath)
}

func newMount(ws *Workspace, spec MountSpec) (*Mount, error) {
	local, err := fsutil.CleanLocal(spec.LocalPath)
	if err != nil {
		return nil, model.NewConfigError(ws.Config.Path, fmt.Sprintf("invalid mount path `%s`", spec.LocalPath), err)
	}
	if local == "." {
		return nil, model.NewConfigError(ws.Config.Path, fmt.Sprintf("mount path `%s` names the workspace itself", spec.LocalPath), nil)
	}

	m := &Mount{
		Spec:      spec,
		Workspace: ws,
		LocalPath: local,
		Branch:    BranchName(ws.LocalPath, local),
	}
	m.Path, err = fsutil.JoinWithin(ws.Depot.Root, m.DepotPath())
	if err != nil {
		return nil, model.NewConfigError(ws.Config.Path, fmt.Sprintf("cannot resolve mount path `%s`", spec.LocalPath), err)
	}
	return m, nil
}
