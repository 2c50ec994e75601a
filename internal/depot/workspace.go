package depot

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mmr-tortoise/banyan/internal/config"
	"github.com/mmr-tortoise/banyan/internal/fsutil"
	"github.com/mmr-tortoise/banyan/internal/model"
)

// Workspace is a directory of the depot with a BANYAN_WORKSPACE.toml file.
type Workspace struct {
	Depot *Depot

	// LocalPath is the cleaned, slash-separated, depot-relative path. The
	// workspace at the depot root is ".".
	LocalPath string

	// Path is the canonical filesystem path.
	Path string

	// Config is the decoded BANYAN_WORKSPACE.toml.
	Config *config.Document

	mounts []*Mount
	index  map[string]*Mount
}

func newWorkspace(d *Depot, local, wsPath string, doc *config.Document) (*Workspace, error) {
	ws := &Workspace{
		Depot:     d,
		LocalPath: local,
		Path:      wsPath,
		Config:    doc,
		index:     map[string]*Mount{},
	}

	var table *config.Table
	if v, ok := doc.Root.Get("mount"); ok {
		t, isTable := v.Table()
		if !isTable {
			return nil, model.NewConfigError(doc.Path, fmt.Sprintf("`mount` must be a table, found %s", v.Kind()), nil)
		}
		table = t
	}

	specs, err := ParseMounts(table)
	if err != nil {
		var cerr *model.ConfigError
		if errors.As(err, &cerr) {
			cerr.Path = doc.Path
		}
		return nil, err
	}

	for _, spec := range specs {
		m, err := newMount(ws, spec)
		if err != nil {
			return nil, err
		}
		if prev, dup := ws.index[m.LocalPath]; dup {
			return nil, model.NewConfigError(doc.Path,
				fmt.Sprintf("mounts `%s` and `%s` name the same path %s", prev.Spec.LocalPath, spec.LocalPath, m.LocalPath), nil)
		}
		ws.mounts = append(ws.mounts, m)
		ws.index[m.LocalPath] = m
	}

	return ws, nil
}

// Mounts returns the workspace's mounts in declaration order.
func (w *Workspace) Mounts() []*Mount {
	return append([]*Mount(nil), w.mounts...)
}

// Mount returns the mount declared at localPath. localPath is cleaned
// before the lookup, so "./a//b" finds "a/b".
func (w *Workspace) Mount(localPath string) (*Mount, bool) {
	local, err := fsutil.CleanLocal(localPath)
	if err != nil {
		return nil, false
	}
	m, ok := w.index[local]
	return m, ok
}

// MountNames returns every mount local path, sorted.
func (w *Workspace) MountNames() []string {
	names := make([]string, 0, len(w.mounts))
	for _, m := range w.mounts {
		names = append(names, m.LocalPath)
	}
	sort.Strings(names)
	return names
}

// Resolve maps requested local paths to mounts. With no paths it returns
// every mount in declaration order; otherwise the mounts follow request
// order, with repeats removed.
//
// If any requested path is not declared, Resolve returns a
// *model.UnknownMountError listing all unknown paths and all valid ones.
func (w *Workspace) Resolve(localPaths ...string) ([]*Mount, error) {
	if len(localPaths) == 0 {
		return w.Mounts(), nil
	}

	var (
		selected []*Mount
		unknown  []string
		seen     = map[*Mount]bool{}
	)
	for _, p := range localPaths {
		m, ok := w.Mount(p)
		if !ok {
			unknown = append(unknown, p)
			continue
		}
		if !seen[m] {
			seen[m] = true
			selected = append(selected, m)
		}
	}

	if len(unknown) > 0 {
		return nil, &model.UnknownMountError{Requested: unknown, Available: w.MountNames()}
	}
	return selected, nil
}
