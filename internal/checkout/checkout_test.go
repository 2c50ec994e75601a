package checkout

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/banyan/internal/depot"
	"github.com/mmr-tortoise/banyan/internal/logging"
	"github.com/mmr-tortoise/banyan/internal/model"
	"github.com/mmr-tortoise/banyan/internal/worktree"
)

// fakeBackend records every call and simulates git's bookkeeping: a created
// working tree shows up in later listings and on disk.
type fakeBackend struct {
	registry worktree.Registry
	branches map[string]bool
	calls    []string

	listErr error
	addErr  map[string]error
}

func newFakeBackend(root string) *fakeBackend {
	return &fakeBackend{
		registry: worktree.Registry{root: &worktree.Record{Path: root}},
		branches: map[string]bool{"main": true},
		addErr:   map[string]error{},
	}
}

func (f *fakeBackend) List(_ context.Context, _ string) (worktree.Registry, error) {
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	snapshot := worktree.Registry{}
	for k, v := range f.registry {
		snapshot[k] = v
	}
	return snapshot, nil
}

func (f *fakeBackend) BranchExists(_ context.Context, _, branch string) (bool, error) {
	f.calls = append(f.calls, "show-ref "+branch)
	return f.branches[branch], nil
}

func (f *fakeBackend) CreateBranch(_ context.Context, _, branch, startPoint string) error {
	f.calls = append(f.calls, "branch "+branch+" "+startPoint)
	f.branches[branch] = true
	return nil
}

func (f *fakeBackend) AddWorktree(_ context.Context, _, path, branch string) error {
	f.calls = append(f.calls, "worktree add "+path+" "+branch)
	if err := f.addErr[branch]; err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	f.registry[path] = &worktree.Record{Path: path}
	return nil
}

// IsWorktree looks for a .git file pointing elsewhere, as git leaves in a
// linked working tree.
func (f *fakeBackend) IsWorktree(path string) bool {
	data, err := os.ReadFile(filepath.Join(path, ".git"))
	return err == nil && strings.HasPrefix(string(data), "gitdir:")
}

// mutations returns the recorded branch and worktree creations.
func (f *fakeBackend) mutations() []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, "branch ") || strings.HasPrefix(c, "worktree add ") {
			out = append(out, c)
		}
	}
	return out
}

// setupWorkspace writes a depot at a fresh directory with the workspace file
// at its root and opens that workspace.
func setupWorkspace(t *testing.T, workspaceTOML string) *depot.Workspace {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, depot.DepotFilename), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, depot.WorkspaceFilename), []byte(workspaceTOML), 0o644))

	d, err := depot.Open(root)
	require.NoError(t, err)
	ws, err := d.Workspace(".")
	require.NoError(t, err)
	return ws
}

func TestCheckoutSingleMount(t *testing.T) {
	ws := setupWorkspace(t, `[mount . "scratch/pad1"]`)
	backend := newFakeBackend(ws.Depot.Root)
	wantPath := filepath.Join(ws.Depot.Root, "scratch", "pad1")

	report, err := New(backend).Checkout(context.Background(), ws)
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, "scratch/pad1", res.LocalPath)
	assert.Equal(t, "mount/default{scratch/pad1}", res.Branch)
	assert.Equal(t, wantPath, res.Path)
	assert.Equal(t, model.StatusCheckedOut, res.Status)
	assert.NoError(t, res.Err)

	assert.Equal(t, []string{
		"branch mount/default{scratch/pad1} HEAD",
		"worktree add " + wantPath + " mount/default{scratch/pad1}",
	}, backend.mutations())
}

// TestCheckoutIdempotent runs checkout twice; the second run only lists
// working trees.
func TestCheckoutIdempotent(t *testing.T) {
	ws := setupWorkspace(t, "[mount.\"scratch/pad1\"]\n[mount.\"tools\"]\n")
	backend := newFakeBackend(ws.Depot.Root)
	o := New(backend)

	_, err := o.Checkout(context.Background(), ws)
	require.NoError(t, err)
	require.Len(t, backend.mutations(), 4)

	backend.calls = nil
	for i := 0; i < 2; i++ {
		report, err := o.Checkout(context.Background(), ws)
		require.NoError(t, err)
		require.Len(t, report.Results, 2)
		for _, res := range report.Results {
			assert.Equal(t, model.StatusAlreadyPopulated, res.Status, res.LocalPath)
		}
		assert.Equal(t, 2, report.Count(model.StatusAlreadyPopulated))
	}
	assert.Empty(t, backend.mutations())
	assert.Equal(t, []string{"list", "list"}, backend.calls)
}

// TestCheckoutUnknownMount verifies that one unknown path aborts the whole
// request before any git command runs.
func TestCheckoutUnknownMount(t *testing.T) {
	ws := setupWorkspace(t, "[mount.\"tools\"]\n[mount.\"scratch/pad1\"]\n")
	backend := newFakeBackend(ws.Depot.Root)

	report, err := New(backend).Checkout(context.Background(), ws, "tools", "nope")
	assert.Nil(t, report)

	var uerr *model.UnknownMountError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, []string{"scratch/pad1", "tools"}, uerr.Available)
	assert.Equal(t, "unknown checkout path `nope`: available\n  scratch/pad1\n  tools", err.Error())

	assert.Empty(t, backend.calls)
	assert.NoDirExists(t, filepath.Join(ws.Depot.Root, "tools"))
}

func TestCheckoutEmptyWorkspace(t *testing.T) {
	ws := setupWorkspace(t, "")
	backend := newFakeBackend(ws.Depot.Root)

	report, err := New(backend).Checkout(context.Background(), ws)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, ".", report.Workspace)
	assert.Empty(t, backend.calls)
}

// TestCheckoutConflict places an ordinary directory where the mount should
// go.
func TestCheckoutConflict(t *testing.T) {
	ws := setupWorkspace(t, "[mount.\"scratch/pad1\"]\n")
	backend := newFakeBackend(ws.Depot.Root)
	occupied := filepath.Join(ws.Depot.Root, "scratch", "pad1")
	require.NoError(t, os.MkdirAll(occupied, 0o755))

	report, err := New(backend).Checkout(context.Background(), ws)

	var cerr *model.CheckoutConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, occupied, cerr.Path)
	assert.Equal(t, "mount/default{scratch/pad1}", cerr.Branch)
	assert.Equal(t, model.ExitCheckoutConflict, cerr.ExitCode())
	assert.Equal(t, "not a registered working tree", cerr.Reason)

	require.Len(t, report.Results, 1)
	assert.Equal(t, model.StatusFailed, report.Results[0].Status)
	assert.Same(t, cerr, report.Results[0].Err)

	assert.Empty(t, backend.mutations())
}

// TestCheckoutConflictUnlistedWorktree places a linked working tree that
// the depot does not list at the mount path.
func TestCheckoutConflictUnlistedWorktree(t *testing.T) {
	ws := setupWorkspace(t, "[mount.\"tools\"]\n")
	backend := newFakeBackend(ws.Depot.Root)
	occupied := filepath.Join(ws.Depot.Root, "tools")
	require.NoError(t, os.MkdirAll(occupied, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(occupied, ".git"), []byte("gitdir: /elsewhere/.git/worktrees/tools\n"), 0o644))

	_, err := New(backend).Checkout(context.Background(), ws)

	var cerr *model.CheckoutConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "holds a linked working tree this depot does not list", cerr.Reason)
	assert.Contains(t, err.Error(), cerr.Reason)
	assert.Empty(t, backend.mutations())
}

// TestCheckoutExistingBranch reuses a branch left behind by an earlier
// checkout whose working tree was removed.
func TestCheckoutExistingBranch(t *testing.T) {
	ws := setupWorkspace(t, "[mount.\"tools\"]\n")
	backend := newFakeBackend(ws.Depot.Root)
	backend.branches["mount/default{tools}"] = true

	report, err := New(backend).Checkout(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedOut, report.Results[0].Status)
	assert.Equal(t, []string{
		"worktree add " + filepath.Join(ws.Depot.Root, "tools") + " mount/default{tools}",
	}, backend.mutations())
}

func TestCheckoutListError(t *testing.T) {
	ws := setupWorkspace(t, "[mount.\"tools\"]\n")
	backend := newFakeBackend(ws.Depot.Root)
	backend.listErr = &model.BackendCommandError{Args: []string{"git", "worktree", "list"}, Status: 128}

	report, err := New(backend).Checkout(context.Background(), ws)
	assert.Nil(t, report)
	assert.Same(t, backend.listErr, err)
	assert.Empty(t, backend.mutations())
}

func TestCheckoutPolicies(t *testing.T) {
	const toml = "[mount.\"a\"]\n[mount.\"b\"]\n[mount.\"c\"]\n[mount.\"d\"]\n"
	addFailure := &model.BackendCommandError{Args: []string{"git", "worktree", "add"}, Status: 128, Stderr: "fatal: boom"}

	setup := func(t *testing.T) (*depot.Workspace, *fakeBackend) {
		ws := setupWorkspace(t, toml)
		backend := newFakeBackend(ws.Depot.Root)
		require.NoError(t, os.MkdirAll(filepath.Join(ws.Depot.Root, "b"), 0o755))
		backend.addErr["mount/default{c}"] = addFailure
		return ws, backend
	}

	t.Run("stop at first failure", func(t *testing.T) {
		ws, backend := setup(t)

		report, err := New(backend).Checkout(context.Background(), ws)
		var cerr *model.CheckoutConflictError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "b", cerr.LocalPath)
		assert.False(t, errors.Is(err, addFailure))

		assert.Equal(t, []model.CheckoutStatus{model.StatusCheckedOut, model.StatusFailed}, statuses(report))
		assert.NoDirExists(t, filepath.Join(ws.Depot.Root, "c"))
		assert.NoDirExists(t, filepath.Join(ws.Depot.Root, "d"))
	})

	t.Run("continue past failures", func(t *testing.T) {
		ws, backend := setup(t)

		var logs bytes.Buffer
		logging.Setup(false, false, &logs)
		t.Cleanup(func() { logging.Setup(false, false, nil) })

		report, err := New(backend, WithPolicy(KeepGoing)).Checkout(context.Background(), ws)
		require.Error(t, err)

		var cerr *model.CheckoutConflictError
		assert.True(t, errors.As(err, &cerr))
		assert.True(t, errors.Is(err, addFailure))

		assert.Equal(t, []model.CheckoutStatus{
			model.StatusCheckedOut, model.StatusFailed, model.StatusFailed, model.StatusCheckedOut,
		}, statuses(report))
		assert.Equal(t, 2, report.Count(model.StatusFailed))
		assert.DirExists(t, filepath.Join(ws.Depot.Root, "d"))

		assert.Contains(t, logs.String(), "mount failed, continuing")
		assert.Contains(t, logs.String(), "mount=b")
		assert.Contains(t, logs.String(), "mount=c")
	})
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("stop")
	require.NoError(t, err)
	assert.Equal(t, FailFast, p)

	p, err = ParsePolicy("Continue")
	require.NoError(t, err)
	assert.Equal(t, KeepGoing, p)

	_, err = ParsePolicy("later")
	assert.ErrorContains(t, err, "valid: stop, continue")

	assert.Equal(t, "stop", FailFast.String())
	assert.Equal(t, "continue", KeepGoing.String())
}

func statuses(r *Report) []model.CheckoutStatus {
	out := make([]model.CheckoutStatus, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Status
	}
	return out
}
