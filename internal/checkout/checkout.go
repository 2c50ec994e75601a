// Package checkout materializes workspace mounts as linked git working
// trees.
//
// A checkout runs in three phases:
//  1. Resolve the requested local paths against the workspace. An unknown
//     path fails the whole request with *model.UnknownMountError before any
//     git command runs.
//  2. List the depot's working trees once. Every decision below is made
//     against that one snapshot, never a re-listing.
//  3. Process the mounts in order. A mount whose canonical path is a key of
//     the snapshot is already populated and left alone. Any other mount is
//     materialized: its branch is created from HEAD if missing, then a
//     working tree is added at the mount's path.
//
// Design decisions:
//   - Populated means "a working tree is registered at this path". The
//     branch checked out there is not compared with the mount's branch.
//   - A path that exists on disk without being registered is a conflict
//     (*model.CheckoutConflictError). The conflict check runs before the
//     branch is created, so a conflicting mount leaves nothing behind.
//   - What happens after a failure is a Policy: FailFast stops at the
//     first failed mount, KeepGoing attempts the rest and joins the errors.
//     Mounts already materialized are never rolled back.
//
// Concurrent checkouts against the same depot are not coordinated.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmr-tortoise/banyan/internal/depot"
	"github.com/mmr-tortoise/banyan/internal/fsutil"
	"github.com/mmr-tortoise/banyan/internal/logging"
	"github.com/mmr-tortoise/banyan/internal/model"
	"github.com/mmr-tortoise/banyan/internal/worktree"
)

// Backend is the subset of git operations checkout needs.
// *worktree.Manager implements it.
type Backend interface {
	List(ctx context.Context, repoPath string) (worktree.Registry, error)
	BranchExists(ctx context.Context, repoPath, branch string) (bool, error)
	CreateBranch(ctx context.Context, repoPath, branch, startPoint string) error
	AddWorktree(ctx context.Context, repoPath, worktreePath, branch string) error

	// IsWorktree reports whether path holds a linked working tree's .git
	// file. It only inspects the filesystem.
	IsWorktree(path string) bool
}

var _ Backend = (*worktree.Manager)(nil)

// Policy decides what happens after a mount fails.
type Policy int

const (
	// FailFast stops at the first failed mount.
	FailFast Policy = iota

	// KeepGoing attempts every mount and reports all failures together.
	KeepGoing
)

// String returns the flag spelling of the policy.
func (p Policy) String() string {
	switch p {
	case FailFast:
		return "stop"
	case KeepGoing:
		return "continue"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts "stop" or "continue" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "stop":
		return FailFast, nil
	case "continue":
		return KeepGoing, nil
	default:
		return FailFast, fmt.Errorf("invalid policy %q (valid: stop, continue)", s)
	}
}

// Result is the outcome for one mount.
type Result struct {
	LocalPath string               `json:"localPath" yaml:"localPath"`
	Branch    string               `json:"branch" yaml:"branch"`
	Path      string               `json:"path" yaml:"path"`
	Status    model.CheckoutStatus `json:"status" yaml:"status"`

	// Err is set when Status is model.StatusFailed.
	Err error `json:"-" yaml:"-"`
}

// Report lists per-mount results in the order the mounts were processed.
type Report struct {
	Workspace string   `json:"workspace" yaml:"workspace"`
	Results   []Result `json:"results" yaml:"results"`
}

// Count returns how many results have status s.
func (r *Report) Count(s model.CheckoutStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Orchestrator runs checkouts through a Backend.
type Orchestrator struct {
	backend Backend
	policy  Policy
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy sets the failure policy. The default is FailFast.
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// New creates an Orchestrator.
func New(backend Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{backend: backend, policy: FailFast}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Checkout materializes the mounts of ws named by localPaths, or every
// mount in declaration order when localPaths is empty.
//
// Unknown paths fail with *model.UnknownMountError before any git command
// runs. Otherwise the working-tree registry is listed once, and every
// target mount is processed against that snapshot.
//
// Under FailFast the report ends with the first failed mount and the error
// is that mount's error. Under KeepGoing every mount is attempted and the
// error joins all mount errors. The report is returned in both cases.
func (o *Orchestrator) Checkout(ctx context.Context, ws *depot.Workspace, localPaths ...string) (*Report, error) {
	logging.Debug("workspace checkout", "workspace", ws.LocalPath, "paths", localPaths)

	mounts, err := ws.Resolve(localPaths...)
	if err != nil {
		return nil, err
	}

	report := &Report{Workspace: ws.LocalPath, Results: make([]Result, 0, len(mounts))}
	if len(mounts) == 0 {
		return report, nil
	}

	repo := ws.Depot.Root
	registry, err := o.backend.List(ctx, repo)
	if err != nil {
		return nil, err
	}

	logging.Debug("checking out mounts", "count", len(mounts))

	var errs []error
	for _, m := range mounts {
		log := logging.ForMount(m.LocalPath, m.Branch)
		res := Result{LocalPath: m.LocalPath, Branch: m.Branch, Path: m.Path}

		if m.IsPopulated(registry) {
			log.Debug("skipping checkout (already populated)")
			res.Status = model.StatusAlreadyPopulated
			report.Results = append(report.Results, res)
			continue
		}

		log.Debug("checking out mount", "path", m.Path)
		if err := o.materialize(ctx, repo, m); err != nil {
			res.Status = model.StatusFailed
			res.Err = err
			report.Results = append(report.Results, res)
			if o.policy == FailFast {
				return report, err
			}
			log.Warn("mount failed, continuing with the remaining mounts", "error", err)
			errs = append(errs, err)
			continue
		}

		res.Status = model.StatusCheckedOut
		report.Results = append(report.Results, res)
	}

	logging.Debug("checkout finished",
		"checked-out", report.Count(model.StatusCheckedOut),
		"already-populated", report.Count(model.StatusAlreadyPopulated),
		"failed", report.Count(model.StatusFailed))
	return report, errors.Join(errs...)
}

// materialize binds m to a new working tree. The conflict check happens
// before anything is created, so a conflicting mount leaves no branch
// behind.
func (o *Orchestrator) materialize(ctx context.Context, repo string, m *depot.Mount) error {
	occupied, err := fsutil.Exists(m.Path)
	if err != nil {
		return fmt.Errorf("checking mount %s: %w", m.LocalPath, err)
	}
	if occupied {
		reason := "not a registered working tree"
		if o.backend.IsWorktree(m.Path) {
			reason = "holds a linked working tree this depot does not list"
		}
		return &model.CheckoutConflictError{
			LocalPath: m.LocalPath,
			Path:      m.Path,
			Branch:    m.Branch,
			Reason:    reason,
		}
	}

	exists, err := o.backend.BranchExists(ctx, repo, m.Branch)
	if err != nil {
		return err
	}
	if !exists {
		if err := o.backend.CreateBranch(ctx, repo, m.Branch, "HEAD"); err != nil {
			return err
		}
	}

	return o.backend.AddWorktree(ctx, repo, m.Path, m.Branch)
}
