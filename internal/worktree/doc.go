// Package worktree provides the git operations banyan needs: enumerating
// linked working trees, creating branches and working trees, and the
// init/add/commit trio used to bootstrap a depot.
//
// All git operations are performed by running the git binary through an
// executor.Runner rather than through a Git library. This approach:
//   - Uses the exact same Git behavior the user sees in their terminal
//   - Keeps `git worktree` semantics (which go-git only partly implements)
//   - Lets tests substitute a recording Runner
//
// The working-tree listing is read with `git worktree list --porcelain -z`
// and parsed into a Registry keyed by canonical path. Example listing with
// one main and one linked working tree (NUL shown as \0):
//
//	worktree /src/depot\0HEAD 3f2c1a9...\0branch refs/heads/main\0\0
//	worktree /src/depot/scratch/pad1\0HEAD 3f2c1a9...\0branch refs/heads/mount/default{scratch/pad1}\0locked\0
//
// Design decisions:
//   - Registry keys go through fsutil.Canonical, the same function that
//     computes mount paths, so a lookup compares like with like.
//   - Flag attributes ("bare", "detached", a reason-less "locked") map to a
//     nil value, distinct from an attribute whose value is empty.
//   - The last record is kept even when the listing lacks its closing empty
//     line. Dropping it would hide the most recently added working tree.
//   - A Registry is a snapshot. Callers list once per operation and never
//     expect it to observe working trees added afterwards.
//   - Non-zero git exits surface as *model.BackendCommandError carrying the
//     argv, exit status and stderr, except where a specific status has a
//     meaning (show-ref exits 1 for a missing branch).
//   - Every method takes the directory git runs in. The Manager holds no
//     repository state, so one Manager serves any depot.
package worktree
