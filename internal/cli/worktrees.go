// worktrees.go implements "banyan worktrees", which prints the depot's
// working-tree registry as parsed from `git worktree list --porcelain -z`.

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/banyan/internal/worktree"
)

// NewWorktreesCommand creates the "worktrees" command.
func NewWorktreesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worktrees",
		Short: "List the depot's working trees",
		Long: `List every working tree attached to the depot, main and linked,
keyed by canonical path.

Examples:
  banyan worktrees
  banyan worktrees --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorktrees(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

// worktreeView is the JSON/YAML form of a registry record. Flag attributes
// map to null.
type worktreeView struct {
	Path   string             `json:"path" yaml:"path"`
	Branch string             `json:"branch,omitempty" yaml:"branch,omitempty"`
	Head   string             `json:"head,omitempty" yaml:"head,omitempty"`
	Attrs  map[string]*string `json:"attributes" yaml:"attributes"`
}

func runWorktrees(ctx context.Context, w io.Writer) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	d, err := s.openDepot(ctx)
	if err != nil {
		return err
	}

	registry, err := s.manager.List(ctx, d.Root)
	if err != nil {
		return err
	}
	VerboseLog("Found %d working trees", len(registry))

	views := make([]worktreeView, 0, len(registry))
	for _, p := range registry.Paths() {
		rec, _ := registry.Get(p)
		views = append(views, worktreeView{Path: p, Branch: rec.Branch(), Head: rec.Head(), Attrs: rec.Attrs})
	}

	return render(w, views, func(w io.Writer) { printWorktreesText(w, registry) })
}

// printWorktreesText prints one line per working tree:
//
//	/src/depot               main                          3f2c1a9
//	/src/depot/scratch/pad1  mount/default{scratch/pad1}   3f2c1a9  locked
func printWorktreesText(w io.Writer, registry worktree.Registry) {
	paths := registry.Paths()

	width := 0
	for _, p := range paths {
		width = max(width, len(p))
	}

	for _, p := range paths {
		rec, _ := registry.Get(p)
		fmt.Fprintf(w, "%-*s  %-40s %s", width, p, orDash(rec.Branch()), orDash(shortHead(rec.Head())))
		if flags := flagAttributes(rec); len(flags) > 0 {
			fmt.Fprintf(w, "  %s", strings.Join(flags, ","))
		}
		fmt.Fprintln(w)
	}
}

// flagAttributes returns the record's state markers, sorted.
func flagAttributes(rec *worktree.Record) []string {
	var flags []string
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"bare", rec.IsBare()},
		{"detached", rec.IsDetached()},
		{"locked", rec.IsLocked()},
		{"prunable", rec.IsPrunable()},
	} {
		if f.set {
			flags = append(flags, f.name)
		}
	}
	return flags
}

func shortHead(head string) string {
	if len(head) > 7 {
		return head[:7]
	}
	return head
}
