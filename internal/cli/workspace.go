// workspace.go implements "banyan workspace checkout" and
// "banyan workspace mounts".
//
// Both commands act on one workspace: the one named by --workspace, or the
// nearest directory at or above the current one that holds a
// BANYAN_WORKSPACE.toml.

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/banyan/internal/checkout"
	"github.com/mmr-tortoise/banyan/internal/depot"
	"github.com/mmr-tortoise/banyan/internal/model"
)

// workspaceFlags holds the flags shared by the workspace subcommands.
type workspaceFlags struct {
	// workspace is the depot-relative workspace path.
	workspace string
}

// NewWorkspaceCommand creates the "workspace" parent command.
func NewWorkspaceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Inspect and check out workspace mounts",
		Args:    cobra.NoArgs,
	}

	cmd.AddCommand(newCheckoutCommand())
	cmd.AddCommand(newMountsCommand())

	return cmd
}

type checkoutFlags struct {
	workspaceFlags
	onError policyFlag
}

func newCheckoutCommand() *cobra.Command {
	flags := &checkoutFlags{}

	cmd := &cobra.Command{
		Use:   "checkout [mount-path...]",
		Short: "Materialize workspace mounts as linked working trees",
		Long: `Materialize workspace mounts as linked git working trees.

With no arguments every mount of the workspace is checked out, in the order
the workspace file declares them. Mounts that already have a working tree
are left alone. A missing branch is created from HEAD. Mount paths are
matched after cleaning, so ./scratch//pad1 names scratch/pad1.

Examples:
  banyan workspace checkout
  banyan workspace checkout scratch/pad1
  banyan workspace checkout -w apps/web --on-error continue`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(cmd.Context(), cmd.OutOrStdout(), args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.workspace, "workspace", "w", "", "Depot-relative workspace path (default: nearest enclosing workspace)")
	cmd.Flags().Var(&flags.onError, "on-error", "What to do after a mount fails: stop, continue")

	return cmd
}

func runCheckout(ctx context.Context, w io.Writer, paths []string, flags *checkoutFlags) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	ws, err := s.openWorkspace(ctx, flags.workspace)
	if err != nil {
		return err
	}

	o := checkout.New(s.manager, checkout.WithPolicy(flags.onError.policy))
	report, err := o.Checkout(ctx, ws, paths...)
	if report != nil {
		if rerr := render(w, newCheckoutView(report), func(w io.Writer) { printCheckoutText(w, report) }); rerr != nil {
			return rerr
		}
	}
	return err
}

// checkoutView is the JSON/YAML form of a checkout report.
type checkoutView struct {
	Workspace string       `json:"workspace" yaml:"workspace"`
	Results   []resultView `json:"results" yaml:"results"`
}

type resultView struct {
	LocalPath string               `json:"localPath" yaml:"localPath"`
	Branch    string               `json:"branch" yaml:"branch"`
	Path      string               `json:"path" yaml:"path"`
	Status    model.CheckoutStatus `json:"status" yaml:"status"`
	Error     string               `json:"error,omitempty" yaml:"error,omitempty"`
}

func newCheckoutView(r *checkout.Report) checkoutView {
	view := checkoutView{Workspace: r.Workspace, Results: make([]resultView, 0, len(r.Results))}
	for _, res := range r.Results {
		rv := resultView{
			LocalPath: res.LocalPath,
			Branch:    res.Branch,
			Path:      res.Path,
			Status:    res.Status,
		}
		if res.Err != nil {
			rv.Error = res.Err.Error()
		}
		view.Results = append(view.Results, rv)
	}
	return view
}

// printCheckoutText prints one line per mount:
//
//	checked-out        scratch/pad1  mount/default{scratch/pad1}
//	already-populated  tools         mount/default{tools}
func printCheckoutText(w io.Writer, r *checkout.Report) {
	if len(r.Results) == 0 {
		fmt.Fprintf(w, "Workspace %s declares no mounts.\n", r.Workspace)
		return
	}

	width := 0
	for _, res := range r.Results {
		width = max(width, len(res.LocalPath))
	}
	for _, res := range r.Results {
		fmt.Fprintf(w, "%s  %-*s  %s\n", styleStatus(res.Status), width, res.LocalPath, res.Branch)
	}

	fmt.Fprintf(w, "\n%d checked out, %d already populated, %d failed\n",
		r.Count(model.StatusCheckedOut), r.Count(model.StatusAlreadyPopulated), r.Count(model.StatusFailed))
}

func newMountsCommand() *cobra.Command {
	flags := &workspaceFlags{}

	cmd := &cobra.Command{
		Use:   "mounts",
		Short: "List the mounts a workspace declares",
		Long: `List the mounts a workspace declares, in declaration order, with the
branch each one is bound to and whether a working tree exists for it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMounts(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.workspace, "workspace", "w", "", "Depot-relative workspace path (default: nearest enclosing workspace)")

	return cmd
}

type mountView struct {
	LocalPath string         `json:"localPath" yaml:"localPath"`
	Branch    string         `json:"branch" yaml:"branch"`
	Path      string         `json:"path" yaml:"path"`
	Populated bool           `json:"populated" yaml:"populated"`
	Settings  map[string]any `json:"settings" yaml:"settings"`
}

type mountsView struct {
	Workspace string      `json:"workspace" yaml:"workspace"`
	Mounts    []mountView `json:"mounts" yaml:"mounts"`
}

func runMounts(ctx context.Context, w io.Writer, flags *workspaceFlags) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	ws, err := s.openWorkspace(ctx, flags.workspace)
	if err != nil {
		return err
	}

	registry, err := s.manager.List(ctx, ws.Depot.Root)
	if err != nil {
		return err
	}

	view := mountsView{Workspace: ws.LocalPath, Mounts: make([]mountView, 0)}
	for _, m := range ws.Mounts() {
		view.Mounts = append(view.Mounts, mountView{
			LocalPath: m.LocalPath,
			Branch:    m.Branch,
			Path:      m.Path,
			Populated: m.IsPopulated(registry),
			Settings:  m.Spec.Settings.Interface(),
		})
	}

	return render(w, view, func(w io.Writer) { printMountsText(w, ws, view) })
}

// printMountsText prints the mount table:
//
//	MOUNT          BRANCH                         STATE
//	scratch/pad1   mount/default{scratch/pad1}    populated
func printMountsText(w io.Writer, ws *depot.Workspace, view mountsView) {
	if len(view.Mounts) == 0 {
		fmt.Fprintf(w, "Workspace %s declares no mounts.\n", ws.LocalPath)
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-24s %-40s %s", "MOUNT", "BRANCH", "STATE")))
	for _, m := range view.Mounts {
		state := "missing"
		if m.Populated {
			state = "populated"
		}
		fmt.Fprintf(w, "%-24s %-40s %s\n", m.LocalPath, m.Branch, state)
	}
}
