// Package cli implements the cobra-based CLI commands for banyan.
//
// Each subcommand (init, workspace checkout, workspace mounts, worktrees)
// is defined in its own file within this package. This file defines the root
// command that serves as the parent for all subcommands and handles global
// flags.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/banyan/internal/logging"
	"github.com/mmr-tortoise/banyan/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// output selects text, JSON or YAML rendering of command results.
	output = formatText

	// verbose enables debug logging, including every git command run.
	verbose bool

	// chdir makes the command behave as if started in that directory.
	chdir string
)

// Version, Commit, and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

var errorLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action; it only provides
// help text and global flags. Global flags are reset on every call so
// that tests can build several command trees in one process.
func NewRootCommand() *cobra.Command {
	output = formatText
	verbose = false
	chdir = ""

	rootCmd := &cobra.Command{
		Use:   "banyan",
		Short: "Multi-component workspaces on a single git depot",
		Long: `banyan manages workspaces inside a single git repository (the depot).

A workspace is a directory with a BANYAN_WORKSPACE.toml file declaring
mounts. Each mount is materialized as a linked git working tree on its own
branch, named mount/default{<workspace>/<mount>}.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors lets Execute format errors (text or JSON).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(verbose, output == formatJSON, cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&chdir, "directory", "C", "", "Run as if banyan was started in `dir`")
	rootCmd.PersistentFlags().VarP(&output, "output", "o", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewWorkspaceCommand())
	rootCmd.AddCommand(NewWorktreesCommand())

	return rootCmd
}

// Execute runs the root command and exits with the code matching the
// returned error. Errors carrying an exit code (model.ExitCoder) use it;
// any other error exits with model.ExitGeneralError.
func Execute(ctx context.Context, rootCmd *cobra.Command) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(int(exitCode(err)))
	}
}

func exitCode(err error) model.ExitCode {
	var coder model.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return model.ExitGeneralError
}

// printError writes err to w as text or, with --output json, as a JSON
// object. Errors always go to stderr; stdout is reserved for results.
func printError(w io.Writer, err error) {
	if output == formatJSON {
		errObj := map[string]any{
			"error": map[string]any{
				"message": err.Error(),
				"code":    int(exitCode(err)),
			},
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintf(w, "%s %s\n", errorLabel.Render("Error:"), err)
}

// VerboseLog emits a debug-level log line. It is only visible with -v.
func VerboseLog(format string, args ...any) {
	logging.Debug(fmt.Sprintf(format, args...))
}
