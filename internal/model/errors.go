package model

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ConfigError reports a missing or structurally invalid configuration
// file, or a mount entry that is not a table. It is always fatal to the
// operation that triggered it.
type ConfigError struct {
	// Path is the configuration file the problem was found in.
	Path string

	// Message describes the problem.
	Message string

	// Line is the 1-based line of a parse error, or 0 when unknown.
	Line int

	// Err is the parser or filesystem error, if any.
	Err error
}

// Error satisfies the error interface.
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExitCode returns ExitConfigError.
func (e *ConfigError) ExitCode() ExitCode {
	return ExitConfigError
}

// NewConfigError creates a ConfigError for path.
func NewConfigError(path, message string, err error) *ConfigError {
	return &ConfigError{Path: path, Message: message, Err: err}
}

// UnknownMountError reports requested mount paths that the workspace does
// not declare. The message enumerates every valid mount path.
type UnknownMountError struct {
	// Requested holds the offending paths, in request order.
	Requested []string

	// Available holds every declared mount local path, sorted.
	Available []string
}

// Error satisfies the error interface.
//
// Format:
//
//	unknown checkout path `foo`: available
//	  scratch/pad1
//	  tools
func (e *UnknownMountError) Error() string {
	var b strings.Builder
	quoted := make([]string, len(e.Requested))
	for i, p := range e.Requested {
		quoted[i] = "`" + p + "`"
	}
	noun := "path"
	if len(e.Requested) > 1 {
		noun = "paths"
	}
	fmt.Fprintf(&b, "unknown checkout %s %s: ", noun, strings.Join(quoted, ", "))
	if len(e.Available) == 0 {
		b.WriteString("the workspace declares no mounts")
		return b.String()
	}
	b.WriteString("available")
	for _, p := range e.Available {
		b.WriteString("\n  ")
		b.WriteString(p)
	}
	return b.String()
}

// ExitCode returns ExitUnknownMount.
func (e *UnknownMountError) ExitCode() ExitCode {
	return ExitUnknownMount
}

// BackendCommandError reports a git invocation that exited non-zero. The
// captured stderr is kept verbatim for diagnostics.
type BackendCommandError struct {
	// Args is the full argument vector, including the program name.
	Args []string

	// Dir is the working directory the command ran in.
	Dir string

	// Status is the process exit status, or -1 if the process did not start.
	Status int

	// Stderr is the captured standard error output.
	Stderr string

	// Err is the underlying exec error.
	Err error
}

// Error satisfies the error interface.
func (e *BackendCommandError) Error() string {
	message := fmt.Sprintf("%s failed", shellquote.Join(e.Args...))
	if e.Status >= 0 {
		message = fmt.Sprintf("%s (exit status %d)", message, e.Status)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		message = fmt.Sprintf("%s: %s", message, stderr)
	} else if e.Err != nil {
		message = fmt.Sprintf("%s: %v", message, e.Err)
	}
	return message
}

// Unwrap returns the underlying exec error.
func (e *BackendCommandError) Unwrap() error {
	return e.Err
}

// ExitCode returns ExitGitError.
func (e *BackendCommandError) ExitCode() ExitCode {
	return ExitGitError
}

// CheckoutConflictError reports that a mount's target path exists on disk
// but is not a registered working tree, so materializing there would
// overwrite or nest inside unrelated content.
type CheckoutConflictError struct {
	// LocalPath is the mount's workspace-relative path.
	LocalPath string

	// Path is the canonical filesystem path that is occupied.
	Path string

	// Branch is the branch the mount would have been bound to.
	Branch string

	// Reason describes what was found at Path.
	Reason string
}

// Error satisfies the error interface.
func (e *CheckoutConflictError) Error() string {
	message := fmt.Sprintf("cannot check out mount %s on branch %s: %s already exists", e.LocalPath, e.Branch, e.Path)
	if e.Reason != "" {
		message = fmt.Sprintf("%s (%s)", message, e.Reason)
	}
	return message
}

// ExitCode returns ExitCheckoutConflict.
func (e *CheckoutConflictError) ExitCode() ExitCode {
	return ExitCheckoutConflict
}
