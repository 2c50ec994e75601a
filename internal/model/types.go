package model

import (
	"fmt"
	"strings"
)

// CheckoutStatus is the per-mount outcome of a checkout operation.
//
// A mount either already had a registered working tree (nothing happened),
// was materialized by this invocation, or failed. "Nothing happened" is
// a status of its own so callers can observe it without reading logs.
type CheckoutStatus string

const (
	// StatusAlreadyPopulated means the mount's canonical path was already a
	// registered working tree. No backend mutation was issued.
	StatusAlreadyPopulated CheckoutStatus = "already-populated"

	// StatusCheckedOut means the mount was materialized by this invocation
	// (branch created if needed, then a linked working tree added).
	StatusCheckedOut CheckoutStatus = "checked-out"

	// StatusFailed means materialization was attempted and failed, or a
	// conflict prevented it. The accompanying error explains why.
	StatusFailed CheckoutStatus = "failed"
)

// String returns the string representation of CheckoutStatus.
func (s CheckoutStatus) String() string {
	return string(s)
}

// IsValid checks whether the CheckoutStatus value is one of the
// predefined states.
func (s CheckoutStatus) IsValid() bool {
	switch s {
	case StatusAlreadyPopulated, StatusCheckedOut, StatusFailed:
		return true
	default:
		return false
	}
}

// ParseCheckoutStatus converts a string to a CheckoutStatus.
// Returns an error if the string does not match any valid status.
func ParseCheckoutStatus(s string) (CheckoutStatus, error) {
	status := CheckoutStatus(strings.ToLower(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid checkout status: %q (valid: already-populated, checked-out, failed)", s)
	}
	return status, nil
}

// MarshalText renders the status as its string form in JSON and YAML.
func (s CheckoutStatus) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// UnmarshalText parses a status with ParseCheckoutStatus, so decoding a
// report with an unknown status fails.
func (s *CheckoutStatus) UnmarshalText(text []byte) error {
	status, err := ParseCheckoutStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// ExitCode defines the CLI exit codes. Scripts can rely on these to tell
// configuration problems apart from backend (git) failures.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates a missing or invalid BANYAN_DEPOT.toml or
	// BANYAN_WORKSPACE.toml, or a malformed mount entry.
	ExitConfigError ExitCode = 2

	// ExitUnknownMount indicates a requested mount path is not declared by
	// the workspace.
	ExitUnknownMount ExitCode = 3

	// ExitGitError indicates a git command exited non-zero.
	ExitGitError ExitCode = 5

	// ExitCheckoutConflict indicates a mount's target path is occupied by
	// something that is not a registered working tree.
	ExitCheckoutConflict ExitCode = 6
)

// ExitCoder is implemented by every error type in this package. The CLI
// uses it (through errors.As) to pick the process exit code.
type ExitCoder interface {
	error
	ExitCode() ExitCode
}

// CLIError is a generic error type that carries an exit code. It is used
// for CLI-level failures that do not belong to the domain taxonomy, such
// as an unreadable working directory or a bad flag combination.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code carried by the error.
func (e *CLIError) ExitCode() ExitCode {
	return e.Code
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
