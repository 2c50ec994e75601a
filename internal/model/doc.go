// Package model defines the shared value types and the error taxonomy for
// the banyan CLI.
//
// This package contains pure data structures and imports no other banyan
// package. Depot, workspace and mount types live in internal/depot; this
// package only holds what several layers need to agree on: checkout outcome
// statuses, process exit codes, and the error types that carry them
// (ConfigError, UnknownMountError, BackendCommandError,
// CheckoutConflictError and the generic CLIError).
package model
