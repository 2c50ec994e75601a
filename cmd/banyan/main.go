// Package main is the entry point for the banyan CLI.
//
// It delegates all functionality to the internal/cli package, which defines
// the cobra commands. Build-time variables (version, commit, date) are
// injected via ldflags and default to "dev", "none", and "unknown".
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmr-tortoise/banyan/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Interrupting cancels the running git command through its context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx, cli.NewRootCommand())
}
