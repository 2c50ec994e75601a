// Package logging provides the structured logger for banyan.
//
// Records go through log/slog to stderr. Debug records (every git command,
// every per-mount decision) appear only with -v; warnings always appear:
//
//	log := logging.ForMount(m.LocalPath, m.Branch)
//	log.Debug("checking out mount", "path", m.Path)
//	log.Warn("mount failed, continuing", "error", err)
//
// User-facing results (checkout reports, listings) are not logs; the CLI
// prints them to stdout itself. With --output json the records are JSON
// too, so stderr stays machine-readable.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the global structured logger.
var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Setup configures the logger. verbose enables debug records, jsonOutput
// switches to the JSON handler, and a nil w means stderr.
func Setup(verbose bool, jsonOutput bool, w io.Writer) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if w == nil {
		w = os.Stderr
	}

	if jsonOutput {
		Logger = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		Logger = slog.New(slog.NewTextHandler(w, opts))
	}
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// ForMount returns a logger that tags every record with the mount's
// workspace-relative path and branch.
func ForMount(localPath, branch string) *slog.Logger {
	return Logger.With("mount", localPath, "branch", branch)
}
