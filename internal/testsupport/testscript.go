// Package testsupport builds the banyan binary for script tests and
// prepares their environment.
package testsupport

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

var (
	buildOnce  sync.Once
	banyanPath string
	buildErr   error
)

// BuildBanyan builds the banyan binary once and returns its path.
func BuildBanyan(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "banyan-bin-")
		if err != nil {
			buildErr = err
			return
		}

		banyanPath = filepath.Join(binDir, "banyan")
		cmd := exec.Command("go", "build", "-o", banyanPath, "./cmd/banyan")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build banyan: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}

	return banyanPath
}

// SetupScriptEnv exposes the binary as $BANYAN and gives git an isolated
// home and a fixed identity.
func SetupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("BANYAN", BuildBanyan(t))

	homeDir := filepath.Join(env.WorkDir, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)
	env.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	env.Setenv("GIT_AUTHOR_NAME", "Test User")
	env.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	env.Setenv("GIT_COMMITTER_NAME", "Test User")
	env.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
	return nil
}

// CmdCanonical stores the symlink-free form of a path in an env var, so
// scripts can match paths printed by banyan when $WORK sits behind a
// symlink.
func CmdCanonical(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("canonical does not support negation")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: canonical VAR PATH")
	}

	resolved, err := filepath.EvalSymlinks(ts.MkAbs(args[1]))
	ts.Check(err)
	ts.Setenv(args[0], resolved)
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find module root (go.mod)")
		}
		dir = parent
	}
}
