// Package executor runs backend (git) commands as subprocesses.
//
// Every command runs in an explicit working directory with an explicit
// environment: the process environment is never inherited implicitly.
// Environment describes what is passed through, and DefaultEnvironment
// strips the variables that would redirect git to a different repository
// than the one the working directory belongs to.
package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/mmr-tortoise/banyan/internal/logging"
	"github.com/mmr-tortoise/banyan/internal/model"
)

// RepositoryOverrideVars lists the git variables that point git at a
// repository, work tree or object store other than the one found from the
// working directory. DefaultEnvironment removes all of them.
var RepositoryOverrideVars = []string{
	"GIT_DIR",
	"GIT_WORK_TREE",
	"GIT_INDEX_FILE",
	"GIT_COMMON_DIR",
	"GIT_OBJECT_DIRECTORY",
	"GIT_ALTERNATE_OBJECT_DIRECTORIES",
	"GIT_NAMESPACE",
	"GIT_PREFIX",
}

// Environment describes the environment handed to subprocesses.
type Environment struct {
	// Inherit copies the current process environment as the starting point.
	Inherit bool

	// Allow, when non-empty, restricts inherited variables to these names.
	Allow []string

	// Deny removes these names from the inherited variables. Deny wins over
	// Allow.
	Deny []string

	// Set adds or overrides variables after inheritance and filtering.
	Set map[string]string
}

// DefaultEnvironment inherits the process environment minus
// RepositoryOverrideVars.
func DefaultEnvironment() Environment {
	return Environment{
		Inherit: true,
		Deny:    append([]string(nil), RepositoryOverrideVars...),
	}
}

// Resolve builds the "KEY=value" list for exec.Cmd.Env from base
// (normally os.Environ()).
func (e Environment) Resolve(base []string) []string {
	allow := toSet(e.Allow)
	deny := toSet(e.Deny)

	var env []string
	if e.Inherit {
		for _, kv := range base {
			name, _, _ := strings.Cut(kv, "=")
			if _, overridden := e.Set[name]; overridden {
				continue
			}
			if len(allow) > 0 && !allow[name] {
				continue
			}
			if deny[name] {
				continue
			}
			env = append(env, kv)
		}
	}

	names := make([]string, 0, len(e.Set))
	for name := range e.Set {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		env = append(env, name+"="+e.Set[name])
	}

	// A nil Env makes exec.Cmd inherit everything; an empty, non-nil slice
	// means "nothing".
	if env == nil {
		env = []string{}
	}
	return env
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// Runner runs an argument vector in a directory and returns its standard
// output. A non-zero exit is reported as *model.BackendCommandError.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// Executor is the os/exec backed Runner.
type Executor struct {
	env Environment
}

// New creates an Executor that runs commands with env.
func New(env Environment) *Executor {
	return &Executor{env: env}
}

// Default creates an Executor using DefaultEnvironment.
func Default() *Executor {
	return New(DefaultEnvironment())
}

// Run executes args[0] with args[1:] in dir.
//
// Stdout and stderr are captured separately: stdout is returned on
// success, stderr is attached to the error on failure.
func (e *Executor) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if len(args) == 0 {
		return nil, errors.New("executor: empty command")
	}
	logging.Debug("exec", "dir", dir, "cmd", shellquote.Join(args...))

	// #nosec G204 -- args are built by this program, not taken from a shell
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = e.env.Resolve(os.Environ())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		status := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			status = exitErr.ExitCode()
		}
		return nil, &model.BackendCommandError{
			Args:   append([]string(nil), args...),
			Dir:    dir,
			Status: status,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return stdout.Bytes(), nil
}
