package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/deploybuilder/internal/logfields"
	"git.home.luguber.info/inful/deploybuilder/internal/observability"
)

// Spec describes one external command invocation.
type Spec struct {
	Name string
	Args []string
	// Dir is the working directory; it is also where node_modules/.bin is looked up.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
}

// String renders the command line for logs and error messages.
func (s Spec) String() string {
	return strings.TrimSpace(s.Name + " " + strings.Join(s.Args, " "))
}

// Runner abstracts how external commands are executed so orchestration can be
// tested without spawning processes.
type Runner interface {
	Run(ctx context.Context, spec Spec) error
}

// ExecRunner runs commands as child processes sharing this process's streams.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner wired to os.Stdin, os.Stdout and os.Stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes spec and blocks until the child exits. There is no timeout.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) error {
	path, err := Resolve(spec.Name, spec.Dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCommandNotFound, spec.Name, err)
	}

	// #nosec G204 -- the command line comes from the build configuration
	cmd := exec.CommandContext(ctx, path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	observability.DebugContext(ctx, "Running command",
		logfields.Command(spec.Name),
		logfields.Args(spec.Args),
		logfields.Dir(spec.Dir),
		logfields.Path(path))

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			observability.DebugContext(ctx, "Command exited non-zero",
				logfields.Command(spec.Name),
				logfields.ExitCode(exitErr.ExitCode()))
			return &ExitError{Command: spec.String(), Code: exitErr.ExitCode(), Err: err}
		}
		return fmt.Errorf("%w: %s: %w", ErrCommandStart, spec.Name, err)
	}
	return nil
}

// Resolve finds the executable for name. Names containing a path separator are
// taken relative to dir; bare names are looked up in dir/node_modules/.bin
// first, then on PATH.
func Resolve(name, dir string) (string, error) {
	if name == "" {
		return "", errors.New("empty command name")
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		if !isExecutable(p) {
			return "", fmt.Errorf("%s is not an executable file", p)
		}
		return p, nil
	}

	local := filepath.Join(dir, "node_modules", ".bin", name)
	if isExecutable(local) {
		return local, nil
	}
	return exec.LookPath(name)
}

func isExecutable(p string) bool {
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
