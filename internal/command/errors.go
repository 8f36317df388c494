package command

import (
	"errors"
	"fmt"
)

// Standard sentinels for external command execution.
var (
	ErrCommandFailed   = errors.New("deploybuilder: command failed")
	ErrCommandNotFound = fmt.Errorf("%w: executable not found", ErrCommandFailed)
	ErrCommandStart    = fmt.Errorf("%w: could not start", ErrCommandFailed)
)

// ExitError reports a command that ran and exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Is makes every ExitError match ErrCommandFailed.
func (e *ExitError) Is(target error) bool { return target == ErrCommandFailed }

// ExitCode extracts the exit code of a failed command, or -1 when err did not come from a finished process.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}
