// Package command runs external build tools synchronously.
//
// A Runner executes one Spec and reports failure through sentinel-matching
// errors: every failure matches ErrCommandFailed, a missing executable also
// matches ErrCommandNotFound and a non-zero exit is an *ExitError carrying the
// exit code. ExecRunner connects the child to this process's standard streams
// so tool output is visible live instead of captured.
package command
