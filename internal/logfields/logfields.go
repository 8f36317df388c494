package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyState      = "state"
	KeyOutcome    = "outcome"
	KeyCommand    = "command"
	KeyArgs       = "args"
	KeyDir        = "dir"
	KeyOutputDir  = "output_dir"
	KeyPath       = "path"
	KeyEngine     = "engine"
	KeyExitCode   = "exit_code"
	KeyDurationMS = "duration_ms"
	KeyCommit     = "commit"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func Args(a []string) slog.Attr       { return slog.Any(KeyArgs, a) }
func Dir(d string) slog.Attr          { return slog.String(KeyDir, d) }
func OutputDir(d string) slog.Attr    { return slog.String(KeyOutputDir, d) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Engine(e string) slog.Attr       { return slog.String(KeyEngine, e) }
func ExitCode(c int) slog.Attr        { return slog.Int(KeyExitCode, c) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Commit(c string) slog.Attr       { return slog.String(KeyCommit, c) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
