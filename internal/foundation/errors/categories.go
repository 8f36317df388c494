package errors

// ErrorCategory is the broad class of an error.
type ErrorCategory string

const (
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// CategoryCommand covers external tools that failed to spawn or exited non-zero.
	CategoryCommand    ErrorCategory = "command"
	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryScaffold   ErrorCategory = "scaffold"
	CategoryRuntime    ErrorCategory = "runtime"
)

// ErrorSeverity is the impact of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
)

// ErrorContext holds structured fields logged with an error.
type ErrorContext map[string]any

// Set stores value under key, allocating the map if needed.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}
