// Package errors provides foundational, type-safe error primitives used across deploybuilder.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, command, filesystem, build, ...)
//   - ErrorSeverity: Impact level (fatal, error, warning)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLIErrorAdapter: terminal presentation and exit codes
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryBuild, "Deploy build failed").
//		Fatal().
//		WithContext("stage", "server_build").
//		Build()
package errors
