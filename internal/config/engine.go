package config

import "strings"

// Engine selects how the server bundle is produced.
type Engine string

const (
	// EngineExec runs the esbuild CLI as a child process.
	EngineExec Engine = "exec"
	// EngineAPI bundles in-process through the esbuild Go API.
	EngineAPI Engine = "api"
)

// NormalizeEngine parses a user supplied engine name; it returns "" when unknown.
func NormalizeEngine(raw string) Engine {
	switch Engine(strings.ToLower(strings.TrimSpace(raw))) {
	case EngineExec, "cli", "binary":
		return EngineExec
	case EngineAPI, "inprocess", "in-process":
		return EngineAPI
	default:
		return ""
	}
}
