package pipeline

import (
	"context"
	"fmt"
)

// Stage is a discrete unit of work in the deploy build.
type Stage func(ctx context.Context, bs *BuildState) error

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names.
const (
	StageEnsureOutputDir StageName = "ensure_output_dir"
	StageClientBuild     StageName = "client_build"
	StageServerBuild     StageName = "server_build"
	StageEnsureEntry     StageName = "ensure_entry"
	StageVerifySPA       StageName = "verify_spa_index"
)

// State is a node of the build state machine.
type State string

const (
	StatePending      State = "Pending"
	StateDirReady     State = "DirReady"
	StateClientBuilt  State = "ClientBuilt"
	StateServerBuilt  State = "ServerBuilt"
	StateEntryEnsured State = "EntryEnsured"
	StateSucceeded    State = "Succeeded"
	StateFailed       State = "Failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateSucceeded || s == StateFailed }

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying the stage and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// StageResult captures the high-level outcome of a stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
)

// NewFatalStageError creates a new fatal stage error.
func NewFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func NewWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func NewCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// StageDef pairs a stage name with its executing function and the state it
// reaches on success. Optional stages never abort the build.
type StageDef struct {
	Name     StageName
	Fn       Stage
	Reaches  State
	Optional bool
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []StageDef }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]StageDef, 0, 5)} }

// Add appends a stage that advances the build to reaches.
func (p *Pipeline) Add(name StageName, reaches State, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn, Reaches: reaches})
	return p
}

// AddOptionalIf appends a warning-only stage when cond is true. It does not change the state.
func (p *Pipeline) AddOptionalIf(cond bool, name StageName, fn Stage) *Pipeline {
	if cond {
		p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn, Optional: true})
	}
	return p
}

// Build returns a copy of the stage definitions slice.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}
