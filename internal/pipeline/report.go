package pipeline

import (
	"time"

	"git.home.luguber.info/inful/deploybuilder/internal/version"
)

// Outcome is the typed enumeration of final build result states.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// BuildReport captures what happened during one deploy build.
type BuildReport struct {
	BuildID        string
	Start          time.Time
	End            time.Time
	Reached        State // last state the build reached before finishing
	Outcome        Outcome
	FailedStage    StageName
	Error          string
	Warnings       []string
	StageDurations map[StageName]time.Duration
	StageResults   map[StageName]StageResult
	StageOrder     []StageName
	EntryCreated   bool // true when the fallback entry was written by this run
	OutputDir      string
	GitCommit      string
	GitBranch      string
	Version        string
}

// NewBuildReport constructs a report for a build that starts now.
func NewBuildReport(buildID string) *BuildReport {
	return &BuildReport{
		BuildID:        buildID,
		Start:          time.Now(),
		Reached:        StatePending,
		StageDurations: make(map[StageName]time.Duration),
		StageResults:   make(map[StageName]StageResult),
		Version:        version.Version,
	}
}

func (r *BuildReport) recordStage(name StageName, d time.Duration, result StageResult) {
	r.StageOrder = append(r.StageOrder, name)
	r.StageDurations[name] = d
	r.StageResults[name] = result
}

// Finish stamps the end time and derives the outcome from err.
func (r *BuildReport) Finish(err error) {
	r.End = time.Now()
	if err == nil {
		r.Outcome = OutcomeSuccess
		return
	}
	r.Error = err.Error()
	if se, ok := err.(*StageError); ok {
		r.FailedStage = se.Stage
		if se.Kind == StageErrorCanceled {
			r.Outcome = OutcomeCanceled
			return
		}
	}
	r.Outcome = OutcomeFailed
}

// Duration returns the wall time of the build (zero until Finish).
func (r *BuildReport) Duration() time.Duration {
	if r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Ran reports whether the named stage executed at all.
func (r *BuildReport) Ran(name StageName) bool {
	_, ok := r.StageResults[name]
	return ok
}
