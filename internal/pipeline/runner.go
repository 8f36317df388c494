package pipeline

import (
	"context"
	"time"

	"git.home.luguber.info/inful/deploybuilder/internal/logfields"
	"git.home.luguber.info/inful/deploybuilder/internal/observability"
)

// BuildState is the mutable state shared by the stages of one build.
type BuildState struct {
	Report *BuildReport
	State  State
}

// NewBuildState returns a pending build state for report.
func NewBuildState(report *BuildReport) *BuildState {
	return &BuildState{Report: report, State: StatePending}
}

// RunStages executes stages in order, recording timing and stopping on the
// first fatal error. The returned error is the *StageError of the failed stage.
func RunStages(ctx context.Context, bs *BuildState, stages []StageDef, obs BuildObserver) error {
	if obs == nil {
		obs = NoopObserver{}
	}

	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := NewCanceledStageError(st.Name, ctx.Err())
			bs.Report.recordStage(st.Name, 0, StageResultCanceled)
			obs.OnStageComplete(st.Name, 0, StageResultCanceled)
			bs.State = StateFailed
			return se
		default:
		}

		obs.OnStageStart(st.Name)

		stageCtx := observability.WithStage(ctx, string(st.Name))
		t0 := time.Now()
		err := st.Fn(stageCtx, bs)
		dur := time.Since(t0)

		switch {
		case err == nil:
			bs.Report.recordStage(st.Name, dur, StageResultSuccess)
			obs.OnStageComplete(st.Name, dur, StageResultSuccess)
			if st.Reaches != "" {
				bs.State = st.Reaches
				bs.Report.Reached = st.Reaches
			}
			observability.DebugContext(stageCtx, "Stage completed",
				logfields.State(string(bs.State)),
				logfields.DurationMS(float64(dur.Microseconds())/1000))

		case st.Optional:
			se := NewWarnStageError(st.Name, err)
			bs.Report.recordStage(st.Name, dur, StageResultWarning)
			bs.Report.Warnings = append(bs.Report.Warnings, se.Error())
			obs.OnStageComplete(st.Name, dur, StageResultWarning)
			observability.WarnContext(stageCtx, "Stage reported a warning", logfields.Error(err))

		default:
			se := NewFatalStageError(st.Name, err)
			bs.Report.recordStage(st.Name, dur, StageResultFatal)
			obs.OnStageComplete(st.Name, dur, StageResultFatal)
			bs.State = StateFailed
			return se
		}
	}

	bs.State = StateSucceeded
	return nil
}
