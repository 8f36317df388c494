package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	started   []StageName
	completed map[StageName]StageResult
	report    *BuildReport
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{completed: make(map[StageName]StageResult)}
}

func (o *recordingObserver) OnStageStart(s StageName) { o.started = append(o.started, s) }
func (o *recordingObserver) OnStageComplete(s StageName, _ time.Duration, r StageResult) {
	o.completed[s] = r
}
func (o *recordingObserver) OnBuildComplete(r *BuildReport) { o.report = r }

func okStage(calls *[]StageName, name StageName) Stage {
	return func(context.Context, *BuildState) error {
		*calls = append(*calls, name)
		return nil
	}
}

func fourStages(calls *[]StageName, failAt StageName, err error) []StageDef {
	stage := func(name StageName) Stage {
		if name == failAt {
			return func(context.Context, *BuildState) error {
				*calls = append(*calls, name)
				return err
			}
		}
		return okStage(calls, name)
	}
	return NewPipeline().
		Add(StageEnsureOutputDir, StateDirReady, stage(StageEnsureOutputDir)).
		Add(StageClientBuild, StateClientBuilt, stage(StageClientBuild)).
		Add(StageServerBuild, StateServerBuilt, stage(StageServerBuild)).
		Add(StageEnsureEntry, StateEntryEnsured, stage(StageEnsureEntry)).
		Build()
}

func TestRunStages_AllSucceed(t *testing.T) {
	var calls []StageName
	bs := NewBuildState(NewBuildReport("b1"))
	obs := newRecordingObserver()

	err := RunStages(context.Background(), bs, fourStages(&calls, "", nil), obs)
	require.NoError(t, err)

	assert.Equal(t, []StageName{StageEnsureOutputDir, StageClientBuild, StageServerBuild, StageEnsureEntry}, calls)
	assert.Equal(t, StateSucceeded, bs.State)
	assert.Equal(t, StateEntryEnsured, bs.Report.Reached)
	assert.Equal(t, calls, obs.started)
	for _, name := range calls {
		assert.Equal(t, StageResultSuccess, obs.completed[name])
	}
	assert.Equal(t, calls, bs.Report.StageOrder)
}

func TestRunStages_FailFast(t *testing.T) {
	cause := errors.New("exit status 1")
	cases := []struct {
		failAt  StageName
		reached State
		ran     []StageName
	}{
		{StageEnsureOutputDir, StatePending, []StageName{StageEnsureOutputDir}},
		{StageClientBuild, StateDirReady, []StageName{StageEnsureOutputDir, StageClientBuild}},
		{StageServerBuild, StateClientBuilt, []StageName{StageEnsureOutputDir, StageClientBuild, StageServerBuild}},
		{StageEnsureEntry, StateServerBuilt, []StageName{StageEnsureOutputDir, StageClientBuild, StageServerBuild, StageEnsureEntry}},
	}
	for _, tc := range cases {
		t.Run(string(tc.failAt), func(t *testing.T) {
			var calls []StageName
			bs := NewBuildState(NewBuildReport("b"))

			err := RunStages(context.Background(), bs, fourStages(&calls, tc.failAt, cause), nil)
			require.Error(t, err)

			var se *StageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.failAt, se.Stage)
			assert.Equal(t, StageErrorFatal, se.Kind)
			assert.True(t, errors.Is(err, cause))

			assert.Equal(t, tc.ran, calls)
			assert.Equal(t, StateFailed, bs.State)
			assert.Equal(t, tc.reached, bs.Report.Reached)
		})
	}
}

func TestRunStages_OptionalStageWarns(t *testing.T) {
	var calls []StageName
	stages := NewPipeline().
		Add(StageEnsureOutputDir, StateDirReady, okStage(&calls, StageEnsureOutputDir)).
		AddOptionalIf(true, StageVerifySPA, func(context.Context, *BuildState) error {
			return errors.New("index.html missing")
		}).
		AddOptionalIf(false, "never", okStage(&calls, "never")).
		Add(StageEnsureEntry, StateEntryEnsured, okStage(&calls, StageEnsureEntry)).
		Build()

	bs := NewBuildState(NewBuildReport("b"))
	require.NoError(t, RunStages(context.Background(), bs, stages, nil))

	assert.Equal(t, []StageName{StageEnsureOutputDir, StageEnsureEntry}, calls)
	assert.Equal(t, StageResultWarning, bs.Report.StageResults[StageVerifySPA])
	require.Len(t, bs.Report.Warnings, 1)
	assert.Contains(t, bs.Report.Warnings[0], "index.html missing")
	assert.Equal(t, StateSucceeded, bs.State)
}

func TestRunStages_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls []StageName
	bs := NewBuildState(NewBuildReport("b"))
	err := RunStages(ctx, bs, fourStages(&calls, "", nil), nil)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageErrorCanceled, se.Kind)
	assert.Empty(t, calls)

	bs.Report.Finish(err)
	assert.Equal(t, OutcomeCanceled, bs.Report.Outcome)
}

func TestBuildReport_Finish(t *testing.T) {
	r := NewBuildReport("b")
	assert.Zero(t, r.Duration())
	r.Finish(nil)
	assert.Equal(t, OutcomeSuccess, r.Outcome)
	assert.Empty(t, r.Error)

	r = NewBuildReport("b")
	r.Finish(NewFatalStageError(StageServerBuild, errors.New("boom")))
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Equal(t, StageServerBuild, r.FailedStage)
	assert.Equal(t, "fatal stage server_build: boom", r.Error)
	assert.False(t, r.Ran(StageClientBuild))
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateSucceeded.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateServerBuilt.Terminal())
}
