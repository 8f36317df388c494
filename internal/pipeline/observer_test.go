package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/deploybuilder/internal/metrics"
)

type fakeRecorder struct {
	metrics.NoopRecorder
	stageResults map[string]metrics.ResultLabel
	outcomes     []string
	entries      int
	lastSuccess  time.Time
}

func (f *fakeRecorder) IncStageResult(stage string, r metrics.ResultLabel) {
	f.stageResults[stage] = r
}
func (f *fakeRecorder) IncBuildOutcome(o string)   { f.outcomes = append(f.outcomes, o) }
func (f *fakeRecorder) IncEntryCreated()           { f.entries++ }
func (f *fakeRecorder) SetLastSuccess(t time.Time) { f.lastSuccess = t }

func TestRecorderObserver(t *testing.T) {
	rec := &fakeRecorder{stageResults: make(map[string]metrics.ResultLabel)}
	var obs BuildObserver = MultiObserver{NoopObserver{}, RecorderObserver{Recorder: rec}}

	obs.OnStageStart(StageClientBuild)
	obs.OnStageComplete(StageClientBuild, time.Second, StageResultSuccess)

	report := NewBuildReport("b")
	report.EntryCreated = true
	report.Finish(nil)
	obs.OnBuildComplete(report)

	assert.Equal(t, metrics.ResultSuccess, rec.stageResults["client_build"])
	assert.Equal(t, []string{"success"}, rec.outcomes)
	assert.Equal(t, 1, rec.entries)
	assert.Equal(t, report.End, rec.lastSuccess)
}

func TestRecorderObserver_NilRecorder(t *testing.T) {
	obs := RecorderObserver{}
	assert.NotPanics(t, func() {
		obs.OnStageComplete(StageClientBuild, time.Second, StageResultFatal)
		obs.OnBuildComplete(NewBuildReport("b"))
	})
}
