package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/deploybuilder/internal/command"
	"git.home.luguber.info/inful/deploybuilder/internal/command/commandtest"
	"git.home.luguber.info/inful/deploybuilder/internal/config"
	ferrors "git.home.luguber.info/inful/deploybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/deploybuilder/internal/gitinfo"
	"git.home.luguber.info/inful/deploybuilder/internal/pipeline"
	"git.home.luguber.info/inful/deploybuilder/internal/scaffold"
)

type harness struct {
	dir      string
	cfg      *config.Config
	recorder *commandtest.Recorder
	out      *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.WorkDir = dir
	return &harness{dir: dir, cfg: cfg, recorder: commandtest.NewRecorder(), out: &bytes.Buffer{}}
}

func (h *harness) run(t *testing.T, opts ...Option) (*pipeline.BuildReport, error) {
	t.Helper()
	opts = append([]Option{
		WithRunner(h.recorder),
		WithOutput(h.out),
		WithRevisionReader(func(string) (gitinfo.Info, error) { return gitinfo.Info{}, gitinfo.ErrNotRepository }),
		WithBuildIDFunc(func() string { return "test-build" }),
	}, opts...)
	o, err := New(h.cfg, opts...)
	require.NoError(t, err)
	return o.Run(context.Background())
}

func (h *harness) entryPath() string { return filepath.Join(h.dir, "api", "index.js") }

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func exitFailure() error {
	return &command.ExitError{Command: "vite build", Code: 1, Err: errors.New("exit status 1")}
}

// Scenario A: empty workdir, no-op bundlers.
func TestRun_EmptyWorkdirWritesFallbackEntry(t *testing.T) {
	h := newHarness(t)

	report, err := h.run(t)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(h.dir, "api"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	got, err := os.ReadFile(h.entryPath())
	require.NoError(t, err)
	assert.Equal(t, scaffold.Template(), got)

	assert.Equal(t, []string{MsgStart, MsgClient, MsgServer, MsgCreatedEntry, MsgSuccess}, lines(h.out))
	assert.Equal(t, pipeline.OutcomeSuccess, report.Outcome)
	assert.Equal(t, pipeline.StateEntryEnsured, report.Reached)
	assert.True(t, report.EntryCreated)
	assert.Equal(t, "test-build", report.BuildID)
}

// Scenario B: existing entry is preserved byte for byte.
func TestRun_ExistingEntryUntouched(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(filepath.Join(h.dir, "api"), 0o750))
	require.NoError(t, os.WriteFile(h.entryPath(), []byte("custom"), 0o600))

	report, err := h.run(t)
	require.NoError(t, err)

	got, err := os.ReadFile(h.entryPath())
	require.NoError(t, err)
	assert.Equal(t, "custom", string(got))
	assert.NotContains(t, h.out.String(), MsgCreatedEntry)
	assert.False(t, report.EntryCreated)
}

func TestRun_EntryRaceDoesNotClaimWrite(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(filepath.Join(h.dir, "api"), 0o750))
	require.NoError(t, os.WriteFile(h.entryPath(), []byte("raced"), 0o600))

	o, err := New(h.cfg, WithRunner(h.recorder), WithOutput(h.out),
		WithRevisionReader(func(string) (gitinfo.Info, error) { return gitinfo.Info{}, gitinfo.ErrNotRepository }))
	require.NoError(t, err)
	// The entry is reported missing by the check but exists at create time.
	o.entryExists = func(string, string) bool { return false }

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	got, err := os.ReadFile(h.entryPath())
	require.NoError(t, err)
	assert.Equal(t, "raced", string(got))
	assert.Equal(t, []string{MsgStart, MsgClient, MsgServer, MsgSuccess}, lines(h.out))
	assert.False(t, report.EntryCreated)
}

// Scenario C and P4: client failure stops before the server build.
func TestRun_ClientFailureSkipsServer(t *testing.T) {
	h := newHarness(t)
	h.recorder.FailWith("vite", exitFailure())

	report, err := h.run(t)
	require.Error(t, err)

	assert.Equal(t, 1, h.recorder.Count("vite"))
	assert.Equal(t, 0, h.recorder.Count("esbuild"))
	assert.NoFileExists(t, h.entryPath())

	assert.True(t, errors.Is(err, command.ErrCommandFailed))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryCommand))
	assert.Equal(t, 1, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
	assert.Contains(t, err.Error(), MsgFailed)

	assert.Equal(t, pipeline.OutcomeFailed, report.Outcome)
	assert.Equal(t, pipeline.StageClientBuild, report.FailedStage)
	assert.Equal(t, pipeline.StateDirReady, report.Reached)
	assert.Equal(t, []string{MsgStart, MsgClient}, lines(h.out))
}

// P5: server failure means the entry step never runs.
func TestRun_ServerFailureSkipsEntry(t *testing.T) {
	h := newHarness(t)
	h.recorder.FailWith("esbuild", exitFailure())

	report, err := h.run(t)
	require.Error(t, err)

	assert.Equal(t, 1, h.recorder.Count("vite"))
	assert.Equal(t, 1, h.recorder.Count("esbuild"))
	assert.NoFileExists(t, h.entryPath())
	assert.False(t, report.Ran(pipeline.StageEnsureEntry))
	assert.Equal(t, pipeline.StateClientBuilt, report.Reached)
	assert.NotContains(t, h.out.String(), MsgSuccess)
}

// P1: existing output contents survive the build.
func TestRun_ExistingOutputDirPreserved(t *testing.T) {
	h := newHarness(t)
	keep := filepath.Join(h.dir, "api", "nested", "keep.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(keep), 0o750))
	require.NoError(t, os.WriteFile(keep, []byte("keep"), 0o600))

	for i := 0; i < 2; i++ {
		_, err := h.run(t)
		require.NoError(t, err)
	}

	got, err := os.ReadFile(keep)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(got))
}

// P3 counterpart: an entry produced by the server build is kept.
func TestRun_ServerProducedEntryKept(t *testing.T) {
	h := newHarness(t)
	h.recorder.OnRun("esbuild", func(spec command.Spec) {
		require.NoError(t, os.WriteFile(h.entryPath(), []byte("bundled"), 0o600))
	})

	report, err := h.run(t)
	require.NoError(t, err)

	got, err := os.ReadFile(h.entryPath())
	require.NoError(t, err)
	assert.Equal(t, "bundled", string(got))
	assert.False(t, report.EntryCreated)
}

func TestRun_CommandsAndFlags(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t)
	require.NoError(t, err)

	calls := h.recorder.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, command.Spec{Name: "vite", Args: []string{"build"}, Dir: h.dir}, calls[0])
	assert.Equal(t, "esbuild", calls[1].Name)
	assert.Equal(t, h.dir, calls[1].Dir)
	assert.Equal(t, []string{
		"server/index.ts", "--platform=node", "--packages=external", "--bundle", "--format=esm", "--outdir=api",
	}, calls[1].Args)
}

func TestRun_OutputDirIsFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "api"), []byte("x"), 0o600))

	report, err := h.run(t)
	require.Error(t, err)
	assert.Empty(t, h.recorder.Calls())
	assert.Equal(t, pipeline.StageEnsureOutputDir, report.FailedStage)
	assert.Equal(t, pipeline.StatePending, report.Reached)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryBuild))
}

func TestRun_Canceled(t *testing.T) {
	h := newHarness(t)
	o, err := New(h.cfg, WithRunner(h.recorder), WithOutput(h.out))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := o.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, pipeline.OutcomeCanceled, report.Outcome)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
	assert.Empty(t, h.recorder.Calls())
}

type fakeSink struct {
	reports []*pipeline.BuildReport
	ctxErrs []error
	err     error
}

func (f *fakeSink) Name() string { return "fake" }
func (f *fakeSink) Record(ctx context.Context, r *pipeline.BuildReport) error {
	f.reports = append(f.reports, r)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.err
}

func TestRun_CanceledBuildReachesSinks(t *testing.T) {
	h := newHarness(t)
	sink := &fakeSink{}
	o, err := New(h.cfg, WithRunner(h.recorder), WithOutput(h.out), WithSink(sink),
		WithRevisionReader(func(string) (gitinfo.Info, error) { return gitinfo.Info{}, gitinfo.ErrNotRepository }))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h.recorder.OnRun("vite", func(command.Spec) { cancel() })

	_, err = o.Run(ctx)
	require.Error(t, err)
	require.Len(t, sink.reports, 1)
	assert.Equal(t, pipeline.OutcomeCanceled, sink.reports[0].Outcome)
	assert.NoError(t, sink.ctxErrs[0], "sink context must outlive the canceled build")
}

func TestRun_SinkFailureDoesNotFailBuild(t *testing.T) {
	h := newHarness(t)
	sink := &fakeSink{err: errors.New("sink down")}

	report, err := h.run(t, WithSink(sink))
	require.NoError(t, err)
	require.Len(t, sink.reports, 1)
	assert.Same(t, report, sink.reports[0])
}

func TestRun_SinkSeesFailedBuild(t *testing.T) {
	h := newHarness(t)
	h.recorder.FailWith("esbuild", exitFailure())
	sink := &fakeSink{}

	_, err := h.run(t, WithSink(sink))
	require.Error(t, err)
	require.Len(t, sink.reports, 1)
	assert.Equal(t, pipeline.OutcomeFailed, sink.reports[0].Outcome)
}

func TestRun_RevisionRecorded(t *testing.T) {
	h := newHarness(t)

	report, err := h.run(t, WithRevisionReader(func(string) (gitinfo.Info, error) {
		return gitinfo.Info{Commit: "0123456789abcdef", Branch: "main"}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef", report.GitCommit)
	assert.Equal(t, "main", report.GitBranch)
}

func TestRun_VerifyWarnsOnly(t *testing.T) {
	h := newHarness(t)
	h.cfg.Verify.SPAIndex = true

	report, err := h.run(t)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageResultWarning, report.StageResults[pipeline.StageVerifySPA])
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, MsgSuccess, lines(h.out)[len(lines(h.out))-1])
}

func TestRun_UnknownEngine(t *testing.T) {
	h := newHarness(t)
	h.cfg.Server.Engine = "rollup"

	_, err := h.run(t)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	assert.Empty(t, h.recorder.Calls())
}

func TestRun_EnvFilesLoaded(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, ".env.production"), []byte("DEPLOYBUILDER_TEST_ENV=prod\n"), 0o600))
	h.cfg.EnvFiles = []string{".env.production"}
	t.Setenv("DEPLOYBUILDER_TEST_ENV", "")
	require.NoError(t, os.Unsetenv("DEPLOYBUILDER_TEST_ENV"))

	var seen string
	h.recorder.OnRun("vite", func(command.Spec) { seen = os.Getenv("DEPLOYBUILDER_TEST_ENV") })

	_, err := h.run(t)
	require.NoError(t, err)
	assert.Equal(t, "prod", seen)
}
