package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/deploybuilder/internal/bundle"
	"git.home.luguber.info/inful/deploybuilder/internal/command"
	"git.home.luguber.info/inful/deploybuilder/internal/config"
	ferrors "git.home.luguber.info/inful/deploybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/deploybuilder/internal/gitinfo"
	"git.home.luguber.info/inful/deploybuilder/internal/logfields"
	"git.home.luguber.info/inful/deploybuilder/internal/metrics"
	"git.home.luguber.info/inful/deploybuilder/internal/observability"
	"git.home.luguber.info/inful/deploybuilder/internal/pipeline"
	"git.home.luguber.info/inful/deploybuilder/internal/scaffold"
	"git.home.luguber.info/inful/deploybuilder/internal/verify"
)

// Orchestrator runs deploy builds for one configuration.
type Orchestrator struct {
	cfg       *config.Config
	root      string
	runner    command.Runner
	out       io.Writer
	recorder  metrics.Recorder
	observers []pipeline.BuildObserver
	sinks     []Sink
	revision  RevisionReader
	newID     func() string

	entryExists func(dir, name string) bool
}

// New creates an orchestrator for cfg. The working directory is resolved once.
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	root, err := cfg.Root()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to resolve working directory").Fatal().Build()
	}

	o := &Orchestrator{
		cfg:      cfg,
		root:     root,
		runner:   command.NewExecRunner(),
		out:      os.Stdout,
		recorder: metrics.NoopRecorder{},
		revision: gitinfo.Read,
		newID:    uuid.NewString,

		entryExists: scaffold.Exists,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Root returns the absolute working directory.
func (o *Orchestrator) Root() string { return o.root }

// Run executes one deploy build. The report is returned even when the build
// fails; its Reached field is the last state before the failure.
func (o *Orchestrator) Run(ctx context.Context) (*pipeline.BuildReport, error) {
	report := pipeline.NewBuildReport(o.newID())
	report.OutputDir = o.cfg.OutputPath(o.root)
	o.readRevision(report)

	ctx = observability.WithBuildID(ctx, report.BuildID)
	log := slog.With(logfields.BuildID(report.BuildID))
	log.Debug("Deploy build configuration",
		logfields.Dir(o.root),
		logfields.OutputDir(report.OutputDir),
		logfields.Engine(string(o.cfg.Server.Engine)))

	obs := append(pipeline.MultiObserver{pipeline.RecorderObserver{Recorder: o.recorder}}, o.observers...)

	o.println(MsgStart)

	if err := o.cfg.LoadEnvFiles(o.root); err != nil {
		o.finish(ctx, log, obs, report, err)
		return report, ferrors.WrapError(err, ferrors.CategoryConfig, MsgFailed).Fatal().Build()
	}

	client := bundle.NewClientBundler(o.runner, o.cfg, o.root)
	server, err := bundle.NewServerBundler(o.runner, o.cfg, o.root)
	if err != nil {
		o.finish(ctx, log, obs, report, err)
		return report, ferrors.WrapError(err, ferrors.CategoryConfig, MsgFailed).Fatal().Build()
	}

	stages := pipeline.NewPipeline().
		Add(pipeline.StageEnsureOutputDir, pipeline.StateDirReady, o.stageEnsureOutputDir).
		Add(pipeline.StageClientBuild, pipeline.StateClientBuilt, o.stageBuild(MsgClient, client)).
		Add(pipeline.StageServerBuild, pipeline.StateServerBuilt, o.stageBuild(MsgServer, server)).
		Add(pipeline.StageEnsureEntry, pipeline.StateEntryEnsured, o.stageEnsureEntry).
		AddOptionalIf(o.cfg.Verify.SPAIndex, pipeline.StageVerifySPA, o.stageVerifySPA).
		Build()

	bs := pipeline.NewBuildState(report)

	runErr := pipeline.RunStages(ctx, bs, stages, obs)
	o.finish(ctx, log, obs, report, runErr)

	if runErr != nil {
		log.Debug("Deploy build failed",
			logfields.Stage(string(report.FailedStage)),
			logfields.State(string(report.Reached)),
			logfields.Error(runErr))
		return report, o.classify(runErr)
	}

	log.Info("Deploy build finished",
		logfields.Outcome(string(report.Outcome)),
		logfields.DurationMS(float64(report.Duration().Milliseconds())),
		slog.Bool("entry_created", report.EntryCreated))
	o.println(MsgSuccess)
	return report, nil
}

func (o *Orchestrator) stageEnsureOutputDir(_ context.Context, bs *pipeline.BuildState) error {
	// #nosec G301 -- the output directory is deployed and served
	if err := os.MkdirAll(bs.Report.OutputDir, 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", bs.Report.OutputDir).
			Build()
	}
	return nil
}

func (o *Orchestrator) stageBuild(msg string, b bundle.Bundler) pipeline.Stage {
	return func(ctx context.Context, _ *pipeline.BuildState) error {
		o.println(msg)
		return b.Bundle(ctx)
	}
}

func (o *Orchestrator) stageEnsureEntry(ctx context.Context, bs *pipeline.BuildState) error {
	dir, name := bs.Report.OutputDir, o.cfg.Output.EntryFile
	if o.entryExists(dir, name) {
		observability.DebugContext(ctx, "Server entry present", logfields.Path(o.cfg.EntryPath(o.root)))
		return nil
	}
	created, err := scaffold.EnsureEntry(dir, name)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryScaffold, "failed to write fallback entry").
			WithContext("path", o.cfg.EntryPath(o.root)).
			Build()
	}
	bs.Report.EntryCreated = created
	if !created {
		observability.DebugContext(ctx, "Server entry appeared before fallback write", logfields.Path(o.cfg.EntryPath(o.root)))
		return nil
	}
	o.println(MsgCreatedEntry)
	return nil
}

func (o *Orchestrator) stageVerifySPA(ctx context.Context, _ *pipeline.BuildState) error {
	path := o.cfg.Verify.IndexPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(o.root, path)
	}
	idx, err := verify.CheckSPAIndex(path)
	if err != nil {
		return err
	}
	observability.DebugContext(ctx, "Client index verified", logfields.Path(idx.Path), slog.Int("scripts", len(idx.Scripts)))
	return nil
}

func (o *Orchestrator) readRevision(report *pipeline.BuildReport) {
	if o.revision == nil {
		return
	}
	info, err := o.revision(o.root)
	if err != nil {
		slog.Debug("No source revision recorded", logfields.Dir(o.root), logfields.Error(err))
		return
	}
	report.GitCommit = info.Commit
	report.GitBranch = info.Branch
}

// finish closes the report and hands it to observers and sinks. Sinks get a
// context that survives cancellation of the build so canceled runs are recorded.
func (o *Orchestrator) finish(ctx context.Context, log *slog.Logger, obs pipeline.BuildObserver, report *pipeline.BuildReport, err error) {
	report.Finish(err)
	obs.OnBuildComplete(report)
	ctx = context.WithoutCancel(ctx)
	for _, s := range o.sinks {
		if err := s.Record(ctx, report); err != nil {
			log.Warn("Build sink failed", slog.String("sink", s.Name()), logfields.Error(err))
		}
	}
}

// classify wraps a stage failure for the CLI. The cause chain is preserved so
// callers can still match command and bundle sentinels.
func (o *Orchestrator) classify(err error) error {
	category := ferrors.CategoryBuild
	var se *pipeline.StageError
	if errors.As(err, &se) && se.Kind == pipeline.StageErrorCanceled {
		category = ferrors.CategoryRuntime
	} else if errors.Is(err, command.ErrCommandFailed) {
		category = ferrors.CategoryCommand
	}

	b := ferrors.WrapError(err, category, MsgFailed).Fatal()
	if se != nil {
		b = b.WithContext("stage", string(se.Stage))
	}
	if code := command.ExitCode(err); code >= 0 {
		b = b.WithContext("exit_code", code)
	}
	return b.Build()
}

func (o *Orchestrator) println(msg string) {
	if _, err := fmt.Fprintln(o.out, msg); err != nil {
		slog.Debug("Failed to write progress line", logfields.Error(err))
	}
}
