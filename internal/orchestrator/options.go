package orchestrator

import (
	"context"
	"io"

	"git.home.luguber.info/inful/deploybuilder/internal/command"
	"git.home.luguber.info/inful/deploybuilder/internal/gitinfo"
	"git.home.luguber.info/inful/deploybuilder/internal/metrics"
	"git.home.luguber.info/inful/deploybuilder/internal/pipeline"
)

// Sink receives every finished build report. Sink errors are logged as
// warnings and never change the build result.
type Sink interface {
	Name() string
	Record(ctx context.Context, r *pipeline.BuildReport) error
}

// RevisionReader resolves the source revision of the working directory.
type RevisionReader func(dir string) (gitinfo.Info, error)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRunner replaces the command runner (tests use commandtest.Recorder).
func WithRunner(r command.Runner) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.runner = r
		}
	}
}

// WithOutput sets the writer that receives step-boundary lines.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) {
		if w != nil {
			o.out = w
		}
	}
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithObserver adds a build observer in addition to the metrics observer.
func WithObserver(obs pipeline.BuildObserver) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithSink adds a post-build sink.
func WithSink(s Sink) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sinks = append(o.sinks, s)
		}
	}
}

// WithRevisionReader overrides how the git revision is read.
func WithRevisionReader(fn RevisionReader) Option {
	return func(o *Orchestrator) { o.revision = fn }
}

// WithBuildIDFunc overrides build id generation.
func WithBuildIDFunc(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}
