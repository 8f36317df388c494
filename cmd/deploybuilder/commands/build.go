package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/deploybuilder/internal/config"
	ferrors "git.home.luguber.info/inful/deploybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/deploybuilder/internal/history"
	"git.home.luguber.info/inful/deploybuilder/internal/logfields"
	"git.home.luguber.info/inful/deploybuilder/internal/metrics"
	"git.home.luguber.info/inful/deploybuilder/internal/notify"
	"git.home.luguber.info/inful/deploybuilder/internal/orchestrator"
)

// BuildFlags are the configuration overrides shared by build and watch.
type BuildFlags struct {
	Workdir   string `short:"w" help:"Project root (overrides config workdir)" type:"path"`
	OutputDir string `name:"output-dir" short:"o" help:"Server output directory relative to the project root"`
	Engine    string `help:"Server bundle engine: exec (esbuild CLI) or api (in-process)"`
	Verify    bool   `help:"Check the client index page after the build (warning only)"`
}

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	BuildFlags `embed:""`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if err := b.apply(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(g.context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, cleanup, err := NewOrchestrator(cfg, g)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = o.Run(ctx)
	return err
}

// apply layers command-line overrides on top of the loaded configuration.
func (b *BuildFlags) apply(cfg *config.Config) error {
	if b.Workdir != "" {
		cfg.WorkDir = b.Workdir
	}
	if b.OutputDir != "" {
		cfg.Output.Directory = b.OutputDir
	}
	if b.Engine != "" {
		cfg.Server.Engine = config.Engine(b.Engine)
	}
	if b.Verify {
		cfg.Verify.SPAIndex = true
	}
	return cfg.Validate()
}

// NewOrchestrator wires the orchestrator with the metrics, history and
// notification sinks enabled in cfg. Sink setup failures are logged and the
// sink is skipped. The returned cleanup closes every opened sink.
func NewOrchestrator(cfg *config.Config, g *Global) (*orchestrator.Orchestrator, func(), error) {
	root, err := cfg.Root()
	if err != nil {
		return nil, nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to resolve working directory").Build()
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []orchestrator.Option{
		orchestrator.WithOutput(g.Stdout),
		orchestrator.WithRunner(g.Runner),
	}

	if cfg.Metrics.Textfile != "" {
		rec := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
		opts = append(opts,
			orchestrator.WithRecorder(rec),
			orchestrator.WithSink(orchestrator.TextfileSink{Recorder: rec, Path: resolve(root, cfg.Metrics.Textfile)}))
	}

	if cfg.History.Path != "" {
		store, err := history.Open(resolve(root, cfg.History.Path))
		if err != nil {
			slog.Warn("Build history disabled", logfields.Path(cfg.History.Path), logfields.Error(err))
		} else {
			opts = append(opts, orchestrator.WithSink(store))
			closers = append(closers, func() { _ = store.Close() })
		}
	}

	if cfg.Notify.NATSURL != "" {
		pub, err := notify.Connect(cfg.Notify.NATSURL, cfg.Notify.Subject)
		if err != nil {
			slog.Warn("Build notifications disabled", slog.String("url", cfg.Notify.NATSURL), logfields.Error(err))
		} else {
			opts = append(opts, orchestrator.WithSink(pub))
			closers = append(closers, pub.Close)
		}
	}

	o, err := orchestrator.New(cfg, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return o, cleanup, nil
}

// sinkFiles returns the files the build sinks write under root.
func sinkFiles(cfg *config.Config, root string) []string {
	var files []string
	if cfg.Metrics.Textfile != "" {
		files = append(files, resolve(root, cfg.Metrics.Textfile))
	}
	if cfg.History.Path != "" && cfg.History.Path != ":memory:" {
		files = append(files, resolve(root, cfg.History.Path))
	}
	return files
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// printf writes a user-facing line to the command output.
func printf(g *Global, format string, args ...any) {
	_, _ = fmt.Fprintf(g.Stdout, format+"\n", args...)
}
