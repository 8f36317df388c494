package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	ferrors "git.home.luguber.info/inful/deploybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/deploybuilder/internal/logfields"
	"git.home.luguber.info/inful/deploybuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	BuildFlags `embed:""`
	NoInitial  bool `name:"no-initial" help:"Wait for the first change instead of building immediately"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if err := w.apply(cfg); err != nil {
		return err
	}

	o, cleanup, err := NewOrchestrator(cfg, g)
	if err != nil {
		return err
	}
	defer cleanup()

	paths := make([]string, 0, len(cfg.Watch.Paths))
	for _, p := range cfg.Watch.Paths {
		paths = append(paths, resolve(o.Root(), p))
	}

	// Sink directories are created up front so their creation during the
	// first build is not seen as a source change.
	ignoreFiles := sinkFiles(cfg, o.Root())
	for _, f := range ignoreFiles {
		if err := ensureDir(filepath.Dir(f)); err != nil {
			slog.Debug("Could not create sink directory", logfields.Path(f), logfields.Error(err))
		}
	}

	watcher, err := watch.New(watch.Options{
		Paths:       paths,
		Ignore:      []string{cfg.OutputPath(o.Root())},
		IgnoreFiles: ignoreFiles,
		Debounce:    cfg.DebounceDuration(),
		RunOnStart:  !w.NoInitial,
		Build: func(ctx context.Context) error {
			_, err := o.Run(ctx)
			return err
		},
	})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to start watcher").Build()
	}

	ctx, stop := signal.NotifyContext(g.context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watcher.Run(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "watch failed").Build()
	}
	return nil
}
