// Package watch reruns the deploy build when source files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/deploybuilder/internal/logfields"
)

// ErrNothingToWatch is returned when none of the configured paths exist.
var ErrNothingToWatch = errors.New("no watchable directories")

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
}

// BuildFunc runs one build. Its error is logged and does not stop watching.
type BuildFunc func(ctx context.Context) error

// Options configures a Watcher.
type Options struct {
	Paths       []string      // directories to watch recursively
	Ignore      []string      // directories whose events are dropped (e.g. the output dir)
	IgnoreFiles []string      // files dropped together with same-prefix siblings (journals, temp files)
	Debounce    time.Duration // quiet period before a build starts
	RunOnStart  bool
	Build       BuildFunc
}

// Watcher monitors source directories and triggers debounced builds.
// Builds never overlap: they run on the goroutine that called Run.
type Watcher struct {
	opts        Options
	fsw         *fsnotify.Watcher
	roots       []string
	ignore      []string
	ignoreFiles []string
	triggers    chan struct{}
}

// New creates a watcher. Call Run to start it.
func New(opts Options) (*Watcher, error) {
	if opts.Build == nil {
		return nil, errors.New("watch: build func is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		opts:        opts,
		fsw:         fsw,
		roots:       absPaths(opts.Paths),
		ignore:      absPaths(opts.Ignore),
		ignoreFiles: absPaths(opts.IgnoreFiles),
		triggers:    make(chan struct{}, 1),
	}, nil
}

func absPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			out = append(out, abs)
		}
	}
	return out
}

// Run watches until ctx is done. It closes the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.fsw.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	watched := 0
	for _, root := range w.roots {
		n, err := w.addTree(root)
		if err != nil {
			return err
		}
		watched += n
	}
	if watched == 0 {
		return ErrNothingToWatch
	}
	slog.Info("Watching for changes", slog.Int("directories", watched), slog.Duration("debounce", w.opts.Debounce))

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.watchLoop(ctx)
	}()
	defer func() { <-done }()

	if w.opts.RunOnStart {
		w.build(ctx)
	}

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.triggers:
			timer.Reset(w.opts.Debounce)
		case <-timer.C:
			w.build(ctx)
		}
	}
}

func (w *Watcher) build(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.opts.Build(ctx); err != nil {
		slog.Warn("Build failed; waiting for next change", logfields.Error(err))
	}
}

// addTree adds root and every non-skipped subdirectory. A missing root is skipped.
func (w *Watcher) addTree(root string) (int, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return 0, fmt.Errorf("resolve watch path %s: %w", root, err)
	}
	count := 0
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == abs {
				slog.Debug("Watch path does not exist", logfields.Path(abs))
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != abs && (skipDirs[d.Name()] || w.ignored(p)) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", p, err)
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, nil
}

func (w *Watcher) ignored(p string) bool {
	for _, ig := range w.ignore {
		if within(p, ig) {
			return true
		}
	}
	return false
}

func (w *Watcher) ignoredFile(p string) bool {
	dir, base := filepath.Split(p)
	for _, f := range w.ignoreFiles {
		fdir, fbase := filepath.Split(f)
		if dir == fdir && siblingOf(base, fbase) {
			return true
		}
	}
	return false
}

// siblingOf matches name itself, SQLite companions (name-journal, name-wal)
// and os.CreateTemp names (name followed by digits).
func siblingOf(base, name string) bool {
	suffix, ok := strings.CutPrefix(base, name)
	if !ok {
		return false
	}
	if suffix == "" || strings.HasPrefix(suffix, "-") {
		return true
	}
	return strings.Trim(suffix, "0123456789") == ""
}

func within(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// New directories are not watched automatically.
				if _, err := w.addTree(event.Name); err != nil {
					slog.Debug("Could not watch new path", logfields.Path(event.Name), logfields.Error(err))
				}
			}
			slog.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			w.trigger()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if w.ignored(event.Name) || w.ignoredFile(event.Name) {
		return false
	}
	// Only the part below the watched root counts, so a project that lives
	// under e.g. /srv/dist/app still sees its own changes.
	for _, root := range w.roots {
		if !within(event.Name, root) {
			continue
		}
		rel, err := filepath.Rel(root, event.Name)
		if err != nil {
			continue
		}
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if skipDirs[part] {
				return false
			}
		}
		return true
	}
	return !skipDirs[filepath.Base(event.Name)]
}

func (w *Watcher) trigger() {
	select {
	case w.triggers <- struct{}{}:
	default:
	}
}
