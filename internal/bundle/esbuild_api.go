package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/deploybuilder/internal/logfields"
)

// APIBundler produces the server bundle in-process through the esbuild Go API
// with the same semantics as ServerArgs.
type APIBundler struct {
	root     string
	opts     ServerOptions
	logLevel api.LogLevel
}

// NewAPIBundler returns an in-process server bundler rooted at root.
func NewAPIBundler(root string, opts ServerOptions) *APIBundler {
	return &APIBundler{root: root, opts: opts, logLevel: api.LogLevelInfo}
}

// BuildOptions returns the esbuild options used for the bundle.
func (b *APIBundler) BuildOptions() api.BuildOptions {
	return api.BuildOptions{
		AbsWorkingDir: b.root,
		EntryPoints:   []string{b.opts.EntryPoint},
		Platform:      api.PlatformNode,
		Packages:      api.PackagesExternal,
		Bundle:        true,
		Format:        api.FormatESModule,
		Outdir:        filepath.Join(b.root, b.opts.OutDir),
		Write:         true,
		LogLevel:      b.logLevel,
	}
}

// Bundle implements Bundler. esbuild's Build is not cancelable, so ctx is unused.
func (b *APIBundler) Bundle(_ context.Context) error {
	slog.Debug("Bundling server in-process",
		logfields.Engine("api"),
		logfields.Path(b.opts.EntryPoint),
		logfields.OutputDir(b.opts.OutDir))

	result := api.Build(b.BuildOptions())

	for _, w := range result.Warnings {
		slog.Warn("esbuild warning", "message", formatMessage(w))
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, formatMessage(e))
		}
		return fmt.Errorf("%w: %d error(s): %s", ErrServerBundle, len(result.Errors), strings.Join(msgs, "; "))
	}
	return nil
}

func formatMessage(m api.Message) string {
	if m.Location == nil {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
}
