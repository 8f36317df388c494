// Package bundle wraps the two bundler invocations of a deploy build: the
// client bundler producing static assets and the server bundler producing a
// single ES module in the output directory.
package bundle

import (
	"context"
	"errors"
	"fmt"

	"git.home.luguber.info/inful/deploybuilder/internal/command"
	"git.home.luguber.info/inful/deploybuilder/internal/config"
)

// ErrServerBundle indicates the in-process server bundle reported errors.
var ErrServerBundle = errors.New("deploybuilder: server bundle error")

// Bundler performs one bundling step.
type Bundler interface {
	Bundle(ctx context.Context) error
}

// Server bundle flags. Only the entry point and output directory vary.
const (
	PlatformFlag = "--platform=node"
	PackagesFlag = "--packages=external"
	BundleFlag   = "--bundle"
	FormatFlag   = "--format=esm"
)

// ServerOptions are the variable parts of the server bundle invocation.
type ServerOptions struct {
	EntryPoint string
	OutDir     string
}

// ServerArgs returns the esbuild CLI arguments for a server bundle.
func ServerArgs(o ServerOptions) []string {
	return []string{o.EntryPoint, PlatformFlag, PackagesFlag, BundleFlag, FormatFlag, "--outdir=" + o.OutDir}
}

// CommandBundler runs a bundler as an external command.
type CommandBundler struct {
	runner command.Runner
	spec   command.Spec
}

// Bundle implements Bundler.
func (b *CommandBundler) Bundle(ctx context.Context) error {
	return b.runner.Run(ctx, b.spec)
}

// Spec returns the command the bundler runs.
func (b *CommandBundler) Spec() command.Spec { return b.spec }

// NewClientBundler builds the client bundle with the configured command
// (`vite build` by default) from root.
func NewClientBundler(r command.Runner, cfg *config.Config, root string) *CommandBundler {
	args := make([]string, len(cfg.Client.Args))
	copy(args, cfg.Client.Args)
	return &CommandBundler{
		runner: r,
		spec:   command.Spec{Name: cfg.Client.Command, Args: args, Dir: root},
	}
}

// NewServerBundler selects the server bundle engine from cfg.Server.Engine.
func NewServerBundler(r command.Runner, cfg *config.Config, root string) (Bundler, error) {
	opts := ServerOptions{EntryPoint: cfg.Server.EntryPoint, OutDir: cfg.Output.Directory}
	switch cfg.Server.Engine {
	case config.EngineExec, "":
		return &CommandBundler{
			runner: r,
			spec:   command.Spec{Name: cfg.Server.Command, Args: ServerArgs(opts), Dir: root},
		}, nil
	case config.EngineAPI:
		return NewAPIBundler(root, opts), nil
	default:
		return nil, fmt.Errorf("unknown server engine %q", cfg.Server.Engine)
	}
}
