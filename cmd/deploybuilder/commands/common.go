package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/deploybuilder/internal/command"
	"git.home.luguber.info/inful/deploybuilder/internal/config"
	ferrors "git.home.luguber.info/inful/deploybuilder/internal/foundation/errors"
)

// Global carries process-wide dependencies into every command.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
	// Runner overrides the process runner used for bundler commands (nil: real processes).
	Runner command.Runner
	// Context is the parent of every command context (nil: background).
	Context context.Context
}

func (g *Global) context() context.Context {
	if g.Context != nil {
		return g.Context
	}
	return context.Background()
}

// NewGlobal returns a Global wired to the process streams.
func NewGlobal() *Global {
	return &Global{Stdout: os.Stdout, Stderr: os.Stderr}
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (optional)" default:"deploybuilder.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" default:"withargs" help:"Run the deploy build (default command)"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
	Scaffold ScaffoldCmd `cmd:"" help:"Write the fallback server entry without building"`
	History  HistoryCmd  `cmd:"" help:"List recorded builds"`
	Watch    WatchCmd    `cmd:"" help:"Rebuild whenever client or server sources change"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	w := g.Stderr
	if w == nil {
		w = os.Stderr
	}
	g.Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(g.Logger)
	return nil
}

// LoadConfig reads the configuration file; a missing file yields the defaults.
func (c *CLI) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		if _, ok := ferrors.AsClassified(err); ok {
			return nil, err
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "Failed to load configuration").
			WithContext("path", c.Config).
			Build()
	}
	return cfg, nil
}
