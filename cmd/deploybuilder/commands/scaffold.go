package commands

import (
	"os"

	ferrors "git.home.luguber.info/inful/deploybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/deploybuilder/internal/scaffold"
)

// ScaffoldCmd implements the 'scaffold' command.
type ScaffoldCmd struct {
	Workdir string `short:"w" help:"Project root (overrides config workdir)" type:"path"`
}

func (s *ScaffoldCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if s.Workdir != "" {
		cfg.WorkDir = s.Workdir
	}
	dir, err := cfg.Root()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to resolve working directory").Build()
	}

	out := cfg.OutputPath(dir)
	if err := ensureDir(out); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", out).
			Build()
	}

	created, err := scaffold.EnsureEntry(out, cfg.Output.EntryFile)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryScaffold, "failed to write fallback entry").Build()
	}
	if created {
		printf(g, "Created %s", cfg.EntryPath(dir))
	} else {
		printf(g, "%s already exists; left unchanged", cfg.EntryPath(dir))
	}
	return nil
}

func ensureDir(path string) error {
	// #nosec G301 -- the output directory is deployed and served
	return os.MkdirAll(path, 0o755)
}
