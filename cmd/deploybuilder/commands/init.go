package commands

import (
	"path/filepath"

	"git.home.luguber.info/inful/deploybuilder/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory to write deploybuilder.yaml into"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if i.Output != "" {
		path = filepath.Join(i.Output, config.DefaultPath)
	}

	printf(g, "Writing configuration to %s", path)
	if err := config.Init(path, i.Force); err != nil {
		printf(g, "Initialization failed")
		return err
	}
	printf(g, "Initialized successfully")
	return nil
}
