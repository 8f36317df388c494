package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/deploybuilder/internal/foundation/errors"
)

// Validate checks the configuration for values the build cannot work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Client.Command) == "" {
		return ferrors.ValidationError("client.command must not be empty").Build()
	}
	if strings.TrimSpace(c.Server.Command) == "" && c.Server.Engine == EngineExec {
		return ferrors.ValidationError("server.command must not be empty").Build()
	}
	if strings.TrimSpace(c.Server.EntryPoint) == "" {
		return ferrors.ValidationError("server.entry_point must not be empty").Build()
	}
	engine := NormalizeEngine(string(c.Server.Engine))
	if engine == "" {
		return ferrors.ValidationError(fmt.Sprintf("server.engine %q is not one of exec|api", c.Server.Engine)).
			WithContext("engine", string(c.Server.Engine)).
			Build()
	}
	c.Server.Engine = engine

	if err := validateRelative("output.directory", c.Output.Directory); err != nil {
		return err
	}
	if c.Output.EntryFile != filepath.Base(c.Output.EntryFile) {
		return ferrors.ValidationError("output.entry_file must be a bare file name").
			WithContext("entry_file", c.Output.EntryFile).
			Build()
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return ferrors.ValidationError("watch.debounce is not a duration").
			WithContext("debounce", c.Watch.Debounce).
			Build()
	}
	return nil
}

// validateRelative rejects absolute paths and paths escaping the working directory.
func validateRelative(field, p string) error {
	if p == "" {
		return ferrors.ValidationError(field + " must not be empty").Build()
	}
	if filepath.IsAbs(p) {
		return ferrors.ValidationError(field+" must be relative to the working directory").
			WithContext("path", p).
			Build()
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return ferrors.ValidationError(field+" must not leave the working directory").
			WithContext("path", p).
			Build()
	}
	return nil
}

// DebounceDuration returns the parsed watch debounce.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}
