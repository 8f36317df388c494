package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads the configured env files into the process environment so the
// bundlers inherit them. Existing process environment variables are not overwritten.
// Missing files are skipped with a debug log.
func (c *Config) LoadEnvFiles(root string) error {
	for _, f := range c.EnvFiles {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		env, err := godotenv.Read(path)
		if err != nil {
			slog.Debug("Skipping env file", "path", path, "error", err)
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		slog.Debug("Loaded environment variables", "path", path, "count", len(env))
	}
	return nil
}
