package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "deploybuilder.yaml"

// Config represents the application configuration.
type Config struct {
	// WorkDir is the project root every relative path and command is resolved against.
	WorkDir  string        `yaml:"workdir,omitempty"`
	Output   OutputConfig  `yaml:"output"`
	Client   ClientConfig  `yaml:"client"`
	Server   ServerConfig  `yaml:"server"`
	Verify   VerifyConfig  `yaml:"verify,omitempty"`
	EnvFiles []string      `yaml:"env_files,omitempty"`
	Metrics  MetricsConfig `yaml:"metrics,omitempty"`
	History  HistoryConfig `yaml:"history,omitempty"`
	Notify   NotifyConfig  `yaml:"notify,omitempty"`
	Watch    WatchConfig   `yaml:"watch,omitempty"`
}

// OutputConfig describes the deployable server directory.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	EntryFile string `yaml:"entry_file"`
}

// ClientConfig describes the client bundler invocation.
type ClientConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// ServerConfig describes the server bundler invocation.
type ServerConfig struct {
	Command    string `yaml:"command"`
	EntryPoint string `yaml:"entry_point"`
	Engine     Engine `yaml:"engine"`
}

// VerifyConfig enables post-build checks of the client output.
type VerifyConfig struct {
	SPAIndex  bool   `yaml:"spa_index"`
	IndexPath string `yaml:"index_path,omitempty"`
}

// MetricsConfig controls Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// HistoryConfig controls the SQLite build history.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// NotifyConfig controls build event publication over NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Paths    []string `yaml:"paths,omitempty"`
	Debounce string   `yaml:"debounce,omitempty"`
}

// Load loads configuration from configPath. A missing file yields the defaults,
// which reproduce the plain `vite build` + `esbuild` deploy build.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	// Paths in a config file are relative to the file, not the caller's cwd.
	if !filepath.IsAbs(cfg.WorkDir) {
		cfg.WorkDir = filepath.Join(filepath.Dir(configPath), cfg.WorkDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init creates a new configuration file with the default values spelled out.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Default()
	exampleConfig.History.Path = ".deploybuilder/history.db"

	data, err := yaml.Marshal(exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Root returns the absolute working directory of the build.
func (c *Config) Root() (string, error) {
	dir := c.WorkDir
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(dir)
}

// OutputPath returns the output directory joined onto the working directory.
func (c *Config) OutputPath(root string) string {
	return filepath.Join(root, c.Output.Directory)
}

// EntryPath returns the server entry file path inside the output directory.
func (c *Config) EntryPath(root string) string {
	return filepath.Join(c.OutputPath(root), c.Output.EntryFile)
}
