package config

// Default values shared by Load, Init and the zero-config CLI path.
const (
	DefaultOutputDirectory = "api"
	DefaultEntryFile       = "index.js"
	DefaultClientCommand   = "vite"
	DefaultServerCommand   = "esbuild"
	DefaultServerEntry     = "server/index.ts"
	DefaultSPAIndex        = "dist/public/index.html"
	DefaultNotifySubject   = "deploybuilder.builds"
	DefaultWatchDebounce   = "500ms"
)

// DefaultWatchPaths are the source directories watched when watch.paths is unset.
func DefaultWatchPaths() []string { return []string{"client", "server", "shared"} }

// Default returns a configuration equal to the built-in deploy build.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = DefaultOutputDirectory
	}
	if cfg.Output.EntryFile == "" {
		cfg.Output.EntryFile = DefaultEntryFile
	}
	if cfg.Client.Command == "" {
		cfg.Client.Command = DefaultClientCommand
		if len(cfg.Client.Args) == 0 {
			cfg.Client.Args = []string{"build"}
		}
	}
	if cfg.Server.Command == "" {
		cfg.Server.Command = DefaultServerCommand
	}
	if cfg.Server.EntryPoint == "" {
		cfg.Server.EntryPoint = DefaultServerEntry
	}
	if cfg.Server.Engine == "" {
		cfg.Server.Engine = EngineExec
	}
	if cfg.Verify.IndexPath == "" {
		cfg.Verify.IndexPath = DefaultSPAIndex
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	if len(cfg.Watch.Paths) == 0 {
		cfg.Watch.Paths = DefaultWatchPaths()
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
}
