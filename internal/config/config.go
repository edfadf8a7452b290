// Package config loads the server's project configuration from a
// .tychk.kdl file, following the same discovery and defaulting order as
// the teacher's KDL-backed config loader: explicit path, then
// <root>/.tychk.kdl, then compiled-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config is the full, validated configuration for one server process.
type Config struct {
	Version     int
	Project     Project
	Server      Server
	Scheduler   Scheduler
	Watch       Watch
	Environment Environment
	Include     []string
	Exclude     []string
}

// Project describes the analyzed repository.
type Project struct {
	Root string
	Name string
}

// Server controls the native-protocol transport.
type Server struct {
	SocketPath string
	LogLevel   string // "silent", "info", "verbose"
}

// Scheduler controls the parallel-work threshold and worker cap used by
// the type-check pipeline's parse/analyze fan-out (spec.md §4.4 Stage 2,
// §5).
type Scheduler struct {
	ParallelThreshold int // len(check) above this uses parallel mode
	MaxWorkers        int // 0 = runtime.NumCPU()
}

// Watch controls the optional fsnotify-backed file watcher that can act
// as an external notifier for SaveDocument (spec.md §4.5).
type Watch struct {
	Enabled    bool
	DebounceMs int
}

// Environment configures how paths are classified before they reach the
// pipeline: which suffix marks a declaration-only stub (spec.md §4.4
// Stage 5's shadowed-by-stub rule). Include/exclude globs live on Config.
type Environment struct {
	StubSuffix string
}

// Default returns the compiled-in configuration used when no
// .tychk.kdl is found.
func Default() *Config {
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Server: Server{
			SocketPath: "",
			LogLevel:   "info",
		},
		Scheduler: Scheduler{
			ParallelThreshold: 5,
			MaxWorkers:        0,
		},
		Watch: Watch{
			Enabled:    false,
			DebounceMs: 200,
		},
		Environment: Environment{
			StubSuffix: ".pyi",
		},
		Include: []string{},
		Exclude: []string{},
	}
}

// Load reads configuration from configPath, or from <root>/.tychk.kdl
// when configPath is empty; if the chosen file does not exist it returns
// Default() without trying the other location. CLI-flag overrides are
// applied by the caller (cmd/tychkd) after Load returns, mirroring the
// teacher's loadConfigWithOverrides split between config.Load and flag
// application.
func Load(configPath, root string) (*Config, error) {
	if configPath == "" && root != "" {
		configPath = filepath.Join(root, ".tychk.kdl")
	}

	cfg := Default()
	if root != "" {
		abs, err := filepath.Abs(root)
		if err == nil {
			cfg.Project.Root = abs
		}
	}

	if configPath == "" {
		return cfg, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	loaded, err := parseKDL(string(content), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	return loaded, nil
}
