// Package config provides configuration management for the fidgetstar CLI.
//
// Values are layered with koanf: built-in defaults, then fidgetstar.yaml,
// then FIDGETSTAR_ environment variables, then explicitly set flags.
package config

import (
	"log/slog"
	"time"

	"github.com/leapstack-labs/fidgetstar/internal/engine"
	"github.com/leapstack-labs/fidgetstar/internal/render"
)

// Default configuration values.
const (
	DefaultModelsDir      = "models"
	DefaultHistoryFile    = ".fidgetstar/history.db"
	DefaultOutput         = "auto" // TTY=text, non-TTY=markdown
	DefaultExecutionLimit = engine.DefaultExecutionLimit
	DefaultPort           = 8765
)

// Config holds all CLI configuration options.
type Config struct {
	ModelsDir      string        `koanf:"models_dir"`
	ExecutionLimit time.Duration `koanf:"execution_limit"`
	MaxSteps       uint64        `koanf:"max_steps"`
	DefaultImports bool          `koanf:"default_imports"`
	// HistoryPath is the run history database; empty disables history.
	HistoryPath  string       `koanf:"history_path"`
	OutputFormat string       `koanf:"output"`
	Verbose      bool         `koanf:"verbose"`
	Render       RenderConfig `koanf:"render"`
	Server       ServerConfig `koanf:"server"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
}

// RenderConfig controls PNG rendering of captured shapes.
type RenderConfig struct {
	Width  int     `koanf:"width"`
	Height int     `koanf:"height"`
	Extent float64 `koanf:"extent"`
	Z      float64 `koanf:"z"`
}

// ServerConfig holds configuration for the preview server.
type ServerConfig struct {
	Port  int  `koanf:"port"`
	Watch bool `koanf:"watch"`
}

// Default returns the configuration used when nothing is loaded.
func Default() *Config {
	opts := render.DefaultOptions()
	return &Config{
		ModelsDir:      DefaultModelsDir,
		ExecutionLimit: DefaultExecutionLimit,
		DefaultImports: true,
		HistoryPath:    DefaultHistoryFile,
		OutputFormat:   DefaultOutput,
		Render: RenderConfig{
			Width:  opts.Width,
			Height: opts.Height,
			Extent: opts.Extent,
			Z:      opts.Z,
		},
		Server: ServerConfig{Port: DefaultPort, Watch: true},
	}
}

// EngineSettings converts the configuration into engine settings.
func (c *Config) EngineSettings(logger *slog.Logger) engine.Settings {
	return engine.Settings{
		DefaultImports: c.DefaultImports,
		ExecutionLimit: c.ExecutionLimit,
		MaxSteps:       c.MaxSteps,
		Logger:         logger,
	}
}

// RenderOptions converts the render section into render options.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		Width:  c.Render.Width,
		Height: c.Render.Height,
		Extent: c.Render.Extent,
		Z:      c.Render.Z,
	}
}
