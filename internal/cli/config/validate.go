package config

import (
	"fmt"
	"math"
	"os"

	"github.com/leapstack-labs/fidgetstar/internal/cli/output"
)

const maxImageSize = 4096

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ModelsDir == "" {
		return fmt.Errorf("models_dir is required")
	}
	if c.ExecutionLimit <= 0 {
		return fmt.Errorf("execution_limit must be positive, got %s", c.ExecutionLimit)
	}
	if c.Render.Width < 1 || c.Render.Width > maxImageSize {
		return fmt.Errorf("render.width must be between 1 and %d, got %d", maxImageSize, c.Render.Width)
	}
	if c.Render.Height < 1 || c.Render.Height > maxImageSize {
		return fmt.Errorf("render.height must be between 1 and %d, got %d", maxImageSize, c.Render.Height)
	}
	if !(c.Render.Extent > 0) || math.IsInf(c.Render.Extent, 1) {
		return fmt.Errorf("render.extent must be positive, got %g", c.Render.Extent)
	}
	if math.IsNaN(c.Render.Z) || math.IsInf(c.Render.Z, 0) {
		return fmt.Errorf("render.z must be finite, got %g", c.Render.Z)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.OutputFormat != "" && output.Mode(c.OutputFormat) == output.ModeAuto && c.OutputFormat != string(output.ModeAuto) {
		return fmt.Errorf("unknown output format %q (want one of %v)", c.OutputFormat, output.Modes)
	}
	return nil
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.ModelsDir); os.IsNotExist(err) {
		return fmt.Errorf("models directory does not exist: %s\nHint: Create the directory or use --models-dir to specify a different path", c.ModelsDir)
	}
	return nil
}
