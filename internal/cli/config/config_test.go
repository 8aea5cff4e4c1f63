package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("models-dir", "", "models directory")
	flags.Duration("execution-limit", 0, "execution limit")
	flags.Bool("no-default-imports", false, "no default imports")
	flags.String("history", "", "history database")
	flags.StringP("output", "o", "", "output format")
	flags.Int("width", 0, "image width")
	flags.Int("port", 0, "port")
	return flags
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "fidgetstar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.ExecutionLimit)
	assert.True(t, cfg.DefaultImports)
	assert.Zero(t, cfg.MaxSteps)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Equal(t, 512, cfg.Render.Width)
	assert.Equal(t, 512, cfg.Render.Height)
	assert.InDelta(t, 1.5, cfg.Render.Extent, 1e-9)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.True(t, filepath.IsAbs(cfg.ModelsDir))
	assert.Equal(t, DefaultModelsDir, filepath.Base(cfg.ModelsDir))
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	path := writeConfig(t, dir, `models_dir: shapes
execution_limit: 250ms
max_steps: 100000
default_imports: false
history_path: ""
render:
  width: 64
  extent: 3
server:
  port: 9000
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "shapes"), cfg.ModelsDir, "file paths resolve against the config directory")
	assert.Equal(t, 250*time.Millisecond, cfg.ExecutionLimit)
	assert.Equal(t, uint64(100000), cfg.MaxSteps)
	assert.False(t, cfg.DefaultImports)
	assert.Empty(t, cfg.HistoryPath)
	assert.Equal(t, 64, cfg.Render.Width)
	assert.Equal(t, 512, cfg.Render.Height)
	assert.InDelta(t, 3.0, cfg.Render.Extent, 1e-9)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadConfig_DiscoversFileInWorkingDir(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, "execution_limit: 2s\n")
	chdir(t, dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.ExecutionLimit)
	assert.Equal(t, "fidgetstar.yaml", filepath.Base(GetConfigFileUsed()))
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	path := writeConfig(t, dir, "models_dir: from_file\nexecution_limit: 2s\n")

	t.Setenv("FIDGETSTAR_MODELS_DIR", "from_env")
	t.Setenv("FIDGETSTAR_EXECUTION_LIMIT", "3s")

	flags := testFlags()
	require.NoError(t, flags.Set("models-dir", "from_flag"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "from_flag", filepath.Base(cfg.ModelsDir), "flag value should override config file and env var")
	assert.Equal(t, 3*time.Second, cfg.ExecutionLimit, "env var should override config file")
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	path := writeConfig(t, dir, "models_dir: from_file\n")
	t.Setenv("FIDGETSTAR_MODELS_DIR", "from_env")

	cfg, err := LoadConfig(path, testFlags())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "from_env"), cfg.ModelsDir)
}

func TestLoadConfig_NestedEnv(t *testing.T) {
	ResetConfig()
	chdir(t, t.TempDir())
	t.Setenv("FIDGETSTAR_RENDER__WIDTH", "128")
	t.Setenv("FIDGETSTAR_SERVER__PORT", "9100")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Render.Width)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoadConfig_MappedFlags(t *testing.T) {
	ResetConfig()
	chdir(t, t.TempDir())

	flags := testFlags()
	require.NoError(t, flags.Set("execution-limit", "40ms"))
	require.NoError(t, flags.Set("no-default-imports", "true"))
	require.NoError(t, flags.Set("history", "runs.db"))
	require.NoError(t, flags.Set("output", "json"))
	require.NoError(t, flags.Set("width", "32"))
	require.NoError(t, flags.Set("port", "9200"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, 40*time.Millisecond, cfg.ExecutionLimit)
	assert.False(t, cfg.DefaultImports)
	assert.Equal(t, "runs.db", filepath.Base(cfg.HistoryPath))
	assert.True(t, filepath.IsAbs(cfg.HistoryPath))
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 32, cfg.Render.Width)
	assert.Equal(t, 9200, cfg.Server.Port)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"zero limit", "execution_limit: 0s\n", "execution_limit must be positive"},
		{"bad duration", "execution_limit: soon\n", "unable to decode config"},
		{"huge image", "render:\n  width: 100000\n", "render.width"},
		{"bad extent", "render:\n  extent: -1\n", "render.extent"},
		{"nan extent", "render:\n  extent: .nan\n", "render.extent"},
		{"infinite z", "render:\n  z: .inf\n", "render.z"},
		{"bad output", "output: xml\n", "unknown output format"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfig_EngineSettings(t *testing.T) {
	cfg := Default()
	cfg.MaxSteps = 10
	logger := NewLogger(os.Stderr, false)

	s := cfg.EngineSettings(logger)
	assert.True(t, s.DefaultImports)
	assert.Equal(t, time.Second, s.ExecutionLimit)
	assert.Equal(t, uint64(10), s.MaxSteps)
	assert.Same(t, logger, s.Logger)

	opts := cfg.RenderOptions()
	assert.Equal(t, 512, opts.Width)
	assert.InDelta(t, 1.5, opts.Extent, 1e-9)
}

func TestConfig_ValidateDirectories(t *testing.T) {
	cfg := Default()
	cfg.ModelsDir = filepath.Join(t.TempDir(), "missing")
	err := cfg.ValidateDirectories()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "models directory does not exist")

	cfg.ModelsDir = t.TempDir()
	assert.NoError(t, cfg.ValidateDirectories())
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "missing logger falls back to discard")

	logger := NewLogger(os.Stderr, true)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.True(t, logger.Enabled(ctx, -4), "verbose logger enables debug")
}
