package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/fidgetstar/internal/cli/config"
	"github.com/leapstack-labs/fidgetstar/internal/cli/output"
	"github.com/leapstack-labs/fidgetstar/internal/model"
	"github.com/leapstack-labs/fidgetstar/internal/state"
	"github.com/leapstack-labs/fidgetstar/internal/worker"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Worker   *worker.Worker
	History  *state.SQLiteStore // nil when history is disabled
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a running worker and,
// when configured, the run history store. The cleanup function must be
// called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutWorker(cmd)

	history, err := openHistory(cc.Cfg, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	cc.History = history

	cc.Worker = newWorker(cc.Cfg, cc.Logger, history)
	cc.Worker.Start(cmd.Context())

	cleanup := func() {
		_ = cc.Worker.Close()
		if cc.History != nil {
			_ = cc.History.Close()
		}
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutWorker creates a CommandContext without a
// worker. Useful for commands that never execute scripts.
func NewCommandContextWithoutWorker(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the loaded configuration, or the defaults when the
// command runs without the root's config loading (as in unit tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// newWorker builds a worker that records into history when it is set.
func newWorker(cfg *config.Config, logger *slog.Logger, history *state.SQLiteStore) *worker.Worker {
	wcfg := worker.Config{
		Settings: cfg.EngineSettings(logger),
		Logger:   logger,
	}
	if history != nil {
		wcfg.Recorder = history
	}
	return worker.New(wcfg)
}

// openHistory opens the run history database, or returns nil when
// history is disabled.
func openHistory(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	if cfg.HistoryPath == "" {
		return nil, nil
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.HistoryPath); err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

// loadScript resolves a model reference: "-" reads stdin, an existing
// file path is read directly, anything else is a model name.
func loadScript(cmd *cobra.Command, cfg *config.Config, ref string) (*model.Model, error) {
	if ref == "-" {
		src, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return &model.Model{Name: "stdin", Path: "<stdin>", Source: string(src)}, nil
	}
	return model.Resolve(cfg.ModelsDir, ref)
}

// submit runs m on the worker and turns a script failure into an error.
func submit(ctx context.Context, w *worker.Worker, m *model.Model) (worker.Result, error) {
	res, err := w.SubmitFile(ctx, m.Path, m.Source)
	if err != nil {
		return res, err
	}
	if !res.OK() {
		return res, fmt.Errorf("%s: %s", m.Name, res.Err)
	}
	return res, nil
}

// defaultPNGPath names the image rendered for m when --out is not given.
func defaultPNGPath(m *model.Model) string {
	return strings.TrimSuffix(filepath.Base(m.Name), model.Ext) + ".png"
}

// writeFile writes data through a temp file so a failed render never
// leaves a truncated image behind.
func writeFile(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".fidgetstar-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
