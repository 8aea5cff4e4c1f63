package commands

import (
	"fmt"

	"github.com/leapstack-labs/fidgetstar/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the live preview server",
		Long: `Start a local web server for editing and previewing shape scripts.

The server provides:
- A live preview page that re-renders as you type
- Automatic refresh when a model file is saved (unless --watch=false)
- A JSON API for running scripts, evaluating expressions and listing runs
- PNG renders of every model at /render/<model>.png`,
		Example: `  # Start on the default port
  fidgetstar serve

  # Start on a custom port without watching the models directory
  fidgetstar serve --port 3000 --watch=false`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().Int("port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().Bool("watch", true, "Watch the models directory for changes")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := NewCommandContextWithoutWorker(cmd)
	cfg := cc.Cfg

	if err := cfg.ValidateDirectories(); err != nil {
		return err
	}

	history, err := openHistory(cfg, cc.Logger)
	if err != nil {
		return err
	}
	scfg := server.Config{
		Worker:    newWorker(cfg, cc.Logger, history),
		ModelsDir: cfg.ModelsDir,
		Render:    cfg.RenderOptions(),
		Port:      cfg.Server.Port,
		Watch:     cfg.Server.Watch,
		Logger:    cc.Logger,
	}
	if history != nil {
		defer func() { _ = history.Close() }()
		scfg.History = history
	}

	r := cc.Renderer
	r.Printf("Starting preview server on http://localhost:%d\n", cfg.Server.Port)
	r.Println(r.Muted("Press Ctrl+C to stop"))

	if err := server.New(scfg).Serve(cmd.Context()); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
