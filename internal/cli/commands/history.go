package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/fidgetstar/internal/cli/output"
	"github.com/leapstack-labs/fidgetstar/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent script runs",
		Long: `Show the most recent script runs recorded in the history database,
newest first.`,
		Example: `  # Last 20 runs
  fidgetstar history

  # Everything, as YAML
  fidgetstar history --limit 0 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Number of runs to show (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cc := NewCommandContextWithoutWorker(cmd)
	if cc.Cfg.HistoryPath == "" {
		return errors.New("run history is disabled (history_path is empty)")
	}

	store, err := openHistory(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if runs == nil {
		runs = []*state.Run{}
	}

	r := cc.Renderer
	if handled, err := r.Structured(runs); handled {
		return err
	}

	if len(runs) == 0 {
		r.Println(r.Muted("No runs recorded yet"))
		return nil
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, fmt.Sprintf("Runs (%d)", len(runs))))
		r.Println("")
	} else {
		r.Header(1, fmt.Sprintf("Runs (%d)", len(runs)))
	}

	styles := r.Styles()
	rows := make([][]string, len(runs))
	for i, run := range runs {
		status := string(run.Status)
		if r.EffectiveMode() == output.ModeText {
			if run.Status == state.RunStatusSucceeded {
				status = styles.Success.Render(status)
			} else {
				status = styles.Error.Render(status)
			}
		}
		rows[i] = []string{
			shortID(run.ID),
			run.Name,
			status,
			strconv.Itoa(run.ShapeCount),
			run.Duration.Round(time.Microsecond).String(),
			run.StartedAt.Local().Format(time.DateTime),
			truncate(run.Error, 48),
		}
	}
	r.Table([]string{"ID", "Name", "Status", "Shapes", "Duration", "Started", "Error"}, rows)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
