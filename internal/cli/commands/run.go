package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/fidgetstar/internal/cli/output"
	starctx "github.com/leapstack-labs/fidgetstar/internal/starlark"
	"github.com/spf13/cobra"
)

// maxExprWidth bounds the expression column in text tables.
const maxExprWidth = 72

// RunOutput is the structured result of running a model.
type RunOutput struct {
	Model  string              `json:"model" yaml:"model"`
	Count  int                 `json:"count" yaml:"count"`
	Shapes []starctx.ShapeView `json:"shapes" yaml:"shapes"`
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <model|file>",
		Short: "Run a shape script and list the shapes it draws",
		Long: `Run a shape script and list every shape it passes to draw().

The argument is a model name from the models directory, a path to a
.star file, or "-" to read the script from stdin.`,
		Example: `  # Run the gear model
  fidgetstar run gear

  # Run a file outside the models directory
  fidgetstar run ./scratch/test.star

  # Machine-readable output
  fidgetstar run gear -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0])
		},
	}
	return cmd
}

func runRun(cmd *cobra.Command, ref string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	m, err := loadScript(cmd, cc.Cfg, ref)
	if err != nil {
		return err
	}

	res, err := submit(cmd.Context(), cc.Worker, m)
	if err != nil {
		return err
	}
	return printShapes(cc.Renderer, m.Name, res.Shapes)
}

// printShapes writes the shapes a script drew in the renderer's mode.
func printShapes(r *output.Renderer, name string, shapes []starctx.DrawShape) error {
	views := starctx.Views(shapes)
	if handled, err := r.Structured(RunOutput{Model: name, Count: len(views), Shapes: views}); handled {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, name))
		r.Println("")
		r.Println(output.FormatKeyValue("Shapes", strconv.Itoa(len(views))))
		if len(views) > 0 {
			r.Println("")
			rows := make([][]string, len(views))
			for i, v := range views {
				rows[i] = []string{strconv.Itoa(i + 1), v.Color, "`" + v.Expr + "`"}
			}
			r.Table([]string{"#", "Color", "Expression"}, rows)
		}
	default:
		if len(views) == 0 {
			r.Println(r.Muted(fmt.Sprintf("%s drew no shapes", name)))
			return nil
		}
		r.Header(1, fmt.Sprintf("%s (%d shapes)", name, len(views)))
		styles := r.Styles()
		rows := make([][]string, len(views))
		for i, v := range views {
			rows[i] = []string{strconv.Itoa(i + 1), styles.Swatch(v.Color) + " " + v.Color, truncate(v.Expr, maxExprWidth)}
		}
		r.Table([]string{"#", "Color", "Expression"}, rows)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
