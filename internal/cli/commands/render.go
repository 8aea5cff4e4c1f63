package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/leapstack-labs/fidgetstar/internal/cli/output"
	"github.com/leapstack-labs/fidgetstar/internal/render"
	"github.com/spf13/cobra"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	Out string
}

// RenderOutput is the structured result of the render command.
type RenderOutput struct {
	Model  string `json:"model" yaml:"model"`
	Path   string `json:"path" yaml:"path"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Shapes int    `json:"shapes" yaml:"shapes"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render <model|file>",
		Short: "Render a script's shapes to a PNG slice",
		Long: `Run a shape script and render the shapes it draws as a 2D slice.

Each pixel is sampled at the slice plane z; a shape covers the pixel where
its value is negative, and later shapes paint over earlier ones.`,
		Example: `  # Render the gear model to gear.png
  fidgetstar render gear

  # Larger image, zoomed out
  fidgetstar render gear --out gear-big.png --width 1024 --height 1024 --extent 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "Output PNG path (default: <model>.png)")
	cmd.Flags().Int("width", 0, "Image width in pixels")
	cmd.Flags().Int("height", 0, "Image height in pixels")
	cmd.Flags().Float64("extent", 0, "Half-width of the sampled square")
	cmd.Flags().Float64("z", 0, "Slice plane")

	return cmd
}

func runRender(cmd *cobra.Command, ref string, opts *RenderOptions) error {
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

	ropts := cc.Cfg.RenderOptions()
	img, err := render.Render(cmd.Context(), res.Shapes, ropts)
	if err != nil {
		return err
	}

	path := opts.Out
	if path == "" {
		path = defaultPNGPath(m)
	}
	if err := writeFile(path, func(w io.Writer) error { return render.WritePNG(w, img) }); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	cc.Logger.Debug("rendered model", "model", m.Name, "path", path, "shapes", len(res.Shapes))

	out := RenderOutput{Model: m.Name, Path: path, Width: ropts.Width, Height: ropts.Height, Shapes: len(res.Shapes)}
	if handled, err := cc.Renderer.Structured(out); handled {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Rendered", path))
		r.Println(output.FormatKeyValue("Size", fmt.Sprintf("%dx%d", out.Width, out.Height)))
		r.Println(output.FormatKeyValue("Shapes", strconv.Itoa(out.Shapes)))
		return nil
	}
	r.Success(fmt.Sprintf("Rendered %s (%d shapes, %dx%d) to %s", m.Name, out.Shapes, out.Width, out.Height, path))
	return nil
}
