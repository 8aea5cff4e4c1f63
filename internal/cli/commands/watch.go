package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/fidgetstar/internal/model"
	"github.com/leapstack-labs/fidgetstar/internal/render"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// watchDebounce collapses the burst of events an editor save produces.
const watchDebounce = 100 * time.Millisecond

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Out string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <model|file>",
		Short: "Re-run a script every time it is saved",
		Long: `Run a shape script, then watch its file and run it again on every save.

Script errors are reported and watching continues. With --out the shapes
are also rendered to a PNG after each successful run.`,
		Example: `  # Watch the gear model
  fidgetstar watch gear

  # Keep gear.png up to date while editing
  fidgetstar watch gear --out gear.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "Render a PNG after each run")

	return cmd
}

func runWatch(cmd *cobra.Command, ref string, opts *WatchOptions) error {
	if ref == "-" {
		return errors.New("cannot watch stdin")
	}

	cc := NewCommandContextWithoutWorker(cmd)
	m, err := loadScript(cmd, cc.Cfg, ref)
	if err != nil {
		return err
	}
	path, err := filepath.Abs(m.Path)
	if err != nil {
		return err
	}

	history, err := openHistory(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	if history != nil {
		defer func() { _ = history.Close() }()
	}
	cc.History = history
	cc.Worker = newWorker(cc.Cfg, cc.Logger, history)

	eg, ctx := errgroup.WithContext(cmd.Context())
	changes := make(chan struct{}, 1)

	eg.Go(func() error {
		return cc.Worker.Run(ctx)
	})
	eg.Go(func() error {
		return watchFile(ctx, path, changes, cc)
	})
	eg.Go(func() error {
		defer func() { _ = cc.Worker.Close() }()
		r := cc.Renderer
		r.Println(r.Muted(fmt.Sprintf("Watching %s (Ctrl+C to stop)", path)))
		for {
			runWatched(ctx, cc, path, opts)
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
			}
		}
	})

	return eg.Wait()
}

// runWatched reloads the file and runs it once. Failures are reported
// and never end the watch.
func runWatched(ctx context.Context, cc *CommandContext, path string, opts *WatchOptions) {
	r := cc.Renderer

	m, err := model.Resolve(cc.Cfg.ModelsDir, path)
	if err != nil {
		r.Error(err.Error())
		return
	}
	res, err := submit(ctx, cc.Worker, m)
	if err != nil {
		if ctx.Err() == nil {
			r.Error(err.Error())
		}
		return
	}
	if err := printShapes(r, m.Name, res.Shapes); err != nil {
		r.Error(err.Error())
		return
	}

	if opts.Out == "" {
		return
	}
	img, err := render.Render(ctx, res.Shapes, cc.Cfg.RenderOptions())
	if err == nil {
		err = writeFile(opts.Out, func(w io.Writer) error { return render.WritePNG(w, img) })
	}
	if err != nil {
		r.Error(fmt.Sprintf("render %s: %v", opts.Out, err))
		return
	}
	r.Success("Rendered " + opts.Out)
}

// watchFile signals changes whenever path is written or replaced. The
// directory is watched since editors often save by renaming.
func watchFile(ctx context.Context, path string, changes chan<- struct{}, cc *CommandContext) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				cc.Logger.Debug("script changed", "path", path)
				select {
				case changes <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cc.Logger.Error("watcher error", "error", err)
		}
	}
}
