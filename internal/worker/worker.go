// Package worker serializes script requests onto a single goroutine that
// owns an Engine, so several producers can share one engine safely.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/fidgetstar/internal/engine"
	starctx "github.com/leapstack-labs/fidgetstar/internal/starlark"
	"github.com/leapstack-labs/fidgetstar/pkg/tree"
)

// ErrClosed is returned when submitting to a closed worker.
var ErrClosed = errors.New("worker is closed")

// Result is the outcome of one script. Err is empty on success; errors
// travel as text so results can cross goroutines and process boundaries.
type Result struct {
	ID     string              `json:"id,omitempty"`
	Shapes []starctx.DrawShape `json:"-"`
	Err    string              `json:"error,omitempty"`
}

// OK reports whether the script succeeded.
func (r Result) OK() bool { return r.Err == "" }

// Runner executes one script. *engine.Engine implements it.
type Runner interface {
	RunFile(name, script string) ([]starctx.DrawShape, error)
}

// Loop is the raw two-channel protocol: it runs each request from
// requests on r, one at a time, and sends the outcome to responses. It
// returns when ctx is done or requests is closed.
func Loop(ctx context.Context, r Runner, requests <-chan string, responses chan<- Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case script, ok := <-requests:
			if !ok {
				return
			}
			shapes, err := runSafely(r, "<script>", script)
			select {
			case responses <- newResult("", shapes, err):
			case <-ctx.Done():
				return
			}
		}
	}
}

func newResult(id string, shapes []starctx.DrawShape, err error) Result {
	if err != nil {
		return Result{ID: id, Err: err.Error()}
	}
	return Result{ID: id, Shapes: shapes}
}

// runSafely turns a panic inside the runner into an error.
func runSafely(r Runner, name, script string) (shapes []starctx.DrawShape, err error) {
	defer func() {
		if p := recover(); p != nil {
			shapes = nil
			err = fmt.Errorf("script panicked: %v", p)
		}
	}()
	return r.RunFile(name, script)
}

// Completion describes a finished request for a Recorder.
type Completion struct {
	ID         string
	Name       string
	Script     string
	ShapeCount int
	Duration   time.Duration
	Err        error
	StartedAt  time.Time
}

// Recorder is notified of every completed request.
type Recorder interface {
	Record(ctx context.Context, c Completion) error
}

// Config configures a Worker.
type Config struct {
	// Settings builds the engine the worker owns.
	Settings engine.Settings
	// QueueSize is the request buffer; submitters block when it is full.
	QueueSize int
	// Recorder is optional.
	Recorder Recorder
	Logger   *slog.Logger
}

// call is one unit of work executed on the worker goroutine.
type call struct {
	fn   func(ctx context.Context, eng *engine.Engine)
	done chan struct{}
}

// Worker is the multi-producer form of Loop. All engine access happens
// on the goroutine running Run.
type Worker struct {
	engine   *engine.Engine
	recorder Recorder
	logger   *slog.Logger

	queue   chan *call
	done    chan struct{}
	stopped chan struct{}

	running   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates a worker. Call Start or Run to begin processing.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Settings.Logger == nil {
		cfg.Settings.Logger = logger
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	return &Worker{
		engine:   engine.New(cfg.Settings),
		recorder: cfg.Recorder,
		logger:   logger,
		queue:    make(chan *call, cfg.QueueSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Settings returns the settings of the owned engine.
func (w *Worker) Settings() engine.Settings { return w.engine.Settings() }

// Start runs the worker on a new goroutine.
func (w *Worker) Start(ctx context.Context) {
	go func() { _ = w.Run(ctx) }()
}

// Run processes requests until ctx is done or Close is called. It must
// be called at most once.
func (w *Worker) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New("worker already running")
	}
	defer close(w.stopped)

	w.logger.Debug("worker started")
	for {
		select {
		case <-ctx.Done():
			w.closed.Store(true)
			return nil
		case <-w.done:
			return nil
		case c := <-w.queue:
			w.invoke(ctx, c)
		}
	}
}

func (w *Worker) invoke(ctx context.Context, c *call) {
	defer close(c.done)
	defer func() {
		if p := recover(); p != nil {
			w.logger.Error("worker call panicked", "panic", p)
		}
	}()
	c.fn(ctx, w.engine)
}

// do queues fn and waits until it has run. The returned error is only
// about delivery: a closed worker or a cancelled ctx.
func (w *Worker) do(ctx context.Context, fn func(ctx context.Context, eng *engine.Engine)) error {
	if w.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c := &call{fn: fn, done: make(chan struct{})}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrClosed
	case <-w.stopped:
		return ErrClosed
	case w.queue <- c:
	}

	select {
	case <-ctx.Done():
		// The call stays queued and runs; its result is dropped.
		return ctx.Err()
	case <-c.done:
		return nil
	case <-w.stopped:
		select {
		case <-c.done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Submit queues script and waits for its result. The returned error is
// only about delivery; script failures are in Result.Err.
func (w *Worker) Submit(ctx context.Context, script string) (Result, error) {
	return w.SubmitFile(ctx, "<script>", script)
}

// SubmitFile is Submit with a file name for diagnostics.
func (w *Worker) SubmitFile(ctx context.Context, name, script string) (Result, error) {
	id := uuid.NewString()
	var res Result
	err := w.do(ctx, func(ctx context.Context, eng *engine.Engine) {
		w.logger.Debug("request received", "request_id", id, "name", name)
		start := time.Now()
		shapes, runErr := runSafely(eng, name, script)
		elapsed := time.Since(start)
		w.record(ctx, Completion{
			ID:         id,
			Name:       name,
			Script:     script,
			ShapeCount: len(shapes),
			Duration:   elapsed,
			Err:        runErr,
			StartedAt:  start,
		})
		res = newResult(id, shapes, runErr)
		w.logger.Debug("response sent", "request_id", id, "duration", elapsed, "ok", runErr == nil)
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Eval evaluates expr on the worker's engine.
func (w *Worker) Eval(ctx context.Context, expr string) (*tree.Tree, error) {
	var (
		t       *tree.Tree
		evalErr error
	)
	err := w.do(ctx, func(_ context.Context, eng *engine.Engine) {
		t, evalErr = eng.Eval(expr)
	})
	if err != nil {
		return nil, err
	}
	return t, evalErr
}

func (w *Worker) record(ctx context.Context, c Completion) {
	if w.recorder == nil {
		return
	}
	if err := w.recorder.Record(ctx, c); err != nil {
		w.logger.Warn("failed to record run", "request_id", c.ID, "error", err)
	}
}

// Close stops the worker after the call in progress, if any. Queued
// calls fail with ErrClosed.
func (w *Worker) Close() error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.done)
	})
	if w.running.Load() {
		<-w.stopped
	}
	return nil
}
