package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/fidgetstar/internal/engine"
	starctx "github.com/leapstack-labs/fidgetstar/internal/starlark"
	"github.com/leapstack-labs/fidgetstar/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(engine.DefaultSettings())
	requests := make(chan string)
	responses := make(chan Result)
	done := make(chan struct{})
	go func() {
		Loop(ctx, eng, requests, responses)
		close(done)
	}()

	requests <- "draw(x)\ndraw(y, 1, 0, 0)"
	res := <-responses
	require.True(t, res.OK(), res.Err)
	require.Len(t, res.Shapes, 2)
	assert.Equal(t, starctx.RGB{R: 255}, res.Shapes[1].Color)

	requests <- "x < y"
	res = <-responses
	assert.False(t, res.OK())
	assert.Contains(t, res.Err, starctx.CompareBanMessage)
	assert.Empty(t, res.Shapes)

	close(requests)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Loop did not return after requests closed")
	}
}

func TestLoop_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Loop(ctx, engine.New(engine.DefaultSettings()), make(chan string), make(chan Result))
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Loop did not return after cancel")
	}
}

type panicRunner struct{}

func (panicRunner) RunFile(string, string) ([]starctx.DrawShape, error) { panic("kaboom") }

func TestLoop_RecoversPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	requests := make(chan string, 1)
	responses := make(chan Result, 1)
	go Loop(ctx, panicRunner{}, requests, responses)

	requests <- "anything"
	res := <-responses
	assert.Contains(t, res.Err, "kaboom")
}

type memRecorder struct {
	mu   sync.Mutex
	runs []Completion
}

func (m *memRecorder) Record(_ context.Context, c Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, c)
	return nil
}

func (m *memRecorder) all() []Completion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Completion(nil), m.runs...)
}

func newTestWorker(t *testing.T, rec Recorder) *Worker {
	t.Helper()
	w := New(Config{
		Settings: engine.Settings{DefaultImports: true, ExecutionLimit: 200 * time.Millisecond},
		Recorder: rec,
		Logger:   testutil.NewTestLogger(t),
	})
	w.Start(context.Background())
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWorker_Submit(t *testing.T) {
	rec := &memRecorder{}
	w := newTestWorker(t, rec)

	res, err := w.Submit(context.Background(), "draw(circle(1))")
	require.NoError(t, err)
	require.True(t, res.OK(), res.Err)
	assert.Len(t, res.Shapes, 1)
	assert.NotEmpty(t, res.ID)

	res, err = w.SubmitFile(context.Background(), "loop.star", "while True:\n    pass\n")
	require.NoError(t, err)
	assert.Contains(t, res.Err, "exceeded execution limit")

	runs := rec.all()
	require.Len(t, runs, 2)
	assert.Equal(t, 1, runs[0].ShapeCount)
	assert.NoError(t, runs[0].Err)
	assert.Equal(t, "loop.star", runs[1].Name)
	var timeout *engine.TimeoutError
	assert.True(t, errors.As(runs[1].Err, &timeout))
}

func TestWorker_ConcurrentProducers(t *testing.T) {
	w := newTestWorker(t, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := w.Submit(context.Background(), "draw(x)\ndraw(y)")
			if err != nil {
				errs <- err
				return
			}
			if len(res.Shapes) != 2 {
				errs <- errors.New("expected two shapes: " + res.Err)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestWorker_Closed(t *testing.T) {
	w := newTestWorker(t, nil)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err := w.Submit(context.Background(), "draw(x)")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWorker_RunTwice(t *testing.T) {
	w := newTestWorker(t, nil)
	// Start already launched Run; wait until it is marked running.
	require.Eventually(t, w.running.Load, time.Second, time.Millisecond)
	assert.Error(t, w.Run(context.Background()))
}

func TestWorker_ContextCancelled(t *testing.T) {
	w := newTestWorker(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Submit(ctx, "draw(x)")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorker_Eval(t *testing.T) {
	w := newTestWorker(t, nil)

	tr, err := w.Eval(context.Background(), "max(x, y) * 2")
	require.NoError(t, err)
	assert.Equal(t, 8.0, tr.Eval(1, 4, 0))

	_, err = w.Eval(context.Background(), "x < 1")
	var runtimeErr *engine.RuntimeError
	assert.True(t, errors.As(err, &runtimeErr), "got %v", err)
	var unsupported *starctx.UnsupportedOperationError
	assert.True(t, errors.As(err, &unsupported), "got %v", err)
}

func TestWorker_Settings(t *testing.T) {
	w := newTestWorker(t, nil)
	assert.Equal(t, 200*time.Millisecond, w.Settings().ExecutionLimit)
	assert.True(t, w.Settings().DefaultImports)
}
