// Package engine compiles and runs shape scripts. A run clears the draw
// capture, compiles the script, executes it under a time limit and
// harvests the shapes it drew.
package engine

import (
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	starctx "github.com/leapstack-labs/fidgetstar/internal/starlark"
	"github.com/leapstack-labs/fidgetstar/pkg/tree"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// DefaultExecutionLimit bounds a run when Settings leaves it unset.
const DefaultExecutionLimit = time.Second

// Settings configures an Engine.
type Settings struct {
	// DefaultImports installs the fidget members as globals in addition
	// to the fidget module.
	DefaultImports bool
	// ExecutionLimit is the wall-clock budget for one Run or Eval.
	ExecutionLimit time.Duration
	// MaxSteps bounds the number of interpreter steps; 0 means no bound.
	MaxSteps uint64
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// DefaultSettings returns default imports on and a one second limit.
func DefaultSettings() Settings {
	return Settings{DefaultImports: true, ExecutionLimit: DefaultExecutionLimit}
}

// State is the lifecycle phase of an Engine.
type State int32

// Engine lifecycle states.
const (
	StateIdle State = iota
	StateClearing
	StateCompiling
	StateExecuting
	StateHarvesting
)

var stateNames = [...]string{"idle", "clearing", "compiling", "executing", "harvesting"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

var fileOptions = &syntax.FileOptions{
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

const cancelReason = "execution limit exceeded"

// Engine runs one script at a time against a fixed namespace.
type Engine struct {
	mu       sync.Mutex
	state    atomic.Int32
	settings Settings
	logger   *slog.Logger
	globals  starlark.StringDict
	capture  *starctx.Capture
}

// New creates an engine. A non-positive ExecutionLimit becomes
// DefaultExecutionLimit.
func New(settings Settings) *Engine {
	if settings.ExecutionLimit <= 0 {
		settings.ExecutionLimit = DefaultExecutionLimit
	}
	logger := settings.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		settings: settings,
		logger:   logger,
		globals:  starctx.Predeclared(settings.DefaultImports),
		capture:  starctx.NewCapture(),
	}
}

// Settings returns the settings the engine was built with.
func (e *Engine) Settings() Settings { return e.settings }

// State returns the current lifecycle phase.
func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) setState(s State) { e.state.Store(int32(s)) }

// Run executes script and returns the shapes it drew, in draw order.
func (e *Engine) Run(script string) ([]starctx.DrawShape, error) {
	return e.RunFile("<script>", script)
}

// RunFile is Run with a file name for diagnostics. After any error the
// capture is empty and the engine is idle.
func (e *Engine) RunFile(name, script string) ([]starctx.DrawShape, error) {
	if !e.mu.TryLock() {
		return nil, ErrBusy
	}
	defer e.mu.Unlock()
	defer e.setState(StateIdle)

	e.setState(StateClearing)
	e.capture.Reset()

	e.setState(StateCompiling)
	e.logger.Debug("compiling script", "name", name)
	_, prog, err := starlark.SourceProgramOptions(fileOptions, name, script, e.globals.Has)
	if err != nil {
		return nil, &CompileError{Name: name, Err: err}
	}

	e.setState(StateExecuting)
	e.logger.Debug("executing script", "name", name)
	thread := starctx.NewThread(name, e.logger)
	starctx.AttachCapture(thread, e.capture)
	g := e.guard(thread)
	_, err = prog.Init(thread, e.globals)
	g.stop()
	if err != nil {
		e.capture.Reset()
		return nil, e.classify(name, err, g)
	}

	e.setState(StateHarvesting)
	drawn := e.capture.Take()
	e.logger.Debug("harvested shapes", "name", name, "count", len(drawn))
	return drawn, nil
}

// Eval evaluates a single expression and coerces the result to a tree.
// Drawing is not available during Eval.
func (e *Engine) Eval(expr string) (*tree.Tree, error) {
	if !e.mu.TryLock() {
		return nil, ErrBusy
	}
	defer e.mu.Unlock()
	defer e.setState(StateIdle)

	const name = "<expr>"
	e.setState(StateCompiling)
	fn, err := starlark.ExprFuncOptions(fileOptions, name, expr, e.globals)
	if err != nil {
		return nil, &CompileError{Name: name, Err: err}
	}

	e.setState(StateExecuting)
	thread := starctx.NewThread(name, e.logger)
	g := e.guard(thread)
	v, err := starlark.Call(thread, fn, nil, nil)
	g.stop()
	if err != nil {
		return nil, e.classify(name, err, g)
	}
	return starctx.ToTree(v)
}

// Eval evaluates expr on a fresh engine with default settings.
func Eval(expr string) (*tree.Tree, error) {
	return New(DefaultSettings()).Eval(expr)
}

// guard arms the wall-clock limit and step budget for one execution.
type guard struct {
	timer    *time.Timer
	timedOut atomic.Bool
	outOfGas atomic.Bool
}

func (e *Engine) guard(thread *starlark.Thread) *guard {
	g := &guard{}
	if e.settings.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(e.settings.MaxSteps)
		thread.OnMaxSteps = func(th *starlark.Thread) {
			g.outOfGas.Store(true)
			th.Cancel("too many steps")
		}
	}
	g.timer = time.AfterFunc(e.settings.ExecutionLimit, func() {
		g.timedOut.Store(true)
		thread.Cancel(cancelReason)
	})
	return g
}

func (g *guard) stop() { g.timer.Stop() }

var comparisonPattern = regexp.MustCompile(`^(\S+) (<|<=|>|>=) (\S+) not implemented$`)

func (e *Engine) classify(name string, err error, g *guard) error {
	switch {
	case g.outOfGas.Load():
		e.logger.Warn("script exceeded step budget", "name", name, "steps", e.settings.MaxSteps)
		return &TimeoutError{Name: name, Limit: e.settings.ExecutionLimit, Steps: e.settings.MaxSteps}
	case g.timedOut.Load():
		e.logger.Warn("script timed out", "name", name, "limit", e.settings.ExecutionLimit)
		return &TimeoutError{Name: name, Limit: e.settings.ExecutionLimit}
	}

	rerr := &RuntimeError{Name: name, Err: err}
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		rerr.Backtrace = evalErr.Backtrace()
		if op, ok := treeComparison(evalErr.Msg); ok {
			rerr.Err = &starctx.UnsupportedOperationError{Op: op, Message: starctx.CompareBanMessage}
		}
	}
	e.logger.Debug("script failed", "name", name, "error", rerr.Err)
	return rerr
}

// treeComparison recognizes the runtime's error for an ordered comparison
// between a Tree-like value and some other type.
func treeComparison(msg string) (string, bool) {
	m := comparisonPattern.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	if !starctx.IsShapeType(m[1]) && !starctx.IsShapeType(m[3]) {
		return "", false
	}
	return m[2], true
}
