package engine

import (
	"errors"
	"fmt"
	"time"
)

// ErrBusy is returned when Run or Eval is called while the engine is
// already executing.
var ErrBusy = errors.New("engine is busy")

// CompileError reports a script that failed to parse or resolve.
type CompileError struct {
	Name string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Name, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// TimeoutError reports a script stopped by the execution limit or, when
// Steps is non-zero, by the step budget.
type TimeoutError struct {
	Name  string
	Limit time.Duration
	Steps uint64
}

func (e *TimeoutError) Error() string {
	if e.Steps > 0 {
		return fmt.Sprintf("%s: exceeded step budget of %d", e.Name, e.Steps)
	}
	return fmt.Sprintf("%s: exceeded execution limit of %s", e.Name, e.Limit)
}

// RuntimeError reports any other failure while the script executed. Err
// is usually a *starlark.EvalError; bridge errors raised by builtins are
// reachable from it with errors.As.
type RuntimeError struct {
	Name      string
	Err       error
	Backtrace string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
