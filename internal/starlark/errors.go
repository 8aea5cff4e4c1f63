package starlark

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// CompareBanMessage is the message of the error raised for any relational
// operator applied to a Tree-like value, and for == or != between two
// Tree-like values. Equality against a number or string is decided by
// identity and never raises.
const CompareBanMessage = "cannot compare Tree types during function tracing"

// TypeMismatchError reports a value that did not coerce to the expected
// Tree, number or shape.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// InvalidArgumentsError reports a builtin called with the wrong arity or
// argument combination.
type InvalidArgumentsError struct {
	Func     string
	Expected string
	Got      []string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("%s: invalid arguments (%s), expected %s", e.Func, strings.Join(e.Got, ", "), e.Expected)
}

// UnsupportedOperationError reports an operation that is never allowed
// on Tree-like values.
type UnsupportedOperationError struct {
	Op      string
	Message string
}

func (e *UnsupportedOperationError) Error() string {
	if e.Op == "" {
		return "unsupported operation: " + e.Message
	}
	return fmt.Sprintf("unsupported operation %s: %s", e.Op, e.Message)
}

func invalidArgs(fn, expected string, args starlark.Tuple, kwargs []starlark.Tuple) error {
	got := make([]string, 0, len(args)+len(kwargs))
	for _, a := range args {
		got = append(got, a.Type())
	}
	for _, kv := range kwargs {
		got = append(got, fmt.Sprintf("%s=%s", kv[0], kv[1].Type()))
	}
	return &InvalidArgumentsError{Func: fn, Expected: expected, Got: got}
}
