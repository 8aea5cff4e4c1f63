// Package starlark bridges the Starlark runtime and the shape/tree
// kernel: it defines the script-visible Shape value, coercion of dynamic
// values into trees, operator and function dispatch, shape constructors
// and the draw capture.
//
// Comparisons: ordered operators on a Tree-like value always fail with
// CompareBanMessage, as do == and != between two Tree-like values. The
// runtime never consults a value for == or != against a value of another
// type; it decides by identity, so x == 1 is False and x != 1 is True.
package starlark

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/fidgetstar/pkg/shapes"
	"github.com/leapstack-labs/fidgetstar/pkg/tree"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Shape is the Starlark value for every Tree-like object: a bare Tree or
// any shape variant. All variants share this one Go type, so the runtime
// routes every comparison between two of them through CompareSameType.
//
// A Shape is immutable. Compound assignment (t += 1) evaluates t + 1 and
// rebinds t to the new value, so other names bound to the old value keep
// seeing it: after b = a; a += 1, b is still the original tree.
type Shape struct {
	variant shapes.Variant
}

var (
	_ starlark.Value      = (*Shape)(nil)
	_ starlark.HasBinary  = (*Shape)(nil)
	_ starlark.HasUnary   = (*Shape)(nil)
	_ starlark.Comparable = (*Shape)(nil)
	_ starlark.HasAttrs   = (*Shape)(nil)
)

// NewShape wraps a shape variant.
func NewShape(v shapes.Variant) *Shape { return &Shape{variant: v} }

// NewTree wraps a bare expression tree.
func NewTree(t *tree.Tree) *Shape { return &Shape{variant: shapes.TreeShape{Tree: t}} }

// Variant returns the wrapped variant.
func (s *Shape) Variant() shapes.Variant { return s.variant }

// Tree lowers the wrapped variant.
func (s *Shape) Tree() *tree.Tree { return shapes.ToTree(s.variant) }

func (s *Shape) String() string        { return shapes.Describe(s.variant) }
func (s *Shape) Type() string          { return s.variant.Kind() }
func (s *Shape) Freeze()               {}
func (s *Shape) Truth() starlark.Bool  { return starlark.True }
func (s *Shape) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: %s", s.Type()) }

// Binary implements the arithmetic operators. side tells which operand s
// was; the other operand keeps its original position.
func (s *Shape) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	if _, ok := binaryOps[op]; !ok {
		return nil, nil
	}
	if side == starlark.Left {
		return ApplyBinary(op, s, y)
	}
	return ApplyBinary(op, y, s)
}

// Unary implements unary minus and plus.
func (s *Shape) Unary(op syntax.Token) (starlark.Value, error) {
	switch op {
	case syntax.MINUS:
		return NewTree(s.Tree().Neg()), nil
	case syntax.PLUS:
		return s, nil
	}
	return nil, nil
}

// CompareSameType always fails: comparing symbolic expressions while the
// graph is being built is a script error.
func (s *Shape) CompareSameType(op syntax.Token, _ starlark.Value, _ int) (bool, error) {
	return false, &UnsupportedOperationError{Op: op.String(), Message: CompareBanMessage}
}

// Attr returns the bound method called name, or (nil, nil).
func (s *Shape) Attr(name string) (starlark.Value, error) {
	m, ok := methods[name]
	if !ok {
		return nil, nil
	}
	return m.BindReceiver(s), nil
}

// AttrNames lists the methods available on every Tree-like value.
func (s *Shape) AttrNames() []string { return methodNames }

// IsShapeType reports whether name is the Type() of some Shape value.
func IsShapeType(name string) bool {
	_, ok := shapeTypes[name]
	return ok
}

var shapeTypes = map[string]struct{}{
	shapes.TreeShape{}.Kind():    {},
	shapes.Circle{}.Kind():       {},
	shapes.Sphere{}.Kind():       {},
	shapes.Union{}.Kind():        {},
	shapes.Intersection{}.Kind(): {},
	shapes.Difference{}.Kind():   {},
	shapes.Inverse{}.Kind():      {},
	shapes.Move{}.Kind():         {},
	shapes.Scale{}.Kind():        {},
}

var (
	methods     map[string]*starlark.Builtin
	methodNames []string
)

func init() {
	methods = make(map[string]*starlark.Builtin)
	for _, f := range mathFunctions {
		methods[f.name] = starlark.NewBuiltin(f.name, asMethod(f.call, f.methodSignature()))
	}
	methods["pow"] = starlark.NewBuiltin("pow", asMethod(callPow, "1 argument: Int"))
	methods["remap_xyz"] = starlark.NewBuiltin("remap_xyz", asMethod(callRemapXYZ, "3 arguments: Tree|Number, Tree|Number, Tree|Number"))
	methods["tree"] = starlark.NewBuiltin("tree", asMethod(callTree, "0 arguments"))

	for name := range methods {
		methodNames = append(methodNames, name)
	}
	sort.Strings(methodNames)
}

type builtinFunc = func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

// asMethod adapts a free function to a method by prepending the receiver
// to the arguments. Argument errors name the method signature instead of
// the free-function one.
func asMethod(fn builtinFunc, signature string) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		full := make(starlark.Tuple, 0, len(args)+1)
		full = append(full, b.Receiver())
		full = append(full, args...)
		v, err := fn(thread, b, full, kwargs)
		if ia, ok := err.(*InvalidArgumentsError); ok {
			ia.Func = b.Receiver().Type() + "." + b.Name()
			ia.Expected = signature
			ia.Got = ia.Got[1:]
		}
		return v, err
	}
}
