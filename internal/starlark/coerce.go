package starlark

import (
	"math"

	"github.com/leapstack-labs/fidgetstar/pkg/tree"
	"go.starlark.net/starlark"
)

// treeOrNumber is the expected-type description for coercible values.
const treeOrNumber = "Tree|Number"

// ToTree coerces a number or Tree-like value into a tree. Numbers become
// constant leaves. It never modifies v.
func ToTree(v starlark.Value) (*tree.Tree, error) {
	switch v := v.(type) {
	case *Shape:
		return v.Tree(), nil
	case starlark.Int, starlark.Float:
		f, _ := starlark.AsFloat(v)
		return tree.Constant(f), nil
	}
	return nil, &TypeMismatchError{Expected: treeOrNumber, Got: v.Type()}
}

// toFloat converts a required scalar argument. Shapes and bools are not
// scalars.
func toFloat(v starlark.Value) (float64, bool) {
	switch v.(type) {
	case starlark.Int, starlark.Float:
		return starlark.AsFloat(v)
	}
	return 0, false
}

// toFloats converts every value, failing on the first non-scalar.
func toFloats(vs ...starlark.Value) ([]float64, bool) {
	out := make([]float64, len(vs))
	for i, v := range vs {
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// toExponent converts a power exponent. Integral floats are accepted.
func toExponent(v starlark.Value) (int64, error) {
	switch v := v.(type) {
	case starlark.Int:
		if n, ok := v.Int64(); ok {
			return n, nil
		}
	case starlark.Float:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
	}
	return 0, &TypeMismatchError{Expected: "Int", Got: describeValue(v)}
}

func describeValue(v starlark.Value) string {
	if f, ok := v.(starlark.Float); ok {
		return "non-integer " + f.Type() + " " + f.String()
	}
	return v.Type()
}
