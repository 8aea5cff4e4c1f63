package starlark

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctions(t *testing.T) {
	tests := []struct {
		expr    string
		x, y    float64
		want    float64
	}{
		{"abs(x)", -3, 0, 3},
		{"sqrt(x)", 9, 0, 3},
		{"square(x)", -3, 0, 9},
		{"min(x, y)", 1, 2, 1},
		{"max(x, 5)", 1, 0, 5},
		{"compare(x, y)", 1, 2, -1},
		{"atan2(y, x)", 1, 0, 0},
		{"logical_and(x, y)", 0, 2, 0},
		{"logical_or(x, y)", 0, 2, 2},
		{"logical_not(x)", 0, 0, 1},
		{"floor(x)", 1.7, 0, 1},
		{"neg(x)", 1, 0, -1},
		{"pow(x, 3)", 2, 0, 8},
		{"pow(x, -1)", 4, 0, 0.25},
		{"pow(x, 2.0)", 3, 0, 9},
		{"x.abs()", -2, 0, 2},
		{"x.min(y)", 4, 2, 2},
		{"x.pow(2)", 5, 0, 25},
		{"circle(1).tree()", 3, 0, 2},
		{"x.remap_xyz(y, x, z)", 1, 7, 7},
		{"remap_xyz(x + y, y, x, z)", 1, 2, 3},
		{"fidget.max(x, y)", 1, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			globals, _, err := exec(t, "r = "+tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, evalAt(t, globals["r"], tt.x, tt.y, 0), 1e-12)
		})
	}
}

func TestFunctionArgumentErrors(t *testing.T) {
	tests := []struct {
		src      string
		fn       string
		expected string
	}{
		{"min(x)", "min", "2 arguments: Tree|Number, Tree|Number"},
		{"abs('a')", "abs", "1 argument: Tree|Number"},
		{"x.min()", "Tree.min", "1 argument: Tree|Number"},
		{"x.sqrt(1)", "Tree.sqrt", "0 arguments"},
		{"circle('a')", "circle", "1 or 3 arguments: Number [, Number, Number]"},
		{"move(x, 1, 2)", "move", "4 arguments: Tree|Number, Number, Number, Number"},
		{"union(x, 'a')", "union", "2 arguments: Tree|Number, Tree|Number"},
		{"draw()", "draw", "1 argument: Tree|Number, or 4 arguments: Tree|Number, Number, Number, Number"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, _, err := exec(t, "r = "+tt.src)
			var invalid *InvalidArgumentsError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.fn, invalid.Func)
			assert.Equal(t, tt.expected, invalid.Expected)
		})
	}
}

func TestPowRejectsFractionalExponent(t *testing.T) {
	_, _, err := exec(t, "r = pow(x, 1.5)")
	var mismatch *TypeMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, "Int", mismatch.Expected)
}
