package starlark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperators(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		x, y, z float64
		want    float64
	}{
		{"add", "x + y", 1, 2, 0, 3},
		{"sub", "x - y", 1, 2, 0, -1},
		{"mul", "x * 3", 2, 0, 0, 6},
		{"div", "x / 4", 2, 0, 0, 0.5},
		{"mod", "x % 3", -1, 0, 0, 2},
		{"floordiv", "x // 2", 3, 0, 0, 1},
		{"right sub", "2 - x", 5, 0, 0, -3},
		{"right div", "1 / x", 4, 0, 0, 0.25},
		{"float left", "1.5 * y", 0, 2, 0, 3},
		{"neg", "-x", 4, 0, 0, -4},
		{"plus", "+z", 0, 0, 7, 7},
		{"nested", "(x + 2) * (y - 1)", 1, 3, 0, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			globals, _, err := exec(t, "r = "+tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, evalAt(t, globals["r"], tt.x, tt.y, tt.z), 1e-12)
		})
	}
}

func TestOperatorsPreserveOperands(t *testing.T) {
	globals, _, err := exec(t, "a = x\nb = a + 1\n")
	require.NoError(t, err)
	assert.Equal(t, "x", globals["a"].(*Shape).Tree().String())
	assert.Equal(t, "(add x 1)", globals["b"].(*Shape).Tree().String())
}

func TestCompoundAssignmentRebinds(t *testing.T) {
	globals, _, err := exec(t, "a = x\nb = a\nb += 1\n")
	require.NoError(t, err)
	assert.Equal(t, "x", globals["a"].(*Shape).Tree().String())
	assert.InDelta(t, 3.0, evalAt(t, globals["b"], 2, 0, 0), 1e-12)

	// Other names keep the value they were bound to.
	globals, _, err = exec(t, "a = x\nb = a\na += 1\n")
	require.NoError(t, err)
	assert.Equal(t, "x", globals["b"].(*Shape).Tree().String())
	assert.Equal(t, "(add x 1)", globals["a"].(*Shape).Tree().String())
}

func TestUnsupportedOperatorsFallThrough(t *testing.T) {
	_, _, err := exec(t, "r = x | y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown binary op")
}
