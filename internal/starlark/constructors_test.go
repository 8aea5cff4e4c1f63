package starlark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		src     string
		kind    string
		x, y, z float64
		want    float64
	}{
		{"circle(1)", "Circle", 3, 0, 0, 2},
		{"circle(1, 2, 0)", "Circle", 2, 0, 0, -1},
		{"sphere(2)", "Sphere", 0, 0, 3, 1},
		{"union(circle(1), circle(1, 3, 0))", "Union", 3, 0, 0, -1},
		{"intersection(x, y)", "Intersection", 1, 2, 0, 2},
		{"difference(circle(2), circle(1))", "Difference", 0, 0, 0, 1},
		{"inverse(x)", "Inverse", 2, 0, 0, -2},
		{"move(circle(1), 5, 0, 0)", "Move", 5, 0, 0, -1},
		{"scale(x, 2, 1, 1)", "Scale", 4, 0, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			globals, _, err := exec(t, "r = "+tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, globals["r"].Type())
			assert.InDelta(t, tt.want, evalAt(t, globals["r"], tt.x, tt.y, tt.z), 1e-12)
		})
	}
}

func TestShapesComposeWithOperators(t *testing.T) {
	globals, _, err := exec(t, "r = circle(1) + 1")
	require.NoError(t, err)
	assert.Equal(t, "Tree", globals["r"].Type())
	assert.InDelta(t, 3.0, evalAt(t, globals["r"], 3, 0, 0), 1e-12)
}
