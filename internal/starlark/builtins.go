package starlark

import (
	"github.com/leapstack-labs/fidgetstar/pkg/tree"
	"go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// ModuleName is the name scripts use to reach the namespace when default
// imports are disabled.
const ModuleName = "fidget"

// Members returns a new copy of every name the bridge exposes to scripts.
func Members() starlark.StringDict {
	x, y, z := tree.Axes()
	m := starlark.StringDict{
		"x":        NewTree(x),
		"y":        NewTree(y),
		"z":        NewTree(z),
		"axes":     starlark.NewBuiltin("axes", axes),
		"draw":     starlark.NewBuiltin("draw", draw),
		"draw_rgb": starlark.NewBuiltin("draw_rgb", draw),
	}
	register(m)
	for _, c := range constructors {
		m[c.name] = starlark.NewBuiltin(c.name, c.call)
	}
	return m
}

// Predeclared builds the global environment for a script. The fidget
// module and the numeric math module are always present; with
// defaultImports the fidget members are also globals, shadowing universe
// builtins of the same name.
func Predeclared(defaultImports bool) starlark.StringDict {
	members := Members()
	globals := starlark.StringDict{
		ModuleName: &starlarkstruct.Module{Name: ModuleName, Members: members},
		"math":     math.Module,
	}
	if defaultImports {
		for name, v := range members {
			globals[name] = v
		}
	}
	return globals
}
