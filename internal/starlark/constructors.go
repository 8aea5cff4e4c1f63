package starlark

import (
	"github.com/leapstack-labs/fidgetstar/pkg/shapes"
	"github.com/leapstack-labs/fidgetstar/pkg/tree"
	"go.starlark.net/starlark"
)

// constructor builds one shape variant from script arguments.
type constructor struct {
	name      string
	signature string
	build     func(args starlark.Tuple) (shapes.Variant, bool)
}

var constructors = []constructor{
	{
		name:      "circle",
		signature: "1 or 3 arguments: Number [, Number, Number]",
		build: func(args starlark.Tuple) (shapes.Variant, bool) {
			if len(args) != 1 && len(args) != 3 {
				return nil, false
			}
			f, ok := toFloats(args...)
			if !ok {
				return nil, false
			}
			c := shapes.Circle{Radius: f[0]}
			if len(f) == 3 {
				c.Center = shapes.Vec2{X: f[1], Y: f[2]}
			}
			return c, true
		},
	},
	{
		name:      "sphere",
		signature: "1 or 4 arguments: Number [, Number, Number, Number]",
		build: func(args starlark.Tuple) (shapes.Variant, bool) {
			if len(args) != 1 && len(args) != 4 {
				return nil, false
			}
			f, ok := toFloats(args...)
			if !ok {
				return nil, false
			}
			s := shapes.Sphere{Radius: f[0]}
			if len(f) == 4 {
				s.Center = shapes.Vec3{X: f[1], Y: f[2], Z: f[3]}
			}
			return s, true
		},
	},
	{
		name:      "union",
		signature: "2 arguments: Tree|Number, Tree|Number",
		build: func(args starlark.Tuple) (shapes.Variant, bool) {
			t, ok := treeArgs(args, 2)
			if !ok {
				return nil, false
			}
			return shapes.Union{Children: t}, true
		},
	},
	{
		name:      "intersection",
		signature: "2 arguments: Tree|Number, Tree|Number",
		build: func(args starlark.Tuple) (shapes.Variant, bool) {
			t, ok := treeArgs(args, 2)
			if !ok {
				return nil, false
			}
			return shapes.Intersection{Children: t}, true
		},
	},
	{
		name:      "difference",
		signature: "2 arguments: Tree|Number (shape), Tree|Number (cutout)",
		build: func(args starlark.Tuple) (shapes.Variant, bool) {
			t, ok := treeArgs(args, 2)
			if !ok {
				return nil, false
			}
			return shapes.Difference{Shape: t[0], Cutout: t[1]}, true
		},
	},
	{
		name:      "inverse",
		signature: "1 argument: Tree|Number",
		build: func(args starlark.Tuple) (shapes.Variant, bool) {
			t, ok := treeArgs(args, 1)
			if !ok {
				return nil, false
			}
			return shapes.Inverse{Shape: t[0]}, true
		},
	},
	{
		name:      "move",
		signature: "4 arguments: Tree|Number, Number, Number, Number",
		build: func(args starlark.Tuple) (shapes.Variant, bool) {
			shape, v, ok := shapeAndVector(args)
			if !ok {
				return nil, false
			}
			return shapes.Move{Shape: shape, Offset: v}, true
		},
	},
	{
		name:      "scale",
		signature: "4 arguments: Tree|Number, Number, Number, Number",
		build: func(args starlark.Tuple) (shapes.Variant, bool) {
			shape, v, ok := shapeAndVector(args)
			if !ok {
				return nil, false
			}
			return shapes.Scale{Shape: shape, Factors: v}, true
		},
	},
}

func (c constructor) call(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, invalidArgs(b.Name(), c.signature, args, kwargs)
	}
	v, ok := c.build(args)
	if !ok {
		return nil, invalidArgs(b.Name(), c.signature, args, kwargs)
	}
	return NewShape(v), nil
}

func treeArgs(args starlark.Tuple, n int) ([]*tree.Tree, bool) {
	if len(args) != n {
		return nil, false
	}
	out := make([]*tree.Tree, n)
	for i, a := range args {
		t, err := ToTree(a)
		if err != nil {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}

func shapeAndVector(args starlark.Tuple) (*tree.Tree, shapes.Vec3, bool) {
	if len(args) != 4 {
		return nil, shapes.Vec3{}, false
	}
	shape, err := ToTree(args[0])
	if err != nil {
		return nil, shapes.Vec3{}, false
	}
	f, ok := toFloats(args[1:]...)
	if !ok {
		return nil, shapes.Vec3{}, false
	}
	return shape, shapes.Vec3{X: f[0], Y: f[1], Z: f[2]}, true
}
