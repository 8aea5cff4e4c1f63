package starlark

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/fidgetstar/pkg/tree"
	"go.starlark.net/starlark"
)

// mathFunction is one row of the function table: a script name bound to
// a kernel operation of the matching arity.
type mathFunction struct {
	name  string
	arity int
	op    tree.Op
}

// and, or and not are Starlark keywords, hence the logical_ prefix.
var mathFunctions = []mathFunction{
	{"abs", 1, tree.OpAbs},
	{"sqrt", 1, tree.OpSqrt},
	{"square", 1, tree.OpSquare},
	{"sin", 1, tree.OpSin},
	{"cos", 1, tree.OpCos},
	{"tan", 1, tree.OpTan},
	{"asin", 1, tree.OpAsin},
	{"acos", 1, tree.OpAcos},
	{"atan", 1, tree.OpAtan},
	{"exp", 1, tree.OpExp},
	{"ln", 1, tree.OpLn},
	{"logical_not", 1, tree.OpNot},
	{"ceil", 1, tree.OpCeil},
	{"floor", 1, tree.OpFloor},
	{"round", 1, tree.OpRound},
	{"neg", 1, tree.OpNeg},

	{"min", 2, tree.OpMin},
	{"max", 2, tree.OpMax},
	{"compare", 2, tree.OpCompare},
	{"atan2", 2, tree.OpAtan2},
	{"logical_and", 2, tree.OpAnd},
	{"logical_or", 2, tree.OpOr},
}

func (f mathFunction) signature() string { return argumentList(f.arity) }

func (f mathFunction) methodSignature() string { return argumentList(f.arity - 1) }

func argumentList(n int) string {
	switch n {
	case 0:
		return "0 arguments"
	case 1:
		return "1 argument: " + treeOrNumber
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = treeOrNumber
	}
	return fmt.Sprintf("%d arguments: %s", n, strings.Join(parts, ", "))
}

func (f mathFunction) call(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 || len(args) != f.arity {
		return nil, invalidArgs(b.Name(), f.signature(), args, kwargs)
	}
	trees := make([]*tree.Tree, len(args))
	for i, a := range args {
		t, err := ToTree(a)
		if err != nil {
			return nil, invalidArgs(b.Name(), f.signature(), args, kwargs)
		}
		trees[i] = t
	}
	if f.arity == 1 {
		return NewTree(trees[0].Unary(f.op)), nil
	}
	return NewTree(trees[0].Binary(f.op, trees[1])), nil
}

// register installs every table entry into dict.
func register(dict starlark.StringDict) {
	for _, f := range mathFunctions {
		dict[f.name] = starlark.NewBuiltin(f.name, f.call)
	}
	dict["pow"] = starlark.NewBuiltin("pow", callPow)
	dict["remap_xyz"] = starlark.NewBuiltin("remap_xyz", callRemapXYZ)
}

func callPow(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 || len(args) != 2 {
		return nil, invalidArgs(b.Name(), "2 arguments: Tree|Number, Int", args, kwargs)
	}
	base, err := ToTree(args[0])
	if err != nil {
		return nil, invalidArgs(b.Name(), "2 arguments: Tree|Number, Int", args, kwargs)
	}
	n, err := toExponent(args[1])
	if err != nil {
		return nil, err
	}
	return NewTree(base.Pow(n)), nil
}

func callRemapXYZ(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	const sig = "4 arguments: Tree|Number, Tree|Number, Tree|Number, Tree|Number"
	if len(kwargs) > 0 || len(args) != 4 {
		return nil, invalidArgs(b.Name(), sig, args, kwargs)
	}
	trees := make([]*tree.Tree, 4)
	for i, a := range args {
		t, err := ToTree(a)
		if err != nil {
			return nil, invalidArgs(b.Name(), sig, args, kwargs)
		}
		trees[i] = t
	}
	return NewTree(trees[0].RemapXYZ(trees[1], trees[2], trees[3])), nil
}

func callTree(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 || len(args) != 1 {
		return nil, invalidArgs(b.Name(), "1 argument: Tree|Number", args, kwargs)
	}
	t, err := ToTree(args[0])
	if err != nil {
		return nil, err
	}
	return NewTree(t), nil
}

func axes(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 || len(kwargs) > 0 {
		return nil, invalidArgs(b.Name(), "0 arguments", args, kwargs)
	}
	x, y, z := tree.Axes()
	return starlark.Tuple{NewTree(x), NewTree(y), NewTree(z)}, nil
}
