package starlark

import (
	"github.com/leapstack-labs/fidgetstar/pkg/tree"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// binaryOps maps the arithmetic operators scripts may apply to Tree-like
// values onto kernel operations.
var binaryOps = map[syntax.Token]func(a, b *tree.Tree) *tree.Tree{
	syntax.PLUS:    (*tree.Tree).Add,
	syntax.MINUS:   (*tree.Tree).Sub,
	syntax.STAR:    (*tree.Tree).Mul,
	syntax.SLASH:   (*tree.Tree).Div,
	syntax.PERCENT: (*tree.Tree).Mod,
	syntax.SLASHSLASH: func(a, b *tree.Tree) *tree.Tree {
		return a.Div(b).Floor()
	},
}

// ApplyBinary coerces both operands and applies op, keeping lhs on the
// left. A number on either side becomes a constant leaf in that position.
func ApplyBinary(op syntax.Token, lhs, rhs starlark.Value) (starlark.Value, error) {
	fn, ok := binaryOps[op]
	if !ok {
		return nil, &UnsupportedOperationError{Op: op.String(), Message: "operator is not defined for Tree values"}
	}
	a, err := ToTree(lhs)
	if err != nil {
		return nil, err
	}
	b, err := ToTree(rhs)
	if err != nil {
		return nil, err
	}
	return NewTree(fn(a, b)), nil
}
