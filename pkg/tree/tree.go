// Package tree implements the symbolic expression graph consumed by the
// geometry kernel.
//
// A Tree is an immutable node in a shared DAG. Operations never modify
// their receivers; they allocate a new node that points at its operands,
// so subgraphs are shared freely between trees. No simplification is
// performed: the graph records exactly the operations that were applied.
package tree

import (
	"math"
	"strconv"
	"strings"
)

// Op identifies the operation stored in a node.
type Op uint8

const (
	OpX Op = iota
	OpY
	OpZ
	OpConst

	// unary
	OpNeg
	OpAbs
	OpSqrt
	OpSquare
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan
	OpExp
	OpLn
	OpNot
	OpCeil
	OpFloor
	OpRound

	// binary
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpMin
	OpMax
	OpCompare
	OpAnd
	OpOr
	OpAtan2
)

var opNames = [...]string{
	OpX:       "x",
	OpY:       "y",
	OpZ:       "z",
	OpConst:   "const",
	OpNeg:     "neg",
	OpAbs:     "abs",
	OpSqrt:    "sqrt",
	OpSquare:  "square",
	OpSin:     "sin",
	OpCos:     "cos",
	OpTan:     "tan",
	OpAsin:    "asin",
	OpAcos:    "acos",
	OpAtan:    "atan",
	OpExp:     "exp",
	OpLn:      "ln",
	OpNot:     "not",
	OpCeil:    "ceil",
	OpFloor:   "floor",
	OpRound:   "round",
	OpAdd:     "add",
	OpSub:     "sub",
	OpMul:     "mul",
	OpDiv:     "div",
	OpMod:     "mod",
	OpMin:     "min",
	OpMax:     "max",
	OpCompare: "compare",
	OpAnd:     "and",
	OpOr:      "or",
	OpAtan2:   "atan2",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// IsUnary reports whether the op takes exactly one operand.
func (o Op) IsUnary() bool { return o >= OpNeg && o <= OpRound }

// IsBinary reports whether the op takes two operands.
func (o Op) IsBinary() bool { return o >= OpAdd && o <= OpAtan2 }

// Tree is an immutable expression node.
type Tree struct {
	op    Op
	value float64
	lhs   *Tree
	rhs   *Tree
}

var (
	axisX = &Tree{op: OpX}
	axisY = &Tree{op: OpY}
	axisZ = &Tree{op: OpZ}
)

// X returns the x axis variable.
func X() *Tree { return axisX }

// Y returns the y axis variable.
func Y() *Tree { return axisY }

// Z returns the z axis variable.
func Z() *Tree { return axisZ }

// Axes returns the three axis variables.
func Axes() (x, y, z *Tree) { return axisX, axisY, axisZ }

// Constant returns a leaf holding v.
func Constant(v float64) *Tree { return &Tree{op: OpConst, value: v} }

// Op returns the node's operation.
func (t *Tree) Op() Op { return t.op }

// Value returns the constant held by an OpConst node.
func (t *Tree) Value() (float64, bool) {
	if t.op != OpConst {
		return 0, false
	}
	return t.value, true
}

// Operands returns the node's children; nil for leaves.
func (t *Tree) Operands() (lhs, rhs *Tree) { return t.lhs, t.rhs }

// Unary applies a unary op. It panics if op is not unary.
func (t *Tree) Unary(op Op) *Tree {
	if !op.IsUnary() {
		panic("tree: " + op.String() + " is not a unary op")
	}
	return &Tree{op: op, lhs: t}
}

// Binary applies a binary op with t on the left. It panics if op is not
// binary.
func (t *Tree) Binary(op Op, rhs *Tree) *Tree {
	if !op.IsBinary() {
		panic("tree: " + op.String() + " is not a binary op")
	}
	return &Tree{op: op, lhs: t, rhs: rhs}
}

func (t *Tree) Neg() *Tree    { return t.Unary(OpNeg) }
func (t *Tree) Abs() *Tree    { return t.Unary(OpAbs) }
func (t *Tree) Sqrt() *Tree   { return t.Unary(OpSqrt) }
func (t *Tree) Square() *Tree { return t.Unary(OpSquare) }
func (t *Tree) Sin() *Tree    { return t.Unary(OpSin) }
func (t *Tree) Cos() *Tree    { return t.Unary(OpCos) }
func (t *Tree) Tan() *Tree    { return t.Unary(OpTan) }
func (t *Tree) Asin() *Tree   { return t.Unary(OpAsin) }
func (t *Tree) Acos() *Tree   { return t.Unary(OpAcos) }
func (t *Tree) Atan() *Tree   { return t.Unary(OpAtan) }
func (t *Tree) Exp() *Tree    { return t.Unary(OpExp) }
func (t *Tree) Ln() *Tree     { return t.Unary(OpLn) }
func (t *Tree) Not() *Tree    { return t.Unary(OpNot) }
func (t *Tree) Ceil() *Tree   { return t.Unary(OpCeil) }
func (t *Tree) Floor() *Tree  { return t.Unary(OpFloor) }
func (t *Tree) Round() *Tree  { return t.Unary(OpRound) }

func (t *Tree) Add(o *Tree) *Tree     { return t.Binary(OpAdd, o) }
func (t *Tree) Sub(o *Tree) *Tree     { return t.Binary(OpSub, o) }
func (t *Tree) Mul(o *Tree) *Tree     { return t.Binary(OpMul, o) }
func (t *Tree) Div(o *Tree) *Tree     { return t.Binary(OpDiv, o) }
func (t *Tree) Mod(o *Tree) *Tree     { return t.Binary(OpMod, o) }
func (t *Tree) Min(o *Tree) *Tree     { return t.Binary(OpMin, o) }
func (t *Tree) Max(o *Tree) *Tree     { return t.Binary(OpMax, o) }
func (t *Tree) Compare(o *Tree) *Tree { return t.Binary(OpCompare, o) }
func (t *Tree) And(o *Tree) *Tree     { return t.Binary(OpAnd, o) }
func (t *Tree) Or(o *Tree) *Tree      { return t.Binary(OpOr, o) }
func (t *Tree) Atan2(o *Tree) *Tree   { return t.Binary(OpAtan2, o) }

// Pow raises t to an integer power by repeated squaring. Negative
// exponents produce the reciprocal.
func (t *Tree) Pow(n int64) *Tree {
	switch {
	case n == 0:
		return Constant(1)
	case n < 0:
		return Constant(1).Div(t.Pow(-n))
	}
	var result *Tree
	base := t
	for n > 0 {
		if n&1 == 1 {
			if result == nil {
				result = base
			} else {
				result = result.Mul(base)
			}
		}
		n >>= 1
		if n > 0 {
			base = base.Square()
		}
	}
	return result
}

// RemapXYZ returns a copy of t with every x, y and z leaf replaced by the
// given trees. Shared subgraphs stay shared in the result.
func (t *Tree) RemapXYZ(x, y, z *Tree) *Tree {
	seen := make(map[*Tree]*Tree)
	var remap func(n *Tree) *Tree
	remap = func(n *Tree) *Tree {
		if out, ok := seen[n]; ok {
			return out
		}
		var out *Tree
		switch {
		case n.op == OpX:
			out = x
		case n.op == OpY:
			out = y
		case n.op == OpZ:
			out = z
		case n.op == OpConst:
			out = n
		case n.op.IsUnary():
			out = &Tree{op: n.op, lhs: remap(n.lhs)}
		default:
			out = &Tree{op: n.op, lhs: remap(n.lhs), rhs: remap(n.rhs)}
		}
		seen[n] = out
		return out
	}
	return remap(t)
}

// String renders the tree as an s-expression. Interior nodes reached
// more than once are printed once, as let bindings named _0, _1, ...,
// so the output grows with the number of distinct nodes rather than
// with the number of paths through the graph:
//
//	(let ((_0 (add x 1))) (mul _0 _0))
func (t *Tree) String() string {
	var b strings.Builder
	shared := t.shared()
	if len(shared) == 0 {
		t.write(&b, nil)
		return b.String()
	}

	names := make(map[*Tree]string, len(shared))
	b.WriteString("(let (")
	for i, n := range shared {
		if i > 0 {
			b.WriteByte(' ')
		}
		name := "_" + strconv.Itoa(i)
		b.WriteByte('(')
		b.WriteString(name)
		b.WriteByte(' ')
		n.write(&b, names)
		b.WriteByte(')')
		names[n] = name
	}
	b.WriteString(") ")
	t.write(&b, names)
	b.WriteByte(')')
	return b.String()
}

// shared returns the interior nodes with more than one parent, children
// before parents.
func (t *Tree) shared() []*Tree {
	refs := make(map[*Tree]int)
	var order []*Tree
	var visit func(n *Tree)
	visit = func(n *Tree) {
		for _, c := range [2]*Tree{n.lhs, n.rhs} {
			if c == nil {
				continue
			}
			refs[c]++
			if refs[c] == 1 {
				visit(c)
			}
		}
		order = append(order, n)
	}
	visit(t)

	var out []*Tree
	for _, n := range order {
		if refs[n] > 1 && n.lhs != nil {
			out = append(out, n)
		}
	}
	return out
}

// write renders t, printing the bound name of any child found in names.
func (t *Tree) write(b *strings.Builder, names map[*Tree]string) {
	switch {
	case t.op == OpX, t.op == OpY, t.op == OpZ:
		b.WriteString(t.op.String())
	case t.op == OpConst:
		b.WriteString(formatFloat(t.value))
	default:
		b.WriteByte('(')
		b.WriteString(t.op.String())
		for _, c := range [2]*Tree{t.lhs, t.rhs} {
			if c == nil {
				continue
			}
			b.WriteByte(' ')
			if name, ok := names[c]; ok {
				b.WriteString(name)
			} else {
				c.write(b, names)
			}
		}
		b.WriteByte(')')
	}
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
