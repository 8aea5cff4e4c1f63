package tree

import "math"

type instr struct {
	op    Op
	value float64
	a, b  int
}

// Tape is a tree flattened into evaluation order. Each distinct node of
// the DAG appears once, so shared subgraphs are computed once per point.
// A Tape is safe for concurrent use; evaluation state lives on the stack
// of each call.
type Tape struct {
	instrs []instr
}

// Compile flattens t into a Tape.
func Compile(t *Tree) *Tape {
	index := make(map[*Tree]int)
	tape := &Tape{}
	var visit func(n *Tree) int
	visit = func(n *Tree) int {
		if i, ok := index[n]; ok {
			return i
		}
		in := instr{op: n.op, value: n.value, a: -1, b: -1}
		if n.lhs != nil {
			in.a = visit(n.lhs)
		}
		if n.rhs != nil {
			in.b = visit(n.rhs)
		}
		i := len(tape.instrs)
		tape.instrs = append(tape.instrs, in)
		index[n] = i
		return i
	}
	visit(t)
	return tape
}

// Len returns the number of distinct nodes in the tape.
func (t *Tape) Len() int { return len(t.instrs) }

// Eval evaluates the tape at a single point.
func (t *Tape) Eval(x, y, z float64) float64 {
	slots := make([]float64, len(t.instrs))
	for i, in := range t.instrs {
		var a, b float64
		if in.a >= 0 {
			a = slots[in.a]
		}
		if in.b >= 0 {
			b = slots[in.b]
		}
		slots[i] = apply(in, x, y, z, a, b)
	}
	return slots[len(slots)-1]
}

func apply(in instr, x, y, z, a, b float64) float64 {
	switch in.op {
	case OpX:
		return x
	case OpY:
		return y
	case OpZ:
		return z
	case OpConst:
		return in.value
	case OpNeg:
		return -a
	case OpAbs:
		return math.Abs(a)
	case OpSqrt:
		return math.Sqrt(a)
	case OpSquare:
		return a * a
	case OpSin:
		return math.Sin(a)
	case OpCos:
		return math.Cos(a)
	case OpTan:
		return math.Tan(a)
	case OpAsin:
		return math.Asin(a)
	case OpAcos:
		return math.Acos(a)
	case OpAtan:
		return math.Atan(a)
	case OpExp:
		return math.Exp(a)
	case OpLn:
		return math.Log(a)
	case OpNot:
		if a == 0 {
			return 1
		}
		return 0
	case OpCeil:
		return math.Ceil(a)
	case OpFloor:
		return math.Floor(a)
	case OpRound:
		return math.Round(a)
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpMod:
		// Euclidean remainder: the result has the sign of |b|.
		m := math.Mod(a, b)
		if m < 0 {
			m += math.Abs(b)
		}
		return m
	case OpMin:
		return math.Min(a, b)
	case OpMax:
		return math.Max(a, b)
	case OpCompare:
		switch {
		case math.IsNaN(a) || math.IsNaN(b):
			return math.NaN()
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	case OpAnd:
		if a == 0 {
			return a
		}
		return b
	case OpOr:
		if a != 0 {
			return a
		}
		return b
	case OpAtan2:
		return math.Atan2(a, b)
	}
	return math.NaN()
}

// Eval is shorthand for Compile(t).Eval(x, y, z).
func (t *Tree) Eval(x, y, z float64) float64 {
	return Compile(t).Eval(x, y, z)
}
