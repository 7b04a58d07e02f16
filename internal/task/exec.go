package task

import (
	"math"

	"exprsearch/internal/expr"
)

// execError carries the failure taxonomy out of a traversal execution.
type execError struct {
	kind string
	node string
}

// execTraversal evaluates a prefix traversal over one input point. consts
// supplies values for constant placeholders in traversal order.
func execTraversal(lib *expr.Library, traversal []int, consts []float64, x []float64) (float64, *execError) {
	pos := 0
	constIdx := 0
	var eval func() (float64, *execError)
	eval = func() (float64, *execError) {
		if pos >= len(traversal) {
			return 0, &execError{kind: expr.ErrKindLength}
		}
		tok := lib.Token(traversal[pos])
		pos++
		if tok.Arity == 0 {
			if tok.Const {
				v := 1.0
				if constIdx < len(consts) {
					v = consts[constIdx]
				}
				constIdx++
				return v, nil
			}
			if tok.InputVar >= 0 && tok.InputVar < len(x) {
				return x[tok.InputVar], nil
			}
			return 0, &execError{kind: expr.ErrKindDomain, node: tok.Name}
		}
		a, err := eval()
		if err != nil {
			return 0, err
		}
		var b float64
		if tok.Arity == 2 {
			b, err = eval()
			if err != nil {
				return 0, err
			}
		}
		v := applyOp(tok.Name, a, b)
		if math.IsNaN(v) {
			kind := expr.ErrKindNaN
			switch tok.Name {
			case "log", "sqrt", "div":
				kind = expr.ErrKindDomain
			}
			return 0, &execError{kind: kind, node: tok.Name}
		}
		if math.IsInf(v, 0) {
			return 0, &execError{kind: expr.ErrKindOverflow, node: tok.Name}
		}
		return v, nil
	}
	v, err := eval()
	if err != nil {
		return 0, err
	}
	if pos != len(traversal) {
		return 0, &execError{kind: expr.ErrKindLength}
	}
	return v, nil
}

func applyOp(name string, a, b float64) float64 {
	switch name {
	case "add":
		return a + b
	case "sub":
		return a - b
	case "mul":
		return a * b
	case "div":
		return a / b
	case "sin":
		return math.Sin(a)
	case "cos":
		return math.Cos(a)
	case "exp":
		return math.Exp(a)
	case "log":
		return math.Log(a)
	case "sqrt":
		return math.Sqrt(a)
	default:
		return math.NaN()
	}
}
