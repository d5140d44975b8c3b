package interp

import (
	"strings"

	"github.com/plcsim/stcore/pkg/ir"
)

// ---------------------------------------------------------------------------
// Expression evaluation
// ---------------------------------------------------------------------------
// Arithmetic runs on one of two explicit paths, selected once per
// operation by the operand types: any LINT operand forces exact 64-bit
// integer arithmetic, everything else runs in double precision. Mixing
// the two loses precision deliberately; the selection must stay visible
// rather than hiding behind a generic coercion.

func (e *engine) eval(expr ir.Expr) (ir.Value, error) {
	switch x := expr.(type) {
	case *ir.Literal:
		return x.Value, nil
	case *ir.VarExpr:
		return e.readVar(x.Name, x.Range)
	case *ir.AddrExpr:
		v, err := e.dev.ReadValue(x.Token, e.addrType(x), 0)
		if err != nil {
			return ir.Value{}, wrapFault(x.Range, "read "+x.Token, err)
		}
		return v, nil
	case *ir.UnaryExpr:
		return e.evalUnary(x)
	case *ir.BinaryExpr:
		return e.evalBinary(x)
	case *ir.CompareExpr:
		l, err := e.eval(x.L)
		if err != nil {
			return ir.Value{}, err
		}
		r, err := e.eval(x.R)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.Bool(compareValues(x.Op, l, r)), nil
	}
	// The expression set is closed; anything else is a builder bug.
	return ir.Value{}, runtimeErrf(expr.Span(), "unreachable expression kind %T", expr)
}

func (e *engine) evalUnary(x *ir.UnaryExpr) (ir.Value, error) {
	v, err := e.eval(x.X)
	if err != nil {
		return ir.Value{}, err
	}
	switch x.Op {
	case ir.OpNot:
		return ir.Bool(!v.IsTruthy()), nil
	case ir.OpNeg:
		if v.Type == ir.TypeString {
			return ir.Value{}, runtimeErrf(x.Range, "cannot negate a STRING")
		}
		if v.Type == ir.TypeLInt {
			return ir.LInt(-v.I), nil
		}
		return ir.Number(negType(v.Type), -v.AsFloat()), nil
	case ir.OpIdent:
		return v, nil
	}
	return ir.Value{}, runtimeErrf(x.Range, "unreachable unary operator")
}

// negType keeps the operand type across negation except for BOOL, which
// promotes to INT.
func negType(t ir.DataType) ir.DataType {
	if t == ir.TypeBool {
		return ir.TypeInt
	}
	return t
}

func (e *engine) evalBinary(x *ir.BinaryExpr) (ir.Value, error) {
	l, err := e.eval(x.L)
	if err != nil {
		return ir.Value{}, err
	}
	// Both operands evaluate eagerly; AND/OR/XOR never short-circuit.
	r, err := e.eval(x.R)
	if err != nil {
		return ir.Value{}, err
	}

	switch x.Op {
	case ir.OpAnd:
		return ir.Bool(l.IsTruthy() && r.IsTruthy()), nil
	case ir.OpOr:
		return ir.Bool(l.IsTruthy() || r.IsTruthy()), nil
	case ir.OpXor:
		return ir.Bool(l.IsTruthy() != r.IsTruthy()), nil
	}

	if l.Type == ir.TypeString || r.Type == ir.TypeString {
		return ir.Value{}, runtimeErrf(x.Range, "arithmetic on STRING operands")
	}

	// 64-bit path: any LINT operand forces exact integer arithmetic.
	if l.Type == ir.TypeLInt || r.Type == ir.TypeLInt {
		a, b := l.AsInt(), r.AsInt()
		switch x.Op {
		case ir.OpAdd:
			return ir.LInt(a + b), nil
		case ir.OpSub:
			return ir.LInt(a - b), nil
		case ir.OpMul:
			return ir.LInt(a * b), nil
		case ir.OpDiv:
			if b == 0 {
				return ir.Value{}, runtimeErrf(x.Range, "division by zero")
			}
			// 64-bit division truncates toward zero.
			return ir.LInt(a / b), nil
		}
		return ir.Value{}, runtimeErrf(x.Range, "unreachable binary operator")
	}

	// Double path.
	a, b := l.AsFloat(), r.AsFloat()
	switch x.Op {
	case ir.OpAdd:
		return ir.Number(promote(l.Type, r.Type), a+b), nil
	case ir.OpSub:
		return ir.Number(promote(l.Type, r.Type), a-b), nil
	case ir.OpMul:
		return ir.Number(promote(l.Type, r.Type), a*b), nil
	case ir.OpDiv:
		if b == 0 {
			return ir.Value{}, runtimeErrf(x.Range, "division by zero")
		}
		// Division always promotes to float on this path.
		t := ir.TypeReal
		if l.Type == ir.TypeLReal || r.Type == ir.TypeLReal {
			t = ir.TypeLReal
		}
		return ir.Number(t, a/b), nil
	}
	return ir.Value{}, runtimeErrf(x.Range, "unreachable binary operator")
}

// promote picks the result type for double-path arithmetic by the fixed
// ladder: float beats integer, wider beats narrower; ties keep the left
// operand's type.
func promote(l, r ir.DataType) ir.DataType {
	if rank(r) > rank(l) {
		return r
	}
	return l
}

func rank(t ir.DataType) int {
	switch t {
	case ir.TypeLReal:
		return 6
	case ir.TypeReal:
		return 5
	case ir.TypeDWord, ir.TypeDInt, ir.TypeTime, ir.TypeTOD:
		return 3
	case ir.TypeWord, ir.TypeInt, ir.TypeDate:
		return 2
	case ir.TypeByte, ir.TypeSInt:
		return 1
	}
	return 0 // BOOL promotes to anything numeric
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// compareValues dispatches by operand type: any STRING operand forces
// lexicographic comparison, any LINT operand forces exact 64-bit
// comparison, booleans compare as equality (ordering treats TRUE > FALSE),
// everything else compares in double precision.
func compareValues(op ir.CmpOp, l, r ir.Value) bool {
	if l.Type == ir.TypeString || r.Type == ir.TypeString {
		return cmpOrdered(op, strings.Compare(l.String(), r.String()))
	}
	if l.Type == ir.TypeLInt || r.Type == ir.TypeLInt {
		a, b := l.AsInt(), r.AsInt()
		switch {
		case a < b:
			return cmpOrdered(op, -1)
		case a > b:
			return cmpOrdered(op, 1)
		}
		return cmpOrdered(op, 0)
	}
	if l.Type == ir.TypeBool && r.Type == ir.TypeBool {
		switch {
		case l.B == r.B:
			return cmpOrdered(op, 0)
		case r.B: // FALSE < TRUE
			return cmpOrdered(op, -1)
		}
		return cmpOrdered(op, 1)
	}
	a, b := l.AsFloat(), r.AsFloat()
	switch {
	case a < b:
		return cmpOrdered(op, -1)
	case a > b:
		return cmpOrdered(op, 1)
	}
	return cmpOrdered(op, 0)
}

func cmpOrdered(op ir.CmpOp, c int) bool {
	switch op {
	case ir.OpEQ:
		return c == 0
	case ir.OpNE:
		return c != 0
	case ir.OpLT:
		return c < 0
	case ir.OpLE:
		return c <= 0
	case ir.OpGT:
		return c > 0
	case ir.OpGE:
		return c >= 0
	}
	return false
}
