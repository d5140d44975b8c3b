package interp

import (
	"fmt"

	"github.com/plcsim/stcore/pkg/ir"
)

// ---------------------------------------------------------------------------
// Statement execution
// ---------------------------------------------------------------------------
// Statements run depth-first on the caller's goroutine. Loop controls
// thread a signal value back up instead of unwinding through panics.

type signal int

const (
	sigNone signal = iota
	sigExit
	sigContinue
)

func (e *engine) execList(stmts []ir.Stmt, inLoop bool) (signal, error) {
	for _, s := range stmts {
		sig, err := e.exec(s, inLoop)
		if err != nil {
			return sigNone, err
		}
		if sig != sigNone {
			return sig, nil
		}
	}
	return sigNone, nil
}

func (e *engine) exec(s ir.Stmt, inLoop bool) (signal, error) {
	switch st := s.(type) {
	case *ir.AssignStmt:
		return sigNone, e.execAssign(st)
	case *ir.IfStmt:
		return e.execIf(st, inLoop)
	case *ir.WhileStmt:
		return sigNone, e.execWhile(st)
	case *ir.CaseStmt:
		return e.execCase(st, inLoop)
	case *ir.ForStmt:
		return sigNone, e.execFor(st)
	case *ir.ExitStmt:
		if !inLoop {
			return sigNone, runtimeErrf(st.Range, "EXIT outside a loop")
		}
		return sigExit, nil
	case *ir.ContinueStmt:
		if !inLoop {
			return sigNone, runtimeErrf(st.Range, "CONTINUE outside a loop")
		}
		return sigContinue, nil
	}
	// The statement set is closed; reaching here means the IR builder
	// and the interpreter disagree.
	return sigNone, runtimeErrf(s.Span(), "unreachable statement kind %T", s)
}

func (e *engine) execAssign(st *ir.AssignStmt) error {
	v, err := e.eval(st.Value)
	if err != nil {
		return err
	}
	switch target := st.Target.(type) {
	case *ir.VarExpr:
		return e.writeVar(target.Name, st.Range, v)
	case *ir.AddrExpr:
		t := e.addrType(target)
		if err := e.dev.WriteValue(target.Token, t, 0, v, e.truncate); err != nil {
			return wrapFault(st.Range, fmt.Sprintf("write %s", target.Token), err)
		}
		if e.trace {
			e.effects = append(e.effects, Effect{Range: st.Range, Target: target.Token, Value: v})
		}
		return nil
	}
	return runtimeErrf(st.Range, "assignment target must be a variable or address")
}

func (e *engine) execIf(st *ir.IfStmt, inLoop bool) (signal, error) {
	for _, br := range st.Branches {
		if br.Cond != nil {
			c, err := e.eval(br.Cond)
			if err != nil {
				return sigNone, err
			}
			if !c.IsTruthy() {
				continue
			}
		}
		return e.execList(br.Body, inLoop)
	}
	return sigNone, nil
}

func (e *engine) execWhile(st *ir.WhileStmt) error {
	iterations := 0
	for {
		c, err := e.eval(st.Cond)
		if err != nil {
			return err
		}
		if !c.IsTruthy() {
			return nil
		}
		iterations++
		if iterations > e.maxIter {
			return runtimeErrf(st.Range, "WHILE exceeded %d iterations", e.maxIter)
		}
		sig, err := e.execList(st.Body, true)
		if err != nil {
			return err
		}
		if sig == sigExit {
			return nil
		}
	}
}

func (e *engine) execCase(st *ir.CaseStmt, inLoop bool) (signal, error) {
	disc, err := e.eval(st.Discriminant)
	if err != nil {
		return sigNone, err
	}
	for _, br := range st.Branches {
		matched, err := e.matchSelectors(br.Selectors, disc)
		if err != nil {
			return sigNone, err
		}
		if matched {
			return e.execList(br.Body, inLoop)
		}
	}
	if st.Else != nil {
		return e.execList(st.Else, inLoop)
	}
	return sigNone, nil
}

func (e *engine) matchSelectors(selectors []ir.CaseSelector, disc ir.Value) (bool, error) {
	for _, sel := range selectors {
		switch s := sel.(type) {
		case *ir.ValueSelector:
			v, err := e.eval(s.Value)
			if err != nil {
				return false, err
			}
			if compareValues(ir.OpEQ, disc, v) {
				return true, nil
			}
		case *ir.RangeSelector:
			lo, err := e.eval(s.Lo)
			if err != nil {
				return false, err
			}
			hi, err := e.eval(s.Hi)
			if err != nil {
				return false, err
			}
			if compareValues(ir.OpGE, disc, lo) && compareValues(ir.OpLE, disc, hi) {
				return true, nil
			}
		}
	}
	return false, nil
}

// execFor runs a counted loop. The iterator must be a bound scalar;
// arithmetic uses exact 64-bit operations when the iterator is LINT and
// double precision otherwise. The iterator writes back through its
// binding every iteration, so external observers see every intermediate
// value; the trace aggregates to one entry for the whole statement.
func (e *engine) execFor(st *ir.ForStmt) error {
	bv, ok := e.vars[st.Iterator]
	if !ok {
		return runtimeErrf(st.IterRange, "FOR iterator %q has no binding", st.Iterator)
	}
	if !bv.typ.IsNumeric() {
		return runtimeErrf(st.IterRange, "FOR iterator %q must be numeric, not %s", st.Iterator, bv.typ)
	}

	initial, err := e.eval(st.Initial)
	if err != nil {
		return err
	}
	end, err := e.eval(st.End)
	if err != nil {
		return err
	}
	step := ir.Number(ir.TypeInt, 1)
	if st.Step != nil {
		step, err = e.eval(st.Step)
		if err != nil {
			return err
		}
	}

	var finalValue ir.Value
	if bv.typ == ir.TypeLInt {
		finalValue, err = e.runForInt64(st, initial.AsInt(), end.AsInt(), step.AsInt())
	} else {
		finalValue, err = e.runForFloat(st, bv.typ, initial.AsFloat(), end.AsFloat(), step.AsFloat())
	}
	if err != nil {
		return err
	}
	if e.trace {
		e.effects = append(e.effects, Effect{Range: st.Range, Target: st.Iterator, Value: finalValue})
	}
	return nil
}

func (e *engine) runForInt64(st *ir.ForStmt, cur, end, step int64) (ir.Value, error) {
	if step == 0 {
		return ir.Value{}, runtimeErrf(st.Range, "FOR step must not be zero")
	}
	iterations := 0
	for {
		if err := e.writeIterator(st.Iterator, st.IterRange, ir.LInt(cur)); err != nil {
			return ir.Value{}, err
		}
		if (step > 0 && cur > end) || (step < 0 && cur < end) {
			return ir.LInt(cur), nil
		}
		iterations++
		if iterations > e.maxIter {
			return ir.Value{}, runtimeErrf(st.Range, "FOR exceeded %d iterations", e.maxIter)
		}
		sig, err := e.execList(st.Body, true)
		if err != nil {
			return ir.Value{}, err
		}
		if sig == sigExit {
			return ir.LInt(cur), nil
		}
		cur += step
	}
}

func (e *engine) runForFloat(st *ir.ForStmt, t ir.DataType, cur, end, step float64) (ir.Value, error) {
	if step == 0 {
		return ir.Value{}, runtimeErrf(st.Range, "FOR step must not be zero")
	}
	iterations := 0
	for {
		if err := e.writeIterator(st.Iterator, st.IterRange, ir.Number(t, cur)); err != nil {
			return ir.Value{}, err
		}
		if (step > 0 && cur > end) || (step < 0 && cur < end) {
			return ir.Number(t, cur), nil
		}
		iterations++
		if iterations > e.maxIter {
			return ir.Value{}, runtimeErrf(st.Range, "FOR exceeded %d iterations", e.maxIter)
		}
		sig, err := e.execList(st.Body, true)
		if err != nil {
			return ir.Value{}, err
		}
		if sig == sigExit {
			return ir.Number(t, cur), nil
		}
		cur += step
	}
}

// writeIterator writes the FOR iterator through its binding without
// emitting a per-iteration trace entry; the statement aggregates to a
// single entry after the loop finishes.
func (e *engine) writeIterator(name string, r ir.SourceRange, v ir.Value) error {
	bv := e.vars[name]
	if err := e.dev.WriteValue(bv.addr, bv.typ, bv.strLen, v, e.truncate); err != nil {
		return wrapFault(r, "write iterator "+name+" ("+bv.addr+")", err)
	}
	return nil
}
