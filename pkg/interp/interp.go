// Package interp executes an IR program against a memory/state façade:
// one call is one scan. Execution is single-threaded, synchronous and
// depth-first; no state survives in the interpreter between calls.
package interp

import (
	"fmt"

	"github.com/plcsim/stcore/pkg/ir"
	"github.com/plcsim/stcore/pkg/state"
)

// DefaultMaxLoopIterations caps loop passes per scan unless overridden.
const DefaultMaxLoopIterations = 1000

// RuntimeError is a failure raised while executing IR. It carries the
// source range of the offending node; façade faults are wrapped so
// callers see one consistent error surface.
type RuntimeError struct {
	Range ir.SourceRange
	Msg   string
	Cause error
}

func (e *RuntimeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("runtime error at [%d,%d): %s: %v", e.Range.Start, e.Range.End, e.Msg, e.Cause)
	}
	return fmt.Sprintf("runtime error at [%d,%d): %s", e.Range.Start, e.Range.End, e.Msg)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

func runtimeErrf(r ir.SourceRange, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Range: r, Msg: fmt.Sprintf(format, args...)}
}

func wrapFault(r ir.SourceRange, msg string, err error) *RuntimeError {
	return &RuntimeError{Range: r, Msg: msg, Cause: err}
}

// Binding maps one declared variable to a memory address or symbol
// path, optionally overriding the declared type or string length.
type Binding struct {
	Address   string
	Type      ir.DataType
	HasType   bool
	StringLen int
}

// Bind is the plain-address binding form.
func Bind(addr string) Binding { return Binding{Address: addr} }

// BindTyped binds an address with an explicit type override.
func BindTyped(addr string, t ir.DataType) Binding {
	return Binding{Address: addr, Type: t, HasType: true}
}

// Options configures one scan.
type Options struct {
	// MaxLoopIterations caps WHILE/FOR passes; 0 selects the default.
	MaxLoopIterations int

	// Trace records one effect per assignment (FOR statements aggregate
	// to a single entry).
	Trace bool

	// Bindings maps every declared variable name to its address.
	Bindings map[string]Binding

	// AddressTypes overrides the width-implied type of direct address
	// tokens appearing in expressions (e.g. treat MW0 as WORD).
	AddressTypes map[string]ir.DataType

	// TruncateStrings selects truncation over rejection when a string
	// write exceeds the destination's declared length.
	TruncateStrings bool
}

// Effect is one traced write.
type Effect struct {
	Range  ir.SourceRange
	Target string
	Value  ir.Value
}

// Result is the outcome of a successful scan.
type Result struct {
	Snapshot state.Snapshot
	Trace    []Effect
}

// ---------------------------------------------------------------------------
// Execution engine
// ---------------------------------------------------------------------------

type boundVar struct {
	decl   ir.Variable
	addr   string
	typ    ir.DataType
	strLen int
}

type engine struct {
	dev       *state.Device
	vars      map[string]*boundVar
	addrTypes map[string]ir.DataType
	maxIter   int
	trace     bool
	truncate  bool
	effects   []Effect
}

// Run executes one scan of prog against dev. Every declared variable
// must have a binding; a missing binding fails before the first
// statement runs.
func Run(prog *ir.Program, dev *state.Device, opts Options) (*Result, error) {
	e := &engine{
		dev:       dev,
		vars:      make(map[string]*boundVar, len(prog.Variables)),
		addrTypes: opts.AddressTypes,
		maxIter:   opts.MaxLoopIterations,
		trace:     opts.Trace,
		truncate:  opts.TruncateStrings,
	}
	if e.maxIter <= 0 {
		e.maxIter = DefaultMaxLoopIterations
	}

	// Symbol-table construction: bind every declared variable first.
	for i := range prog.Variables {
		v := prog.Variables[i]
		b, ok := opts.Bindings[v.Name]
		if !ok {
			return nil, runtimeErrf(v.Range, "variable %q has no binding", v.Name)
		}
		bv := &boundVar{decl: v, addr: b.Address, typ: v.Type, strLen: v.StringLen}
		if b.HasType {
			bv.typ = b.Type
		}
		if b.StringLen > 0 {
			bv.strLen = b.StringLen
		}
		e.vars[v.Name] = bv
	}

	// Initializer pass, in declaration order, before the first statement.
	for i := range prog.Variables {
		v := prog.Variables[i]
		if v.Init == nil {
			continue
		}
		val, err := e.eval(v.Init)
		if err != nil {
			return nil, err
		}
		if err := e.writeVar(v.Name, v.Range, val); err != nil {
			return nil, err
		}
	}

	if _, err := e.execList(prog.Body, false); err != nil {
		return nil, err
	}

	res := &Result{Snapshot: dev.Snapshot()}
	if e.trace {
		res.Trace = e.effects
	}
	return res, nil
}

// writeVar writes a value through a variable's binding, recording a
// trace effect.
func (e *engine) writeVar(name string, r ir.SourceRange, v ir.Value) error {
	bv, ok := e.vars[name]
	if !ok {
		return runtimeErrf(r, "unbound variable %q", name)
	}
	if err := e.dev.WriteValue(bv.addr, bv.typ, bv.strLen, v, e.truncate); err != nil {
		return wrapFault(r, fmt.Sprintf("write %s (%s)", name, bv.addr), err)
	}
	if e.trace {
		e.effects = append(e.effects, Effect{Range: r, Target: name, Value: v})
	}
	return nil
}

// readVar reads a variable through its binding.
func (e *engine) readVar(name string, r ir.SourceRange) (ir.Value, error) {
	bv, ok := e.vars[name]
	if !ok {
		return ir.Value{}, runtimeErrf(r, "unbound variable %q", name)
	}
	v, err := e.dev.ReadValue(bv.addr, bv.typ, bv.strLen)
	if err != nil {
		return ir.Value{}, wrapFault(r, fmt.Sprintf("read %s (%s)", name, bv.addr), err)
	}
	return v, nil
}

// addrType resolves the effective type of a direct address token.
func (e *engine) addrType(a *ir.AddrExpr) ir.DataType {
	if t, ok := e.addrTypes[a.Token]; ok {
		return t
	}
	return a.TypeHint
}
