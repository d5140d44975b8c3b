package interp

import (
	"errors"
	"strings"
	"testing"

	"github.com/plcsim/stcore/pkg/ir"
	"github.com/plcsim/stcore/pkg/schema"
	"github.com/plcsim/stcore/pkg/state"
	"github.com/plcsim/stcore/pkg/symstore"
)

// ---------------------------------------------------------------------------
// IR construction helpers
// ---------------------------------------------------------------------------

func litInt(n int) *ir.Literal {
	return &ir.Literal{Value: ir.Number(ir.TypeInt, float64(n))}
}

func litLInt(n int64) *ir.Literal { return &ir.Literal{Value: ir.LInt(n)} }

func litReal(f float64) *ir.Literal {
	return &ir.Literal{Value: ir.Number(ir.TypeReal, f)}
}

func litBool(b bool) *ir.Literal { return &ir.Literal{Value: ir.Bool(b)} }

func litStr(s string) *ir.Literal { return &ir.Literal{Value: ir.String(s)} }

func varE(name string) *ir.VarExpr { return &ir.VarExpr{Name: name} }

func bin(op ir.BinOp, l, r ir.Expr) *ir.BinaryExpr {
	return &ir.BinaryExpr{Op: op, L: l, R: r}
}

func cmp(op ir.CmpOp, l, r ir.Expr) *ir.CompareExpr {
	return &ir.CompareExpr{Op: op, L: l, R: r}
}

func set(name string, v ir.Expr) *ir.AssignStmt {
	return &ir.AssignStmt{Target: varE(name), Value: v}
}

// testDevice builds a device with a flag area and one Counter data block
// (Ticks LINT, Speed INT).
func testDevice(t *testing.T) *state.Device {
	t.Helper()
	reg := schema.NewRegistry(&schema.Type{
		Name: "Counter",
		Fields: []schema.Field{
			{Name: "Ticks", Kind: schema.FieldScalar, DataType: "LINT"},
			{Name: "Speed", Kind: schema.FieldScalar, DataType: "INT"},
		},
	})
	st, err := symstore.New(reg, []schema.InstanceBinding{{Name: "C", Type: "Counter"}})
	if err != nil {
		t.Fatalf("symstore.New: %v", err)
	}
	return state.NewDevice(state.Config{InputSize: 8, OutputSize: 8, FlagSize: 64}, st)
}

// run executes a program with INT variables i->MW0, total->MW2,
// x->MD4 (REAL), s->MB8 (STRING[10]), l->C.Ticks (LINT).
func run(t *testing.T, dev *state.Device, vars []ir.Variable, body []ir.Stmt, opts Options) (*Result, error) {
	t.Helper()
	if opts.Bindings == nil {
		opts.Bindings = map[string]Binding{
			"i":     Bind("MW0"),
			"total": Bind("MW2"),
			"x":     Bind("MD4"),
			"s":     Bind("MB8"),
			"l":     Bind("C.Ticks"),
		}
	}
	prog := &ir.Program{Name: "Test", Variables: vars, Body: body}
	return Run(prog, dev, opts)
}

func intVars(names ...string) []ir.Variable {
	out := make([]ir.Variable, len(names))
	for i, n := range names {
		out[i] = ir.Variable{Name: n, Type: ir.TypeInt}
	}
	return out
}

func mustInt(t *testing.T, dev *state.Device, addr string) int16 {
	t.Helper()
	v, err := dev.ReadInt(addr)
	if err != nil {
		t.Fatalf("ReadInt(%s): %v", addr, err)
	}
	return v
}

// ---------------------------------------------------------------------------
// Assignment and binding
// ---------------------------------------------------------------------------

func TestAssignWritesThroughBinding(t *testing.T) {
	dev := testDevice(t)
	_, err := run(t, dev, intVars("i"), []ir.Stmt{set("i", litInt(42))}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW0"); got != 42 {
		t.Errorf("MW0 = %d, want 42", got)
	}
}

func TestAssignToDirectAddress(t *testing.T) {
	dev := testDevice(t)
	stmt := &ir.AssignStmt{Target: &ir.AddrExpr{Token: "Q0.1", TypeHint: ir.TypeBool}, Value: litBool(true)}
	_, err := run(t, dev, nil, []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, _ := dev.ReadBool("Q0.1")
	if !b {
		t.Error("Q0.1 not set")
	}
}

func TestMissingBindingFailsBeforeExecution(t *testing.T) {
	dev := testDevice(t)
	vars := []ir.Variable{{Name: "ghost", Type: ir.TypeInt}}
	_, err := run(t, dev, vars, []ir.Stmt{set("i", litInt(1))}, Options{})
	if err == nil {
		t.Fatal("Run succeeded with an unbound variable")
	}
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("error type = %T, want *RuntimeError", err)
	}
}

func TestInitializersRunInDeclarationOrder(t *testing.T) {
	dev := testDevice(t)
	vars := []ir.Variable{
		{Name: "i", Type: ir.TypeInt, Init: litInt(5)},
		{Name: "total", Type: ir.TypeInt, Init: bin(ir.OpMul, varE("i"), litInt(3))},
	}
	_, err := run(t, dev, vars, nil, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW2"); got != 15 {
		t.Errorf("total = %d, want 15 (initializer saw i=5)", got)
	}
}

// ---------------------------------------------------------------------------
// Arithmetic paths
// ---------------------------------------------------------------------------

func TestDivisionPromotesToFloat(t *testing.T) {
	dev := testDevice(t)
	vars := []ir.Variable{{Name: "x", Type: ir.TypeReal}}
	_, err := run(t, dev, vars, []ir.Stmt{
		set("x", bin(ir.OpDiv, litInt(7), litInt(2))),
	}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	f, _ := dev.ReadReal("MD4")
	if f != 3.5 {
		t.Errorf("7/2 = %v, want 3.5", f)
	}
}

func TestLIntDivisionTruncates(t *testing.T) {
	dev := testDevice(t)
	vars := []ir.Variable{{Name: "l", Type: ir.TypeLInt}}
	_, err := run(t, dev, vars, []ir.Stmt{
		set("l", bin(ir.OpDiv, litLInt(7), litInt(2))),
	}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	v, _ := dev.ReadLInt("C.Ticks")
	if v != 3 {
		t.Errorf("LINT 7/2 = %d, want 3", v)
	}

	_, err = run(t, dev, vars, []ir.Stmt{
		set("l", bin(ir.OpDiv, litLInt(-7), litInt(2))),
	}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	v, _ = dev.ReadLInt("C.Ticks")
	if v != -3 {
		t.Errorf("LINT -7/2 = %d, want -3 (truncation toward zero)", v)
	}
}

func TestLIntArithmeticStaysExact(t *testing.T) {
	dev := testDevice(t)
	vars := []ir.Variable{{Name: "l", Type: ir.TypeLInt}}
	big := int64(1)<<60 + 1
	_, err := run(t, dev, vars, []ir.Stmt{
		set("l", bin(ir.OpAdd, litLInt(big), litInt(1))),
	}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	v, _ := dev.ReadLInt("C.Ticks")
	if v != big+1 {
		t.Errorf("got %d, want %d (no float rounding)", v, big+1)
	}
}

func TestDivisionByZeroFails(t *testing.T) {
	dev := testDevice(t)
	tests := []struct {
		name string
		expr ir.Expr
	}{
		{"int", bin(ir.OpDiv, litInt(1), litInt(0))},
		{"lint", bin(ir.OpDiv, litLInt(1), litLInt(0))},
		{"real", bin(ir.OpDiv, litReal(1), litReal(0))},
	}
	for _, tt := range tests {
		_, err := run(t, dev, intVars("i"), []ir.Stmt{set("i", tt.expr)}, Options{})
		var re *RuntimeError
		if !errors.As(err, &re) {
			t.Errorf("%s: err = %v, want RuntimeError", tt.name, err)
			continue
		}
		if !strings.Contains(re.Msg, "division by zero") {
			t.Errorf("%s: msg = %q", tt.name, re.Msg)
		}
	}
}

func TestStringArithmeticRejected(t *testing.T) {
	dev := testDevice(t)
	_, err := run(t, dev, intVars("i"), []ir.Stmt{
		set("i", bin(ir.OpAdd, litStr("a"), litStr("b"))),
	}, Options{})
	if err == nil {
		t.Fatal("STRING + STRING succeeded")
	}
}

func TestBooleanOperatorsEvaluateEagerly(t *testing.T) {
	dev := testDevice(t)
	// The right operand faults even though the left already decides the
	// result; AND must not short-circuit.
	_, err := run(t, dev, intVars("i"), []ir.Stmt{
		&ir.AssignStmt{
			Target: varE("i"),
			Value:  bin(ir.OpAnd, litBool(false), bin(ir.OpDiv, litInt(1), litInt(0))),
		},
	}, Options{})
	if err == nil {
		t.Fatal("AND short-circuited past a faulting operand")
	}
}

func TestComparisons(t *testing.T) {
	dev := testDevice(t)
	vars := []ir.Variable{{Name: "i", Type: ir.TypeInt}}
	body := []ir.Stmt{
		&ir.IfStmt{Branches: []ir.IfBranch{
			{Cond: cmp(ir.OpLT, litStr("abc"), litStr("abd")), Body: []ir.Stmt{set("i", litInt(1))}},
		}},
		&ir.IfStmt{Branches: []ir.IfBranch{
			{Cond: cmp(ir.OpGT, litBool(true), litBool(false)), Body: []ir.Stmt{
				set("i", bin(ir.OpAdd, varE("i"), litInt(10))),
			}},
		}},
		&ir.IfStmt{Branches: []ir.IfBranch{
			{Cond: cmp(ir.OpEQ, litLInt(1<<60), litLInt(1<<60)), Body: []ir.Stmt{
				set("i", bin(ir.OpAdd, varE("i"), litInt(100))),
			}},
		}},
	}
	_, err := run(t, dev, vars, body, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW0"); got != 111 {
		t.Errorf("i = %d, want 111 (all three comparisons true)", got)
	}
}
