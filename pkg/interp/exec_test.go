package interp

import (
	"errors"
	"strings"
	"testing"

	"github.com/plcsim/stcore/pkg/ir"
)

// ---------------------------------------------------------------------------
// IF
// ---------------------------------------------------------------------------

func TestIfTakesFirstTruthyBranch(t *testing.T) {
	dev := testDevice(t)
	stmt := &ir.IfStmt{Branches: []ir.IfBranch{
		{Cond: litBool(false), Body: []ir.Stmt{set("i", litInt(1))}},
		{Cond: litBool(true), Body: []ir.Stmt{set("i", litInt(2))}},
		{Cond: litBool(true), Body: []ir.Stmt{set("i", litInt(3))}},
	}}
	_, err := run(t, dev, intVars("i"), []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW0"); got != 2 {
		t.Errorf("i = %d, want 2", got)
	}
}

func TestIfElseBranch(t *testing.T) {
	dev := testDevice(t)
	stmt := &ir.IfStmt{Branches: []ir.IfBranch{
		{Cond: litBool(false), Body: []ir.Stmt{set("i", litInt(1))}},
		{Cond: nil, Body: []ir.Stmt{set("i", litInt(99))}},
	}}
	_, err := run(t, dev, intVars("i"), []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW0"); got != 99 {
		t.Errorf("i = %d, want 99", got)
	}
}

// ---------------------------------------------------------------------------
// WHILE
// ---------------------------------------------------------------------------

func TestWhileCountsDown(t *testing.T) {
	dev := testDevice(t)
	vars := []ir.Variable{
		{Name: "i", Type: ir.TypeInt, Init: litInt(5)},
		{Name: "total", Type: ir.TypeInt},
	}
	stmt := &ir.WhileStmt{
		Cond: cmp(ir.OpGT, varE("i"), litInt(0)),
		Body: []ir.Stmt{
			set("total", bin(ir.OpAdd, varE("total"), varE("i"))),
			set("i", bin(ir.OpSub, varE("i"), litInt(1))),
		},
	}
	_, err := run(t, dev, vars, []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW2"); got != 15 {
		t.Errorf("total = %d, want 15", got)
	}
	if got := mustInt(t, dev, "MW0"); got != 0 {
		t.Errorf("i = %d, want 0", got)
	}
}

func TestWhileLoopGuard(t *testing.T) {
	dev := testDevice(t)
	stmt := &ir.WhileStmt{
		Cond: litBool(true),
		Body: []ir.Stmt{set("i", bin(ir.OpAdd, varE("i"), litInt(1)))},
	}
	_, err := run(t, dev, intVars("i"), []ir.Stmt{stmt}, Options{MaxLoopIterations: 10})
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RuntimeError", err)
	}
	if !strings.Contains(re.Msg, "10") {
		t.Errorf("msg = %q, should name the limit", re.Msg)
	}
	// The guard fires after the limit is exceeded, so exactly limit
	// passes over the body completed.
	if got := mustInt(t, dev, "MW0"); got != 10 {
		t.Errorf("i = %d, want 10 completed passes", got)
	}
}

func TestWhileGuardDefaultsTo1000(t *testing.T) {
	dev := testDevice(t)
	stmt := &ir.WhileStmt{
		Cond: litBool(true),
		Body: []ir.Stmt{set("i", bin(ir.OpAdd, varE("i"), litInt(1)))},
	}
	_, err := run(t, dev, intVars("i"), []ir.Stmt{stmt}, Options{})
	if err == nil {
		t.Fatal("unbounded WHILE terminated without error")
	}
	if got := mustInt(t, dev, "MW0"); got != DefaultMaxLoopIterations {
		t.Errorf("i = %d, want %d", got, DefaultMaxLoopIterations)
	}
}

func TestWhileExit(t *testing.T) {
	dev := testDevice(t)
	stmt := &ir.WhileStmt{
		Cond: litBool(true),
		Body: []ir.Stmt{
			set("i", bin(ir.OpAdd, varE("i"), litInt(1))),
			&ir.IfStmt{Branches: []ir.IfBranch{
				{Cond: cmp(ir.OpGE, varE("i"), litInt(3)), Body: []ir.Stmt{&ir.ExitStmt{}}},
			}},
		},
	}
	_, err := run(t, dev, intVars("i"), []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW0"); got != 3 {
		t.Errorf("i = %d, want 3", got)
	}
}

func TestWhileContinueSkipsRestOfBody(t *testing.T) {
	dev := testDevice(t)
	vars := intVars("i", "total")
	stmt := &ir.WhileStmt{
		Cond: cmp(ir.OpLT, varE("i"), litInt(6)),
		Body: []ir.Stmt{
			set("i", bin(ir.OpAdd, varE("i"), litInt(1))),
			&ir.IfStmt{Branches: []ir.IfBranch{
				{Cond: cmp(ir.OpEQ, varE("i"), litInt(3)), Body: []ir.Stmt{&ir.ContinueStmt{}}},
			}},
			set("total", bin(ir.OpAdd, varE("total"), litInt(1))),
		},
	}
	_, err := run(t, dev, vars, []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW2"); got != 5 {
		t.Errorf("total = %d, want 5 (pass i=3 skipped)", got)
	}
}

// ---------------------------------------------------------------------------
// CASE
// ---------------------------------------------------------------------------

func caseFixture(disc ir.Expr) *ir.CaseStmt {
	return &ir.CaseStmt{
		Discriminant: disc,
		Branches: []ir.CaseBranch{
			{
				Selectors: []ir.CaseSelector{
					&ir.RangeSelector{Lo: litLInt(0), Hi: litLInt(5)},
				},
				Body: []ir.Stmt{set("total", litInt(1))},
			},
			{
				Selectors: []ir.CaseSelector{
					&ir.ValueSelector{Value: litLInt(6)},
					&ir.RangeSelector{Lo: litLInt(8), Hi: litLInt(10)},
				},
				Body: []ir.Stmt{set("total", litInt(2))},
			},
		},
		Else: []ir.Stmt{set("total", litInt(3))},
	}
}

func TestCaseSelection(t *testing.T) {
	tests := []struct {
		disc int
		want int16
	}{
		{0, 1},
		{3, 1},
		{5, 1},
		{6, 2},
		{8, 2},
		{9, 2},
		{10, 2},
		{7, 3},
		{11, 3},
		{-1, 3},
	}
	for _, tt := range tests {
		dev := testDevice(t)
		_, err := run(t, dev, intVars("total"), []ir.Stmt{caseFixture(litInt(tt.disc))}, Options{})
		if err != nil {
			t.Fatalf("disc %d: Run: %v", tt.disc, err)
		}
		if got := mustInt(t, dev, "MW2"); got != tt.want {
			t.Errorf("disc %d selected branch %d, want %d", tt.disc, got, tt.want)
		}
	}
}

func TestCaseWithoutElseFallsThrough(t *testing.T) {
	dev := testDevice(t)
	stmt := &ir.CaseStmt{
		Discriminant: litInt(9),
		Branches: []ir.CaseBranch{
			{Selectors: []ir.CaseSelector{&ir.ValueSelector{Value: litLInt(1)}},
				Body: []ir.Stmt{set("total", litInt(1))}},
		},
	}
	_, err := run(t, dev, intVars("total"), []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW2"); got != 0 {
		t.Errorf("total = %d, want 0 (no branch ran)", got)
	}
}

func TestCaseEvaluatesDiscriminantOnce(t *testing.T) {
	dev := testDevice(t)
	// The discriminant reads i, and every branch body changes i; the
	// selection must use the original value.
	vars := []ir.Variable{
		{Name: "i", Type: ir.TypeInt, Init: litInt(4)},
		{Name: "total", Type: ir.TypeInt},
	}
	stmt := &ir.CaseStmt{
		Discriminant: varE("i"),
		Branches: []ir.CaseBranch{
			{Selectors: []ir.CaseSelector{&ir.RangeSelector{Lo: litLInt(0), Hi: litLInt(5)}},
				Body: []ir.Stmt{set("i", litInt(100)), set("total", litInt(1))}},
			{Selectors: []ir.CaseSelector{&ir.ValueSelector{Value: litLInt(100)}},
				Body: []ir.Stmt{set("total", litInt(2))}},
		},
	}
	_, err := run(t, dev, vars, []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW2"); got != 1 {
		t.Errorf("total = %d, want 1", got)
	}
}

// ---------------------------------------------------------------------------
// FOR
// ---------------------------------------------------------------------------

func TestForStepTwoOvershootIsObservable(t *testing.T) {
	dev := testDevice(t)
	vars := intVars("i", "total")
	stmt := &ir.ForStmt{
		Iterator: "i",
		Initial:  litInt(0),
		End:      litInt(4),
		Step:     litInt(2),
		Body: []ir.Stmt{
			set("total", bin(ir.OpAdd, varE("total"), varE("i"))),
		},
	}
	_, err := run(t, dev, vars, []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW2"); got != 6 {
		t.Errorf("total = %d, want 6 (0+2+4)", got)
	}
	// The iterator is written before the continuation check, so the
	// overshoot value is what remains after the loop.
	if got := mustInt(t, dev, "MW0"); got != 6 {
		t.Errorf("i = %d, want 6", got)
	}
}

func TestForDefaultStepIsOne(t *testing.T) {
	dev := testDevice(t)
	vars := intVars("i", "total")
	stmt := &ir.ForStmt{
		Iterator: "i",
		Initial:  litInt(1),
		End:      litInt(4),
		Body: []ir.Stmt{
			set("total", bin(ir.OpAdd, varE("total"), litInt(1))),
		},
	}
	_, err := run(t, dev, vars, []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW2"); got != 4 {
		t.Errorf("total = %d, want 4 passes", got)
	}
}

func TestForNegativeStep(t *testing.T) {
	dev := testDevice(t)
	vars := intVars("i", "total")
	stmt := &ir.ForStmt{
		Iterator: "i",
		Initial:  litInt(5),
		End:      litInt(1),
		Step:     litInt(-2),
		Body: []ir.Stmt{
			set("total", bin(ir.OpAdd, varE("total"), varE("i"))),
		},
	}
	_, err := run(t, dev, vars, []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW2"); got != 9 {
		t.Errorf("total = %d, want 9 (5+3+1)", got)
	}
}

func TestForExitKeepsCurrentIterator(t *testing.T) {
	dev := testDevice(t)
	vars := intVars("i", "total")
	stmt := &ir.ForStmt{
		Iterator: "i",
		Initial:  litInt(0),
		End:      litInt(9),
		Body: []ir.Stmt{
			&ir.IfStmt{Branches: []ir.IfBranch{
				{Cond: cmp(ir.OpGE, varE("i"), litInt(3)), Body: []ir.Stmt{&ir.ExitStmt{}}},
			}},
			set("total", bin(ir.OpAdd, varE("total"), litInt(1))),
		},
	}
	_, err := run(t, dev, vars, []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW0"); got != 3 {
		t.Errorf("i = %d, want 3 (no overshoot after EXIT)", got)
	}
	if got := mustInt(t, dev, "MW2"); got != 3 {
		t.Errorf("total = %d, want 3", got)
	}
}

func TestForZeroStepFails(t *testing.T) {
	dev := testDevice(t)
	stmt := &ir.ForStmt{
		Iterator: "i",
		Initial:  litInt(0),
		End:      litInt(4),
		Step:     litInt(0),
	}
	_, err := run(t, dev, intVars("i"), []ir.Stmt{stmt}, Options{})
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RuntimeError", err)
	}
	if !strings.Contains(re.Msg, "step") {
		t.Errorf("msg = %q", re.Msg)
	}
}

func TestForLIntIterator(t *testing.T) {
	dev := testDevice(t)
	vars := []ir.Variable{
		{Name: "l", Type: ir.TypeLInt},
		{Name: "total", Type: ir.TypeInt},
	}
	stmt := &ir.ForStmt{
		Iterator: "l",
		Initial:  litLInt(1),
		End:      litLInt(3),
		Body: []ir.Stmt{
			set("total", bin(ir.OpAdd, varE("total"), litInt(1))),
		},
	}
	_, err := run(t, dev, vars, []ir.Stmt{stmt}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := mustInt(t, dev, "MW2"); got != 3 {
		t.Errorf("total = %d, want 3", got)
	}
	v, _ := dev.ReadLInt("C.Ticks")
	if v != 4 {
		t.Errorf("l = %d, want overshoot 4", v)
	}
}

func TestForGuardCapsIterations(t *testing.T) {
	dev := testDevice(t)
	stmt := &ir.ForStmt{
		Iterator: "i",
		Initial:  litInt(0),
		End:      litInt(30000),
		Body:     nil,
	}
	_, err := run(t, dev, intVars("i"), []ir.Stmt{stmt}, Options{MaxLoopIterations: 50})
	if err == nil {
		t.Fatal("FOR past the iteration cap succeeded")
	}
}

func TestForNonNumericIteratorFails(t *testing.T) {
	dev := testDevice(t)
	vars := []ir.Variable{{Name: "s", Type: ir.TypeString}}
	stmt := &ir.ForStmt{Iterator: "s", Initial: litInt(0), End: litInt(1)}
	_, err := run(t, dev, vars, []ir.Stmt{stmt}, Options{})
	if err == nil {
		t.Fatal("FOR over a STRING iterator succeeded")
	}
}

// ---------------------------------------------------------------------------
// Loop-control misuse
// ---------------------------------------------------------------------------

func TestExitOutsideLoopFails(t *testing.T) {
	dev := testDevice(t)
	_, err := run(t, dev, nil, []ir.Stmt{&ir.ExitStmt{}}, Options{})
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RuntimeError", err)
	}
}

func TestContinueOutsideLoopFails(t *testing.T) {
	dev := testDevice(t)
	// Even nested inside IF, outside any loop it is an error.
	stmt := &ir.IfStmt{Branches: []ir.IfBranch{
		{Cond: litBool(true), Body: []ir.Stmt{&ir.ContinueStmt{}}},
	}}
	_, err := run(t, dev, nil, []ir.Stmt{stmt}, Options{})
	if err == nil {
		t.Fatal("CONTINUE outside a loop succeeded")
	}
}

// ---------------------------------------------------------------------------
// Trace
// ---------------------------------------------------------------------------

func TestTraceAggregatesForToOneIteratorEntry(t *testing.T) {
	dev := testDevice(t)
	vars := intVars("i", "total")
	stmt := &ir.ForStmt{
		Iterator: "i",
		Initial:  litInt(0),
		End:      litInt(4),
		Step:     litInt(2),
		Body: []ir.Stmt{
			set("total", bin(ir.OpAdd, varE("total"), varE("i"))),
		},
	}
	res, err := run(t, dev, vars, []ir.Stmt{stmt}, Options{Trace: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	iterEntries := 0
	bodyEntries := 0
	for _, eff := range res.Trace {
		switch eff.Target {
		case "i":
			iterEntries++
		case "total":
			bodyEntries++
		}
	}
	if iterEntries != 1 {
		t.Errorf("iterator entries = %d, want exactly 1 aggregated entry", iterEntries)
	}
	if bodyEntries != 3 {
		t.Errorf("body entries = %d, want 3 (one per pass)", bodyEntries)
	}
	// The aggregated entry carries the final iterator value.
	for _, eff := range res.Trace {
		if eff.Target == "i" && eff.Value.AsInt() != 6 {
			t.Errorf("aggregated value = %v, want 6", eff.Value)
		}
	}
}

func TestTraceDisabledByDefault(t *testing.T) {
	dev := testDevice(t)
	res, err := run(t, dev, intVars("i"), []ir.Stmt{set("i", litInt(1))}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trace) != 0 {
		t.Errorf("trace has %d entries with tracing off", len(res.Trace))
	}
}

func TestResultSnapshotReflectsFinalState(t *testing.T) {
	dev := testDevice(t)
	res, err := run(t, dev, intVars("i"), []ir.Stmt{set("i", litInt(7))}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// MW0 big-endian: byte 1 carries the low half.
	if res.Snapshot.Flags[1] != 7 {
		t.Errorf("snapshot flags = %v, want 7 at byte 1", res.Snapshot.Flags[:4])
	}
}
