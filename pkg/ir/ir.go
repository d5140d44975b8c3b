// Package ir defines the typed intermediate representation executed by
// the interpreter, and the builder that produces it from the generic
// parse tree. The IR is a small closed set of tagged statement and
// expression variants; once built, a Program is never mutated.
package ir

import (
	"fmt"
	"math"
	"strconv"
)

// ---------------------------------------------------------------------------
// Source ranges and build failures
// ---------------------------------------------------------------------------

// SourceRange is a half-open span into the source text (start inclusive,
// end exclusive). Every IR node carries the range of the parse-tree node
// it was built from.
type SourceRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// BuildError is a structural or semantic failure found while translating
// the parse tree into IR. Builds are atomic: a BuildError means no IR was
// produced at all.
type BuildError struct {
	Range SourceRange
	Msg   string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build error at [%d,%d): %s", e.Range.Start, e.Range.End, e.Msg)
}

func buildErrf(r SourceRange, format string, args ...interface{}) *BuildError {
	return &BuildError{Range: r, Msg: fmt.Sprintf(format, args...)}
}

// ---------------------------------------------------------------------------
// Data types
// ---------------------------------------------------------------------------

// DataType is one of the 14 scalar types the execution core understands.
type DataType int

const (
	TypeBool DataType = iota
	TypeByte
	TypeSInt
	TypeWord
	TypeInt
	TypeDWord
	TypeDInt
	TypeLInt
	TypeReal
	TypeLReal
	TypeTime
	TypeDate
	TypeTOD
	TypeString
)

var typeNames = [...]string{
	TypeBool:   "BOOL",
	TypeByte:   "BYTE",
	TypeSInt:   "SINT",
	TypeWord:   "WORD",
	TypeInt:    "INT",
	TypeDWord:  "DWORD",
	TypeDInt:   "DINT",
	TypeLInt:   "LINT",
	TypeReal:   "REAL",
	TypeLReal:  "LREAL",
	TypeTime:   "TIME",
	TypeDate:   "DATE",
	TypeTOD:    "TIME_OF_DAY",
	TypeString: "STRING",
}

func (t DataType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// ParseDataType resolves a declaration type token to a DataType.
// TOD accepts both spellings used by the language.
func ParseDataType(name string) (DataType, bool) {
	switch name {
	case "BOOL":
		return TypeBool, true
	case "BYTE":
		return TypeByte, true
	case "SINT":
		return TypeSInt, true
	case "WORD":
		return TypeWord, true
	case "INT":
		return TypeInt, true
	case "DWORD":
		return TypeDWord, true
	case "DINT":
		return TypeDInt, true
	case "LINT":
		return TypeLInt, true
	case "REAL":
		return TypeReal, true
	case "LREAL":
		return TypeLReal, true
	case "TIME":
		return TypeTime, true
	case "DATE":
		return TypeDate, true
	case "TOD", "TIME_OF_DAY":
		return TypeTOD, true
	case "STRING":
		return TypeString, true
	}
	return 0, false
}

// Width returns the storage width in bytes for fixed-width types, and 0
// for BOOL (bit-addressed) and STRING (variable).
func (t DataType) Width() int {
	switch t {
	case TypeByte, TypeSInt:
		return 1
	case TypeWord, TypeInt, TypeDate:
		return 2
	case TypeDWord, TypeDInt, TypeReal, TypeTime, TypeTOD:
		return 4
	case TypeLInt, TypeLReal:
		return 8
	}
	return 0
}

// IsNumeric reports whether values of the type participate in arithmetic.
func (t DataType) IsNumeric() bool {
	return t != TypeBool && t != TypeString
}

// IsFloat reports whether the type is an IEEE floating-point type.
func (t DataType) IsFloat() bool {
	return t == TypeReal || t == TypeLReal
}

// IsSigned reports whether the integer type carries a sign. Float and
// non-numeric types return false.
func (t DataType) IsSigned() bool {
	switch t {
	case TypeSInt, TypeInt, TypeDInt, TypeLInt, TypeTime:
		return true
	}
	return false
}

// IntegerRange returns the inclusive [min,max] domain for integer-backed
// types. Ok is false for BOOL, STRING and the float types.
func (t DataType) IntegerRange() (min, max int64, ok bool) {
	switch t {
	case TypeByte:
		return 0, math.MaxUint8, true
	case TypeSInt:
		return math.MinInt8, math.MaxInt8, true
	case TypeWord, TypeDate:
		return 0, math.MaxUint16, true
	case TypeInt:
		return math.MinInt16, math.MaxInt16, true
	case TypeDWord, TypeTOD:
		return 0, math.MaxUint32, true
	case TypeDInt, TypeTime:
		return math.MinInt32, math.MaxInt32, true
	case TypeLInt:
		return math.MinInt64, math.MaxInt64, true
	}
	return 0, 0, false
}

// ---------------------------------------------------------------------------
// Runtime values
// ---------------------------------------------------------------------------

// Value is a typed runtime value. Numeric values travel on one of two
// paths: LINT-typed values carry an exact int64, every other numeric
// type carries a float64. Mixing the two paths in arithmetic is decided
// per operation by the interpreter, never by implicit conversion here.
type Value struct {
	Type DataType
	B    bool
	I    int64
	N    float64
	S    string
}

// Bool returns a BOOL value.
func Bool(b bool) Value { return Value{Type: TypeBool, B: b} }

// LInt returns a LINT value carrying an exact 64-bit integer.
func LInt(i int64) Value { return Value{Type: TypeLInt, I: i} }

// Number returns a value of the given numeric type on the float64 path.
// Passing TypeLInt routes to the int64 path by truncation.
func Number(t DataType, n float64) Value {
	if t == TypeLInt {
		return LInt(int64(n))
	}
	return Value{Type: t, N: n}
}

// String returns a STRING value.
func String(s string) Value { return Value{Type: TypeString, S: s} }

// AsFloat returns the value on the float path. LINT converts with the
// usual precision loss above 2^53; the caller decides whether that is
// acceptable for the operation.
func (v Value) AsFloat() float64 {
	switch v.Type {
	case TypeBool:
		if v.B {
			return 1
		}
		return 0
	case TypeLInt:
		return float64(v.I)
	case TypeString:
		return 0
	}
	return v.N
}

// AsInt returns the value truncated toward zero on the int64 path.
func (v Value) AsInt() int64 {
	switch v.Type {
	case TypeBool:
		if v.B {
			return 1
		}
		return 0
	case TypeLInt:
		return v.I
	case TypeString:
		return 0
	}
	return int64(v.N)
}

// IsTruthy reports the boolean interpretation of the value.
func (v Value) IsTruthy() bool {
	switch v.Type {
	case TypeBool:
		return v.B
	case TypeLInt:
		return v.I != 0
	case TypeString:
		return v.S != ""
	}
	return v.N != 0
}

// Equal reports observational equality between two values.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeBool:
		return v.B == o.B
	case TypeLInt:
		return v.I == o.I
	case TypeString:
		return v.S == o.S
	}
	return v.N == o.N
}

func (v Value) String() string {
	switch v.Type {
	case TypeBool:
		return strconv.FormatBool(v.B)
	case TypeLInt:
		return strconv.FormatInt(v.I, 10)
	case TypeString:
		return v.S
	case TypeReal, TypeLReal:
		return strconv.FormatFloat(v.N, 'g', -1, 64)
	}
	return strconv.FormatInt(int64(v.N), 10)
}

// ---------------------------------------------------------------------------
// Program structure
// ---------------------------------------------------------------------------

// Program is the executable IR: declared variables in declaration order
// followed by the top-level statement list. Programs are immutable once
// built.
type Program struct {
	Name      string
	Variables []Variable
	Body      []Stmt
}

// Variable is one declared program variable.
type Variable struct {
	Name      string
	Type      DataType
	StringLen int  // declared STRING[n] length; 0 means default
	Init      Expr // nil when no initializer was declared
	Range     SourceRange
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Stmt is the closed statement variant set. The interpreter matches it
// exhaustively and fails on anything it does not recognize.
type Stmt interface {
	Span() SourceRange
	stmtNode()
}

// AssignStmt writes the value of Expr through Target, which is either a
// *VarExpr or an *AddrExpr.
type AssignStmt struct {
	Target Expr
	Value  Expr
	Range  SourceRange
}

// IfBranch is one arm of an IF/ELSIF/ELSE chain. Cond is nil for the
// bare ELSE arm.
type IfBranch struct {
	Cond Expr
	Body []Stmt
}

// IfStmt executes the first branch whose condition is true.
type IfStmt struct {
	Branches []IfBranch
	Range    SourceRange
}

// WhileStmt re-evaluates Cond before every pass over Body.
type WhileStmt struct {
	Cond  Expr
	Body  []Stmt
	Range SourceRange
}

// CaseSelector is either a discrete value or an inclusive range.
type CaseSelector interface {
	selectorNode()
}

// ValueSelector matches the discriminant exactly.
type ValueSelector struct {
	Value Expr
}

// RangeSelector matches Lo <= discriminant <= Hi.
type RangeSelector struct {
	Lo, Hi Expr
}

func (*ValueSelector) selectorNode() {}
func (*RangeSelector) selectorNode() {}

// CaseBranch is one CASE arm with its selector list.
type CaseBranch struct {
	Selectors []CaseSelector
	Body      []Stmt
}

// CaseStmt evaluates the discriminant once and executes the first
// matching branch, or Else when no branch matches.
type CaseStmt struct {
	Discriminant Expr
	Branches     []CaseBranch
	Else         []Stmt
	Range        SourceRange
}

// ForStmt iterates a bound scalar from Initial to End by Step (default
// 1). The iterator is written through its binding every iteration.
type ForStmt struct {
	Iterator  string
	IterRange SourceRange
	Initial   Expr
	End       Expr
	Step      Expr // nil means step 1
	Body      []Stmt
	Range     SourceRange
}

// ExitStmt leaves the innermost enclosing loop.
type ExitStmt struct {
	Range SourceRange
}

// ContinueStmt skips to the next iteration of the innermost loop.
type ContinueStmt struct {
	Range SourceRange
}

func (s *AssignStmt) Span() SourceRange   { return s.Range }
func (s *IfStmt) Span() SourceRange       { return s.Range }
func (s *WhileStmt) Span() SourceRange    { return s.Range }
func (s *CaseStmt) Span() SourceRange     { return s.Range }
func (s *ForStmt) Span() SourceRange      { return s.Range }
func (s *ExitStmt) Span() SourceRange     { return s.Range }
func (s *ContinueStmt) Span() SourceRange { return s.Range }

func (*AssignStmt) stmtNode()   {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*CaseStmt) stmtNode()     {}
func (*ForStmt) stmtNode()      {}
func (*ExitStmt) stmtNode()     {}
func (*ContinueStmt) stmtNode() {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// UnaryOp enumerates the unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota // logical NOT
	OpNeg                // numeric negation
	OpIdent              // unary plus, identity
)

// BinOp enumerates the arithmetic and boolean binary operators.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpXor
)

// CmpOp enumerates the comparison operators.
type CmpOp int

const (
	OpEQ CmpOp = iota
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
)

// Expr is the closed expression variant set.
type Expr interface {
	Span() SourceRange
	exprNode()
}

// Literal is a typed constant.
type Literal struct {
	Value Value
	Range SourceRange
}

// VarExpr references a declared program variable by name.
type VarExpr struct {
	Name  string
	Range SourceRange
}

// AddrExpr references controller memory directly by an absolute address
// token (I0.3, QB2, MW10, MD4). TypeHint is the width-implied default
// type; bindings and overrides may refine it.
type AddrExpr struct {
	Token    string
	TypeHint DataType
	Range    SourceRange
}

// UnaryExpr applies a unary operator.
type UnaryExpr struct {
	Op    UnaryOp
	X     Expr
	Range SourceRange
}

// BinaryExpr applies an arithmetic or boolean operator. AND/OR/XOR
// evaluate both operands eagerly; there is no short-circuiting.
type BinaryExpr struct {
	Op    BinOp
	L, R  Expr
	Range SourceRange
}

// CompareExpr applies a comparison operator, yielding BOOL.
type CompareExpr struct {
	Op    CmpOp
	L, R  Expr
	Range SourceRange
}

func (e *Literal) Span() SourceRange     { return e.Range }
func (e *VarExpr) Span() SourceRange     { return e.Range }
func (e *AddrExpr) Span() SourceRange    { return e.Range }
func (e *UnaryExpr) Span() SourceRange   { return e.Range }
func (e *BinaryExpr) Span() SourceRange  { return e.Range }
func (e *CompareExpr) Span() SourceRange { return e.Range }

func (*Literal) exprNode()     {}
func (*VarExpr) exprNode()     {}
func (*AddrExpr) exprNode()    {}
func (*UnaryExpr) exprNode()   {}
func (*BinaryExpr) exprNode()  {}
func (*CompareExpr) exprNode() {}
