// Package ast defines the generic parse-tree node shape produced by the
// external Structured Text parser. The IR builder depends only on this
// shape and the fixed set of rule/token names below; the grammar itself
// lives in the parser.
package ast

// Range is a half-open span into the original source text: Start is
// inclusive, End is exclusive. Every node carries one so that build and
// runtime diagnostics can point at the offending text.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Node is one parse-tree node. Rule nodes carry a rule name and
// children; token nodes carry a token name and the matched text.
type Node struct {
	Name     string  `json:"name"`
	Text     string  `json:"text"`
	Range    Range   `json:"range"`
	Children []*Node `json:"children,omitempty"`
}

// Child returns the first direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all direct children with the given name.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// IsToken reports whether the node is a leaf token (no children).
func (n *Node) IsToken() bool {
	return len(n.Children) == 0
}

// Rule names for the supported block and declaration shapes.
const (
	RuleCompilationUnit   = "compilationUnit"
	RuleFunctionBlock     = "functionBlock"
	RuleOrganizationBlock = "organizationBlock"
	RuleFunction          = "function"
	RuleDataBlock         = "dataBlock"
	RuleVarSection        = "varSection"
	RuleVarDecl           = "varDecl"
	RuleTypeName          = "typeName"
	RuleStatementList     = "statementList"
)

// Rule names for the supported statement shapes.
const (
	RuleAssignment   = "assignment"
	RuleIfStmt       = "ifStmt"
	RuleIfBranch     = "ifBranch"
	RuleWhileStmt    = "whileStmt"
	RuleCaseStmt     = "caseStmt"
	RuleCaseBranch   = "caseBranch"
	RuleCaseElse     = "caseElse"
	RuleCaseValue    = "caseValue"
	RuleCaseRange    = "caseRange"
	RuleForStmt      = "forStmt"
	RuleExitStmt     = "exitStmt"
	RuleContinueStmt = "continueStmt"
)

// Rule names for the uniform expression shape. An expression node's
// children alternate operand and operator-token nodes; a unaryExpr node
// is an operator token followed by its operand; a primary node wraps a
// literal, an identifier, or a parenthesized expression.
const (
	RuleExpression = "expression"
	RuleUnaryExpr  = "unaryExpr"
	RulePrimary    = "primary"
)

// Token names emitted by the lexer.
const (
	TokenIdentifier = "IDENTIFIER"
	TokenNumber     = "NUMBER"
	TokenString     = "STRING_LITERAL"
	TokenBool       = "BOOL_LITERAL"
	TokenTime       = "TIME_LITERAL"
	TokenDate       = "DATE_LITERAL"
	TokenTimeOfDay  = "TOD_LITERAL"

	TokenPlus  = "PLUS"
	TokenMinus = "MINUS"
	TokenStar  = "STAR"
	TokenSlash = "SLASH"
	TokenAnd   = "AND"
	TokenOr    = "OR"
	TokenXor   = "XOR"
	TokenNot   = "NOT"

	TokenEQ = "EQ" // =
	TokenNE = "NE" // <>
	TokenLT = "LT" // <
	TokenLE = "LE" // <=
	TokenGT = "GT" // >
	TokenGE = "GE" // >=
)
