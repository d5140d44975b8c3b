package ir

import (
	"strconv"
	"strings"

	"github.com/plcsim/stcore/pkg/ast"
	"github.com/plcsim/stcore/pkg/mem"
)

// ---------------------------------------------------------------------------
// IR builder
// ---------------------------------------------------------------------------
// Build translates the external parser's generic tree into the typed IR.
// Translation is atomic: any unsupported shape fails with the offending
// node's source range and no partial Program is ever returned.

// Build locates the first supported top-level block in root and
// translates its declarations and statements into a Program.
func Build(root *ast.Node) (*Program, error) {
	block := findBlock(root)
	if block == nil {
		return nil, buildErrf(span(root), "no supported block found (expected function block, organization block, function or data block)")
	}
	prog := &Program{}
	if id := block.Child(ast.TokenIdentifier); id != nil {
		prog.Name = id.Text
	}
	for _, section := range block.ChildrenNamed(ast.RuleVarSection) {
		for _, decl := range section.ChildrenNamed(ast.RuleVarDecl) {
			v, err := buildVarDecl(decl)
			if err != nil {
				return nil, err
			}
			prog.Variables = append(prog.Variables, v)
		}
	}
	if list := block.Child(ast.RuleStatementList); list != nil {
		body, err := buildStatements(list)
		if err != nil {
			return nil, err
		}
		prog.Body = body
	}
	return prog, nil
}

var blockRules = []string{
	ast.RuleFunctionBlock,
	ast.RuleOrganizationBlock,
	ast.RuleFunction,
	ast.RuleDataBlock,
}

func findBlock(root *ast.Node) *ast.Node {
	for _, rule := range blockRules {
		if root.Name == rule {
			return root
		}
	}
	for _, c := range root.Children {
		for _, rule := range blockRules {
			if c.Name == rule {
				return c
			}
		}
	}
	return nil
}

func span(n *ast.Node) SourceRange {
	return SourceRange{Start: n.Range.Start, End: n.Range.End}
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func buildVarDecl(decl *ast.Node) (Variable, error) {
	id := decl.Child(ast.TokenIdentifier)
	if id == nil {
		return Variable{}, buildErrf(span(decl), "variable declaration without a name")
	}
	typeNode := decl.Child(ast.RuleTypeName)
	if typeNode == nil {
		return Variable{}, buildErrf(span(decl), "variable %q has no type annotation", id.Text)
	}
	dt, strLen, err := parseTypeToken(typeNode)
	if err != nil {
		return Variable{}, err
	}
	v := Variable{Name: id.Text, Type: dt, StringLen: strLen, Range: span(decl)}
	if init := decl.Child(ast.RuleExpression); init != nil {
		expr, err := buildExpr(init, false)
		if err != nil {
			return Variable{}, err
		}
		v.Init = expr
	}
	return v, nil
}

// parseTypeToken resolves a declaration type token. STRING accepts an
// optional bracketed length, e.g. STRING[40].
func parseTypeToken(node *ast.Node) (DataType, int, error) {
	text := strings.TrimSpace(node.Text)
	upper := strings.ToUpper(text)
	if strings.HasPrefix(upper, "STRING") {
		rest := strings.TrimSpace(text[len("STRING"):])
		if rest == "" {
			return TypeString, 0, nil
		}
		if strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]") {
			n, err := strconv.Atoi(strings.TrimSpace(rest[1 : len(rest)-1]))
			if err == nil && n > 0 && n <= 254 {
				return TypeString, n, nil
			}
		}
		return 0, 0, buildErrf(span(node), "invalid STRING length in %q", text)
	}
	dt, ok := ParseDataType(upper)
	if !ok {
		return 0, 0, buildErrf(span(node), "unsupported data type %q", text)
	}
	return dt, 0, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func buildStatements(list *ast.Node) ([]Stmt, error) {
	var out []Stmt
	for _, n := range list.Children {
		s, err := buildStatement(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func buildStatement(n *ast.Node) (Stmt, error) {
	switch n.Name {
	case ast.RuleAssignment:
		return buildAssignment(n)
	case ast.RuleIfStmt:
		return buildIf(n)
	case ast.RuleWhileStmt:
		return buildWhile(n)
	case ast.RuleCaseStmt:
		return buildCase(n)
	case ast.RuleForStmt:
		return buildFor(n)
	case ast.RuleExitStmt:
		return &ExitStmt{Range: span(n)}, nil
	case ast.RuleContinueStmt:
		return &ContinueStmt{Range: span(n)}, nil
	}
	return nil, buildErrf(span(n), "unsupported statement %q", n.Name)
}

func buildAssignment(n *ast.Node) (Stmt, error) {
	id := n.Child(ast.TokenIdentifier)
	expr := n.Child(ast.RuleExpression)
	if id == nil || expr == nil {
		return nil, buildErrf(span(n), "malformed assignment")
	}
	target := classifyIdentifier(id)
	value, err := buildExpr(expr, false)
	if err != nil {
		return nil, err
	}
	return &AssignStmt{Target: target, Value: value, Range: span(n)}, nil
}

func buildIf(n *ast.Node) (Stmt, error) {
	stmt := &IfStmt{Range: span(n)}
	branches := n.ChildrenNamed(ast.RuleIfBranch)
	if len(branches) == 0 {
		return nil, buildErrf(span(n), "IF without branches")
	}
	for i, br := range branches {
		var cond Expr
		if c := br.Child(ast.RuleExpression); c != nil {
			var err error
			cond, err = buildExpr(c, false)
			if err != nil {
				return nil, err
			}
		} else if i != len(branches)-1 {
			// Only the trailing ELSE may omit its condition.
			return nil, buildErrf(span(br), "branch without condition before ELSE")
		}
		body, err := buildBranchBody(br)
		if err != nil {
			return nil, err
		}
		stmt.Branches = append(stmt.Branches, IfBranch{Cond: cond, Body: body})
	}
	return stmt, nil
}

func buildWhile(n *ast.Node) (Stmt, error) {
	condNode := n.Child(ast.RuleExpression)
	if condNode == nil {
		return nil, buildErrf(span(n), "WHILE without condition")
	}
	cond, err := buildExpr(condNode, false)
	if err != nil {
		return nil, err
	}
	body, err := buildBranchBody(n)
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body, Range: span(n)}, nil
}

func buildCase(n *ast.Node) (Stmt, error) {
	discNode := n.Child(ast.RuleExpression)
	if discNode == nil {
		return nil, buildErrf(span(n), "CASE without discriminant")
	}
	disc, err := buildExpr(discNode, false)
	if err != nil {
		return nil, err
	}
	stmt := &CaseStmt{Discriminant: disc, Range: span(n)}
	for _, br := range n.ChildrenNamed(ast.RuleCaseBranch) {
		branch := CaseBranch{}
		for _, sel := range br.Children {
			switch sel.Name {
			case ast.RuleCaseValue:
				e := sel.Child(ast.RuleExpression)
				if e == nil {
					return nil, buildErrf(span(sel), "empty case selector")
				}
				expr, err := buildExpr(e, false)
				if err != nil {
					return nil, err
				}
				branch.Selectors = append(branch.Selectors, &ValueSelector{Value: expr})
			case ast.RuleCaseRange:
				exprs := sel.ChildrenNamed(ast.RuleExpression)
				if len(exprs) != 2 {
					return nil, buildErrf(span(sel), "case range needs exactly two bounds")
				}
				// Range bounds compare on the 64-bit path, so their
				// literals parse wide.
				lo, err := buildExpr(exprs[0], true)
				if err != nil {
					return nil, err
				}
				hi, err := buildExpr(exprs[1], true)
				if err != nil {
					return nil, err
				}
				branch.Selectors = append(branch.Selectors, &RangeSelector{Lo: lo, Hi: hi})
			case ast.RuleStatementList:
				// handled below
			default:
				return nil, buildErrf(span(sel), "unsupported case selector %q", sel.Name)
			}
		}
		if len(branch.Selectors) == 0 {
			return nil, buildErrf(span(br), "CASE branch without selectors")
		}
		body, err := buildBranchBody(br)
		if err != nil {
			return nil, err
		}
		branch.Body = body
		stmt.Branches = append(stmt.Branches, branch)
	}
	if el := n.Child(ast.RuleCaseElse); el != nil {
		body, err := buildBranchBody(el)
		if err != nil {
			return nil, err
		}
		stmt.Else = body
	}
	return stmt, nil
}

func buildFor(n *ast.Node) (Stmt, error) {
	id := n.Child(ast.TokenIdentifier)
	if id == nil {
		return nil, buildErrf(span(n), "FOR without iterator")
	}
	exprs := n.ChildrenNamed(ast.RuleExpression)
	if len(exprs) < 2 || len(exprs) > 3 {
		return nil, buildErrf(span(n), "FOR needs initial and end expressions, optional step")
	}
	initial, err := buildExpr(exprs[0], false)
	if err != nil {
		return nil, err
	}
	end, err := buildExpr(exprs[1], false)
	if err != nil {
		return nil, err
	}
	var step Expr
	if len(exprs) == 3 {
		step, err = buildExpr(exprs[2], false)
		if err != nil {
			return nil, err
		}
	}
	body, err := buildBranchBody(n)
	if err != nil {
		return nil, err
	}
	return &ForStmt{
		Iterator:  strings.TrimPrefix(id.Text, "#"),
		IterRange: span(id),
		Initial:   initial,
		End:       end,
		Step:      step,
		Body:      body,
		Range:     span(n),
	}, nil
}

func buildBranchBody(n *ast.Node) ([]Stmt, error) {
	if list := n.Child(ast.RuleStatementList); list != nil {
		return buildStatements(list)
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// buildExpr translates the uniform binary-expression shape. The node's
// children alternate operands and operator tokens; a single operand
// collapses to itself (this also collapses parenthesization). wide
// forces 64-bit parsing of integer literals, used for CASE range bounds.
func buildExpr(n *ast.Node, wide bool) (Expr, error) {
	switch n.Name {
	case ast.RuleExpression:
		// fall through to the operand/operator walk below
	case ast.RuleUnaryExpr:
		return buildUnary(n, wide)
	case ast.RulePrimary:
		return buildPrimary(n, wide)
	default:
		return buildOperand(n, wide)
	}
	if len(n.Children) == 0 {
		return nil, buildErrf(span(n), "empty expression")
	}
	left, err := buildOperand(n.Children[0], wide)
	if err != nil {
		return nil, err
	}
	i := 1
	for i < len(n.Children) {
		if i+1 >= len(n.Children) {
			return nil, buildErrf(span(n), "operator without right operand")
		}
		opNode := n.Children[i]
		right, err := buildOperand(n.Children[i+1], wide)
		if err != nil {
			return nil, err
		}
		r := SourceRange{Start: left.Span().Start, End: right.Span().End}
		if bin, ok := binOpFor(opNode.Name); ok {
			left = &BinaryExpr{Op: bin, L: left, R: right, Range: r}
		} else if cmp, ok := cmpOpFor(opNode.Name); ok {
			left = &CompareExpr{Op: cmp, L: left, R: right, Range: r}
		} else {
			return nil, buildErrf(span(opNode), "unsupported operator %q", opNode.Name)
		}
		i += 2
	}
	return left, nil
}

func buildOperand(n *ast.Node, wide bool) (Expr, error) {
	switch n.Name {
	case ast.RuleExpression:
		return buildExpr(n, wide)
	case ast.RuleUnaryExpr:
		return buildUnary(n, wide)
	case ast.RulePrimary:
		return buildPrimary(n, wide)
	}
	return buildLeaf(n, wide)
}

func buildUnary(n *ast.Node, wide bool) (Expr, error) {
	if len(n.Children) != 2 {
		return nil, buildErrf(span(n), "malformed unary expression")
	}
	operand, err := buildOperand(n.Children[1], wide)
	if err != nil {
		return nil, err
	}
	switch n.Children[0].Name {
	case ast.TokenNot:
		return &UnaryExpr{Op: OpNot, X: operand, Range: span(n)}, nil
	case ast.TokenMinus:
		return &UnaryExpr{Op: OpNeg, X: operand, Range: span(n)}, nil
	case ast.TokenPlus:
		// Unary plus is the identity; keep the operand directly.
		return operand, nil
	}
	return nil, buildErrf(span(n.Children[0]), "unsupported unary operator %q", n.Children[0].Name)
}

func buildPrimary(n *ast.Node, wide bool) (Expr, error) {
	if len(n.Children) != 1 {
		return nil, buildErrf(span(n), "malformed primary expression")
	}
	return buildOperand(n.Children[0], wide)
}

func buildLeaf(n *ast.Node, wide bool) (Expr, error) {
	r := span(n)
	switch n.Name {
	case ast.TokenNumber:
		v, ok := parseNumber(n.Text, wide)
		if !ok {
			return nil, buildErrf(r, "malformed numeric literal %q", n.Text)
		}
		return &Literal{Value: v, Range: r}, nil
	case ast.TokenBool:
		v, ok := parseBoolLiteral(n.Text)
		if !ok {
			return nil, buildErrf(r, "malformed boolean literal %q", n.Text)
		}
		return &Literal{Value: v, Range: r}, nil
	case ast.TokenString:
		s, ok := parseStringLiteral(n.Text)
		if !ok {
			return nil, buildErrf(r, "malformed string literal %q", n.Text)
		}
		return &Literal{Value: String(s), Range: r}, nil
	case ast.TokenTime:
		v, ok := parseTimeLiteral(n.Text)
		if !ok {
			return nil, buildErrf(r, "malformed duration literal %q", n.Text)
		}
		return &Literal{Value: v, Range: r}, nil
	case ast.TokenDate:
		v, ok := parseDateLiteral(n.Text)
		if !ok {
			return nil, buildErrf(r, "malformed date literal %q", n.Text)
		}
		return &Literal{Value: v, Range: r}, nil
	case ast.TokenTimeOfDay:
		v, ok := parseTodLiteral(n.Text)
		if !ok {
			return nil, buildErrf(r, "malformed time-of-day literal %q", n.Text)
		}
		return &Literal{Value: v, Range: r}, nil
	case ast.TokenIdentifier:
		return classifyIdentifier(n), nil
	}
	return nil, buildErrf(r, "unsupported expression node %q", n.Name)
}

// classifyIdentifier decides whether a bare identifier is a direct
// memory-address token or a plain variable reference. A leading '#'
// sigil always means a local variable.
func classifyIdentifier(n *ast.Node) Expr {
	r := span(n)
	text := n.Text
	if strings.HasPrefix(text, "#") {
		return &VarExpr{Name: text[1:], Range: r}
	}
	if addr, ok := mem.ParseAbsolute(text); ok {
		return &AddrExpr{Token: text, TypeHint: addrTypeHint(addr.Width), Range: r}
	}
	return &VarExpr{Name: text, Range: r}
}

// addrTypeHint maps an access width to the default data type used when
// no binding or override refines it.
func addrTypeHint(w mem.Width) DataType {
	switch w {
	case mem.WidthBit:
		return TypeBool
	case mem.WidthByte:
		return TypeByte
	case mem.WidthWord:
		return TypeInt
	}
	return TypeDInt
}

func binOpFor(token string) (BinOp, bool) {
	switch token {
	case ast.TokenPlus:
		return OpAdd, true
	case ast.TokenMinus:
		return OpSub, true
	case ast.TokenStar:
		return OpMul, true
	case ast.TokenSlash:
		return OpDiv, true
	case ast.TokenAnd:
		return OpAnd, true
	case ast.TokenOr:
		return OpOr, true
	case ast.TokenXor:
		return OpXor, true
	}
	return 0, false
}

func cmpOpFor(token string) (CmpOp, bool) {
	switch token {
	case ast.TokenEQ:
		return OpEQ, true
	case ast.TokenNE:
		return OpNE, true
	case ast.TokenLT:
		return OpLT, true
	case ast.TokenLE:
		return OpLE, true
	case ast.TokenGT:
		return OpGT, true
	case ast.TokenGE:
		return OpGE, true
	}
	return 0, false
}
