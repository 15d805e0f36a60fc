// Package parser implements the recursive-descent, scope-aware parser
// that turns a preprocessed token stream into an ast.Program. See
// spec.md §4.G.
//
// Grounded on internal/compiler/script/parser.go's Pratt-parser shape
// (precedence table + prefix/infix dispatch), generalized from GMX
// script expressions to SCL's precedence ladder and desugaring rules.
package parser

import (
	"strconv"

	"scl/internal/compiler/ast"
	cerrors "scl/internal/compiler/errors"
	"scl/internal/compiler/scope"
	"scl/internal/compiler/token"
)

// Precedence levels, low to high, per spec.md §4.G's ladder:
// &&, ||, comparison, -> (range), .. (join), +/-, */ /%, subscript, factor.
const (
	_ int = iota
	precAnd
	precOr
	precComparison
	precRange
	precJoin
	precSum
	precProduct
)

// MaxParseDepth bounds recursive-descent nesting. SCL source is untrusted
// input (unlike the teacher's own .gmx files), so unlike the teacher's
// parser this one guards against stack exhaustion from pathological
// nesting rather than relying on the host stack alone.
const MaxParseDepth = 2000

// Parser holds token-stream position, the active scope chain, and the
// fresh-name counter used by list desugaring.
type Parser struct {
	toks []token.Token
	pos  int

	cur  token.Token
	peek token.Token

	depth int
	fresh int
}

// New creates a Parser over a preprocessed token stream (which always
// ends in statement-end then end-of-file, per spec.md §4.C).
func New(toks []token.Token) *Parser {
	p := &Parser{toks: toks}
	p.advance()
	p.advance()
	return p
}

// Parse consumes the whole token stream and returns the root Program.
func Parse(toks []token.Token) (*ast.Program, error) {
	p := New(toks)
	body := []ast.Statement{}
	root := scope.New(&body)

	for !p.curIs(token.EOF) {
		if p.curIs(token.StatementEnd) {
			p.advance()
			continue
		}
		stmt, err := p.parseStatement(root)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			root.Append(stmt)
		}
	}

	return &ast.Program{Body: body}, nil
}

func (p *Parser) advance() {
	p.cur = p.peek
	if p.pos < len(p.toks) {
		p.peek = p.toks[p.pos]
		p.pos++
	} else {
		p.peek = token.Token{Kind: token.EOF, Line: p.cur.Line}
	}
}

func (p *Parser) curIs(k token.Kind) bool  { return p.cur.Kind == k }
func (p *Parser) peekIs(k token.Kind) bool { return p.peek.Kind == k }

func (p *Parser) curIsLexeme(k token.Kind, lex string) bool {
	return p.cur.Kind == k && p.cur.Lexeme == lex
}

func (p *Parser) expect(k token.Kind, what string) (token.Token, error) {
	if !p.curIs(k) {
		return token.Token{}, cerrors.New(cerrors.Parse, p.cur.Line, "expected %s, got %q", what, p.cur.Lexeme)
	}
	tok := p.cur
	p.advance()
	return tok, nil
}

// expectStatementEnd consumes exactly one statement-end token. A statement
// directly followed by the '}' that closes its block needs none; the '}'
// is left for the block parser to consume.
func (p *Parser) expectStatementEnd() error {
	if p.curIs(token.BlockEnd) {
		return nil
	}
	if !p.curIs(token.StatementEnd) {
		return cerrors.New(cerrors.Parse, p.cur.Line, "expected statement terminator, got %q", p.cur.Lexeme)
	}
	p.advance()
	return nil
}

func (p *Parser) freshName(prefix string) string {
	p.fresh++
	return "$" + prefix + strconv.Itoa(p.fresh)
}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

func (p *Parser) parseStatement(s *scope.Scope) (ast.Statement, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxParseDepth {
		return nil, cerrors.New(cerrors.Parse, p.cur.Line, "maximum parse nesting depth exceeded")
	}

	if p.curIs(token.Keyword) {
		switch p.cur.Lexeme {
		case "var", "const", "array":
			return p.parseVariableDeclaration(s)
		case "if":
			return p.parseIf(s)
		case "while":
			return p.parseWhile(s)
		case "until":
			return p.parseUntil(s)
		case "for":
			return p.parseFor(s)
		case "function", "attribute":
			return p.parseFunctionDeclaration(s)
		case "clone":
			return p.parseClone(s)
		case "delete":
			return p.parseDelete(s)
		}
	}

	if p.curIs(token.BlockStart) {
		return p.parseBlock(s)
	}

	return p.parseSimpleStatement(s)
}

func (p *Parser) parseBlock(parent *scope.Scope) (*ast.Block, error) {
	if _, err := p.expect(token.BlockStart, "'{'"); err != nil {
		return nil, err
	}
	body := []ast.Statement{}
	child := parent.Child(&body)
	for !p.curIs(token.BlockEnd) {
		if p.curIs(token.EOF) {
			return nil, cerrors.New(cerrors.Parse, p.cur.Line, "unterminated block")
		}
		if p.curIs(token.StatementEnd) {
			p.advance()
			continue
		}
		stmt, err := p.parseStatement(child)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			child.Append(stmt)
		}
	}
	p.advance() // consume '}'
	return &ast.Block{Body: body}, nil
}

func (p *Parser) parseVariableDeclaration(s *scope.Scope) (ast.Statement, error) {
	line := p.cur.Line
	isConst := p.cur.Lexeme == "const"
	isArray := p.cur.Lexeme == "array"
	p.advance()

	name, err := p.expect(token.Identifier, "a declaration name")
	if err != nil {
		return nil, err
	}

	var value ast.Expression
	if p.curIsLexeme(token.Assignment, "=") {
		p.advance()
		value, err = p.parseExpression(s, precAnd)
		if err != nil {
			return nil, err
		}
	}

	decl, err := ast.NewVariableDeclaration(name.Lexeme, isConst, isArray, value, line)
	if err != nil {
		return nil, err
	}
	s.DeclareVariable(decl)

	if err := p.expectStatementEnd(); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseIf(s *scope.Scope) (ast.Statement, error) {
	line := p.cur.Line
	p.advance()
	if _, err := p.expect(token.LeftParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(s, precAnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RightParen, "')'"); err != nil {
		return nil, err
	}
	then, err := p.parseBlock(s)
	if err != nil {
		return nil, err
	}

	if p.curIsLexeme(token.Keyword, "else") {
		p.advance()
		var elseBlock *ast.Block
		if p.curIsLexeme(token.Keyword, "if") {
			elseStmt, err := p.parseIf(s)
			if err != nil {
				return nil, err
			}
			elseBlock = &ast.Block{Body: []ast.Statement{elseStmt}}
		} else {
			elseBlock, err = p.parseBlock(s)
			if err != nil {
				return nil, err
			}
		}
		return &ast.FunctionCall{
			Name:          "control_if_else",
			Args:          []ast.Expression{cond, then, elseBlock},
			AlwaysBuiltin: true,
			Line:          line,
		}, nil
	}

	return &ast.FunctionCall{
		Name:          "control_if",
		Args:          []ast.Expression{cond, then},
		AlwaysBuiltin: true,
		Line:          line,
	}, nil
}

// parseWhile lowers `while (c) body` to `control_repeat_until(not c, body)`.
func (p *Parser) parseWhile(s *scope.Scope) (ast.Statement, error) {
	line := p.cur.Line
	p.advance()
	if _, err := p.expect(token.LeftParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(s, precAnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RightParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(s)
	if err != nil {
		return nil, err
	}
	notCond := &ast.FunctionCall{Name: "operator_not", Args: []ast.Expression{cond}, AlwaysBuiltin: true, Line: line}
	return &ast.FunctionCall{
		Name:          "control_repeat_until",
		Args:          []ast.Expression{notCond, body},
		AlwaysBuiltin: true,
		Line:          line,
	}, nil
}

// parseUntil lowers `until (c) body` to `control_repeat_until(c, body)`.
func (p *Parser) parseUntil(s *scope.Scope) (ast.Statement, error) {
	line := p.cur.Line
	p.advance()
	if _, err := p.expect(token.LeftParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(s, precAnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RightParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(s)
	if err != nil {
		return nil, err
	}
	return &ast.FunctionCall{
		Name:          "control_repeat_until",
		Args:          []ast.Expression{cond, body},
		AlwaysBuiltin: true,
		Line:          line,
	}, nil
}

// parseFor lowers `for (v = seq) body` to a block that declares v and a
// private index, then loops until the index reaches the sequence length.
func (p *Parser) parseFor(s *scope.Scope) (ast.Statement, error) {
	line := p.cur.Line
	p.advance()
	if _, err := p.expect(token.LeftParen, "'('"); err != nil {
		return nil, err
	}
	varName, err := p.expect(token.Identifier, "a loop variable")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Assignment, "'='"); err != nil {
		return nil, err
	}
	seq, err := p.parseExpression(s, precAnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RightParen, "')'"); err != nil {
		return nil, err
	}

	if !isListExpr(seq) {
		return nil, cerrors.New(cerrors.Parse, line, "for (v = seq) requires seq to be a list")
	}

	outerBody := []ast.Statement{}
	outer := s.Child(&outerBody)

	idxName := p.freshName("idx")
	idxDecl, _ := ast.NewVariableDeclaration(idxName, false, false, &ast.Number{Value: 0, Line: line}, line)
	outer.DeclareVariable(idxDecl)
	outer.Append(idxDecl)

	loopVarDecl, _ := ast.NewVariableDeclaration(varName.Lexeme, false, false, nil, line)
	outer.DeclareVariable(loopVarDecl)
	outer.Append(loopVarDecl)

	userBody, err := p.parseBlock(outer)
	if err != nil {
		return nil, err
	}

	lengthCall := &ast.FunctionCall{Name: "data_lengthoflist", Args: []ast.Expression{seq}, AlwaysBuiltin: true, Line: line}
	done := &ast.FunctionCall{
		Name:          "operator_equals",
		Args:          []ast.Expression{&ast.Identifier{Name: idxName, Line: line}, lengthCall},
		AlwaysBuiltin: true, Line: line,
	}

	incr := &ast.FunctionCall{
		Name:          "data_changevariableby",
		Args:          []ast.Expression{&ast.Identifier{Name: idxName, Line: line}, &ast.Number{Value: 1, Line: line}},
		AlwaysBuiltin: true, Line: line,
	}
	assignItem := &ast.FunctionCall{
		Name: "data_setvariableto",
		Args: []ast.Expression{
			&ast.Identifier{Name: varName.Lexeme, Line: line},
			&ast.FunctionCall{Name: "data_itemoflist", Args: []ast.Expression{seq, &ast.Identifier{Name: idxName, Line: line}}, AlwaysBuiltin: true, Line: line},
		},
		AlwaysBuiltin: true, Line: line,
	}

	loopBody := &ast.Block{Body: append([]ast.Statement{incr, assignItem}, userBody.Body...)}

	loop := &ast.FunctionCall{
		Name:          "control_repeat_until",
		Args:          []ast.Expression{done, loopBody},
		AlwaysBuiltin: true,
		Line:          line,
	}
	outer.Append(loop)

	return &ast.Block{Body: outerBody}, nil
}

// parseFunctionDeclaration parses `function name(params) body`, with
// optional `attribute(x, y)` clauses before or after the signature.
func (p *Parser) parseFunctionDeclaration(s *scope.Scope) (ast.Statement, error) {
	line := p.cur.Line
	var attrs []string

	for p.curIsLexeme(token.Keyword, "attribute") {
		as, err := p.parseAttributeClause()
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, as...)
	}

	if _, err := p.expect(token.Keyword, "'function'"); err != nil {
		return nil, err
	}
	name, err := p.expect(token.Identifier, "a function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LeftParen, "'('"); err != nil {
		return nil, err
	}
	var params []string
	for !p.curIs(token.RightParen) {
		param, err := p.expect(token.Identifier, "a parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, param.Lexeme)
		if p.curIs(token.Comma) {
			p.advance()
		}
	}
	p.advance() // ')'

	for p.curIsLexeme(token.Keyword, "attribute") {
		as, err := p.parseAttributeClause()
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, as...)
	}

	decl := &ast.FunctionDeclaration{Name: name.Lexeme, Params: params, Attributes: attrs, Line: line}
	s.DeclareFunction(decl)

	// The parser suppresses a new scope for the function body so that
	// parameter bindings are visible in it: the body shares a fresh
	// scope whose only declarations are the parameters.
	bodyStmts := []ast.Statement{}
	fnScope := s.Child(&bodyStmts)
	for _, param := range params {
		paramDecl, _ := ast.NewVariableDeclaration(param, false, false, nil, line)
		fnScope.DeclareVariable(paramDecl)
	}

	if _, err := p.expect(token.BlockStart, "'{'"); err != nil {
		return nil, err
	}
	for !p.curIs(token.BlockEnd) {
		if p.curIs(token.EOF) {
			return nil, cerrors.New(cerrors.Parse, p.cur.Line, "unterminated function body")
		}
		if p.curIs(token.StatementEnd) {
			p.advance()
			continue
		}
		stmt, err := p.parseStatement(fnScope)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			fnScope.Append(stmt)
		}
	}
	p.advance()

	decl.Body = bodyStmts
	return decl, nil
}

func (p *Parser) parseAttributeClause() ([]string, error) {
	p.advance() // 'attribute'
	if _, err := p.expect(token.LeftParen, "'('"); err != nil {
		return nil, err
	}
	var names []string
	for !p.curIs(token.RightParen) {
		name, err := p.expect(token.Identifier, "an attribute name")
		if err != nil {
			return nil, err
		}
		names = append(names, name.Lexeme)
		if p.curIs(token.Comma) {
			p.advance()
		}
	}
	p.advance() // ')'
	return names, nil
}

// parseClone synthesizes the clone-creation parent statements and the
// discriminator check inside the cloned body, per spec.md §4.G.
func (p *Parser) parseClone(s *scope.Scope) (ast.Statement, error) {
	line := p.cur.Line
	p.advance()
	inner, err := p.parseBlock(s)
	if err != nil {
		return nil, err
	}

	sentinel := p.freshName("clonesentinel")
	discriminator := &ast.Identifier{Name: "$clone", Line: line}

	setSentinel := &ast.FunctionCall{
		Name:          "data_setvariableto",
		Args:          []ast.Expression{discriminator, &ast.String{Value: sentinel, Line: line}},
		AlwaysBuiltin: true, Line: line,
	}
	cloneMenu := &ast.FunctionCall{
		Name:          "control_create_clone_of_menu",
		Args:          []ast.Expression{&ast.Custom{Name: "_myself_", Line: line}},
		AlwaysBuiltin: true, Line: line,
	}
	createClone := &ast.FunctionCall{
		Name:          "control_create_clone_of",
		Args:          []ast.Expression{cloneMenu},
		AlwaysBuiltin: true, Line: line,
	}
	parent := &ast.Block{Body: []ast.Statement{setSentinel, createClone}}

	discriminatorCheck := &ast.FunctionCall{
		Name:          "operator_equals",
		Args:          []ast.Expression{discriminator, &ast.String{Value: sentinel, Line: line}},
		AlwaysBuiltin: true, Line: line,
	}
	guardedInner := &ast.Block{
		Body: []ast.Statement{&ast.FunctionCall{
			Name:          "control_if",
			Args:          []ast.Expression{discriminatorCheck, inner},
			AlwaysBuiltin: true,
			Line:          line,
		}},
	}

	return &ast.Clone{InnerBlock: guardedInner, SynthesizedParentBlock: parent, Line: line}, nil
}

// parseDelete parses `delete name[index];`.
func (p *Parser) parseDelete(s *scope.Scope) (ast.Statement, error) {
	line := p.cur.Line
	p.advance()
	name, err := p.expect(token.Identifier, "a list name")
	if err != nil {
		return nil, err
	}
	if !s.IsArray(name.Lexeme) {
		return nil, cerrors.New(cerrors.Parse, line, "delete %s[...] requires %s to be an array", name.Lexeme, name.Lexeme)
	}
	if _, err := p.expect(token.SubscriptLeft, "'['"); err != nil {
		return nil, err
	}
	idx, err := p.parseExpression(s, precAnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SubscriptRight, "']'"); err != nil {
		return nil, err
	}
	if err := p.expectStatementEnd(); err != nil {
		return nil, err
	}
	return &ast.FunctionCall{
		Name:          "data_deleteoflist",
		Args:          []ast.Expression{&ast.ListIdentifier{Name: name.Lexeme, Line: line}, idx},
		AlwaysBuiltin: true,
		Line:          line,
	}, nil
}

// parseSimpleStatement parses an assignment or an expression statement.
func (p *Parser) parseSimpleStatement(s *scope.Scope) (ast.Statement, error) {
	if p.curIs(token.Identifier) && (p.peekIs(token.Assignment) || p.peekIs(token.SubscriptLeft)) {
		stmt, err := p.parseAssignment(s)
		if err != nil {
			return nil, err
		}
		if err := p.expectStatementEnd(); err != nil {
			return nil, err
		}
		return stmt, nil
	}

	expr, err := p.parseExpression(s, precAnd)
	if err != nil {
		return nil, err
	}
	if err := p.expectStatementEnd(); err != nil {
		return nil, err
	}
	stmt, ok := expr.(ast.Statement)
	if !ok {
		return nil, cerrors.New(cerrors.Parse, p.cur.Line, "expression cannot be used as a statement")
	}
	return stmt, nil
}

func (p *Parser) parseAssignment(s *scope.Scope) (ast.Statement, error) {
	line := p.cur.Line
	name := p.cur.Lexeme
	p.advance()

	if p.curIs(token.SubscriptLeft) {
		p.advance()
		idx, err := p.parseExpression(s, precAnd)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SubscriptRight, "']'"); err != nil {
			return nil, err
		}
		if !s.IsArray(name) {
			return nil, cerrors.New(cerrors.Parse, line, "indexed assignment on non-list %q", name)
		}
		if _, err := p.expect(token.Assignment, "'='"); err != nil {
			return nil, err
		}
		val, err := p.parseExpression(s, precAnd)
		if err != nil {
			return nil, err
		}
		return &ast.FunctionCall{
			Name:          "data_replaceitemoflist",
			Args:          []ast.Expression{&ast.ListIdentifier{Name: name, Line: line}, idx, val},
			AlwaysBuiltin: true,
			Line:          line,
		}, nil
	}

	op := p.cur.Lexeme
	p.advance()
	rhs, err := p.parseExpression(s, precAnd)
	if err != nil {
		return nil, err
	}

	target := &ast.Identifier{Name: name, Line: line}

	if op == "+=" && !isListExpr(rhs) && !s.IsArray(name) {
		return &ast.FunctionCall{
			Name:          "data_changevariableby",
			Args:          []ast.Expression{target, rhs},
			AlwaysBuiltin: true,
			Line:          line,
		}, nil
	}

	if s.IsArray(name) {
		return p.desugarListAssignment(s, name, op, rhs, line)
	}

	value := rhs
	if op != "=" {
		value = &ast.FunctionCall{
			Name:          arithmeticOpFor(op),
			Args:          []ast.Expression{target, rhs},
			AlwaysBuiltin: true,
			Line:          line,
		}
	}
	return &ast.FunctionCall{
		Name:          "data_setvariableto",
		Args:          []ast.Expression{target, value},
		AlwaysBuiltin: true,
		Line:          line,
	}, nil
}

func arithmeticOpFor(op string) string {
	switch op {
	case "+=":
		return "operator_add"
	case "-=":
		return "operator_sub"
	case "*=":
		return "operator_mul"
	case "/=":
		return "operator_div"
	case "%=":
		return "operator_mod"
	default:
		return "operator_add"
	}
}

// desugarListAssignment handles `list = list` and `list += list`: both
// copy the right-hand list's elements into the left-hand list, by
// appending (optionally after clearing).
func (p *Parser) desugarListAssignment(s *scope.Scope, name, op string, rhs ast.Expression, line int) (ast.Statement, error) {
	if !isListExpr(rhs) {
		return nil, cerrors.New(cerrors.Parse, line, "cannot assign a non-list value to list %q", name)
	}
	target := &ast.ListIdentifier{Name: name, Line: line}
	idxName := p.freshName("idx")
	idxDecl, _ := ast.NewVariableDeclaration(idxName, false, false, &ast.Number{Value: 1, Line: line}, line)
	s.DeclareVariable(idxDecl)
	s.Append(idxDecl)
	idx := &ast.Identifier{Name: idxName, Line: line}

	stmts := []ast.Statement{}
	if op == "=" {
		stmts = append(stmts, &ast.FunctionCall{Name: "data_deletealloflist", Args: []ast.Expression{target}, AlwaysBuiltin: true, Line: line})
	}

	lengthCall := &ast.FunctionCall{Name: "data_lengthoflist", Args: []ast.Expression{rhs}, AlwaysBuiltin: true, Line: line}
	cond := &ast.FunctionCall{Name: "operator_gt", Args: []ast.Expression{idx, lengthCall}, AlwaysBuiltin: true, Line: line}
	item := &ast.FunctionCall{Name: "data_itemoflist", Args: []ast.Expression{rhs, idx}, AlwaysBuiltin: true, Line: line}
	appendItem := &ast.FunctionCall{Name: "data_addtolist", Args: []ast.Expression{target, item}, AlwaysBuiltin: true, Line: line}
	incr := &ast.FunctionCall{
		Name:          "data_changevariableby",
		Args:          []ast.Expression{idx, &ast.Number{Value: 1, Line: line}},
		AlwaysBuiltin: true, Line: line,
	}
	loop := &ast.FunctionCall{
		Name:          "control_repeat_until",
		Args:          []ast.Expression{cond, &ast.Block{Body: []ast.Statement{appendItem, incr}}},
		AlwaysBuiltin: true,
		Line:          line,
	}
	stmts = append(stmts, loop)
	return &ast.Block{Body: stmts}, nil
}

// ---------------------------------------------------------------------
// Expressions (precedence climbing)
// ---------------------------------------------------------------------

func precedenceOf(tok token.Token) int {
	switch tok.Kind {
	case token.Operator:
		switch tok.Lexeme {
		case "&&":
			return precAnd
		case "||":
			return precOr
		case "->":
			return precRange
		case "..":
			return precJoin
		case "+", "-":
			return precSum
		case "*", "/", "%":
			return precProduct
		}
	case token.Compare:
		return precComparison
	}
	return 0
}

func (p *Parser) parseExpression(s *scope.Scope, minPrec int) (ast.Expression, error) {
	left, err := p.parseUnary(s)
	if err != nil {
		return nil, err
	}

	for {
		prec := precedenceOf(p.cur)
		if prec == 0 || prec < minPrec {
			break
		}
		op := p.cur
		p.advance()
		right, err := p.parseExpression(s, prec+1)
		if err != nil {
			return nil, err
		}
		left, err = p.combine(s, op, left, right)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

func (p *Parser) combine(s *scope.Scope, op token.Token, left, right ast.Expression) (ast.Expression, error) {
	line := op.Line
	builtin := func(name string, args ...ast.Expression) *ast.FunctionCall {
		return &ast.FunctionCall{Name: name, Args: args, AlwaysBuiltin: true, Line: line}
	}

	switch op.Kind {
	case token.Compare:
		switch op.Lexeme {
		case "==":
			return builtin("operator_equals", left, right), nil
		case "!=":
			return builtin("operator_not", builtin("operator_equals", left, right)), nil
		case "<":
			return builtin("operator_lt", left, right), nil
		case ">":
			return builtin("operator_gt", left, right), nil
		case "<=":
			return builtin("operator_not", builtin("operator_gt", left, right)), nil
		case ">=":
			return builtin("operator_not", builtin("operator_lt", left, right)), nil
		case "in":
			return builtin("operator_contains", right, left), nil
		case "contains":
			return builtin("operator_contains", left, right), nil
		}
	case token.Operator:
		switch op.Lexeme {
		case "&&":
			return builtin("operator_and", left, right), nil
		case "||":
			return builtin("operator_or", left, right), nil
		case "->":
			return p.desugarRange(s, left, right, line)
		case "..":
			return p.desugarJoin(s, left, right, line)
		case "+":
			if isListExpr(left) || isListExpr(right) {
				return p.desugarJoin(s, left, right, line)
			}
			return builtin("operator_add", left, right), nil
		case "-":
			return builtin("operator_sub", left, right), nil
		case "*":
			return builtin("operator_mul", left, right), nil
		case "/":
			return builtin("operator_div", left, right), nil
		case "%":
			return builtin("operator_mod", left, right), nil
		}
	}
	return nil, cerrors.New(cerrors.Parse, line, "unsupported operator %q", op.Lexeme)
}

// desugarRange declares a fresh list + index and emits a repeat-until
// loop appending lo..hi into it, returning a reference to the fresh list.
func (p *Parser) desugarRange(s *scope.Scope, lo, hi ast.Expression, line int) (ast.Expression, error) {
	listName := p.freshName("range")
	idxName := p.freshName("i")

	listDecl, _ := ast.NewVariableDeclaration(listName, false, true, nil, line)
	s.DeclareVariable(listDecl)
	s.Append(listDecl)

	idxDecl, _ := ast.NewVariableDeclaration(idxName, false, false, lo, line)
	s.DeclareVariable(idxDecl)
	s.Append(idxDecl)

	idx := &ast.Identifier{Name: idxName, Line: line}
	list := &ast.ListIdentifier{Name: listName, Line: line}

	cond := &ast.FunctionCall{Name: "operator_gt", Args: []ast.Expression{idx, hi}, AlwaysBuiltin: true, Line: line}
	appendItem := &ast.FunctionCall{Name: "data_addtolist", Args: []ast.Expression{list, idx}, AlwaysBuiltin: true, Line: line}
	incr := &ast.FunctionCall{
		Name:          "data_changevariableby",
		Args:          []ast.Expression{idx, &ast.Number{Value: 1, Line: line}},
		AlwaysBuiltin: true, Line: line,
	}
	loop := &ast.FunctionCall{
		Name:          "control_repeat_until",
		Args:          []ast.Expression{cond, &ast.Block{Body: []ast.Statement{appendItem, incr}}},
		AlwaysBuiltin: true,
		Line:          line,
	}
	s.Append(loop)

	return list, nil
}

// desugarJoin declares a fresh list and copies left then right into it
// (1-based indexing per spec.md §4.G), returning a reference to it.
func (p *Parser) desugarJoin(s *scope.Scope, left, right ast.Expression, line int) (ast.Expression, error) {
	listName := p.freshName("join")
	listDecl, _ := ast.NewVariableDeclaration(listName, false, true, nil, line)
	s.DeclareVariable(listDecl)
	s.Append(listDecl)
	list := &ast.ListIdentifier{Name: listName, Line: line}

	for _, side := range []ast.Expression{left, right} {
		idxName := p.freshName("jidx")
		idxDecl, _ := ast.NewVariableDeclaration(idxName, false, false, &ast.Number{Value: 1, Line: line}, line)
		s.DeclareVariable(idxDecl)
		s.Append(idxDecl)
		idx := &ast.Identifier{Name: idxName, Line: line}

		lengthCall := &ast.FunctionCall{Name: "data_lengthoflist", Args: []ast.Expression{side}, AlwaysBuiltin: true, Line: line}
		cond := &ast.FunctionCall{Name: "operator_gt", Args: []ast.Expression{idx, lengthCall}, AlwaysBuiltin: true, Line: line}
		item := &ast.FunctionCall{Name: "data_itemoflist", Args: []ast.Expression{side, idx}, AlwaysBuiltin: true, Line: line}
		appendItem := &ast.FunctionCall{Name: "data_addtolist", Args: []ast.Expression{list, item}, AlwaysBuiltin: true, Line: line}
		incr := &ast.FunctionCall{
			Name:          "data_changevariableby",
			Args:          []ast.Expression{idx, &ast.Number{Value: 1, Line: line}},
			AlwaysBuiltin: true, Line: line,
		}
		loop := &ast.FunctionCall{
			Name:          "control_repeat_until",
			Args:          []ast.Expression{cond, &ast.Block{Body: []ast.Statement{appendItem, incr}}},
			AlwaysBuiltin: true,
			Line:          line,
		}
		s.Append(loop)
	}

	return list, nil
}

// parseUnary handles unary +/-, then delegates to the postfix/primary
// layer (subscript binds tighter than any binary operator).
func (p *Parser) parseUnary(s *scope.Scope) (ast.Expression, error) {
	if p.curIs(token.Operator) && (p.cur.Lexeme == "-" || p.cur.Lexeme == "+") {
		sign := p.cur.Lexeme
		line := p.cur.Line
		p.advance()
		operand, err := p.parseUnary(s)
		if err != nil {
			return nil, err
		}
		if num, ok := operand.(*ast.Number); ok {
			if sign == "-" {
				num.Value = -num.Value
			}
			return num, nil
		}
		factor := 1.0
		if sign == "-" {
			factor = -1.0
		}
		return &ast.FunctionCall{
			Name:          "operator_mul",
			Args:          []ast.Expression{operand, &ast.Number{Value: factor, Line: line}},
			AlwaysBuiltin: true,
			Line:          line,
		}, nil
	}
	return p.parsePostfix(s)
}

// parsePostfix parses a primary expression followed by any number of
// `[index]` subscripts.
func (p *Parser) parsePostfix(s *scope.Scope) (ast.Expression, error) {
	expr, err := p.parsePrimary(s)
	if err != nil {
		return nil, err
	}
	for p.curIs(token.SubscriptLeft) {
		line := p.cur.Line
		p.advance()
		idx, err := p.parseExpression(s, precAnd)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SubscriptRight, "']'"); err != nil {
			return nil, err
		}
		if isListExpr(expr) {
			expr = &ast.FunctionCall{Name: "data_itemoflist", Args: []ast.Expression{expr, idx}, AlwaysBuiltin: true, Line: line}
		} else {
			expr = &ast.FunctionCall{Name: "operator_letter_of", Args: []ast.Expression{idx, expr}, AlwaysBuiltin: true, Line: line}
		}
	}
	return expr, nil
}

func (p *Parser) parsePrimary(s *scope.Scope) (ast.Expression, error) {
	line := p.cur.Line

	switch {
	case p.curIs(token.Integer) || p.curIs(token.Float):
		lex := p.cur.Lexeme
		p.advance()
		v, err := strconv.ParseFloat(normalizeForParse(lex), 64)
		if err != nil {
			return nil, cerrors.New(cerrors.Parse, line, "malformed numeric literal %q", lex)
		}
		return &ast.Number{Value: v, Line: line}, nil

	case p.curIs(token.String):
		v := p.cur.Lexeme
		p.advance()
		return &ast.String{Value: v, Line: line}, nil

	case p.curIsLexeme(token.Keyword, "true"):
		p.advance()
		return &ast.FunctionCall{Name: "operator_not", AlwaysBuiltin: true, Line: line}, nil

	case p.curIsLexeme(token.Keyword, "false"):
		p.advance()
		inner := &ast.FunctionCall{Name: "operator_not", AlwaysBuiltin: true, Line: line}
		return &ast.FunctionCall{Name: "operator_not", Args: []ast.Expression{inner}, AlwaysBuiltin: true, Line: line}, nil

	case p.curIs(token.LeftParen):
		p.advance()
		expr, err := p.parseExpression(s, precAnd)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RightParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil

	case p.curIs(token.SubscriptLeft):
		return p.parseArrayLiteral(s)

	case p.curIs(token.Identifier):
		return p.parseIdentifierOrCall(s)
	}

	return nil, cerrors.New(cerrors.Parse, line, "unexpected token %q", p.cur.Lexeme)
}

// parseIdentifierOrCall implements scope-aware identifier classification:
// a name that resolves to an array declaration becomes a ListIdentifier,
// otherwise a plain Identifier, unless it is immediately followed by a
// call argument list.
func (p *Parser) parseIdentifierOrCall(s *scope.Scope) (ast.Expression, error) {
	line := p.cur.Line
	name := p.cur.Lexeme
	p.advance()

	if p.curIs(token.LeftParen) {
		p.advance()
		var args []ast.Expression
		for !p.curIs(token.RightParen) {
			arg, err := p.parseExpression(s, precAnd)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.curIs(token.Comma) {
				p.advance()
			}
		}
		p.advance() // ')'
		return &ast.FunctionCall{Name: name, Args: args, AlwaysBuiltin: false, Line: line}, nil
	}

	if s.IsArray(name) {
		return &ast.ListIdentifier{Name: name, Line: line}, nil
	}
	return &ast.Identifier{Name: name, Line: line}, nil
}

// parseArrayLiteral desugars `[a, b, ...]` into a fresh list with a
// delete-all-of-list followed by one add-to-list per element.
func (p *Parser) parseArrayLiteral(s *scope.Scope) (ast.Expression, error) {
	line := p.cur.Line
	p.advance() // '['
	var items []ast.Expression
	for !p.curIs(token.SubscriptRight) {
		item, err := p.parseExpression(s, precAnd)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.curIs(token.Comma) {
			p.advance()
		}
	}
	p.advance() // ']'

	listName := p.freshName("lit")
	listDecl, _ := ast.NewVariableDeclaration(listName, false, true, nil, line)
	s.DeclareVariable(listDecl)
	s.Append(listDecl)
	list := &ast.ListIdentifier{Name: listName, Line: line}

	s.Append(&ast.FunctionCall{Name: "data_deletealloflist", Args: []ast.Expression{list}, AlwaysBuiltin: true, Line: line})
	for _, item := range items {
		s.Append(&ast.FunctionCall{Name: "data_addtolist", Args: []ast.Expression{list, item}, AlwaysBuiltin: true, Line: line})
	}

	return list, nil
}

func isListExpr(e ast.Expression) bool {
	_, ok := e.(*ast.ListIdentifier)
	return ok
}

// normalizeForParse reduces the lexer's radix-prefixed integer forms
// (0b/0o/0x) to plain decimal text so strconv.ParseFloat accepts them.
func normalizeForParse(lex string) string {
	if len(lex) > 2 && lex[0] == '0' {
		var base int
		switch lex[1] {
		case 'b', 'B':
			base = 2
		case 'o', 'O':
			base = 8
		case 'x', 'X':
			base = 16
		default:
			return lex
		}
		n, err := strconv.ParseInt(lex[2:], base, 64)
		if err != nil {
			return lex
		}
		return strconv.FormatInt(n, 10)
	}
	return lex
}
