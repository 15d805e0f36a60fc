// Package ast defines the AST node set produced by the parser, mutated
// in place by the optimizer, and walked by the lowerer. See spec.md §3.
package ast

import cerrors "scl/internal/compiler/errors"

// Node is the base interface implemented by every AST node.
type Node interface {
	TokenLiteral() string
}

// Statement is the interface for all statement-position nodes.
type Statement interface {
	Node
	statementNode()
}

// Expression is the interface for all expression-position nodes.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root of a compiled unit: a single top-level body.
type Program struct {
	Body []Statement
}

func (p *Program) TokenLiteral() string { return "program" }

// Block is an ordered statement sequence nested inside a construct (a
// function body, an if/while arm, a synthesized loop body, ...).
type Block struct {
	Body []Statement
}

func (b *Block) TokenLiteral() string { return "block" }
func (b *Block) statementNode()       {}
func (b *Block) expressionNode()      {}

// Number is a folded or literal numeric value.
type Number struct {
	Value float64
	Line  int
}

func (n *Number) TokenLiteral() string { return "number" }
func (n *Number) expressionNode()      {}
func (n *Number) statementNode()       {}

// String is a string literal.
type String struct {
	Value string
	Line  int
}

func (s *String) TokenLiteral() string { return "string" }
func (s *String) expressionNode()      {}
func (s *String) statementNode()       {}

// Identifier is a bare name reference that does not resolve to an array
// variable declaration in the active scope chain.
type Identifier struct {
	Name string
	Line int
}

func (i *Identifier) TokenLiteral() string { return i.Name }
func (i *Identifier) expressionNode()      {}
func (i *Identifier) statementNode()       {}

// ListIdentifier is an Identifier that the parser has proven resolves to
// an array variable declaration. Only the parser produces this variant;
// see spec.md §3's invariant.
type ListIdentifier struct {
	Name string
	Line int
}

func (l *ListIdentifier) TokenLiteral() string { return l.Name }
func (l *ListIdentifier) expressionNode()      {}
func (l *ListIdentifier) statementNode()       {}

// FunctionCall is both a user call and the compiler's internal
// representation of every opcode invocation (operator_*, control_*,
// data_*, ...). AlwaysBuiltin distinguishes compiler-synthesized calls
// (eligible for optimization) from calls the user wrote.
type FunctionCall struct {
	Name          string
	Args          []Expression
	AlwaysBuiltin bool
	Line          int
}

func (f *FunctionCall) TokenLiteral() string { return f.Name }
func (f *FunctionCall) expressionNode()      {}
func (f *FunctionCall) statementNode()       {}

// VariableDeclaration introduces a name into the enclosing scope.
// IsConst and IsArray together must never both be true; NewVariableDeclaration
// enforces this at construction per spec.md §3.
type VariableDeclaration struct {
	Name    string
	IsConst bool
	IsArray bool
	Value   Expression // initializer, nil if none
	Line    int
}

// NewVariableDeclaration rejects const arrays at construction time.
func NewVariableDeclaration(name string, isConst, isArray bool, value Expression, line int) (*VariableDeclaration, error) {
	if isConst && isArray {
		return nil, cerrors.New(cerrors.Parse, line, "%q cannot be declared both const and array", name)
	}
	return &VariableDeclaration{Name: name, IsConst: isConst, IsArray: isArray, Value: value, Line: line}, nil
}

func (v *VariableDeclaration) TokenLiteral() string { return v.Name }
func (v *VariableDeclaration) statementNode()       {}

// FunctionDeclaration declares a custom procedure in the enclosing scope.
type FunctionDeclaration struct {
	Name       string
	Params     []string
	Body       []Statement
	Attributes []string
	Line       int
}

func (f *FunctionDeclaration) TokenLiteral() string { return f.Name }
func (f *FunctionDeclaration) statementNode()       {}

// HasAttribute reports whether name is present in Attributes.
func (f *FunctionDeclaration) HasAttribute(name string) bool {
	for _, a := range f.Attributes {
		if a == name {
			return true
		}
	}
	return false
}

// Clone represents a `clone { ... }` block: InnerBlock is the cloned
// body, SynthesizedParentBlock is the statement sequence the parser
// injects into the enclosing scope to drive the clone-creation pair of
// calls and stamp the discriminator sentinel.
type Clone struct {
	InnerBlock             *Block
	SynthesizedParentBlock *Block
	Line                   int
}

func (c *Clone) TokenLiteral() string { return "clone" }
func (c *Clone) statementNode()       {}

// Custom is an opaque placeholder node name (reserved for
// implementation-specific extensions; carried through unmodified).
type Custom struct {
	Name string
	Line int
}

func (c *Custom) TokenLiteral() string { return c.Name }
func (c *Custom) expressionNode()      {}
func (c *Custom) statementNode()       {}

// Macro is the parsed form of a `#define`. It is produced only so the
// preprocessor (which consumes tokens, not AST) has a symmetrical node to
// carry through tooling that walks a token-level AST; the parser proper
// never receives raw #define text, since the preprocessor always expands
// before tokens reach it. Kept per spec.md §3.
type Macro struct {
	Name   string
	Params []string
	Body   []Node
	Line   int
}

func (m *Macro) TokenLiteral() string { return m.Name }
func (m *Macro) statementNode()       {}
