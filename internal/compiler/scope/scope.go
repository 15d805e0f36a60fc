// Package scope implements the parser-side scope record: a nested chain
// of name tables the parser consults to classify identifiers and into
// whose body list it injects synthetic declarations during desugaring.
// See spec.md §3, "Scope record (Parser)".
//
// Grounded on internal/compiler/resolver.Resolver's map-cache shape,
// repurposed from file-level import caching to a parent-linked chain of
// per-block name tables.
package scope

import "scl/internal/compiler/ast"

// Scope is one nested record. It owns the statement body list it is
// attached to (so the parser can splice synthetic declarations into it)
// and holds a parent reference; there are no cycles.
type Scope struct {
	parent    *Scope
	body      *[]ast.Statement
	variables map[string]*ast.VariableDeclaration
	functions map[string]*ast.FunctionDeclaration
	namespace map[string]string // reserved; spec.md §9 open question (a) — unused
}

// New creates a root scope attached to body.
func New(body *[]ast.Statement) *Scope {
	return &Scope{
		body:      body,
		variables: make(map[string]*ast.VariableDeclaration),
		functions: make(map[string]*ast.FunctionDeclaration),
	}
}

// Child creates a nested scope attached to body, with s as its parent.
func (s *Scope) Child(body *[]ast.Statement) *Scope {
	return &Scope{
		parent:    s,
		body:      body,
		variables: make(map[string]*ast.VariableDeclaration),
		functions: make(map[string]*ast.FunctionDeclaration),
	}
}

// Parent returns the enclosing scope, or nil at the root.
func (s *Scope) Parent() *Scope { return s.parent }

// DeclareVariable records decl in this scope under decl.Name.
func (s *Scope) DeclareVariable(decl *ast.VariableDeclaration) {
	s.variables[decl.Name] = decl
}

// DeclareFunction records decl in this scope under decl.Name.
func (s *Scope) DeclareFunction(decl *ast.FunctionDeclaration) {
	s.functions[decl.Name] = decl
}

// ResolveVariable walks from s toward the root looking for a variable
// declaration named name.
func (s *Scope) ResolveVariable(name string) (*ast.VariableDeclaration, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if decl, ok := cur.variables[name]; ok {
			return decl, true
		}
	}
	return nil, false
}

// ResolveFunction walks from s toward the root looking for a function
// declaration named name.
func (s *Scope) ResolveFunction(name string) (*ast.FunctionDeclaration, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if decl, ok := cur.functions[name]; ok {
			return decl, true
		}
	}
	return nil, false
}

// IsArray reports whether name resolves to an array variable declaration
// in the active scope chain; this drives the Identifier/ListIdentifier
// split at the parser's identifier-parsing entry point.
func (s *Scope) IsArray(name string) bool {
	decl, ok := s.ResolveVariable(name)
	return ok && decl.IsArray
}

// Append adds stmts to the end of this scope's owned body list. The
// parser builds each statement's body left to right and appends synthetic
// declarations as it discovers it needs them, so a plain append already
// places them immediately before the statement that required them, per
// spec.md §5's ordering guarantee.
func (s *Scope) Append(stmts ...ast.Statement) {
	*s.body = append(*s.body, stmts...)
}
