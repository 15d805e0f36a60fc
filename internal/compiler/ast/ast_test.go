package ast

import "testing"

func TestTokenLiterals(t *testing.T) {
	tests := []struct {
		name     string
		node     Node
		expected string
	}{
		{"Program", &Program{}, "program"},
		{"Block", &Block{}, "block"},
		{"Number", &Number{Value: 3.14}, "number"},
		{"String", &String{Value: "hi"}, "string"},
		{"Identifier", &Identifier{Name: "x"}, "x"},
		{"ListIdentifier", &ListIdentifier{Name: "A"}, "A"},
		{"FunctionCall", &FunctionCall{Name: "operator_add"}, "operator_add"},
		{"VariableDeclaration", &VariableDeclaration{Name: "x"}, "x"},
		{"FunctionDeclaration", &FunctionDeclaration{Name: "f"}, "f"},
		{"Clone", &Clone{}, "clone"},
		{"Custom", &Custom{Name: "ext"}, "ext"},
		{"Macro", &Macro{Name: "SQ"}, "SQ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.TokenLiteral(); got != tt.expected {
				t.Errorf("TokenLiteral() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewVariableDeclarationRejectsConstArray(t *testing.T) {
	if _, err := NewVariableDeclaration("A", true, true, nil, 1); err == nil {
		t.Fatal("expected an error for const array declaration")
	}
}

func TestNewVariableDeclarationAllowsConstScalarAndPlainArray(t *testing.T) {
	if _, err := NewVariableDeclaration("x", true, false, nil, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewVariableDeclaration("A", false, true, nil, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFunctionDeclarationHasAttribute(t *testing.T) {
	f := &FunctionDeclaration{Name: "f", Attributes: []string{"nooptimize"}}
	if !f.HasAttribute("nooptimize") {
		t.Fatal("expected HasAttribute(\"nooptimize\") to be true")
	}
	if f.HasAttribute("warp") {
		t.Fatal("expected HasAttribute(\"warp\") to be false")
	}
}

func TestDeepCopyIsStructurallyIndependent(t *testing.T) {
	prog := &Program{
		Body: []Statement{
			&VariableDeclaration{Name: "x", Value: &Number{Value: 1}},
			&FunctionCall{Name: "print", Args: []Expression{&String{Value: "hi"}}},
		},
	}

	cp := DeepCopy(prog).(*Program)

	decl := cp.Body[0].(*VariableDeclaration)
	decl.Name = "mutated"
	if prog.Body[0].(*VariableDeclaration).Name != "x" {
		t.Fatal("mutating the copy's declaration affected the original")
	}

	call := cp.Body[1].(*FunctionCall)
	call.Args[0].(*String).Value = "mutated"
	if prog.Body[1].(*FunctionCall).Args[0].(*String).Value != "hi" {
		t.Fatal("mutating the copy's argument affected the original")
	}
}

func TestDeepCopyOfNilIsNil(t *testing.T) {
	if DeepCopy(nil) != nil {
		t.Fatal("expected DeepCopy(nil) to be nil")
	}
}

func TestPrintDoesNotPanicOnEveryVariant(t *testing.T) {
	nodes := []Node{
		&Program{Body: []Statement{&Number{Value: 1}}},
		&Block{Body: []Statement{&String{Value: "x"}}},
		&Number{Value: 1},
		&String{Value: "x"},
		&Identifier{Name: "x"},
		&ListIdentifier{Name: "A"},
		&FunctionCall{Name: "f", Args: []Expression{&Number{Value: 1}}},
		&VariableDeclaration{Name: "x", Value: &Number{Value: 1}},
		&FunctionDeclaration{Name: "f", Body: []Statement{&Number{Value: 1}}},
		&Clone{InnerBlock: &Block{}},
		&Custom{Name: "c"},
		&Macro{Name: "M"},
		nil,
	}
	for _, n := range nodes {
		if out := Print(n); out == "" {
			t.Errorf("Print(%T) returned empty string", n)
		}
	}
}
