package parser

import (
	"strings"
	"testing"

	"scl/internal/compiler/ast"
	"scl/internal/compiler/lexer"
)

func parseSource(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	prog, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return prog
}

func parseSourceErr(t *testing.T, src string) error {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	_, err = Parse(toks)
	return err
}

func findCall(stmts []ast.Statement, name string) *ast.FunctionCall {
	for _, s := range stmts {
		if fc := findCallIn(s, name); fc != nil {
			return fc
		}
	}
	return nil
}

// findCallIn searches n and everything it transitively contains (block
// bodies, call arguments) for a FunctionCall named name.
func findCallIn(n ast.Node, name string) *ast.FunctionCall {
	switch v := n.(type) {
	case nil:
		return nil
	case *ast.FunctionCall:
		if v.Name == name {
			return v
		}
		for _, a := range v.Args {
			if fc := findCallIn(a, name); fc != nil {
				return fc
			}
		}
	case *ast.Block:
		for _, s := range v.Body {
			if fc := findCallIn(s, name); fc != nil {
				return fc
			}
		}
	case *ast.Program:
		for _, s := range v.Body {
			if fc := findCallIn(s, name); fc != nil {
				return fc
			}
		}
	case *ast.VariableDeclaration:
		return findCallIn(v.Value, name)
	case *ast.FunctionDeclaration:
		for _, s := range v.Body {
			if fc := findCallIn(s, name); fc != nil {
				return fc
			}
		}
	case *ast.Clone:
		if fc := findCallIn(v.InnerBlock, name); fc != nil {
			return fc
		}
		return findCallIn(v.SynthesizedParentBlock, name)
	}
	return nil
}

func TestSimpleAssignmentDesugarsToDataSetVariableTo(t *testing.T) {
	prog := parseSource(t, "var x = 1\nx = 2\n")
	fc := findCall(prog.Body, "data_setvariableto")
	if fc == nil {
		t.Fatalf("expected a data_setvariableto call, got: %s", ast.Print(prog))
	}
}

func TestCompoundPlusEqualsOnScalarUsesChangeVariableBy(t *testing.T) {
	prog := parseSource(t, "var x = 1\nx += 2\n")
	fc := findCall(prog.Body, "data_changevariableby")
	if fc == nil {
		t.Fatalf("expected data_changevariableby, got: %s", ast.Print(prog))
	}
}

func TestArrayIdentifierClassification(t *testing.T) {
	prog := parseSource(t, "array A\nprint(A)\n")
	fc := findCall(prog.Body, "print")
	if fc == nil {
		t.Fatalf("expected print call, got: %s", ast.Print(prog))
	}
	if _, ok := fc.Args[0].(*ast.ListIdentifier); !ok {
		t.Fatalf("expected A to be classified as a ListIdentifier, got %T", fc.Args[0])
	}
}

func TestScalarIdentifierClassification(t *testing.T) {
	prog := parseSource(t, "var x = 1\nprint(x)\n")
	fc := findCall(prog.Body, "print")
	if fc == nil {
		t.Fatalf("expected print call, got: %s", ast.Print(prog))
	}
	if _, ok := fc.Args[0].(*ast.Identifier); !ok {
		t.Fatalf("expected x to be classified as an Identifier, got %T", fc.Args[0])
	}
}

func TestAndBindsLooserThanOr(t *testing.T) {
	// a || b && c must parse as (a || b) && c, since && binds loosest.
	toks, err := lexer.Tokenize("var r = a || b && c\n")
	if err != nil {
		t.Fatal(err)
	}
	prog, err := Parse(toks)
	if err != nil {
		t.Fatal(err)
	}
	decl := prog.Body[len(prog.Body)-1].(*ast.VariableDeclaration)
	top, ok := decl.Value.(*ast.FunctionCall)
	if !ok || top.Name != "operator_and" {
		t.Fatalf("expected top-level operator_and, got %s", ast.Print(decl.Value))
	}
	lhs, ok := top.Args[0].(*ast.FunctionCall)
	if !ok || lhs.Name != "operator_or" {
		t.Fatalf("expected operator_or nested under operator_and, got %s", ast.Print(top.Args[0]))
	}
}

func TestNotEqualDesugarsToNotEquals(t *testing.T) {
	prog := parseSource(t, "var r = a != b\n")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	not, ok := decl.Value.(*ast.FunctionCall)
	if !ok || not.Name != "operator_not" {
		t.Fatalf("expected outer operator_not, got %s", ast.Print(decl.Value))
	}
	inner, ok := not.Args[0].(*ast.FunctionCall)
	if !ok || inner.Name != "operator_equals" {
		t.Fatalf("expected inner operator_equals, got %s", ast.Print(not.Args[0]))
	}
}

func TestLessEqualAndGreaterEqualDesugarViaNot(t *testing.T) {
	for _, tt := range []struct {
		src   string
		inner string
	}{
		{"var r = a <= b\n", "operator_gt"},
		{"var r = a >= b\n", "operator_lt"},
	} {
		prog := parseSource(t, tt.src)
		decl := prog.Body[0].(*ast.VariableDeclaration)
		not, ok := decl.Value.(*ast.FunctionCall)
		if !ok || not.Name != "operator_not" {
			t.Fatalf("%s: expected outer operator_not, got %s", tt.src, ast.Print(decl.Value))
		}
		inner, ok := not.Args[0].(*ast.FunctionCall)
		if !ok || inner.Name != tt.inner {
			t.Fatalf("%s: expected inner %s, got %s", tt.src, tt.inner, ast.Print(not.Args[0]))
		}
	}
}

func TestContainsAndInDesugarToOperatorContains(t *testing.T) {
	prog := parseSource(t, "var r = a contains b\n")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	call, ok := decl.Value.(*ast.FunctionCall)
	if !ok || call.Name != "operator_contains" {
		t.Fatalf("expected operator_contains, got %s", ast.Print(decl.Value))
	}

	prog2 := parseSource(t, "var r2 = a in b\n")
	decl2 := prog2.Body[0].(*ast.VariableDeclaration)
	call2, ok := decl2.Value.(*ast.FunctionCall)
	if !ok || call2.Name != "operator_contains" {
		t.Fatalf("expected operator_contains for `in`, got %s", ast.Print(decl2.Value))
	}
	// `a in b` means "a is contained in b": contains receiver is b.
	if _, ok := call2.Args[0].(*ast.Identifier); !ok || call2.Args[0].(*ast.Identifier).Name != "b" {
		t.Fatalf("expected b as contains receiver, got %s", ast.Print(call2.Args[0]))
	}
}

func TestTrueAndFalseEncodeViaOperatorNot(t *testing.T) {
	prog := parseSource(t, "var t = true\nvar f = false\n")
	tDecl := prog.Body[0].(*ast.VariableDeclaration)
	tCall, ok := tDecl.Value.(*ast.FunctionCall)
	if !ok || tCall.Name != "operator_not" || len(tCall.Args) != 0 {
		t.Fatalf("expected true -> zero-arg operator_not, got %s", ast.Print(tDecl.Value))
	}

	fDecl := prog.Body[1].(*ast.VariableDeclaration)
	fCall, ok := fDecl.Value.(*ast.FunctionCall)
	if !ok || fCall.Name != "operator_not" || len(fCall.Args) != 1 {
		t.Fatalf("expected false -> operator_not(operator_not()), got %s", ast.Print(fDecl.Value))
	}
	inner, ok := fCall.Args[0].(*ast.FunctionCall)
	if !ok || inner.Name != "operator_not" || len(inner.Args) != 0 {
		t.Fatalf("expected inner zero-arg operator_not, got %s", ast.Print(fCall.Args[0]))
	}
}

func TestUnaryMinusOnLiteralFoldsIntoNumber(t *testing.T) {
	prog := parseSource(t, "var x = -5\n")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	num, ok := decl.Value.(*ast.Number)
	if !ok || num.Value != -5 {
		t.Fatalf("expected folded Number(-5), got %s", ast.Print(decl.Value))
	}
}

func TestUnaryMinusOnExpressionUsesOperatorMul(t *testing.T) {
	prog := parseSource(t, "var y = 1\nvar x = -y\n")
	decl := prog.Body[1].(*ast.VariableDeclaration)
	call, ok := decl.Value.(*ast.FunctionCall)
	if !ok || call.Name != "operator_mul" {
		t.Fatalf("expected operator_mul by -1, got %s", ast.Print(decl.Value))
	}
	factor, ok := call.Args[1].(*ast.Number)
	if !ok || factor.Value != -1 {
		t.Fatalf("expected -1 factor, got %s", ast.Print(call.Args[1]))
	}
}

func TestIfElseDesugarsToControlIfElse(t *testing.T) {
	prog := parseSource(t, "var x = 1\nif (x == 1) { print(x) } else { print(x) }\n")
	fc := findCall(prog.Body, "control_if_else")
	if fc == nil {
		t.Fatalf("expected control_if_else, got %s", ast.Print(prog))
	}
	if len(fc.Args) != 3 {
		t.Fatalf("expected 3 args (cond, then, else), got %d", len(fc.Args))
	}
}

func TestPlainIfDesugarsToControlIf(t *testing.T) {
	prog := parseSource(t, "var x = 1\nif (x == 1) { print(x) }\n")
	fc := findCall(prog.Body, "control_if")
	if fc == nil {
		t.Fatalf("expected control_if, got %s", ast.Print(prog))
	}
}

func TestWhileDesugarsToRepeatUntilNot(t *testing.T) {
	prog := parseSource(t, "var x = 0\nwhile (x < 10) { x += 1 }\n")
	fc := findCall(prog.Body, "control_repeat_until")
	if fc == nil {
		t.Fatalf("expected control_repeat_until, got %s", ast.Print(prog))
	}
	cond, ok := fc.Args[0].(*ast.FunctionCall)
	if !ok || cond.Name != "operator_not" {
		t.Fatalf("expected while's condition to be wrapped in operator_not, got %s", ast.Print(fc.Args[0]))
	}
}

func TestUntilDesugarsToRepeatUntilDirectly(t *testing.T) {
	prog := parseSource(t, "var x = 0\nuntil (x == 10) { x += 1 }\n")
	fc := findCall(prog.Body, "control_repeat_until")
	if fc == nil {
		t.Fatalf("expected control_repeat_until, got %s", ast.Print(prog))
	}
	if _, ok := fc.Args[0].(*ast.FunctionCall); !ok {
		t.Fatalf("expected a condition call, got %T", fc.Args[0])
	}
	if cond := fc.Args[0].(*ast.FunctionCall); cond.Name == "operator_not" {
		t.Fatalf("until's condition should not be negated")
	}
}

func TestArrayLiteralDesugarsToDeleteAllThenAddToList(t *testing.T) {
	prog := parseSource(t, "var L = [1, 2, 3]\n")
	if findCall(prog.Body, "data_deletealloflist") == nil {
		t.Fatalf("expected data_deletealloflist, got %s", ast.Print(prog))
	}
	adds := 0
	var count func(stmts []ast.Statement)
	count = func(stmts []ast.Statement) {
		for _, s := range stmts {
			if fc, ok := s.(*ast.FunctionCall); ok && fc.Name == "data_addtolist" {
				adds++
			}
			if blk, ok := s.(*ast.Block); ok {
				count(blk.Body)
			}
		}
	}
	count(prog.Body)
	if adds != 3 {
		t.Fatalf("expected 3 data_addtolist calls, got %d", adds)
	}
}

func TestRangeDesugarsToRepeatUntilLoopOverFreshList(t *testing.T) {
	prog := parseSource(t, "var r = 1 -> 5\n")
	if findCall(prog.Body, "control_repeat_until") == nil {
		t.Fatalf("expected a control_repeat_until loop for range, got %s", ast.Print(prog))
	}
	decl := prog.Body[len(prog.Body)-1].(*ast.VariableDeclaration)
	if _, ok := decl.Value.(*ast.ListIdentifier); !ok {
		t.Fatalf("expected range to evaluate to a ListIdentifier, got %T", decl.Value)
	}
}

func TestJoinDesugarsToRepeatUntilLoopsOverFreshList(t *testing.T) {
	prog := parseSource(t, "array A\narray B\nvar j = A .. B\n")
	if findCall(prog.Body, "data_itemoflist") == nil {
		t.Fatalf("expected data_itemoflist in the join desugaring, got %s", ast.Print(prog))
	}
}

func TestForOverListDesugarsToIndexedLoop(t *testing.T) {
	prog := parseSource(t, "array A\nfor (v = A) { print(v) }\n")
	if findCall(prog.Body, "control_repeat_until") == nil {
		t.Fatalf("expected control_repeat_until, got %s", ast.Print(prog))
	}
	if findCall(prog.Body, "data_itemoflist") == nil {
		t.Fatalf("expected data_itemoflist assignment in the loop body, got %s", ast.Print(prog))
	}
}

func TestForOverNonListIsAParseError(t *testing.T) {
	err := parseSourceErr(t, "var x = 1\nfor (v = x) { print(v) }\n")
	if err == nil {
		t.Fatal("expected an error for `for` over a non-list expression")
	}
}

func TestFunctionDeclarationWithAttributeBeforeSignature(t *testing.T) {
	prog := parseSource(t, "attribute(nooptimize) function f(a, b) { print(a) }\n")
	fn := prog.Body[0].(*ast.FunctionDeclaration)
	if fn.Name != "f" || len(fn.Params) != 2 {
		t.Fatalf("unexpected function declaration: %s", ast.Print(fn))
	}
	if !fn.HasAttribute("nooptimize") {
		t.Fatalf("expected nooptimize attribute, got %v", fn.Attributes)
	}
}

func TestFunctionDeclarationWithAttributeAfterSignature(t *testing.T) {
	prog := parseSource(t, "function f(a) attribute(warp) { print(a) }\n")
	fn := prog.Body[0].(*ast.FunctionDeclaration)
	if !fn.HasAttribute("warp") {
		t.Fatalf("expected warp attribute, got %v", fn.Attributes)
	}
}

func TestCloneSynthesizesDiscriminatorGuard(t *testing.T) {
	prog := parseSource(t, "clone { print(1) }\n")
	clone, ok := prog.Body[0].(*ast.Clone)
	if !ok {
		t.Fatalf("expected a Clone node, got %s", ast.Print(prog))
	}
	if findCall(clone.SynthesizedParentBlock.Body, "control_create_clone_of") == nil {
		t.Fatalf("expected control_create_clone_of in the parent block, got %s", ast.Print(clone.SynthesizedParentBlock))
	}
	if findCall([]ast.Statement{clone.InnerBlock}, "control_if") == nil {
		t.Fatalf("expected a discriminator control_if in the cloned body, got %s", ast.Print(clone.InnerBlock))
	}
}

func TestDeleteOnArrayDesugarsToDataDeleteOfList(t *testing.T) {
	prog := parseSource(t, "array A\ndelete A[1]\n")
	if findCall(prog.Body, "data_deleteoflist") == nil {
		t.Fatalf("expected data_deleteoflist, got %s", ast.Print(prog))
	}
}

func TestDeleteOnNonArrayIsAParseError(t *testing.T) {
	err := parseSourceErr(t, "var x = 1\ndelete x[1]\n")
	if err == nil {
		t.Fatal("expected an error deleting from a non-array")
	}
}

func TestIndexedAssignmentOnNonArrayIsAParseError(t *testing.T) {
	err := parseSourceErr(t, "var x = 1\nx[0] = 2\n")
	if err == nil {
		t.Fatal("expected an error assigning by index into a non-array")
	}
}

func TestIndexedAssignmentOnArrayDesugarsToReplaceItemOfList(t *testing.T) {
	prog := parseSource(t, "array A\nA[0] = 1\n")
	if findCall(prog.Body, "data_replaceitemoflist") == nil {
		t.Fatalf("expected data_replaceitemoflist, got %s", ast.Print(prog))
	}
}

func TestSubscriptOnStringUsesOperatorLetterOf(t *testing.T) {
	prog := parseSource(t, "var s = \"hi\"\nvar c = s[0]\n")
	decl := prog.Body[1].(*ast.VariableDeclaration)
	call, ok := decl.Value.(*ast.FunctionCall)
	if !ok || call.Name != "operator_letter_of" {
		t.Fatalf("expected operator_letter_of, got %s", ast.Print(decl.Value))
	}
}

func TestUserCallArgumentsParseAsProductExpression(t *testing.T) {
	prog := parseSource(t, "print(2*2)\n")
	fc := prog.Body[0].(*ast.FunctionCall)
	if fc.Name != "print" || fc.AlwaysBuiltin {
		t.Fatalf("expected a user print call, got %s", ast.Print(prog))
	}
	mul, ok := fc.Args[0].(*ast.FunctionCall)
	if !ok || mul.Name != "operator_mul" {
		t.Fatalf("expected operator_mul, got %s", ast.Print(fc.Args[0]))
	}
}

func TestUnterminatedBlockIsAParseError(t *testing.T) {
	err := parseSourceErr(t, "if (1 == 1) { print(1)\n")
	if err == nil {
		t.Fatal("expected an error for an unterminated block")
	}
	if !strings.Contains(err.Error(), "unterminated") {
		t.Fatalf("expected an 'unterminated' error, got: %v", err)
	}
}

func TestConstDeclarationWithInitializerParses(t *testing.T) {
	prog := parseSource(t, "const x = 1\n")
	decl, ok := prog.Body[0].(*ast.VariableDeclaration)
	if !ok || !decl.IsConst {
		t.Fatalf("expected a const declaration, got %s", ast.Print(prog))
	}
}
