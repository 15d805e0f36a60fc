// Package optimizer folds constant-valued compiler-synthesized calls and
// eliminates statically-decidable branches, in place, on an already-parsed
// AST. See spec.md §4.H.
//
// Grounded on internal/compiler/resolver.Resolver's in-place AST mutation
// style (Resolve walks and rewrites ast.GMXFile without copying it),
// applied here to constant folding instead of cross-file merging.
package optimizer

import (
	"math"

	"scl/internal/compiler/ast"
)

// Fold walks prog and rewrites every compiler-synthesized (AlwaysBuiltin)
// call it can prove the value or control-flow outcome of, per spec.md
// §4.H's fixed rule table. Function declarations carrying the
// "nooptimize" attribute are left untouched, body included.
func Fold(prog *ast.Program) {
	for i, s := range prog.Body {
		prog.Body[i] = foldStatement(s)
	}
}

func foldStatement(s ast.Statement) ast.Statement {
	return foldNode(s).(ast.Statement)
}

func foldExpr(e ast.Expression) ast.Expression {
	return foldNode(e).(ast.Expression)
}

func foldNode(n ast.Node) ast.Node {
	switch v := n.(type) {
	case *ast.Block:
		for i, s := range v.Body {
			v.Body[i] = foldStatement(s)
		}
		return v
	case *ast.VariableDeclaration:
		if v.Value != nil {
			v.Value = foldExpr(v.Value)
		}
		return v
	case *ast.FunctionDeclaration:
		if v.HasAttribute("nooptimize") {
			return v
		}
		for i, s := range v.Body {
			v.Body[i] = foldStatement(s)
		}
		return v
	case *ast.Clone:
		foldNode(v.InnerBlock)
		foldNode(v.SynthesizedParentBlock)
		return v
	case *ast.FunctionCall:
		for i, a := range v.Args {
			v.Args[i] = foldExpr(a)
		}
		return foldCall(v)
	default:
		return n
	}
}

// foldCall applies the fixed rule table to a single call whose arguments
// have already been folded bottom-up. Calls the parser didn't mark
// AlwaysBuiltin are left alone unconditionally.
func foldCall(fc *ast.FunctionCall) ast.Node {
	if !fc.AlwaysBuiltin {
		return fc
	}

	switch fc.Name {
	case "operator_add", "operator_sub", "operator_mul", "operator_div", "operator_mod":
		if a, b, ok := numberArgs(fc); ok {
			return &ast.Number{Value: arith(fc.Name, a, b), Line: fc.Line}
		}
	case "operator_gt", "operator_lt", "operator_equals":
		if a, b, ok := numberArgs(fc); ok {
			return encodeBool(compareNumbers(fc.Name, a, b), fc.Line)
		}
	case "operator_and", "operator_or":
		if len(fc.Args) == 2 {
			if a, ok1 := asBool(fc.Args[0]); ok1 {
				if b, ok2 := asBool(fc.Args[1]); ok2 {
					if fc.Name == "operator_and" {
						return encodeBool(a && b, fc.Line)
					}
					return encodeBool(a || b, fc.Line)
				}
			}
		}
	case "operator_not":
		if len(fc.Args) == 1 {
			if b, ok := asBool(fc.Args[0]); ok {
				return encodeBool(!b, fc.Line)
			}
		}
	case "control_if":
		if len(fc.Args) == 2 {
			if b, ok := asBool(fc.Args[0]); ok {
				if b {
					return fc.Args[1]
				}
				return &ast.Block{}
			}
		}
	case "control_if_else":
		if len(fc.Args) == 3 {
			if b, ok := asBool(fc.Args[0]); ok {
				if b {
					return fc.Args[1]
				}
				return fc.Args[2]
			}
		}
	case "control_repeat_until":
		if len(fc.Args) == 2 {
			if b, ok := asBool(fc.Args[0]); ok {
				if b {
					return &ast.Block{}
				}
				return &ast.FunctionCall{
					Name:          "control_forever",
					Args:          []ast.Expression{fc.Args[1]},
					AlwaysBuiltin: true,
					Line:          fc.Line,
				}
			}
		}
	case "control_repeat":
		if len(fc.Args) == 2 {
			if n, ok := fc.Args[0].(*ast.Number); ok {
				switch {
				case n.Value < 1:
					return &ast.Block{}
				case n.Value >= 10:
					return fc
				default:
					return unroll(fc.Args[1], int(n.Value))
				}
			}
		}
	}
	return fc
}

func numberArgs(fc *ast.FunctionCall) (a, b float64, ok bool) {
	if len(fc.Args) != 2 {
		return 0, 0, false
	}
	an, ok1 := fc.Args[0].(*ast.Number)
	bn, ok2 := fc.Args[1].(*ast.Number)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return an.Value, bn.Value, true
}

func arith(op string, a, b float64) float64 {
	switch op {
	case "operator_add":
		return a + b
	case "operator_sub":
		return a - b
	case "operator_mul":
		return a * b
	case "operator_div":
		return a / b
	case "operator_mod":
		return math.Mod(a, b)
	}
	return 0
}

func compareNumbers(op string, a, b float64) bool {
	switch op {
	case "operator_gt":
		return a > b
	case "operator_lt":
		return a < b
	case "operator_equals":
		return a == b
	}
	return false
}

// asBool recognizes the parser's encoded-boolean shapes: zero-arg
// operator_not is true, operator_not(operator_not()) is false. Any other
// expression isn't statically known to be a boolean.
func asBool(e ast.Expression) (bool, bool) {
	fc, ok := e.(*ast.FunctionCall)
	if !ok || fc.Name != "operator_not" {
		return false, false
	}
	if len(fc.Args) == 0 {
		return true, true
	}
	if len(fc.Args) == 1 {
		if inner, ok := fc.Args[0].(*ast.FunctionCall); ok && inner.Name == "operator_not" && len(inner.Args) == 0 {
			return false, true
		}
	}
	return false, false
}

func encodeBool(b bool, line int) *ast.FunctionCall {
	if b {
		return &ast.FunctionCall{Name: "operator_not", AlwaysBuiltin: true, Line: line}
	}
	inner := &ast.FunctionCall{Name: "operator_not", AlwaysBuiltin: true, Line: line}
	return &ast.FunctionCall{Name: "operator_not", Args: []ast.Expression{inner}, AlwaysBuiltin: true, Line: line}
}

// unroll duplicates body count times via a deep copy per iteration, so
// each repetition owns independent nodes the lowerer can re-parent freely.
func unroll(body ast.Expression, count int) ast.Node {
	stmt, ok := body.(ast.Statement)
	if !ok {
		return &ast.Block{}
	}
	out := make([]ast.Statement, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, ast.DeepCopy(stmt).(ast.Statement))
	}
	return &ast.Block{Body: out}
}
