package main

import (
	"fmt"
	"os"
	"strings"

	"scl/internal/compiler/ast"
)

func cmdAST(args []string) {
	fs, pf := newPipelineFlagSet("ast")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: sclc ast -infile <file.scl> | -incode <source>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	source, filename, err := pf.source()
	if err != nil {
		fail(fs.Usage, err)
	}

	prog, err := parseAndOptimize(source, filename, pf.includeRoot, pf.noOptimize)
	if err != nil {
		fail(nil, err)
	}

	var b strings.Builder
	for _, stmt := range prog.Body {
		dumpNode(&b, stmt, 0)
	}

	out := os.Stdout
	if pf.outfile != "" {
		f, err := os.Create(pf.outfile)
		if err != nil {
			fail(nil, err)
		}
		defer f.Close()
		out = f
	}
	fmt.Fprint(out, b.String())
}

// dumpNode renders node as an indented s-expression. This is a CLI
// debugging aid, not part of the compiler's data model — the pipeline
// itself never needs a textual AST form.
func dumpNode(b *strings.Builder, n ast.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := n.(type) {
	case *ast.Number:
		fmt.Fprintf(b, "%sNumber(%v)\n", indent, v.Value)
	case *ast.String:
		fmt.Fprintf(b, "%sString(%q)\n", indent, v.Value)
	case *ast.Identifier:
		fmt.Fprintf(b, "%sIdentifier(%s)\n", indent, v.Name)
	case *ast.ListIdentifier:
		fmt.Fprintf(b, "%sListIdentifier(%s)\n", indent, v.Name)
	case *ast.Custom:
		fmt.Fprintf(b, "%sCustom(%s)\n", indent, v.Name)
	case *ast.VariableDeclaration:
		kind := "var"
		if v.IsConst {
			kind = "const"
		} else if v.IsArray {
			kind = "array"
		}
		fmt.Fprintf(b, "%sVariableDeclaration(%s %s)\n", indent, kind, v.Name)
		if v.Value != nil {
			dumpNode(b, v.Value, depth+1)
		}
	case *ast.FunctionDeclaration:
		fmt.Fprintf(b, "%sFunctionDeclaration(%s, params=%v, attrs=%v)\n", indent, v.Name, v.Params, v.Attributes)
		for _, stmt := range v.Body {
			dumpNode(b, stmt, depth+1)
		}
	case *ast.FunctionCall:
		fmt.Fprintf(b, "%sFunctionCall(%s, builtin=%v)\n", indent, v.Name, v.AlwaysBuiltin)
		for _, arg := range v.Args {
			dumpNode(b, arg, depth+1)
		}
	case *ast.Block:
		fmt.Fprintf(b, "%sBlock\n", indent)
		for _, stmt := range v.Body {
			dumpNode(b, stmt, depth+1)
		}
	case *ast.Clone:
		fmt.Fprintf(b, "%sClone\n", indent)
		dumpNode(b, v.InnerBlock, depth+1)
	default:
		fmt.Fprintf(b, "%s%T\n", indent, n)
	}
}
