package ast

import (
	"fmt"
	"strings"
)

// Print renders n as an indented tree, useful for debugging the
// parser/optimizer. The CLI's `ast` mode prints through its own dumper.
func Print(n Node) string {
	var b strings.Builder
	print(&b, n, 0)
	return b.String()
}

func print(b *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := n.(type) {
	case nil:
		fmt.Fprintf(b, "%snil\n", indent)
	case *Program:
		fmt.Fprintf(b, "%sProgram\n", indent)
		printStatements(b, v.Body, depth+1)
	case *Block:
		fmt.Fprintf(b, "%sBlock\n", indent)
		printStatements(b, v.Body, depth+1)
	case *Number:
		fmt.Fprintf(b, "%sNumber(%v)\n", indent, v.Value)
	case *String:
		fmt.Fprintf(b, "%sString(%q)\n", indent, v.Value)
	case *Identifier:
		fmt.Fprintf(b, "%sIdentifier(%s)\n", indent, v.Name)
	case *ListIdentifier:
		fmt.Fprintf(b, "%sListIdentifier(%s)\n", indent, v.Name)
	case *FunctionCall:
		fmt.Fprintf(b, "%sFunctionCall(%s, builtin=%v)\n", indent, v.Name, v.AlwaysBuiltin)
		for _, a := range v.Args {
			print(b, a, depth+1)
		}
	case *VariableDeclaration:
		fmt.Fprintf(b, "%sVariableDeclaration(%s, const=%v, array=%v)\n", indent, v.Name, v.IsConst, v.IsArray)
		if v.Value != nil {
			print(b, v.Value, depth+1)
		}
	case *FunctionDeclaration:
		fmt.Fprintf(b, "%sFunctionDeclaration(%s, params=%v, attrs=%v)\n", indent, v.Name, v.Params, v.Attributes)
		printStatements(b, v.Body, depth+1)
	case *Clone:
		fmt.Fprintf(b, "%sClone\n", indent)
		print(b, v.InnerBlock, depth+1)
	case *Custom:
		fmt.Fprintf(b, "%sCustom(%s)\n", indent, v.Name)
	case *Macro:
		fmt.Fprintf(b, "%sMacro(%s, params=%v)\n", indent, v.Name, v.Params)
	default:
		fmt.Fprintf(b, "%s%T\n", indent, v)
	}
}

func printStatements(b *strings.Builder, stmts []Statement, depth int) {
	for _, s := range stmts {
		print(b, s, depth)
	}
}
