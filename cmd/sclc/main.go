// Command sclc compiles SCL source into a stage-runtime project, via
// lexer -> preprocessor -> parser -> optimizer -> lowerer. Mirrors
// cmd/gmx's multi-file, one-file-per-mode layout (main.go dispatches,
// each mode gets its own file), generalized from a single compile
// target to SCL's five modes: tokens, ast, json, sb3, lint, plus the
// build-ledger's build/history pair.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	mode, args := os.Args[1], os.Args[2:]
	switch mode {
	case "tokens":
		cmdTokens(args)
	case "ast":
		cmdAST(args)
	case "json":
		cmdJSON(args)
	case "sb3":
		cmdSB3(args)
	case "lint":
		cmdLint(args)
	case "build":
		cmdBuild(args)
	case "history":
		cmdHistory(args)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, `Usage: sclc <mode> [flags]

Modes:
  tokens   lex (+ preprocess) and print the token stream
  ast      lex, preprocess, parse, optimize, and print the AST
  json     full pipeline, print project.json
  sb3      full pipeline, package as an sb3 file
  lint     full pipeline through the optimizer; report errors only
  build    like json, plus a row in the build ledger
  history  report recent build-ledger rows

Run "sclc <mode> -h" for mode-specific flags.
`)
}
