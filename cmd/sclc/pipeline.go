package main

import (
	"scl/internal/compiler/ast"
	"scl/internal/compiler/lowerer"
	"scl/internal/compiler/optimizer"
	"scl/internal/compiler/parser"
	"scl/internal/compiler/preprocessor"
	"scl/internal/compiler/stage"
	"scl/internal/compiler/token"
)

// tokenize runs the lexer and preprocessor stages, returning the
// fully-resolved token stream (macros expanded, #includes spliced in).
func tokenize(source, filename, includeRoot string) ([]token.Token, error) {
	pp := preprocessor.New(includeRoot)
	return pp.Run(source, filename)
}

// parseAndOptimize runs tokenize, then the parser, then (unless
// skipOptimize) the constant-folding optimizer pass.
func parseAndOptimize(source, filename, includeRoot string, skipOptimize bool) (*ast.Program, error) {
	toks, err := tokenize(source, filename, includeRoot)
	if err != nil {
		return nil, err
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		return nil, err
	}
	if !skipOptimize {
		optimizer.Fold(prog)
	}
	return prog, nil
}

// lower runs the full pipeline through the lowerer, returning the
// lowered Result ready to be written into a stage.Project template.
func lower(source, filename, includeRoot string, skipOptimize bool) (*lowerer.Result, error) {
	prog, err := parseAndOptimize(source, filename, includeRoot, skipOptimize)
	if err != nil {
		return nil, err
	}
	return lowerer.Lower(prog)
}

// builtProject bundles the marshaled project together with the metrics
// the build ledger records per invocation.
type builtProject struct {
	proj       *stage.Project
	BlockCount int
}

func (b *builtProject) Marshal() ([]byte, error) { return b.proj.Marshal() }

// buildProject runs the full pipeline and loads its result into a
// stage.Project built from templatePath (or the built-in fallback
// template when templatePath is empty).
func buildProject(source, filename, includeRoot, templatePath string, skipOptimize bool) (*builtProject, error) {
	result, err := lower(source, filename, includeRoot, skipOptimize)
	if err != nil {
		return nil, err
	}
	tmpl, err := readTemplate(templatePath)
	if err != nil {
		return nil, err
	}
	proj, err := stage.NewProject(tmpl)
	if err != nil {
		return nil, err
	}
	result.WriteInto(proj)
	return &builtProject{proj: proj, BlockCount: len(result.Blocks)}, nil
}

// projectJSON runs the full pipeline and renders the resulting
// stage.Project as compact JSON, per spec.md §6.
func projectJSON(source, filename, includeRoot, templatePath string, skipOptimize bool) ([]byte, error) {
	built, err := buildProject(source, filename, includeRoot, templatePath, skipOptimize)
	if err != nil {
		return nil, err
	}
	return built.Marshal()
}
