package preprocessor

import (
	"os"
	"path/filepath"
	"testing"

	cerrors "scl/internal/compiler/errors"
	"scl/internal/compiler/token"
)

func lexemes(toks []token.Token) []string {
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		if t.Kind == token.StatementEnd || t.Kind == token.EOF {
			continue
		}
		out = append(out, t.Lexeme)
	}
	return out
}

func TestObjectLikeMacro(t *testing.T) {
	p := New("")
	toks, err := p.Run("#define PI 3;\nvar x = PI;", "main.scl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := lexemes(toks)
	want := []string{"var", "x", "=", "3"}
	assertLexemes(t, got, want)
}

func TestFunctionLikeMacroWithArgs(t *testing.T) {
	p := New("")
	toks, err := p.Run("#define SQ(a) (a)*(a);\nprint(SQ(2+1));", "main.scl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := lexemes(toks)
	want := []string{"print", "(", "(", "2", "+", "1", ")", "*", "(", "2", "+", "1", ")", ")"}
	assertLexemes(t, got, want)
}

func TestMacroOverloadedByArity(t *testing.T) {
	p := New("")
	src := "#define ADD(a) a;\n#define ADD(a, b) a+b;\nvar x = ADD(1);\nvar y = ADD(1, 2);"
	toks, err := p.Run(src, "main.scl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := lexemes(toks)
	want := []string{"var", "x", "=", "1", "var", "y", "=", "1", "+", "2"}
	assertLexemes(t, got, want)
}

func TestMacroArityMismatchRaisesPreprocessing(t *testing.T) {
	p := New("")
	_, err := p.Run("#define ADD(a) a;\nvar x = ADD(1, 2);", "main.scl")
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := asPreprocessing(err); !ok {
		t.Fatalf("got %v", err)
	}
}

func TestUndef(t *testing.T) {
	p := New("")
	toks, err := p.Run("#define X 1;\n#undef X;\nvar X = 2;", "main.scl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := lexemes(toks)
	want := []string{"var", "X", "=", "2"}
	assertLexemes(t, got, want)
}

func TestErrorDirective(t *testing.T) {
	p := New("")
	_, err := p.Run(`#error "boom";`, "main.scl")
	if err == nil {
		t.Fatal("expected an error")
	}
	if ce, ok := asPreprocessing(err); !ok || ce.Message != "boom" {
		t.Fatalf("got %v", err)
	}
}

func TestIncludeQuoted(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lib.scl"), []byte("var shared = 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	mainPath := filepath.Join(dir, "main.scl")
	p := New("")
	toks, err := p.Run(`#include "lib.scl";`+"\nprint(shared);", mainPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := lexemes(toks)
	want := []string{"var", "shared", "=", "1", "print", "(", "shared", ")"}
	assertLexemes(t, got, want)
}

func TestIncludeAngleBracket(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "mathlib"), []byte("var e = 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := New(root)
	toks, err := p.Run("#include <mathlib>;\nprint(e);", filepath.Join(root, "main.scl"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := lexemes(toks)
	want := []string{"var", "e", "=", "1", "print", "(", "e", ")"}
	assertLexemes(t, got, want)
}

func TestCircularIncludeRaisesPreprocessing(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.scl")
	bPath := filepath.Join(dir, "b.scl")
	if err := os.WriteFile(aPath, []byte(`#include "b.scl";`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bPath, []byte(`#include "a.scl";`), 0o644); err != nil {
		t.Fatal(err)
	}
	p := New("")
	_, err := p.Run(`#include "b.scl";`, aPath)
	if err == nil {
		t.Fatal("expected a circular include error")
	}
	if _, ok := asPreprocessing(err); !ok {
		t.Fatalf("got %v", err)
	}
}

func assertLexemes(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func asPreprocessing(err error) (*cerrors.CompileError, bool) {
	return cerrors.As(err, cerrors.Preprocessing)
}
