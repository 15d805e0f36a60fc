// Package preprocessor consumes a token stream and produces a token
// stream: it resolves #include, #define, #undef, and #error directives
// and performs token-level macro expansion with balanced-paren argument
// capture. See spec.md §4.D.
//
// Grounded on internal/compiler/resolver/resolver.go's recursive,
// cache-and-cycle-guarded file resolution — repurposed here from whole-
// file AST caching to #include token-stream splicing with the same
// loading-stack cycle guard.
package preprocessor

import (
	"os"
	"path/filepath"

	cerrors "scl/internal/compiler/errors"
	"scl/internal/compiler/lexer"
	"scl/internal/compiler/token"
)

// macroDef is one arity overload of a #define'd name.
type macroDef struct {
	params []string // nil for the object-like (arity -1) form
	body   []token.Token
}

// maxExpansions bounds total macro substitutions performed in one Run, as
// a safety net against pathological self-referential macros. spec.md does
// not define behavior for such macros; this is an implementation safety
// margin, not a tested property.
const maxExpansions = 100000

// Preprocessor holds the macro table and include-cycle guard for one
// pipeline invocation. Not safe for concurrent use, matching spec.md §5's
// single-threaded, per-invocation ownership model.
type Preprocessor struct {
	headerRoot string // fixed search root for #include <name>
	defines    map[string]map[int]*macroDef
	loading    map[string]bool // absolute path -> currently being included (cycle guard)
	expansions int
}

// New creates a Preprocessor that resolves #include <name> relative to
// headerRoot.
func New(headerRoot string) *Preprocessor {
	return &Preprocessor{
		headerRoot: headerRoot,
		defines:    make(map[string]map[int]*macroDef),
		loading:    make(map[string]bool),
	}
}

// Run preprocesses source (the text of filename) and returns the resolved
// token stream, ending in statement-end then end-of-file.
func (p *Preprocessor) Run(source, filename string) ([]token.Token, error) {
	toks, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		abs = filename
	}
	return p.process(toks, abs)
}

// process runs directive handling and macro expansion over toks, whose
// originating file is absPath (used to resolve #include "…" relatively
// and to guard against include cycles).
func (p *Preprocessor) process(toks []token.Token, absPath string) ([]token.Token, error) {
	buf := make([]token.Token, len(toks))
	copy(buf, toks)

	i := 0
	for i < len(buf) {
		tok := buf[i]

		if tok.Kind == token.Preprocessing {
			newBuf, err := p.handleDirective(buf, i, absPath)
			if err != nil {
				return nil, err
			}
			buf = newBuf
			continue
		}

		if tok.Kind == token.Identifier {
			if overloads, ok := p.defines[tok.Lexeme]; ok {
				newBuf, err := p.expandMacro(buf, i, overloads, tok.Line)
				if err != nil {
					return nil, err
				}
				buf = newBuf
				continue
			}
		}

		i++
	}

	return buf, nil
}

// handleDirective parses and applies the directive starting at buf[i]
// (the '#' token) and returns the updated buffer, with i left where the
// caller should resume scanning (always 0-advance: resume at the same
// index, since the directive span is removed or replaced in place).
func (p *Preprocessor) handleDirective(buf []token.Token, i int, absPath string) ([]token.Token, error) {
	line := buf[i].Line
	j := i + 1 // skip '#'

	if j >= len(buf) || buf[j].Kind != token.Identifier {
		return nil, cerrors.New(cerrors.Preprocessing, line, "malformed directive")
	}
	name := buf[j].Lexeme
	j++

	end := indexOfStatementEnd(buf, j)
	if end < 0 {
		return nil, cerrors.New(cerrors.Preprocessing, line, "directive must end in a statement terminator")
	}
	body := buf[j:end]

	switch name {
	case "include":
		included, err := p.resolveInclude(body, absPath, line)
		if err != nil {
			return nil, err
		}
		return splice(buf, i, end+1, included), nil

	case "define":
		if err := p.handleDefine(body, line); err != nil {
			return nil, err
		}
		return splice(buf, i, end+1, nil), nil

	case "undef":
		if len(body) != 1 || body[0].Kind != token.Identifier {
			return nil, cerrors.New(cerrors.Preprocessing, line, "#undef expects a single name")
		}
		delete(p.defines, body[0].Lexeme)
		return splice(buf, i, end+1, nil), nil

	case "error":
		msg := "error"
		if len(body) == 1 && body[0].Kind == token.String {
			msg = body[0].Lexeme
		}
		return nil, cerrors.New(cerrors.Preprocessing, line, "%s", msg)

	default:
		return nil, cerrors.New(cerrors.Preprocessing, line, "unknown directive %q", name)
	}
}

// indexOfStatementEnd finds the next statement-end token at or after
// start, returning its index, or -1 if none exists.
func indexOfStatementEnd(buf []token.Token, start int) int {
	for k := start; k < len(buf); k++ {
		if buf[k].Kind == token.StatementEnd {
			return k
		}
		if buf[k].Kind == token.EOF {
			return -1
		}
	}
	return -1
}

// splice replaces buf[from:to] with repl and returns the new slice.
func splice(buf []token.Token, from, to int, repl []token.Token) []token.Token {
	out := make([]token.Token, 0, len(buf)-(to-from)+len(repl))
	out = append(out, buf[:from]...)
	out = append(out, repl...)
	out = append(out, buf[to:]...)
	return out
}

func (p *Preprocessor) resolveInclude(body []token.Token, fromAbsPath string, line int) ([]token.Token, error) {
	if len(body) == 0 {
		return nil, cerrors.New(cerrors.Preprocessing, line, "#include expects a path")
	}

	var path string
	var root string
	if body[0].Kind == token.String {
		path = body[0].Lexeme
		root = filepath.Dir(fromAbsPath)
	} else if body[0].Kind == token.Compare && body[0].Lexeme == "<" {
		name := ""
		k := 1
		for k < len(body) && !(body[k].Kind == token.Compare && body[k].Lexeme == ">") {
			name += body[k].Lexeme
			k++
		}
		if k >= len(body) {
			return nil, cerrors.New(cerrors.Preprocessing, line, "#include <...> missing closing >")
		}
		path = name
		root = p.headerRoot
	} else {
		return nil, cerrors.New(cerrors.Preprocessing, line, "malformed #include path")
	}

	abs, err := filepath.Abs(filepath.Join(root, path))
	if err != nil {
		return nil, cerrors.New(cerrors.Preprocessing, line, "cannot resolve include path %q", path)
	}

	if p.loading[abs] {
		return nil, cerrors.New(cerrors.Preprocessing, line, "circular #include of %q", path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, cerrors.New(cerrors.Preprocessing, line, "cannot open include file %q: %v", path, err)
	}

	toks, err := lexer.Tokenize(string(data))
	if err != nil {
		return nil, err
	}

	p.loading[abs] = true
	defer delete(p.loading, abs)

	processed, err := p.process(toks, abs)
	if err != nil {
		return nil, err
	}

	// Drop the trailing end-of-file of the included stream.
	if n := len(processed); n > 0 && processed[n-1].Kind == token.EOF {
		processed = processed[:n-1]
	}
	return processed, nil
}

// handleDefine records a #define's body as one arity overload of name.
func (p *Preprocessor) handleDefine(body []token.Token, line int) error {
	if len(body) == 0 || body[0].Kind != token.Identifier {
		return cerrors.New(cerrors.Preprocessing, line, "#define expects a name")
	}
	name := body[0].Lexeme
	rest := body[1:]

	arity := -1
	var params []string
	var replBody []token.Token

	if len(rest) > 0 && rest[0].Kind == token.LeftParen {
		closeIdx := -1
		for k, t := range rest {
			if t.Kind == token.RightParen {
				closeIdx = k
				break
			}
		}
		if closeIdx < 0 {
			return cerrors.New(cerrors.Preprocessing, line, "#define %s: missing closing )", name)
		}
		paramToks := rest[1:closeIdx]
		params = splitParams(paramToks)
		arity = len(params)
		replBody = rest[closeIdx+1:]
	} else {
		replBody = rest
	}

	if p.defines[name] == nil {
		p.defines[name] = make(map[int]*macroDef)
	}
	p.defines[name][arity] = &macroDef{params: params, body: replBody}
	return nil
}

func splitParams(toks []token.Token) []string {
	if len(toks) == 0 {
		return nil
	}
	var names []string
	for _, t := range toks {
		if t.Kind == token.Identifier {
			names = append(names, t.Lexeme)
		}
	}
	return names
}

// expandMacro expands the macro invocation (or bare object-like use)
// starting at buf[i] and splices the result back into buf.
func (p *Preprocessor) expandMacro(buf []token.Token, i int, overloads map[int]*macroDef, line int) ([]token.Token, error) {
	p.expansions++
	if p.expansions > maxExpansions {
		return nil, cerrors.New(cerrors.Preprocessing, line, "macro expansion limit exceeded")
	}

	// Skip over statement-end tokens between the name and a following '('
	// so that an argument list starting on a later source line is still
	// recognized, per spec.md §4.D.
	j := i + 1
	for j < len(buf) && buf[j].Kind == token.StatementEnd {
		j++
	}

	var args [][]token.Token
	end := i + 1
	hasParens := j < len(buf) && buf[j].Kind == token.LeftParen
	if hasParens {
		var err error
		args, end, err = captureArgs(buf, j, line)
		if err != nil {
			return nil, err
		}
	}

	arity := -1
	if hasParens {
		arity = len(args)
	}

	def, ok := overloads[arity]
	if !ok {
		return nil, cerrors.New(cerrors.Preprocessing, line, "no overload of macro with arity %d", arity)
	}

	repl := substitute(def, args)
	return splice(buf, i, end, repl), nil
}

// captureArgs scans the balanced-paren argument list starting at buf[open]
// (the '(' token) and returns the per-argument token lists plus the index
// just past the matching ')'.
func captureArgs(buf []token.Token, open int, line int) ([][]token.Token, int, error) {
	depth := 0
	var args [][]token.Token
	var cur []token.Token
	sawAny := false

	k := open
	for ; k < len(buf); k++ {
		t := buf[k]
		if t.Kind == token.EOF {
			return nil, 0, cerrors.New(cerrors.Preprocessing, line, "unterminated macro argument list")
		}
		switch {
		case t.Kind == token.LeftParen:
			depth++
			if depth == 1 {
				continue // don't include the opening paren itself
			}
			cur = append(cur, t)
		case t.Kind == token.RightParen:
			depth--
			if depth == 0 {
				if sawAny || len(cur) > 0 {
					args = append(args, cur)
				}
				return args, k + 1, nil
			}
			cur = append(cur, t)
		case t.Kind == token.Comma && depth == 1:
			args = append(args, cur)
			cur = nil
			sawAny = true
		default:
			cur = append(cur, t)
			sawAny = true
		}
	}
	return nil, 0, cerrors.New(cerrors.Preprocessing, line, "unterminated macro argument list")
}

// substitute builds the replacement token list for a macro use: body
// tokens with parameter-name identifiers replaced by the corresponding
// argument token list.
func substitute(def *macroDef, args [][]token.Token) []token.Token {
	if len(def.params) == 0 {
		out := make([]token.Token, len(def.body))
		copy(out, def.body)
		return out
	}

	paramIndex := make(map[string]int, len(def.params))
	for idx, name := range def.params {
		paramIndex[name] = idx
	}

	var out []token.Token
	for _, t := range def.body {
		if t.Kind == token.Identifier {
			if idx, ok := paramIndex[t.Lexeme]; ok && idx < len(args) {
				out = append(out, args[idx]...)
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
