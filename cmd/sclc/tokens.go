package main

import (
	"fmt"
	"os"
)

func cmdTokens(args []string) {
	fs, pf := newPipelineFlagSet("tokens")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: sclc tokens -infile <file.scl> | -incode <source>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	source, filename, err := pf.source()
	if err != nil {
		fail(fs.Usage, err)
	}

	toks, err := tokenize(source, filename, pf.includeRoot)
	if err != nil {
		fail(nil, err)
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

	for _, tok := range toks {
		fmt.Fprintf(out, "%4d %-12s %q\n", tok.Line, tok.Kind, tok.Lexeme)
	}
}

// fail prints usage (if given), reports err, and exits non-zero — the
// same shape as cmd/gmx's `fmt.Fprintf(os.Stderr, ...); os.Exit(1)`
// error handling, shared across every sclc mode.
func fail(usage func(), err error) {
	if usage != nil {
		usage()
	}
	_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
