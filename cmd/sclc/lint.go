package main

import (
	"fmt"
	"os"
)

// cmdLint runs the pipeline through the optimizer and reports errors
// only — no output is written, per SPEC_FULL.md §6's "parse, don't emit"
// diagnostics-only mode, grounded on cmd/gmx/fmt.go's shape.
func cmdLint(args []string) {
	fs, pf := newPipelineFlagSet("lint")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: sclc lint -infile <file.scl> | -incode <source>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	source, filename, err := pf.source()
	if err != nil {
		fail(fs.Usage, err)
	}

	if _, err := parseAndOptimize(source, filename, pf.includeRoot, pf.noOptimize); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("ok")
}
