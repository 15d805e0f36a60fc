package main

import (
	"fmt"
	"os"
)

func cmdJSON(args []string) {
	fs, pf := newPipelineFlagSet("json")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: sclc json -infile <file.scl> | -incode <source>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	source, filename, err := pf.source()
	if err != nil {
		fail(fs.Usage, err)
	}
	write, err := pf.sink()
	if err != nil {
		fail(fs.Usage, err)
	}

	out, err := projectJSON(source, filename, pf.includeRoot, pf.template, pf.noOptimize)
	if err != nil {
		fail(nil, err)
	}
	if err := write(out); err != nil {
		fail(nil, err)
	}
}
