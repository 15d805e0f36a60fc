package main

import (
	"fmt"
	"os"

	"scl/internal/archive"
)

func cmdSB3(args []string) {
	fs, pf := newPipelineFlagSet("sb3")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: sclc sb3 -infile <file.scl> -template <project.sb3> -outfile <out.sb3>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	source, filename, err := pf.source()
	if err != nil {
		fail(fs.Usage, err)
	}
	if pf.template == "" {
		fail(fs.Usage, fmt.Errorf("-template is required for sb3"))
	}
	if pf.outfile == "" {
		fail(fs.Usage, fmt.Errorf("-outfile is required for sb3 (an sb3 is a binary, not writable to stdout)"))
	}

	projJSON, err := projectJSON(source, filename, pf.includeRoot, pf.template, pf.noOptimize)
	if err != nil {
		fail(nil, err)
	}
	if err := archive.WriteSB3(pf.template, projJSON, pf.outfile); err != nil {
		fail(nil, err)
	}
}
