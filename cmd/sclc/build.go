package main

import (
	"fmt"
	"os"
	"time"

	"scl/internal/ledger"
)

// cmdBuild runs the full pipeline like the json mode, and additionally
// records one row to the build ledger per SPEC_FULL.md §6: source path,
// content hash, output path, block count, error count, duration,
// timestamp. The ledger never gates or skips a build — every invocation
// always runs the full pipeline; it only gives `sclc history` something
// to report.
func cmdBuild(args []string) {
	fs, pf := newPipelineFlagSet("build")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: sclc build -infile <file.scl> -outfile <project.json>\n\nFlags:\n")
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

	l, err := ledger.Open(pf.ledgerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: build ledger unavailable: %v\n", err)
	} else {
		defer l.Close()
	}
	record := func(run ledger.Run) {
		if l == nil {
			return
		}
		if err := l.Record(run); err != nil {
			fmt.Fprintf(os.Stderr, "warning: recording build: %v\n", err)
		}
	}

	start := time.Now()
	run := ledger.Run{
		SourcePath: filename,
		SourceHash: ledger.HashSource(source),
		OutputPath: pf.outfile,
		Mode:       "build",
		RanAt:      start,
	}

	built, err := buildProject(source, filename, pf.includeRoot, pf.template, pf.noOptimize)
	if err != nil {
		run.ErrorCount = 1
		run.ErrorText = err.Error()
		run.DurationMS = time.Since(start).Milliseconds()
		record(run)
		fail(nil, err)
		return
	}

	out, err := built.Marshal()
	if err != nil {
		run.ErrorCount = 1
		run.ErrorText = err.Error()
		run.DurationMS = time.Since(start).Milliseconds()
		record(run)
		fail(nil, err)
		return
	}
	if err := write(out); err != nil {
		fail(nil, err)
	}

	run.BlockCount = built.BlockCount
	run.DurationMS = time.Since(start).Milliseconds()
	record(run)
}
