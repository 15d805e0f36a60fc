package main

import (
	"flag"
	"fmt"
	"os"
)

// pipelineFlags holds the input/output flags shared by every
// sclc mode, mirroring the original Python CLI's mutually-exclusive
// --infile/--incode and --outfile/--outstd pairs (see
// _examples/original_source/src/utils.py's argparse definitions).
type pipelineFlags struct {
	infile      string
	incode      string
	outfile     string
	outstd      bool
	includeRoot string
	noOptimize  bool
	template    string
	ledgerPath  string
}

func newPipelineFlagSet(name string) (*flag.FlagSet, *pipelineFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	f := &pipelineFlags{}
	fs.StringVar(&f.infile, "infile", "", "input .scl file")
	fs.StringVar(&f.infile, "if", "", "shorthand for -infile")
	fs.StringVar(&f.incode, "incode", "", "inline SCL source")
	fs.StringVar(&f.incode, "ic", "", "shorthand for -incode")
	fs.StringVar(&f.outfile, "outfile", "", "output file path")
	fs.StringVar(&f.outfile, "of", "", "shorthand for -outfile")
	fs.BoolVar(&f.outstd, "outstd", false, "write output to stdout")
	fs.BoolVar(&f.outstd, "os", false, "shorthand for -outstd")
	fs.StringVar(&f.includeRoot, "I", ".", "search root for #include <name> headers")
	fs.BoolVar(&f.noOptimize, "nooptimize", false, "skip the constant-folding optimizer pass")
	fs.BoolVar(&f.noOptimize, "no", false, "shorthand for -nooptimize")
	fs.StringVar(&f.template, "template", "", "sb3 template zip path (required for sb3)")
	fs.StringVar(&f.ledgerPath, "ledger", "sclc_ledger.db", "build ledger SQLite database path")
	return fs, f
}

// source resolves -infile/-incode, rejecting the case where both or
// neither were given.
func (f *pipelineFlags) source() (text, filename string, err error) {
	switch {
	case f.infile != "" && f.incode != "":
		return "", "", fmt.Errorf("specify exactly one of -infile or -incode")
	case f.infile != "":
		data, err := os.ReadFile(f.infile)
		if err != nil {
			return "", "", fmt.Errorf("reading %s: %w", f.infile, err)
		}
		return string(data), f.infile, nil
	case f.incode != "":
		return f.incode, "<incode>", nil
	default:
		return "", "", fmt.Errorf("specify one of -infile or -incode")
	}
}

// sink resolves -outfile/-outstd, rejecting the case where both or
// neither were given.
func (f *pipelineFlags) sink() (writeTo func([]byte) error, err error) {
	switch {
	case f.outfile != "" && f.outstd:
		return nil, fmt.Errorf("specify exactly one of -outfile or -outstd")
	case f.outfile != "":
		return func(data []byte) error { return os.WriteFile(f.outfile, data, 0644) }, nil
	case f.outstd:
		return func(data []byte) error {
			_, err := os.Stdout.Write(append(data, '\n'))
			return err
		}, nil
	default:
		return nil, fmt.Errorf("specify one of -outfile or -outstd")
	}
}
