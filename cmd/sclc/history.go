package main

import (
	"flag"
	"fmt"
	"os"

	"scl/internal/ledger"
)

// cmdHistory reports the most recent rows recorded by `sclc build`.
func cmdHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	ledgerPath := fs.String("ledger", "sclc_ledger.db", "build ledger SQLite database path")
	n := fs.Int("n", 20, "number of recent runs to show")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: sclc history [-ledger path] [-n count]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	l, err := ledger.Open(*ledgerPath)
	if err != nil {
		fail(nil, err)
	}
	defer l.Close()

	runs, err := l.Recent(*n)
	if err != nil {
		fail(nil, err)
	}
	if len(runs) == 0 {
		fmt.Println("no recorded builds")
		return
	}
	for _, r := range runs {
		status := "ok"
		if r.ErrorCount > 0 {
			status = "error: " + r.ErrorText
		}
		fmt.Printf("%s  %-30s  blocks=%-4d  %6dms  %s\n", r.RanAt.Format("2006-01-02 15:04:05"), r.SourcePath, r.BlockCount, r.DurationMS, status)
	}
}
