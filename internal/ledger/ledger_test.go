package ledger

import (
	"testing"
	"time"
)

func TestRecordAndRecentRoundTrip(t *testing.T) {
	l, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	run := Run{
		SourcePath: "example.scl",
		SourceHash: HashSource("print(1);"),
		OutputPath: "project.json",
		Mode:       "json",
		BlockCount: 2,
		RanAt:      time.Now(),
	}
	if err := l.Record(run); err != nil {
		t.Fatal(err)
	}

	runs, err := l.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(runs))
	}
	if runs[0].SourcePath != "example.scl" {
		t.Fatalf("expected source path to round-trip, got %q", runs[0].SourcePath)
	}
}

func TestHashSourceIsStableForIdenticalContent(t *testing.T) {
	a := HashSource("x = 1;")
	b := HashSource("x = 1;")
	if a != b {
		t.Fatal("expected identical source to hash identically")
	}
	if a == HashSource("x = 2;") {
		t.Fatal("expected different source to hash differently")
	}
}

func TestRecordsFailedBuildsToo(t *testing.T) {
	l, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if err := l.Record(Run{SourcePath: "bad.scl", ErrorCount: 1, ErrorText: "parse error", RanAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	runs, err := l.Recent(1)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].ErrorCount != 1 {
		t.Fatalf("expected the failed build to still be recorded, got %#v", runs[0])
	}
}
