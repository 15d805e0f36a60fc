package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTemplate(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "template.sb3")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	costume, err := w.Create("costume1.svg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := costume.Write([]byte("<svg/>")); err != nil {
		t.Fatal(err)
	}
	placeholder, err := w.Create("project.json")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := placeholder.Write([]byte(`{"placeholder":true}`)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWriteSB3ReplacesProjectJSONAndKeepsOtherEntries(t *testing.T) {
	dir := t.TempDir()
	templatePath := writeTemplate(t, dir)
	outPath := filepath.Join(dir, "out.sb3")

	if err := WriteSB3(templatePath, []byte(`{"targets":[]}`), outPath); err != nil {
		t.Fatal(err)
	}

	r, err := zip.OpenReader(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	seen := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatal(err)
		}
		rc.Close()
		seen[f.Name] = buf.String()
	}

	if seen["costume1.svg"] != "<svg/>" {
		t.Fatalf("expected template asset to survive untouched, got %q", seen["costume1.svg"])
	}
	if seen["project.json"] != `{"targets":[]}` {
		t.Fatalf("expected project.json to be replaced, got %q", seen["project.json"])
	}
}
