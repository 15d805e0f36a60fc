// Package archive packages a lowered project as an sb3 file: a ZIP copy
// of a template project (costumes, sounds, any other assets) with
// project.json inserted or replaced. The template is an external
// collaborator per spec.md §1/§6 — this package accepts its path as a
// parameter and never embeds or invents one.
package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"

	cerrors "scl/internal/compiler/errors"
)

// WriteSB3 reads the ZIP at templatePath, copies every entry except
// project.json verbatim, writes projectJSON as project.json, and saves
// the result to outPath.
func WriteSB3(templatePath string, projectJSON []byte, outPath string) error {
	r, err := zip.OpenReader(templatePath)
	if err != nil {
		return cerrors.New(cerrors.Interpret, 0, "opening sb3 template %s: %v", templatePath, err)
	}
	defer r.Close()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	wroteProject := false
	for _, f := range r.File {
		if f.Name == "project.json" {
			if err := writeEntry(w, f.Name, projectJSON); err != nil {
				return err
			}
			wroteProject = true
			continue
		}
		if err := copyEntry(w, f); err != nil {
			return err
		}
	}
	if !wroteProject {
		if err := writeEntry(w, "project.json", projectJSON); err != nil {
			return err
		}
	}

	if err := w.Close(); err != nil {
		return cerrors.New(cerrors.Interpret, 0, "finalizing sb3 archive: %v", err)
	}

	if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
		return cerrors.New(cerrors.Interpret, 0, "writing sb3 file %s: %v", outPath, err)
	}
	return nil
}

func writeEntry(w *zip.Writer, name string, data []byte) error {
	entry, err := w.Create(name)
	if err != nil {
		return cerrors.New(cerrors.Interpret, 0, "creating %s in sb3 archive: %v", name, err)
	}
	_, err = entry.Write(data)
	return err
}

func copyEntry(w *zip.Writer, f *zip.File) error {
	src, err := f.Open()
	if err != nil {
		return cerrors.New(cerrors.Interpret, 0, "reading template entry %s: %v", f.Name, err)
	}
	defer src.Close()

	dst, err := w.CreateHeader(&f.FileHeader)
	if err != nil {
		return cerrors.New(cerrors.Interpret, 0, "copying template entry %s: %v", f.Name, err)
	}
	_, err = io.Copy(dst, src)
	return err
}
