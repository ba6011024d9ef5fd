package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"

	fixzip "github.com/hidez8891/zip"
)

func buildZip(t *testing.T, files ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for i := 0; i < len(files); i += 2 {
		fw, err := w.Create(files[i])
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", files[i], err)
		}
		if _, err := fw.Write([]byte(files[i+1])); err != nil {
			t.Fatalf("Failed to write content for %s: %v", files[i], err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func TestRead(t *testing.T) {
	data := buildZip(t,
		"[Content_Types].xml", "types",
		"word/document.xml", "document",
		"word/_rels/document.xml.rels", "rels",
	)

	pkg, err := Read("test.docx", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	want := []string{"[Content_Types].xml", "word/document.xml", "word/_rels/document.xml.rels"}
	if got := pkg.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if got, ok := pkg.Get("word/document.xml"); !ok || string(got) != "document" {
		t.Errorf("Get() = %q, %v", got, ok)
	}
	if _, ok := pkg.Get("word/missing.xml"); ok {
		t.Error("Get() found missing entry")
	}
}

func TestRead_UnsafePath(t *testing.T) {
	data := buildZip(t, "../evil.xml", "x")
	if _, err := Read("evil.docx", bytes.NewReader(data), int64(len(data))); err == nil {
		t.Error("Read() expected error for unsafe entry name")
	}
}

func TestRead_NotZip(t *testing.T) {
	data := []byte("not a zip file")
	if _, err := Read("bad.docx", bytes.NewReader(data), int64(len(data))); err == nil {
		t.Error("Read() expected error for invalid archive")
	}
}

func TestOpen(t *testing.T) {
	name := filepath.Join(t.TempDir(), "test.docx")
	if err := os.WriteFile(name, buildZip(t, "a.xml", "a"), 0644); err != nil {
		t.Fatal(err)
	}
	pkg, err := Open(name)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if pkg.Name != name || !pkg.Has("a.xml") {
		t.Errorf("Open() = %+v", pkg)
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.docx")); err == nil {
		t.Error("Open() expected error for missing file")
	}
}

func TestPackage_SetAndWrite(t *testing.T) {
	data := buildZip(t, "first.xml", "1", "second.xml", "2")
	pkg, err := Read("test.docx", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	clone := pkg.Clone()
	clone.Set("first.xml", []byte("changed"))
	clone.Set("word/media/image.png", []byte("png"))

	if got, _ := pkg.Get("first.xml"); string(got) != "1" {
		t.Errorf("original package modified through clone: %q", got)
	}

	out, err := clone.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	back, err := Read("out.docx", bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("Read() of written package error = %v", err)
	}
	want := []string{"first.xml", "second.xml", "word/media/image.png"}
	if got := back.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if got, _ := back.Get("first.xml"); string(got) != "changed" {
		t.Errorf("first.xml = %q, want changed", got)
	}
}

func TestFixZip(t *testing.T) {
	tmpDir := t.TempDir()
	from := filepath.Join(tmpDir, "in.docx")
	to := filepath.Join(tmpDir, "out.docx")

	// archive/zip writer always uses data descriptors for deflated entries
	if err := os.WriteFile(from, buildZip(t, "a.xml", "aaaa", "b.xml", "bbbb"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := FixZip(from, to); err != nil {
		t.Fatalf("FixZip() error = %v", err)
	}

	r, err := fixzip.OpenReader(to)
	if err != nil {
		t.Fatalf("unable to open fixed archive: %v", err)
	}
	defer r.Close()
	if len(r.File) != 2 {
		t.Fatalf("fixed archive has %d entries, want 2", len(r.File))
	}
	for _, f := range r.File {
		if f.Flags&fixzip.FlagDataDescriptor != 0 {
			t.Errorf("entry %s still uses data descriptor", f.Name)
		}
	}

	pkg, err := Open(to)
	if err != nil {
		t.Fatalf("Open() of fixed archive error = %v", err)
	}
	if got, _ := pkg.Get("b.xml"); string(got) != "bbbb" {
		t.Errorf("b.xml = %q, want bbbb", got)
	}
}
