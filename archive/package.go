package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	fixzip "github.com/hidez8891/zip"
)

// Entry is a single package file kept in memory.
type Entry struct {
	Name     string
	Method   uint16
	Modified time.Time
	Data     []byte
}

// Package is an in memory copy of zip archive which preserves entry order.
// Document templates are small, so all entries are loaded at once.
type Package struct {
	Name    string
	entries []*Entry
	index   map[string]*Entry
}

// Open loads package from file.
func Open(name string) (*Package, error) {
	pkg := &Package{Name: name, index: make(map[string]*Entry)}
	if err := Walk(name, "", pkg.load); err != nil {
		return nil, fmt.Errorf("unable to read package (%s): %w", name, err)
	}
	return pkg, nil
}

// Read loads package from reader.
func Read(name string, r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("unable to read package (%s): %w", name, err)
	}
	pkg := &Package{Name: name, index: make(map[string]*Entry)}
	if err := walk(name, zr.File, "", pkg.load); err != nil {
		return nil, fmt.Errorf("unable to read package (%s): %w", name, err)
	}
	return pkg, nil
}

func (p *Package) load(_ string, file *zip.File) error {
	if _, exists := p.index[file.Name]; exists {
		return fmt.Errorf("duplicate zip entry %q", file.Name)
	}
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("zip entry %q: %w", file.Name, err)
	}
	e := &Entry{Name: file.Name, Method: file.Method, Modified: file.Modified, Data: data}
	p.entries = append(p.entries, e)
	p.index[e.Name] = e
	return nil
}

// Names returns entry names in archive order.
func (p *Package) Names() []string {
	names := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		names = append(names, e.Name)
	}
	return names
}

// Get returns content of the entry.
func (p *Package) Get(name string) ([]byte, bool) {
	e, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return e.Data, true
}

// Has reports whether entry exists.
func (p *Package) Has(name string) bool {
	_, ok := p.index[name]
	return ok
}

// Set replaces content of existing entry keeping its position or appends new
// compressed entry.
func (p *Package) Set(name string, data []byte) {
	if e, ok := p.index[name]; ok {
		e.Data = data
		return
	}
	e := &Entry{Name: name, Method: zip.Deflate, Modified: time.Now(), Data: data}
	p.entries = append(p.entries, e)
	p.index[name] = e
}

// Clone returns copy of the package, entry data is shared until replaced
// with Set.
func (p *Package) Clone() *Package {
	c := &Package{Name: p.Name, entries: make([]*Entry, 0, len(p.entries)), index: make(map[string]*Entry, len(p.entries))}
	for _, e := range p.entries {
		ce := *e
		c.entries = append(c.entries, &ce)
		c.index[ce.Name] = &ce
	}
	return c
}

// WriteTo writes package as zip archive.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, e := range p.entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: e.Method, Modified: e.Modified})
		if err != nil {
			return cw.n, err
		}
		if _, err := fw.Write(e.Data); err != nil {
			return cw.n, fmt.Errorf("zip entry %q: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// Bytes returns package as zip archive.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

// FixZip copies archive dropping data descriptors from all entries. Some
// office suites fail to open packages which use them.
func FixZip(from, to string) error {
	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	for _, file := range r.File {
		file.Flags &= ^fixzip.FlagDataDescriptor
		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("unable to write target file (%s): %w", to, err)
	}
	return out.Close()
}
