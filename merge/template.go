// Package merge renders document packages: it binds data file values and
// images to the template parts and assembles resulting package.
package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"docmerge/archive"
	"docmerge/config"
	"docmerge/docx"
	"docmerge/docx/mailmerge"
)

const (
	documentRelsPart = "word/_rels/document.xml.rels"
	contentTypesPart = "[Content_Types].xml"
)

// Template is a document package with merge fields. Template is never
// modified by rendering and could be rendered any number of times.
type Template struct {
	pkg *archive.Package
	cfg *config.DocumentConfig
	log *zap.Logger
}

// Open loads template package from file.
func Open(name string, cfg *config.DocumentConfig, log *zap.Logger) (*Template, error) {
	pkg, err := archive.Open(name)
	if err != nil {
		return nil, err
	}
	return newTemplate(pkg, cfg, log)
}

// Read loads template package from reader.
func Read(name string, r io.ReaderAt, size int64, cfg *config.DocumentConfig, log *zap.Logger) (*Template, error) {
	pkg, err := archive.Read(name, r, size)
	if err != nil {
		return nil, err
	}
	return newTemplate(pkg, cfg, log)
}

func newTemplate(pkg *archive.Package, cfg *config.DocumentConfig, log *zap.Logger) (*Template, error) {
	if !pkg.Has(config.MainDocumentPart) {
		return nil, fmt.Errorf("package (%s) has no %s, not a word document", pkg.Name, config.MainDocumentPart)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Template{pkg: pkg, cfg: cfg, log: log}, nil
}

// Name returns template package name.
func (t *Template) Name() string {
	return t.pkg.Name
}

// Parts returns names of the entries to be merged: main document first,
// then configured parts in natural order.
func (t *Template) Parts() []string {
	var parts []string
	for _, name := range t.pkg.Names() {
		if name != config.MainDocumentPart && t.cfg.IsProcessedPart(name) {
			parts = append(parts, name)
		}
	}
	sort.Sort(natural.StringSlice(parts))
	return slices.Insert(parts, 0, config.MainDocumentPart)
}

// PartFields lists merge field instructions of a single part in document
// order.
type PartFields struct {
	Part   string
	Fields []string
}

// Fields returns merge fields found in all processed parts.
func (t *Template) Fields() ([]PartFields, error) {
	parser := mailmerge.NewParser(t.log)

	var res []PartFields
	for _, part := range t.Parts() {
		doc, err := t.readPart(part)
		if err != nil {
			return nil, err
		}
		pf := PartFields{Part: part}
		for _, f := range parser.Fields(doc.Root()) {
			pf.Fields = append(pf.Fields, f.Expression())
		}
		res = append(res, pf)
	}
	return res, nil
}

// Render merges data into the template and writes resulting package to w.
// Output is assembled in memory, nothing is written on error. Images from
// data get relationship ids here, so the same Data could be rendered only
// once.
func (t *Template) Render(ctx context.Context, w io.Writer, data *Data) error {
	if data == nil {
		data = &Data{Context: docx.NewContext(nil)}
	}
	for _, img := range data.Images {
		if img.RelationshipID() != 0 {
			return fmt.Errorf("image %q is already bound to a document, data could be rendered only once", img.Name)
		}
	}

	out := t.pkg.Clone()
	t.uniqueMediaNames(out, data.Images)

	if len(data.Images) > 0 {
		if err := t.bindImages(out, data.Images); err != nil {
			return err
		}
	}

	props := data.Properties
	if props.StartPageNumber == nil && t.cfg.StartPageNumber > 0 {
		n := t.cfg.StartPageNumber
		props.StartPageNumber = &n
	}

	proc := docx.NewProcessor(mailmerge.NewParser(t.log), docx.Options{KeepAspectRatio: t.cfg.Images.KeepAspectRatio}, t.log)
	for _, part := range t.Parts() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.renderPart(out, part, proc, data.Context, props); err != nil {
			return fmt.Errorf("unable to merge %s: %w", part, err)
		}
	}

	buf := new(bytes.Buffer)
	if _, err := out.WriteTo(buf); err != nil {
		return fmt.Errorf("unable to assemble package: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (t *Template) renderPart(out *archive.Package, part string, proc *docx.Processor, vars docx.Context, props docx.Properties) error {
	doc, err := t.readPart(part)
	if err != nil {
		return err
	}

	if part == config.MainDocumentPart {
		if err := proc.Process(doc, vars, props); err != nil {
			return err
		}
		if t.cfg.RemoveTrailingBlankPage {
			if err := docx.RemoveTrailingBlankPage(doc); err != nil {
				return err
			}
		}
	} else if root := doc.Root(); root != nil {
		if err := proc.Manipulate(root, vars); err != nil {
			return err
		}
	}
	t.log.Debug("Part merged", zap.String("part", part))
	return writePart(out, part, doc)
}

// bindImages registers images with the main document and stores them in the
// package.
func (t *Template) bindImages(out *archive.Package, images []*docx.Image) error {
	doc, err := t.readPart(documentRelsPart)
	if err != nil {
		return err
	}
	if err := docx.ProcessRelationships(doc, images); err != nil {
		return err
	}
	if err := writePart(out, documentRelsPart, doc); err != nil {
		return err
	}

	types, err := t.readPart(contentTypesPart)
	if err != nil {
		return err
	}
	if err := addImageContentTypes(types, images); err != nil {
		return err
	}
	if err := writePart(out, contentTypesPart, types); err != nil {
		return err
	}

	for _, img := range images {
		out.Set(img.MediaPath(), img.Data)
		t.log.Debug("Image added", zap.String("path", img.MediaPath()), zap.String("rid", img.RelationshipRef()))
	}
	return nil
}

// uniqueMediaNames renames images which would overwrite template media or
// each other.
func (t *Template) uniqueMediaNames(out *archive.Package, images []*docx.Image) {
	seen := make(map[string]bool, len(images))
	for _, img := range images {
		name := img.Name
		ext := path.Ext(name)
		base := strings.TrimSuffix(name, ext)
		for i := 1; out.Has("word/media/"+name) || seen[name]; i++ {
			name = base + "-" + strconv.Itoa(i) + ext
		}
		if name != img.Name {
			t.log.Debug("Image renamed to avoid collision", zap.String("from", img.Name), zap.String("to", name))
			img.Name = name
		}
		seen[name] = true
	}
}

func (t *Template) readPart(name string) (*etree.Document, error) {
	data, ok := t.pkg.Get(name)
	if !ok {
		return nil, fmt.Errorf("package (%s) has no %s", t.pkg.Name, name)
	}
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", name, err)
	}
	if doc.Root() == nil {
		return nil, errors.New(name + " has no root element")
	}
	return doc, nil
}

func writePart(out *archive.Package, name string, doc *etree.Document) error {
	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("unable to serialize %s: %w", name, err)
	}
	out.Set(name, data)
	return nil
}
