package merge

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"docmerge/config"
)

const documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
	` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
	` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
	` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
	` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"><w:body>`

const documentTail = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:cols w:space="708"/></w:sectPr></w:body></w:document>`

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const documentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/header" Target="header1.xml"/>` +
	`</Relationships>`

func field(expr string) string {
	return `<w:p><w:fldSimple w:instr=" MERGEFIELD ` + expr + ` \* MERGEFORMAT "><w:r><w:t>«` + expr + `»</w:t></w:r></w:fldSimple></w:p>`
}

func para(text string) string {
	return `<w:p><w:r><w:t>` + text + `</w:t></w:r></w:p>`
}

func pageBreak() string {
	return `<w:p><w:r><w:br w:type="page"/></w:r></w:p>`
}

func drawing() string {
	return `<w:p><w:r><w:drawing><wp:inline><wp:extent cx="2000" cy="1000"/><a:graphic><a:graphicData>` +
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="1" name="placeholder.png"/></pic:nvPicPr>` +
		`<pic:blipFill><a:blip r:embed="rId1"/></pic:blipFill>` +
		`<pic:spPr><a:xfrm><a:ext cx="2000" cy="1000"/></a:xfrm></pic:spPr></pic:pic>` +
		`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`
}

func header(body ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:hdr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		strings.Join(body, "") + `</w:hdr>`
}

func document(body ...string) string {
	return documentHead + strings.Join(body, "") + documentTail
}

// buildPackage returns zip archive with given name/content pairs.
func buildPackage(t *testing.T, files ...string) []byte {
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

// buildTemplate returns minimal word package with given document body and
// optional extra name/content pairs.
func buildTemplate(t *testing.T, body string, extra ...string) []byte {
	t.Helper()
	files := []string{
		"[Content_Types].xml", contentTypes,
		"word/_rels/document.xml.rels", documentRels,
		"word/document.xml", body,
	}
	return buildPackage(t, append(files, extra...)...)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		t.Fatal(err)
	}
	return name
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
}

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func openTemplate(t *testing.T, data []byte, cfg *config.DocumentConfig) *Template {
	t.Helper()
	tmpl, err := Read("template.docx", bytes.NewReader(data), int64(len(data)), cfg, testLogger(t))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return tmpl
}

// readResult returns entries of rendered package.
func readResult(t *testing.T, data []byte) (map[string]string, []string) {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("result is not a zip archive: %v", err)
	}
	files := make(map[string]string)
	var names []string
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
		files[f.Name] = buf.String()
		names = append(names, f.Name)
	}
	return files, names
}

func parseXML(t *testing.T, data string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		t.Fatalf("unable to parse result: %v", err)
	}
	return doc
}

// texts returns concatenated text of all w:t elements.
// texts concatenates text runs in document order.
func texts(doc *etree.Document) string {
	var sb strings.Builder
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			if child.Space == "w" && child.Tag == "t" {
				sb.WriteString(child.Text())
			}
			walk(child)
		}
	}
	walk(&doc.Element)
	return sb.String()
}
