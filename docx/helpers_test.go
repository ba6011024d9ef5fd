package docx_test

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"docmerge/docx"
	"docmerge/docx/mailmerge"
)

const documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
	` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
	` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
	` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
	` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"><w:body>`

const documentTail = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:cols w:space="708"/></w:sectPr></w:body></w:document>`

// field returns paragraph holding single simple merge field.
func field(expr string) string {
	return `<w:p>` + inlineField(expr) + `</w:p>`
}

func inlineField(expr string) string {
	return `<w:fldSimple w:instr=" MERGEFIELD ` + expr + ` \* MERGEFORMAT "><w:r><w:t>«` + expr + `»</w:t></w:r></w:fldSimple>`
}

func para(text string) string {
	return `<w:p><w:r><w:t>` + text + `</w:t></w:r></w:p>`
}

func row(cells ...string) string {
	var sb strings.Builder
	sb.WriteString(`<w:tr>`)
	for _, c := range cells {
		sb.WriteString(`<w:tc>` + c + `</w:tc>`)
	}
	sb.WriteString(`</w:tr>`)
	return sb.String()
}

func drawing(name, rid string) string {
	return `<w:r><w:drawing><wp:inline><wp:extent cx="1000" cy="1000"/><a:graphic><a:graphicData>` +
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="1" name="` + name + `"/></pic:nvPicPr>` +
		`<pic:blipFill><a:blip r:embed="` + rid + `"/></pic:blipFill>` +
		`<pic:spPr><a:xfrm><a:ext cx="1000" cy="1000"/></a:xfrm></pic:spPr></pic:pic>` +
		`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`
}

func parseDocument(t *testing.T, body ...string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(documentHead + strings.Join(body, "") + documentTail); err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

func newProcessor(t *testing.T, opts docx.Options) *docx.Processor {
	t.Helper()
	log := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	return docx.NewProcessor(mailmerge.NewParser(log), opts, log)
}

func newContext(t *testing.T, data map[string]any) docx.Context {
	t.Helper()
	ctx, err := docx.NewContextFromAny(data)
	if err != nil {
		t.Fatalf("NewContextFromAny() error = %v", err)
	}
	return ctx
}

// render processes document and fails the test on error.
func render(t *testing.T, doc *etree.Document, data map[string]any) {
	t.Helper()
	if err := newProcessor(t, docx.Options{}).Process(doc, newContext(t, data), docx.Properties{}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
}

// texts returns content of all text runs in document order.
func texts(doc *etree.Document) []string {
	var res []string
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			if child.Space == "w" && child.Tag == "t" {
				res = append(res, child.Text())
			}
			walk(child)
		}
	}
	walk(&doc.Element)
	return res
}

func count(doc *etree.Document, path string) int {
	return len(doc.FindElements(path))
}
