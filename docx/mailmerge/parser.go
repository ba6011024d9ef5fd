// Package mailmerge finds Word MERGEFIELDs in WordprocessingML markup. Both
// simple (w:fldSimple) and complex (w:fldChar begin/separate/end runs) fields
// are recognized.
package mailmerge

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"docmerge/docx"
)

var instrRe = regexp.MustCompile(`^\s*MERGEFIELD\s+(\S+)(?:\s+\\\*\s+MERGEFORMAT)?\s*$`)

// expression extracts field expression from instruction text.
func expression(instr string) (string, bool) {
	m := instrRe.FindStringSubmatch(instr)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Parser implements docx.Tokenizer.
type Parser struct {
	log *zap.Logger
}

// NewParser returns tokenizer for MERGEFIELDs.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log}
}

// Fields returns valid merge fields under root in document order.
func (p *Parser) Fields(root *etree.Element) []docx.Field {
	var fields []docx.Field
	p.walk(root, &fields)
	return fields
}

func (p *Parser) walk(el *etree.Element, fields *[]docx.Field) {
	for _, child := range el.ChildElements() {
		switch {
		case child.Space == "w" && child.Tag == "fldSimple":
			if f, ok := newSimpleField(child); ok {
				*fields = append(*fields, f)
			} else {
				p.log.Debug("Skipping field", zap.String("instr", child.SelectAttrValue("w:instr", "")))
			}
			// simple fields do not nest
			continue
		case child.Space == "w" && child.Tag == "fldChar" && child.SelectAttrValue("w:fldCharType", "") == "begin":
			if f, ok := newComplexField(child); ok {
				*fields = append(*fields, f)
			} else {
				p.log.Debug("Skipping complex field")
			}
		}
		p.walk(child, fields)
	}
}

// simpleField is a w:fldSimple element.
type simpleField struct {
	node *etree.Element
	expr string
}

func newSimpleField(node *etree.Element) (*simpleField, bool) {
	expr, ok := expression(node.SelectAttrValue("w:instr", ""))
	if !ok {
		return nil, false
	}
	return &simpleField{node: node, expr: expr}, true
}

func (f *simpleField) Expression() string { return f.expr }
func (f *simpleField) Start() *etree.Element { return f.node }
func (f *simpleField) String() string { return f.expr }
func (f *simpleField) Remove() { docx.Detach(f.node) }

// Replace puts text into field display run and unwraps it.
func (f *simpleField) Replace(text string) {
	replaceDisplay(f.node, text)
	parent := f.node.Parent()
	if parent == nil {
		return
	}
	idx := f.node.Index()
	for _, child := range f.node.ChildElements() {
		parent.InsertChildAt(idx, child)
		idx++
	}
	parent.RemoveChild(f.node)
}

// complexField is a sequence of sibling runs from fldChar "begin" to fldChar
// "end".
type complexField struct {
	nodes []*etree.Element
	expr  string
}

func newComplexField(begin *etree.Element) (*complexField, bool) {
	run := begin.Parent()
	if run == nil {
		return nil, false
	}

	var (
		nodes []*etree.Element
		instr strings.Builder
	)
	for n := run; n != nil; n = docx.NextElement(n) {
		nodes = append(nodes, n)
		for _, it := range docx.FindAll(n, "w", "instrText") {
			instr.WriteString(it.Text())
		}
		if hasFldChar(n, "end") {
			break
		}
	}

	f := &complexField{nodes: nodes}
	if f.separate() == nil || !hasFldChar(nodes[len(nodes)-1], "end") {
		return nil, false
	}
	expr, ok := expression(instr.String())
	if !ok {
		return nil, false
	}
	f.expr = expr
	return f, true
}

func (f *complexField) Expression() string { return f.expr }
func (f *complexField) Start() *etree.Element { return f.nodes[0] }
func (f *complexField) String() string { return f.expr }

func (f *complexField) Remove() {
	for _, n := range f.nodes {
		docx.Detach(n)
	}
}

// Replace puts text into the run following "separate" and drops the rest of
// the field.
func (f *complexField) Replace(text string) {
	display := docx.NextElement(f.separate())
	if display == nil || hasFldChar(display, "end") {
		// field without display run, create one
		display = etree.NewElement("w:r")
		docx.InsertAfter(f.separate(), display)
	}
	replaceDisplay(display, text)
	for _, n := range f.nodes {
		if n != display {
			docx.Detach(n)
		}
	}
}

func (f *complexField) separate() *etree.Element {
	for _, n := range f.nodes {
		if hasFldChar(n, "separate") {
			return n
		}
	}
	return nil
}

func hasFldChar(el *etree.Element, kind string) bool {
	for _, fc := range docx.FindAll(el, "w", "fldChar") {
		if fc.SelectAttrValue("w:fldCharType", "") == kind {
			return true
		}
	}
	return false
}

// replaceDisplay sets text of the first w:t under node, newlines become w:br.
func replaceDisplay(node *etree.Element, text string) {
	ts := docx.FindAll(node, "w", "t")
	var display *etree.Element
	if len(ts) == 0 {
		run := node
		if !(node.Space == "w" && node.Tag == "r") {
			if runs := docx.FindAll(node, "w", "r"); len(runs) > 0 {
				run = runs[0]
			}
		}
		display = run.CreateElement("w:t")
	} else {
		display = ts[0]
		for _, t := range ts[1:] {
			docx.Detach(t)
		}
	}

	lines := strings.Split(text, "\n")
	setText(display, lines[0])
	last := display
	for _, line := range lines[1:] {
		br := etree.NewElement("w:br")
		docx.InsertAfter(last, br)
		t := etree.NewElement("w:t")
		setText(t, line)
		docx.InsertAfter(br, t)
		last = t
	}
}

func setText(t *etree.Element, text string) {
	t.SetText(text)
	if strings.TrimSpace(text) != text {
		t.CreateAttr("xml:space", "preserve")
	}
}
