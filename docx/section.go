package docx

import (
	"strconv"

	"github.com/beevik/etree"
)

// elements which follow w:pgNumType inside w:sectPr (CT_SectPr sequence).
var afterPgNumType = map[string]bool{
	"cols": true, "formProt": true, "vAlign": true, "noEndnote": true, "titlePg": true,
	"textDirection": true, "bidi": true, "rtlGutter": true, "docGrid": true,
	"printerSettings": true, "sectPrChange": true,
}

// SectionProperties is a view over w:sectPr element.
type SectionProperties struct {
	node *etree.Element
}

// LastSectionProperties returns the last section of the document or nil.
func LastSectionProperties(doc *etree.Document) *SectionProperties {
	root := doc.Root()
	if root == nil {
		return nil
	}
	all := FindAll(root, "w", "sectPr")
	if len(all) == 0 {
		return nil
	}
	return &SectionProperties{node: all[len(all)-1]}
}

// StartPageNumber returns starting page number if section defines one.
func (s *SectionProperties) StartPageNumber() (int, bool) {
	pg := s.pgNumType(false)
	if pg == nil {
		return 0, false
	}
	n, err := strconv.Atoi(pg.SelectAttrValue("w:start", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// SetStartPageNumber sets starting page number, creating w:pgNumType if
// necessary.
func (s *SectionProperties) SetStartPageNumber(n int) {
	s.pgNumType(true).CreateAttr("w:start", strconv.Itoa(n))
}

func (s *SectionProperties) pgNumType(create bool) *etree.Element {
	for _, child := range s.node.ChildElements() {
		if is(child, "w", "pgNumType") {
			return child
		}
	}
	if !create {
		return nil
	}
	pg := etree.NewElement("w:pgNumType")
	for _, child := range s.node.ChildElements() {
		if child.Space == "w" && afterPgNumType[child.Tag] {
			s.node.InsertChildAt(child.Index(), pg)
			return pg
		}
	}
	s.node.AddChild(pg)
	return pg
}
