package docx

import (
	"github.com/beevik/etree"
)

const (
	RelationshipsNS  = "http://schemas.openxmlformats.org/package/2006/relationships"
	PictureNS        = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	DrawingMainNS    = "http://schemas.openxmlformats.org/drawingml/2006/main"
	ImageRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	ContentTypesNS   = "http://schemas.openxmlformats.org/package/2006/content-types"
	WordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// NOTE: WordprocessingML parts always use conventional prefixes and
// duplicated fragments are processed detached from the document root where
// namespace declarations live, so elements are matched by prefix rather than
// by resolved namespace URI.

func is(el *etree.Element, space, tag string) bool {
	return el != nil && el.Space == space && el.Tag == tag
}

// ancestor returns closest ancestor (element itself excluded) with the given
// name.
func ancestor(el *etree.Element, space, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	for p := el.Parent(); p != nil; p = p.Parent() {
		if is(p, space, tag) {
			return p
		}
	}
	return nil
}

// findFirst returns first descendant (depth first, document order) with the
// given name.
func findFirst(el *etree.Element, space, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if is(child, space, tag) {
			return child
		}
		if found := findFirst(child, space, tag); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns all descendants with the given name in document order.
func FindAll(el *etree.Element, space, tag string) []*etree.Element {
	var res []*etree.Element
	for _, child := range el.ChildElements() {
		if is(child, space, tag) {
			res = append(res, child)
		}
		res = append(res, FindAll(child, space, tag)...)
	}
	return res
}

// NextElement returns following sibling element skipping character data.
func NextElement(el *etree.Element) *etree.Element {
	parent := el.Parent()
	if parent == nil {
		return nil
	}
	for i := el.Index() + 1; i < len(parent.Child); i++ {
		if next, ok := parent.Child[i].(*etree.Element); ok {
			return next
		}
	}
	return nil
}

// insertBefore places token into anchor's parent right before anchor.
func insertBefore(anchor *etree.Element, t etree.Token) {
	parent := anchor.Parent()
	if parent == nil {
		return
	}
	parent.InsertChildAt(anchor.Index(), t)
}

// InsertAfter places token into anchor's parent right after anchor.
func InsertAfter(anchor *etree.Element, t etree.Token) {
	if parent := anchor.Parent(); parent != nil {
		parent.InsertChildAt(anchor.Index()+1, t)
	}
}

// Detach removes element from its parent, if any.
func Detach(el *etree.Element) {
	if el == nil {
		return
	}
	if parent := el.Parent(); parent != nil {
		parent.RemoveChild(el)
	}
}
