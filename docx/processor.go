// Package docx merges data into WordprocessingML parts. Templates are
// authored with MERGEFIELDs carrying small expressions:
//
//	=person.first_name               insert text
//	items:each(item) ... items:endEach    repeat paragraphs or table rows
//	flag:if ... flag:endIf            keep region when flag is truthy
//	list:if(any?) ... list:endIf      keep region when predicate holds
//	@photo:start ... @photo:end       point placeholder picture to an image
//
// Fields are turned into statements, each statement owns a Block - the
// paragraphs or table rows between its markers. Block bodies are copied and
// rendered again for every loop iteration, which is how nested markers are
// handled.
package docx

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// Options tune optional processing behavior.
type Options struct {
	// KeepAspectRatio recalculates placeholder picture height from the
	// proportions of the substituted image.
	KeepAspectRatio bool
}

// Properties are document level settings applied after merge.
type Properties struct {
	// StartPageNumber, when set, becomes starting page number of the last
	// section.
	StartPageNumber *int
}

// Processor renders document parts. It holds no per render state and could
// be reused, every call builds its own statements.
type Processor struct {
	tokenizer Tokenizer
	log       *zap.Logger
	opts      Options
}

// NewProcessor creates processor using given tokenizer to find markers.
func NewProcessor(tokenizer Tokenizer, opts Options, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{tokenizer: tokenizer, log: log, opts: opts}
}

// Process merges context into the document and applies properties. On error
// document is left in undefined state and must be discarded.
func (p *Processor) Process(doc *etree.Document, ctx Context, props Properties) error {
	root := doc.Root()
	if root == nil {
		return errors.New("document has no root element")
	}
	if err := p.Manipulate(root, ctx); err != nil {
		return err
	}
	if props.StartPageNumber != nil {
		sect := LastSectionProperties(doc)
		if sect == nil {
			p.log.Warn("Document has no section properties, start page number ignored", zap.Int("start", *props.StartPageNumber))
			return nil
		}
		sect.SetStartPageNumber(*props.StartPageNumber)
	}
	return nil
}

// Manipulate builds statements for all markers under root and evaluates them
// in document order.
func (p *Processor) Manipulate(root *etree.Element, ctx Context) error {
	ops, err := p.Build(p.tokenizer.Fields(root))
	if err != nil {
		return err
	}
	p.log.Debug("Statements built", zap.String("root", root.FullTag()), zap.Int("count", len(ops)))
	for _, op := range ops {
		if err := op.Evaluate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RemoveTrailingBlankPage drops page break from the last paragraph preceding
// final section properties. Page break right before the section end produces
// an empty trailing page.
func RemoveTrailingBlankPage(doc *etree.Document) error {
	root := doc.Root()
	if !is(root, "w", "document") {
		return fmt.Errorf("unexpected document root %q", rootTag(root))
	}
	var body *etree.Element
	for _, child := range root.ChildElements() {
		if is(child, "w", "body") {
			body = child
			break
		}
	}
	if body == nil {
		return nil
	}

	children := body.ChildElements()
	foundLast := false
	for i := len(children) - 1; i >= 0; i-- {
		child := children[i]
		if !foundLast {
			foundLast = is(child, "w", "sectPr")
			continue
		}
		if !is(child, "w", "p") {
			continue
		}
		for _, run := range child.ChildElements() {
			if !is(run, "w", "r") {
				continue
			}
			for _, br := range run.ChildElements() {
				if is(br, "w", "br") && br.SelectAttrValue("w:type", "") == "page" {
					run.RemoveChild(br)
				}
			}
		}
		break
	}
	return nil
}

func rootTag(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.FullTag()
}
