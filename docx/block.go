package docx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// Block is the document region delimited by a start/end marker pair: a run of
// paragraphs, a run of table rows or a paragraph holding image placeholder.
// Block does not own any nodes, they stay in the document until Splice.
type Block struct {
	start, end Field
	kind       BlockKind

	startNode, endNode *etree.Element

	body       []*etree.Element
	bodyLoaded bool

	proc *Processor
}

// blockResolver is a candidate structural scope for a marker pair. Resolvers
// are tried in order, first one enclosing both markers wins.
type blockResolver struct {
	kind     BlockKind
	encloses func(start, end Field) bool
	anchors  func(start, end Field) (*etree.Element, *etree.Element)
}

var blockResolvers = []blockResolver{
	{
		kind: BlockKindImage,
		encloses: func(start, _ Field) bool {
			return strings.HasPrefix(strings.TrimSpace(start.Expression()), "@") && paragraphOf(start) != nil
		},
		anchors: func(start, end Field) (*etree.Element, *etree.Element) {
			s, e := paragraphOf(start), paragraphOf(end)
			if e == nil {
				e = s
			}
			return s, e
		},
	},
	{
		kind: BlockKindRow,
		encloses: func(start, end Field) bool {
			s, e := rowOf(start), rowOf(end)
			return s != nil && e != nil && s != e
		},
		anchors: func(start, end Field) (*etree.Element, *etree.Element) {
			return rowOf(start), rowOf(end)
		},
	},
	{
		kind: BlockKindParagraph,
		encloses: func(start, end Field) bool {
			return paragraphOf(start) != nil && paragraphOf(end) != nil
		},
		anchors: func(start, end Field) (*etree.Element, *etree.Element) {
			return paragraphOf(start), paragraphOf(end)
		},
	},
}

func paragraphOf(f Field) *etree.Element {
	return ancestor(f.Start(), "w", "p")
}

func rowOf(f Field) *etree.Element {
	return ancestor(f.Start(), "w", "tr")
}

// resolveBlock selects structural scope enclosed by the marker pair.
func (p *Processor) resolveBlock(start, end Field) (*Block, error) {
	for _, r := range blockResolvers {
		if !r.encloses(start, end) {
			continue
		}
		s, e := r.anchors(start, end)
		if s.Parent() == nil || s.Parent() != e.Parent() || e.Index() < s.Index() {
			return nil, &TemplateStructureError{
				Start:    start.Expression(),
				Expected: end.Expression(),
				Message: fmt.Sprintf("markers «%s» and «%s» are not in sibling %s elements",
					start.Expression(), end.Expression(), r.kind),
			}
		}
		p.log.Debug("Block resolved", zap.String("start", start.Expression()), zap.Stringer("kind", r.kind))
		return &Block{start: start, end: end, kind: r.kind, startNode: s, endNode: e, proc: p}, nil
	}
	return nil, &TemplateStructureError{
		Start:    start.Expression(),
		Expected: end.Expression(),
		Message:  fmt.Sprintf("unable to find paragraph or table row enclosing «%s» and «%s»", start.Expression(), end.Expression()),
	}
}

// Kind returns structural unit of the block.
func (b *Block) Kind() BlockKind {
	return b.kind
}

// Body returns sibling elements strictly between start and end anchors.
func (b *Block) Body() []*etree.Element {
	if b.bodyLoaded {
		return b.body
	}
	b.bodyLoaded = true
	if b.startNode == b.endNode {
		return nil
	}
	for n := NextElement(b.startNode); n != nil && n != b.endNode; n = NextElement(n) {
		b.body = append(b.body, n)
	}
	return b.body
}

// Duplicate deep copies block body into detached container and renders it
// against ctx, returning resulting elements. Nested markers are discovered
// and evaluated here.
func (b *Block) Duplicate(ctx Context) ([]*etree.Element, error) {
	tmp := etree.NewElement("tmp")
	for _, n := range b.Body() {
		tmp.AddChild(n.Copy())
	}
	if err := b.proc.Manipulate(tmp, ctx); err != nil {
		return nil, err
	}
	return tmp.ChildElements(), nil
}

// Splice inserts nodes right before start anchor, then removes body and both
// anchors.
func (b *Block) Splice(nodes []*etree.Element) {
	for _, n := range nodes {
		insertBefore(b.startNode, n)
	}
	for _, n := range b.Body() {
		Detach(n)
	}
	Detach(b.startNode)
	if b.endNode != b.startNode {
		Detach(b.endNode)
	}
}

// SpliceImage points placeholder drawing to the image and removes markers,
// leaving the drawing in place.
func (b *Block) SpliceImage(img *Image) error {
	if b.kind != BlockKindImage {
		return fmt.Errorf("block «%s» is %s, not image", b.start.Expression(), b.kind)
	}
	if img.RelationshipID() == 0 {
		return evalError(b.start.Expression(), "image %q has no relationship id, was it passed for embedding?", img.Name)
	}

	var drawing *etree.Element
	containers := append(append([]*etree.Element{b.startNode}, b.Body()...), b.endNode)
	for _, c := range containers {
		if drawing = findFirst(c, "w", "drawing"); drawing != nil {
			break
		}
	}
	if drawing == nil {
		return &TemplateStructureError{
			Start:    b.start.Expression(),
			Expected: b.end.Expression(),
			Message:  fmt.Sprintf("no drawing found between «%s» and «%s»", b.start.Expression(), b.end.Expression()),
		}
	}

	if prop := findFirst(drawing, "pic", "cNvPr"); prop != nil {
		prop.CreateAttr("name", img.Name)
	}
	blip := findFirst(drawing, "a", "blip")
	if blip == nil {
		return &TemplateStructureError{
			Start:    b.start.Expression(),
			Expected: b.end.Expression(),
			Message:  fmt.Sprintf("drawing between «%s» and «%s» has no picture", b.start.Expression(), b.end.Expression()),
		}
	}
	blip.CreateAttr("r:embed", img.RelationshipRef())

	if b.proc.opts.KeepAspectRatio && img.Width > 0 && img.Height > 0 {
		fitExtent(drawing, img)
	}

	b.proc.log.Debug("Image placed", zap.String("name", img.Name), zap.String("rid", img.RelationshipRef()))

	b.start.Remove()
	b.end.Remove()
	return nil
}

// fitExtent keeps placeholder width and recalculates height from image
// proportions.
func fitExtent(drawing *etree.Element, img *Image) {
	for _, ext := range append(FindAll(drawing, "wp", "extent"), FindAll(drawing, "a", "ext")...) {
		cx, err := strconv.ParseInt(ext.SelectAttrValue("cx", ""), 10, 64)
		if err != nil || cx <= 0 {
			continue
		}
		ext.CreateAttr("cy", strconv.FormatInt(cx*int64(img.Height)/int64(img.Width), 10))
	}
}
