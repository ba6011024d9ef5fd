package docx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

var (
	loopRe      = regexp.MustCompile(`^([^ ]+):each\(([^ ()]+)\)$`)
	condArgRe   = regexp.MustCompile(`^([^ ]+):if\(([^)]+)\)$`)
	condRe      = regexp.MustCompile(`^([^ ]+):if$`)
	imageRe     = regexp.MustCompile(`^@([^ ]+):start$`)
	insertionRe = regexp.MustCompile(`^=(.+)$`)
)

// builder turns flat field stream into the list of top level statements.
type builder struct {
	proc   *Processor
	fields []Field
	field  Field
}

// Build consumes fields and returns top level statements in document order.
// Markers nested inside a block are not turned into statements here, they
// are discovered again when the block body is rendered.
func (p *Processor) Build(fields []Field) ([]Statement, error) {
	b := &builder{proc: p, fields: fields}

	var ops []Statement
	claimed := make(map[*etree.Element]*Block)
	for len(b.fields) > 0 {
		op, err := b.consume(true)
		if err != nil {
			return nil, err
		}
		if op == nil {
			continue
		}
		if block := blockOf(op); block != nil {
			if err := claimAnchors(claimed, block); err != nil {
				return nil, err
			}
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func blockOf(op Statement) *Block {
	switch op := op.(type) {
	case *Loop:
		return op.Block
	case *Condition:
		return op.Block
	case *ImageStatement:
		return op.Block
	}
	return nil
}

// claimAnchors records anchors of the block. Anchors belong to a single
// block: splicing removes them and image placement searches drawings within
// them.
func claimAnchors(claimed map[*etree.Element]*Block, block *Block) error {
	for _, anchor := range []*etree.Element{block.startNode, block.endNode} {
		other, ok := claimed[anchor]
		if !ok {
			continue
		}
		return &TemplateStructureError{
			Start:    block.start.Expression(),
			Expected: block.end.Expression(),
			Message: fmt.Sprintf("block «%s» shares its %s with block «%s»",
				block.start.Expression(), block.kind, other.start.Expression()),
		}
	}
	claimed[block.startNode] = block
	claimed[block.endNode] = block
	return nil
}

func (b *builder) next() Field {
	if len(b.fields) == 0 {
		b.field = nil
		return nil
	}
	b.field, b.fields = b.fields[0], b.fields[1:]
	return b.field
}

func (b *builder) consume(allowInsertion bool) (Statement, error) {
	f := b.next()
	if f == nil {
		return nil, nil
	}
	text := strings.TrimSpace(f.Expression())

	if m := insertionRe.FindStringSubmatch(text); m != nil {
		if !allowInsertion {
			return nil, nil
		}
		expr, err := ParseExpression(m[1])
		if err != nil {
			return nil, err
		}
		return &Insertion{Expr: expr, field: f}, nil
	}

	if m := loopRe.FindStringSubmatch(text); m != nil {
		block, err := b.consumeBlock(f, m[1]+":endEach")
		if err != nil {
			return nil, err
		}
		expr, err := ParseExpression(m[1])
		if err != nil {
			return nil, err
		}
		return &Loop{Expr: expr, Item: m[2], Block: block}, nil
	}

	if m := condArgRe.FindStringSubmatch(text); m != nil {
		block, err := b.consumeBlock(f, m[1]+":endIf")
		if err != nil {
			return nil, err
		}
		expr, err := ParseExpression(m[1])
		if err != nil {
			return nil, err
		}
		cond := &Condition{Expr: expr, Block: block}
		if arg := strings.TrimSpace(m[2]); isPredicate(arg) {
			cond.Predicate = arg
		} else {
			argExpr, err := ParseExpression(arg)
			if err != nil {
				return nil, err
			}
			cond.Arg = &argExpr
		}
		return cond, nil
	}

	if m := condRe.FindStringSubmatch(text); m != nil {
		block, err := b.consumeBlock(f, m[1]+":endIf")
		if err != nil {
			return nil, err
		}
		expr, err := ParseExpression(m[1])
		if err != nil {
			return nil, err
		}
		return &Condition{Expr: expr, Block: block}, nil
	}

	if m := imageRe.FindStringSubmatch(text); m != nil {
		block, err := b.consumeBlock(f, "@"+m[1]+":end")
		if err != nil {
			return nil, err
		}
		expr, err := ParseExpression(m[1])
		if err != nil {
			return nil, err
		}
		return &ImageStatement{Expr: expr, Block: block}, nil
	}

	// not a marker we know about
	return nil, nil
}

// consumeBlock reads fields until the one with the expected end expression,
// nested blocks are consumed as a whole so their end markers could not be
// confused with ours.
func (b *builder) consumeBlock(start Field, endExpr string) (*Block, error) {
	end := start
	for end != nil && strings.TrimSpace(end.Expression()) != endExpr {
		if _, err := b.consume(false); err != nil {
			return nil, err
		}
		end = b.field
	}
	if end == nil {
		return nil, &TemplateStructureError{Start: start.Expression(), Expected: endExpr}
	}
	return b.proc.resolveBlock(start, end)
}
