package docx

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// Statement is a single template operation. Statements are built once per
// document part and evaluated once.
type Statement interface {
	Evaluate(ctx Context) error
}

// Insertion replaces a field with the text of a scalar value.
type Insertion struct {
	Expr  Expression
	field Field
}

// Loop repeats block once per list item with Item bound to it.
type Loop struct {
	Expr  Expression
	Item  string
	Block *Block
}

// Condition keeps block when condition holds and removes it otherwise. When
// Predicate is set it is applied to the value of Expr, when Arg is set its
// truthiness decides instead of Expr.
type Condition struct {
	Expr      Expression
	Predicate string
	Arg       *Expression
	Block     *Block
}

// ImageStatement points placeholder drawing to an image from context.
type ImageStatement struct {
	Expr  Expression
	Block *Block
}

func (s *Insertion) Evaluate(ctx Context) error {
	v, err := s.Expr.Evaluate(ctx)
	if err != nil {
		return err
	}
	switch v := v.(type) {
	case Scalar:
		s.field.Replace(v.String())
	case nilValue:
		s.field.Replace("")
	default:
		return evalError(s.Expr.String(), "%s value could not be inserted as text", kindOf(v))
	}
	return nil
}

func (s *Loop) Evaluate(ctx Context) error {
	v, err := s.Expr.Evaluate(ctx)
	if err != nil {
		return err
	}
	list, ok := v.(List)
	if !ok {
		return evalError(s.Expr.String(), "expected list to iterate over, got %s", kindOf(v))
	}

	var content []*etree.Element
	for i, item := range list {
		nodes, err := s.Block.Duplicate(ctx.With(s.Item, item))
		if err != nil {
			return fmt.Errorf("%s[%d]: %w", s.Expr, i, err)
		}
		content = append(content, nodes...)
	}
	s.Block.proc.log.Debug("Loop expanded",
		zap.Stringer("expr", s.Expr), zap.Int("items", len(list)), zap.Stringer("block", s.Block.Kind()))
	s.Block.Splice(content)
	return nil
}

// predicates which could be used as condition argument.
var predicates = map[string]func(Value) bool{
	"any?":     Truthy,
	"present?": Truthy,
	"blank?":   func(v Value) bool { return !Truthy(v) },
	"empty?": func(v Value) bool {
		switch v := v.(type) {
		case List:
			return len(v) == 0
		case Scalar:
			return v.String() == ""
		case nilValue:
			return true
		}
		return false
	},
	"nil?": func(v Value) bool {
		_, ok := v.(nilValue)
		return ok
	},
}

func (s *Condition) Evaluate(ctx Context) error {
	holds, err := s.holds(ctx)
	if err != nil {
		return err
	}
	if !holds {
		s.Block.Splice(nil)
		return nil
	}
	nodes, err := s.Block.Duplicate(ctx)
	if err != nil {
		return err
	}
	s.Block.Splice(nodes)
	return nil
}

func (s *Condition) holds(ctx Context) (bool, error) {
	expr := s.Expr
	if s.Arg != nil {
		expr = *s.Arg
	}
	v, err := expr.Evaluate(ctx)
	if err != nil {
		return false, err
	}
	if pred, ok := predicates[s.Predicate]; ok {
		return pred(v), nil
	}
	return Truthy(v), nil
}

func (s *ImageStatement) Evaluate(ctx Context) error {
	v, err := s.Expr.Evaluate(ctx)
	if err != nil && !errors.Is(err, ErrUndefined) {
		return err
	}
	switch v := v.(type) {
	case *Image:
		if v != nil {
			return s.Block.SpliceImage(v)
		}
		s.Block.Splice(nil)
	case nil, nilValue:
		s.Block.Splice(nil)
	default:
		return evalError(s.Expr.String(), "expected image, got %s", kindOf(v))
	}
	return nil
}

func isPredicate(name string) bool {
	_, ok := predicates[name]
	return ok
}
