package docx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Expression is a parsed lookup path like "person.address.city" or
// "items[0].label".
type Expression struct {
	text  string
	steps []step
}

type step struct {
	name  string
	index int // valid when name is empty
}

// ParseExpression parses dotted/indexed lookup path.
func ParseExpression(text string) (Expression, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Expression{}, &EvaluationError{Expression: text, Cause: errors.New("empty expression")}
	}

	expr := Expression{text: text}
	for pos := 0; pos < len(text); {
		switch c := text[pos]; {
		case c == '.':
			if pos == 0 || pos == len(text)-1 {
				return Expression{}, evalError(text, "unexpected '.' at position %d", pos)
			}
			pos++
			if text[pos] == '.' || text[pos] == '[' {
				return Expression{}, evalError(text, "missing name at position %d", pos)
			}
		case c == '[':
			end := strings.IndexByte(text[pos:], ']')
			if end < 0 {
				return Expression{}, evalError(text, "unterminated index at position %d", pos)
			}
			idx, err := strconv.Atoi(strings.TrimSpace(text[pos+1 : pos+end]))
			if err != nil || idx < 0 {
				return Expression{}, evalError(text, "bad index %q at position %d", text[pos+1:pos+end], pos)
			}
			if len(expr.steps) == 0 {
				return Expression{}, evalError(text, "index without name at position %d", pos)
			}
			expr.steps = append(expr.steps, step{index: idx})
			pos += end + 1
			if pos < len(text) && text[pos] != '.' && text[pos] != '[' {
				return Expression{}, evalError(text, "unexpected %q at position %d", text[pos], pos)
			}
		case c == ']' || c == ' ' || c == '\t':
			return Expression{}, evalError(text, "unexpected %q at position %d", c, pos)
		default:
			end := strings.IndexAny(text[pos:], ".[] \t")
			if end < 0 {
				end = len(text) - pos
			}
			expr.steps = append(expr.steps, step{name: text[pos : pos+end]})
			pos += end
		}
	}
	return expr, nil
}

// MustParseExpression is like ParseExpression but panics on error.
func MustParseExpression(text string) Expression {
	expr, err := ParseExpression(text)
	if err != nil {
		panic(err)
	}
	return expr
}

func (e Expression) String() string {
	return e.text
}

// Evaluate resolves path against context. Undefined names and shape
// mismatches are reported as *EvaluationError, walking through explicit nil
// yields Nil.
func (e Expression) Evaluate(ctx Context) (Value, error) {
	if len(e.steps) == 0 {
		return nil, evalError(e.text, "empty expression")
	}

	cur, ok := ctx.Lookup(e.steps[0].name)
	if !ok {
		return nil, &EvaluationError{Expression: e.text, Cause: fmt.Errorf("%q is %w", e.steps[0].name, ErrUndefined)}
	}

	for i, s := range e.steps[1:] {
		if cur == nil || cur == Nil {
			return Nil, nil
		}
		where := e.prefix(i + 1)
		if s.name == "" {
			list, ok := cur.(List)
			if !ok {
				return nil, evalError(e.text, "%s is %s, cannot index it", where, kindOf(cur))
			}
			if s.index >= len(list) {
				return nil, evalError(e.text, "index %d out of range for %s (length %d)", s.index, where, len(list))
			}
			cur = list[s.index]
			continue
		}
		rec, ok := cur.(Record)
		if !ok {
			return nil, evalError(e.text, "%s is %s, cannot access field %q", where, kindOf(cur), s.name)
		}
		if cur, ok = rec.Field(s.name); !ok {
			return nil, &EvaluationError{Expression: e.text, Cause: fmt.Errorf("field %q of %s is %w", s.name, where, ErrUndefined)}
		}
	}
	if cur == nil {
		cur = Nil
	}
	return cur, nil
}

// prefix renders first n steps for error messages.
func (e Expression) prefix(n int) string {
	var sb strings.Builder
	for i, s := range e.steps[:n] {
		switch {
		case s.name == "":
			fmt.Fprintf(&sb, "[%d]", s.index)
		case i > 0:
			sb.WriteByte('.')
			sb.WriteString(s.name)
		default:
			sb.WriteString(s.name)
		}
	}
	return sb.String()
}
