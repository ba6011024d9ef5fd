package docx_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"docmerge/docx"
	"docmerge/docx/mailmerge"
)

func build(t *testing.T, body ...string) ([]docx.Statement, error) {
	t.Helper()
	doc := parseDocument(t, body...)
	return newProcessor(t, docx.Options{}).Build(mailmerge.NewParser(nil).Fields(doc.Root()))
}

func TestBuild_SharedAnchor(t *testing.T) {
	tests := []struct {
		name   string
		body   []string
		blocks []string
	}{
		{
			name: "conditions",
			body: []string{
				field("a:if"), para("A body"),
				`<w:p>` + inlineField("a:endIf") + inlineField("b:if") + `</w:p>`,
				para("B body"), field("b:endIf"),
			},
			blocks: []string{"a:if", "b:if"},
		},
		{
			name: "loop after condition",
			body: []string{
				field("a:if"), para("A body"),
				`<w:p>` + inlineField("a:endIf") + inlineField("items:each(item)") + `</w:p>`,
				field("=item"), field("items:endEach"),
			},
			blocks: []string{"a:if", "items:each(item)"},
		},
		{
			name: "rows",
			body: []string{
				`<w:tbl>`,
				row(field("a:each(x)")),
				row(para("A body")),
				row(field("a:endEach"), field("b:each(y)")),
				row(para("B body")),
				row(field("b:endEach")),
				`</w:tbl>`,
			},
			blocks: []string{"a:each(x)", "b:each(y)"},
		},
		{
			name: "images",
			body: []string{
				`<w:p>` + inlineField("@one:start") + drawing("one", "rId1") + inlineField("@one:end") +
					inlineField("@two:start") + drawing("two", "rId2") + inlineField("@two:end") + `</w:p>`,
			},
			blocks: []string{"@one:start", "@two:start"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := build(t, tt.body...)

			var se *docx.TemplateStructureError
			if !errors.As(err, &se) {
				t.Fatalf("Build() error = %v, want TemplateStructureError", err)
			}
			for _, b := range tt.blocks {
				if !strings.Contains(err.Error(), b) {
					t.Errorf("error %q does not name block %q", err, b)
				}
			}
		})
	}
}

func TestProcess_SharedAnchorLeavesDocument(t *testing.T) {
	doc := parseDocument(t,
		field("a:if"), para("A body"),
		`<w:p>`+inlineField("a:endIf")+inlineField("b:if")+`</w:p>`,
		para("B body"), field("b:endIf"),
	)
	before, err := doc.WriteToString()
	if err != nil {
		t.Fatal(err)
	}

	err = newProcessor(t, docx.Options{}).Process(doc, newContext(t, map[string]any{"a": true, "b": false}), docx.Properties{})
	if err == nil {
		t.Fatal("Process() expected error")
	}
	if after, _ := doc.WriteToString(); after != before {
		t.Error("document modified by failed build")
	}
}

func TestBuild_AdjacentBlocks(t *testing.T) {
	ops, err := build(t,
		field("a:if"), para("A body"), field("a:endIf"),
		field("b:if"), para("B body"), field("b:endIf"),
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("Build() returned %d statements, want 2", len(ops))
	}

	doc := parseDocument(t,
		field("a:if"), para("A body"), field("a:endIf"),
		field("b:if"), para("B body"), field("b:endIf"),
	)
	render(t, doc, map[string]any{"a": true, "b": false})
	if got := texts(doc); !slices.Equal(got, []string{"A body"}) {
		t.Errorf("texts = %v, want [A body]", got)
	}
}

func TestBuild_MarkersInSameRow(t *testing.T) {
	body := []string{
		`<w:tbl>`,
		row(para("Items")),
		row(field("items:each(item)") + field("=item") + field("items:endEach")),
		`</w:tbl>`,
	}

	ops, err := build(t, body...)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("Build() returned %d statements, want 1", len(ops))
	}
	loop, ok := ops[0].(*docx.Loop)
	if !ok {
		t.Fatalf("ops[0] = %T, want *docx.Loop", ops[0])
	}
	if loop.Block.Kind() != docx.BlockKindParagraph {
		t.Errorf("block kind = %s, want paragraph", loop.Block.Kind())
	}

	doc := parseDocument(t, body...)
	render(t, doc, map[string]any{"items": []any{"a", "b"}})

	if n := count(doc, "//w:tr"); n != 2 {
		t.Errorf("table has %d rows, want 2", n)
	}
	if n := count(doc, "//w:tr[2]/w:tc/w:p"); n != 2 {
		t.Errorf("cell has %d paragraphs, want 2", n)
	}
	if got := texts(doc); !slices.Equal(got, []string{"Items", "a", "b"}) {
		t.Errorf("texts = %v, want [Items a b]", got)
	}
}

func TestBuild_ConditionArgument(t *testing.T) {
	tests := []struct {
		marker    string
		predicate string
		arg       string
	}{
		{"flag:if", "", ""},
		{"flag:if(any?)", "any?", ""},
		{"flag:if(other.value)", "", "other.value"},
	}

	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			ops, err := build(t, field(tt.marker), para("body"), field("flag:endIf"))
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			cond, ok := ops[0].(*docx.Condition)
			if !ok {
				t.Fatalf("ops[0] = %T, want *docx.Condition", ops[0])
			}
			if cond.Predicate != tt.predicate {
				t.Errorf("Predicate = %q, want %q", cond.Predicate, tt.predicate)
			}
			switch {
			case tt.arg == "" && cond.Arg != nil:
				t.Errorf("Arg = %s, want none", cond.Arg)
			case tt.arg != "" && (cond.Arg == nil || cond.Arg.String() != tt.arg):
				t.Errorf("Arg = %v, want %s", cond.Arg, tt.arg)
			}
		})
	}
}

func TestBuild_MalformedConditionArgument(t *testing.T) {
	// no context is involved, error comes from build
	_, err := build(t, field("flag:if(a..b)"), para("body"), field("flag:endIf"))

	var ee *docx.EvaluationError
	if !errors.As(err, &ee) {
		t.Fatalf("Build() error = %v, want EvaluationError", err)
	}
	if ee.Expression != "a..b" {
		t.Errorf("Expression = %q, want a..b", ee.Expression)
	}
}
