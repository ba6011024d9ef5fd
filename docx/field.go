package docx

import (
	"github.com/beevik/etree"
)

// Field is a template marker found in document markup. It is produced by
// Tokenizer and consumed exactly once by the operation builder.
type Field interface {
	// Expression returns marker text, for example "=person.name" or
	// "items:each(item)".
	Expression() string
	// Start returns first element belonging to the field, used to find
	// enclosing document structure.
	Start() *etree.Element
	// Replace substitutes the field with plain text.
	Replace(text string)
	// Remove detaches the field completely.
	Remove()
}

// Tokenizer finds template markers in document markup.
type Tokenizer interface {
	Fields(root *etree.Element) []Field
}
