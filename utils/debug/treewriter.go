// Package debug has helpers producing human readable dumps of internal
// structures.
package debug

import (
	"fmt"
	"io"
	"strings"
)

// TreeWriter accumulates indented lines.
type TreeWriter struct {
	w      *strings.Builder
	indent string
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w:      &strings.Builder{},
		indent: "  ",
	}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

func (tw *TreeWriter) Len() int {
	return tw.w.Len()
}

func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	for range max(depth, 0) {
		tw.w.WriteString(tw.indent)
	}
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// WriteTo implements io.WriterTo.
func (tw *TreeWriter) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, tw.w.String())
	return int64(n), err
}
