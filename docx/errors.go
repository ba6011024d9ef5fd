package docx

import (
	"errors"
	"fmt"
)

// ErrUndefined is wrapped by evaluation errors caused by a name which is not
// bound in the context.
var ErrUndefined = errors.New("not defined")

// TemplateStructureError reports a defect in template authoring: a block
// marker without its closing marker, or a marker pair which cannot be mapped
// onto document structure. It does not depend on data and is detected before
// any statement is evaluated.
type TemplateStructureError struct {
	Start    string // expression of the opening marker
	Expected string // expression of the closing marker which was looked for
	Message  string
}

func (e *TemplateStructureError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("template structure error: %s", e.Message)
	}
	return fmt.Sprintf("template structure error: could not find end field for «%s», was looking for «%s»", e.Start, e.Expected)
}

// EvaluationError reports failure to evaluate expression against the data
// context: undefined path or value of the wrong shape for the statement.
type EvaluationError struct {
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation error for expression «%s»: %v", e.Expression, e.Cause)
	}
	return fmt.Sprintf("evaluation error for expression «%s»", e.Expression)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

func evalError(expr string, format string, args ...any) error {
	return &EvaluationError{Expression: expr, Cause: fmt.Errorf(format, args...)}
}
