package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Codec errors
	ErrOutOfBounds         = errors.New("out of bounds")
	ErrUnsupportedBitWidth = errors.New("unsupported bit width")
	ErrValueEncoding       = errors.New("value not encodable")

	// Rescale errors
	ErrShapeMismatch  = errors.New("shape mismatch")
	ErrInvalidAxis    = errors.New("invalid axis")
	ErrDivisionByZero = errors.New("division by zero")

	// Catalog and session errors
	ErrInvalidDefinition = errors.New("invalid definition")
	ErrUnknownVariant    = errors.New("unknown variant")
	ErrInvalidState      = errors.New("invalid session state")
)

// TableError reports a failure tied to one table, and when known the
// offending cell and value. Row and Col are -1 when not applicable.
type TableError struct {
	Table  string
	Row    int
	Col    int
	Value  float64
	Kind   error
	Detail string
}

// NewTableError returns a TableError without cell coordinates.
func NewTableError(table string, kind error, format string, args ...any) *TableError {
	return &TableError{
		Table:  table,
		Row:    -1,
		Col:    -1,
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	}
}

func (e *TableError) Error() string {
	var b strings.Builder
	b.WriteString(e.Table)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	switch {
	case e.Row >= 0 && e.Col >= 0:
		fmt.Fprintf(&b, " at row %d, column %d (value %v)", e.Row, e.Col, e.Value)
	case e.Row >= 0:
		fmt.Fprintf(&b, " at index %d (value %v)", e.Row, e.Value)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *TableError) Unwrap() error { return e.Kind }

// BatchError aggregates the per-table failures of a multi-table commit.
type BatchError struct {
	Failures []*TableError
}

func (e *BatchError) Error() string {
	if len(e.Failures) == 1 {
		return "commit failed: " + e.Failures[0].Error()
	}
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("commit failed for %d tables: %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Tables returns the names of the tables that failed.
func (e *BatchError) Tables() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Table
	}
	return names
}
