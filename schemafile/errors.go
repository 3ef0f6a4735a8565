package schemafile

import (
	"errors"
	"fmt"
)

// Sentinel errors for schema documents.
var (
	// ErrInvalidDocument indicates a document is not a mapping of root names.
	ErrInvalidDocument = errors.New("schemafile: document must map root names to schemas")

	// ErrInvalidEntry indicates an entry has an unsupported shape.
	ErrInvalidEntry = errors.New("schemafile: invalid entry")

	// ErrUnknownField indicates a structured entry declares an unrecognized field.
	ErrUnknownField = errors.New("schemafile: unknown field")

	// ErrUnboundFetch indicates a fetch name with no registered function.
	ErrUnboundFetch = errors.New("schemafile: fetch function not registered")

	// ErrDuplicateName indicates a mapping declares the same name twice.
	ErrDuplicateName = errors.New("schemafile: duplicate name")
)

// ParseError locates a problem in a schema document.
type ParseError struct {
	// Source names the file or stream, when known.
	Source string
	// Path is the dotted location of the offending node.
	Path string
	// Line and Column are 1-based positions from the YAML parser.
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%v: %s: %s (line %d, column %d)", e.Err, e.Source, e.Path, e.Line, e.Column)
	}
	return fmt.Sprintf("%v: %s (line %d, column %d)", e.Err, e.Path, e.Line, e.Column)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
