package querykey

import (
	"errors"
	"fmt"
)

// Sentinel errors for composition and merging.
var (
	// ErrEmptyRoot indicates Compose was called without a root name.
	ErrEmptyRoot = errors.New("querykey: root name is required")

	// ErrReservedName indicates a schema declared a name reserved for the composer.
	ErrReservedName = errors.New("querykey: name is reserved")

	// ErrInvalidSegment indicates a key segment cannot be encoded as JSON.
	ErrInvalidSegment = errors.New("querykey: key segment is not JSON-encodable")

	// ErrNestedDynamic indicates a dynamic operation returned another dynamic definition.
	ErrNestedDynamic = errors.New("querykey: dynamic operation returned a dynamic definition")

	// ErrArgs indicates a dynamic operation was called with the wrong arguments.
	ErrArgs = errors.New("querykey: invalid operation arguments")

	// ErrNoFetch indicates Options.Execute was called on a bundle without a fetch function.
	ErrNoFetch = errors.New("querykey: options have no fetch function")
)

// Merge errors.
var (
	// ErrNilScope indicates a nil scope was passed to Merger.Merge.
	ErrNilScope = errors.New("querykey: scope is nil")

	// ErrDuplicateScope indicates two scopes share a root name under MergeStrict.
	ErrDuplicateScope = errors.New("querykey: duplicate scope")

	// ErrFamilyMismatch indicates a query scope and a mutation scope share a root name.
	ErrFamilyMismatch = errors.New("querykey: scope family mismatch")
)

// ReservedNameError reports a schema entry whose name collides with the
// composer's own fields.
type ReservedNameError struct {
	// Path is the dotted location of the schema that declared Name.
	Path string
	// Name is the offending entry name.
	Name string
	// Prefix is the reserved prefix in effect.
	Prefix string
}

func (e *ReservedNameError) Error() string {
	return fmt.Sprintf("querykey: %q in %q: keys that start with %q are reserved for the key composer",
		e.Name, e.Path, e.Prefix)
}

func (e *ReservedNameError) Unwrap() error {
	return ErrReservedName
}

// SegmentError reports a key segment that cannot be encoded.
type SegmentError struct {
	Path  string
	Index int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("querykey: %s: segment %d: %v", e.Path, e.Index, e.Err)
}

func (e *SegmentError) Unwrap() []error {
	return []error{ErrInvalidSegment, e.Err}
}
