package querykey

import (
	"fmt"
	"reflect"
)

// Kind discriminates the shapes a schema entry can take.
type Kind int

const (
	// KindEmpty is a leaf with no extra segments.
	KindEmpty Kind = iota
	// KindLiteral is a leaf that extends its key with literal segments.
	KindLiteral
	// KindWithFetch is a leaf paired with a fetch function.
	KindWithFetch
	// KindWithNested is a leaf carrying a nested contextual schema.
	KindWithNested
	// KindWithFetchAndNested is a leaf with both a fetch function and a nested schema.
	KindWithFetchAndNested
	// KindDynamic is an operation evaluated with call-time arguments.
	KindDynamic
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindLiteral:
		return "literal"
	case KindWithFetch:
		return "with-fetch"
	case KindWithNested:
		return "with-nested"
	case KindWithFetchAndNested:
		return "with-fetch-and-nested"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Family distinguishes query scopes from mutation scopes. Both compose the
// same way; the family is carried so merged registries and telemetry can
// tell them apart.
type Family int

const (
	FamilyQuery Family = iota
	FamilyMutation
)

func (f Family) String() string {
	if f == FamilyMutation {
		return "mutation"
	}
	return "query"
}

// Schema maps operation names to their definitions.
type Schema map[string]Def

// Def is one schema entry. Build it with Null, Literal, WithFetch,
// WithNested, WithFetchAndNested or one of the Dynamic constructors; the zero
// Def behaves like Null.
type Def struct {
	kind Kind
	// hasSegments records whether the author declared a key, which decides
	// whether a static leaf carries its own definition key.
	hasSegments bool
	segments    []any
	fetch       FetchFunc
	nested      Schema
	call        func(args []any) (Def, error)
}

// Kind returns the definition's discriminant.
func (d Def) Kind() Kind {
	return d.kind
}

// Null declares a leaf whose key is the parent key plus the entry name.
func Null() Def {
	return Def{kind: KindEmpty}
}

// Literal declares a leaf whose key is extended with segments, spread in
// order after the entry name.
func Literal(segments ...any) Def {
	return Def{
		kind:        KindLiteral,
		hasSegments: true,
		segments:    cloneSegments(segments),
	}
}

// WithFetch declares a leaf paired with fn. Omitting segments is the same
// as declaring a null key.
func WithFetch(fn FetchFunc, segments ...any) Def {
	return structured(fn, nil, segments)
}

// WithNested declares a leaf whose nested schema is composed under the
// leaf's own key.
func WithNested(nested Schema, segments ...any) Def {
	return structured(nil, nested, segments)
}

// WithFetchAndNested declares a leaf with both a fetch function and a
// nested schema.
func WithFetchAndNested(fn FetchFunc, nested Schema, segments ...any) Def {
	return structured(fn, nested, segments)
}

func structured(fn FetchFunc, nested Schema, segments []any) Def {
	d := Def{
		hasSegments: len(segments) > 0,
		segments:    cloneSegments(segments),
		fetch:       fn,
		nested:      nested,
	}
	switch {
	case fn != nil && nested != nil:
		d.kind = KindWithFetchAndNested
	case fn != nil:
		d.kind = KindWithFetch
	case nested != nil:
		d.kind = KindWithNested
	case d.hasSegments:
		d.kind = KindLiteral
	default:
		d.kind = KindEmpty
	}
	return d
}

// Dynamic declares an operation evaluated at call time. The returned
// definition may be of any non-dynamic kind.
func Dynamic(fn func(args ...any) Def) Def {
	return Def{
		kind: KindDynamic,
		call: func(args []any) (Def, error) {
			return fn(args...), nil
		},
	}
}

// DynamicN declares an operation that takes exactly n arguments of any type.
func DynamicN(n int, fn func(args ...any) Def) Def {
	return Def{
		kind: KindDynamic,
		call: func(args []any) (Def, error) {
			if err := wantArgs(args, n); err != nil {
				return Def{}, err
			}
			return fn(args...), nil
		},
	}
}

// Dynamic1 declares a single-argument operation. Calling it with anything
// other than one argument assignable to A fails with ErrArgs.
func Dynamic1[A any](fn func(A) Def) Def {
	return Def{
		kind: KindDynamic,
		call: func(args []any) (Def, error) {
			if err := wantArgs(args, 1); err != nil {
				return Def{}, err
			}
			a, err := argAt[A](args, 0)
			if err != nil {
				return Def{}, err
			}
			return fn(a), nil
		},
	}
}

// Dynamic2 declares a two-argument operation.
func Dynamic2[A, B any](fn func(A, B) Def) Def {
	return Def{
		kind: KindDynamic,
		call: func(args []any) (Def, error) {
			if err := wantArgs(args, 2); err != nil {
				return Def{}, err
			}
			a, err := argAt[A](args, 0)
			if err != nil {
				return Def{}, err
			}
			b, err := argAt[B](args, 1)
			if err != nil {
				return Def{}, err
			}
			return fn(a, b), nil
		},
	}
}

func wantArgs(args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: want %d argument(s), got %d", ErrArgs, n, len(args))
	}
	return nil
}

func argAt[T any](args []any, i int) (T, error) {
	var zero T
	if args[i] == nil {
		// nil is accepted for any type whose zero value is nil.
		switch reflect.TypeFor[T]().Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return zero, nil
		}
		return zero, fmt.Errorf("%w: argument %d is nil, want %v", ErrArgs, i, reflect.TypeFor[T]())
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: argument %d is %T, want %v", ErrArgs, i, args[i], reflect.TypeFor[T]())
	}
	return v, nil
}
