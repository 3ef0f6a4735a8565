package querykey

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Entry is a composed schema entry: a *Leaf or an *Operation.
type Entry interface {
	// Kind reports the shape the entry was declared with.
	Kind() Kind
	entry()
}

// Scope is the composed form of a Schema. It is immutable and safe for
// concurrent use.
type Scope struct {
	name    string
	family  Family
	def     Key
	names   []string
	entries map[string]Entry
}

// Name returns the root name of the scope.
func (s *Scope) Name() string {
	return s.name
}

// Family reports whether the scope holds query or mutation keys.
func (s *Scope) Family() Family {
	return s.family
}

// Def returns the scope's definition key: [root] for a top-level scope, or
// the owning leaf's key for a contextual scope.
func (s *Scope) Def() Key {
	return s.def
}

// Names returns the entry names in sorted order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of entries, not counting the definition key.
func (s *Scope) Len() int {
	return len(s.names)
}

// Entry returns the named entry.
func (s *Scope) Entry(name string) (Entry, bool) {
	e, ok := s.entries[name]
	return e, ok
}

// Leaf returns the named static leaf.
func (s *Scope) Leaf(name string) (*Leaf, bool) {
	l, ok := s.entries[name].(*Leaf)
	return l, ok
}

// Operation returns the named dynamic operation.
func (s *Scope) Operation(name string) (*Operation, bool) {
	op, ok := s.entries[name].(*Operation)
	return op, ok
}

// MustLeaf is like Leaf but panics if name is not a static leaf.
func (s *Scope) MustLeaf(name string) *Leaf {
	l, ok := s.Leaf(name)
	if !ok {
		panic(fmt.Sprintf("querykey: %s has no leaf %q", s.def, name))
	}
	return l
}

// MustOperation is like Operation but panics if name is not a dynamic operation.
func (s *Scope) MustOperation(name string) *Operation {
	op, ok := s.Operation(name)
	if !ok {
		panic(fmt.Sprintf("querykey: %s has no operation %q", s.def, name))
	}
	return op
}

// WalkFunc is called by Walk for each entry. path holds the entry names from
// the scope down to the entry, crossing contextual scopes.
type WalkFunc func(path []string, e Entry) error

// Walk visits every entry in name order, descending into the contextual
// scopes of static leaves. Operations are visited but not evaluated.
func (s *Scope) Walk(fn WalkFunc) error {
	return s.walk(nil, fn)
}

func (s *Scope) walk(prefix []string, fn WalkFunc) error {
	for _, name := range s.names {
		path := append(append([]string(nil), prefix...), name)
		e := s.entries[name]
		if err := fn(path, e); err != nil {
			return err
		}
		if l, ok := e.(*Leaf); ok && l.ctx != nil {
			if err := l.ctx.walk(path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Keys flattens every statically known key into a map from dotted path to
// key. The scope's own definition key is "_def"; a leaf's key is its path,
// its definition key "<path>._def", contextual entries "<path>._ctx.<name>"
// and operations contribute "<path>._def".
func (s *Scope) Keys() map[string]Key {
	out := make(map[string]Key)
	out[defField] = s.def
	s.collectKeys("", out)
	return out
}

func (s *Scope) collectKeys(prefix string, out map[string]Key) {
	for _, name := range s.names {
		path := prefix + name
		switch e := s.entries[name].(type) {
		case *Leaf:
			out[path] = e.key
			if e.hasDef {
				out[path+"."+defField] = e.def
			}
			if e.ctx != nil {
				e.ctx.collectKeys(path+"."+ctxField+".", out)
			}
		case *Operation:
			out[path+"."+defField] = e.def
		}
	}
}

func (s *Scope) log(logger zerolog.Logger, msg string) {
	logger.Debug().
		Str("scope", s.name).
		Str("family", s.family.String()).
		Str("def", s.def.String()).
		Int("entries", len(s.names)).
		Msg(msg)
}

// Leaf is a static composed entry: one key, optionally paired with a fetch
// function and a nested contextual scope.
type Leaf struct {
	kind   Kind
	key    Key
	def    Key
	hasDef bool
	fetch  FetchFunc
	ctx    *Scope
}

func (*Leaf) entry() {}

// Kind reports the shape the leaf was declared or returned with.
func (l *Leaf) Kind() Kind {
	return l.kind
}

// Key returns the leaf's key tuple.
func (l *Leaf) Key() Key {
	return l.key
}

// Def returns the key without the leaf's own declared segments. It is only
// present on static leaves that declared segments.
func (l *Leaf) Def() (Key, bool) {
	return l.def, l.hasDef
}

// HasFetch reports whether the leaf carries a fetch function.
func (l *Leaf) HasFetch() bool {
	return l.fetch != nil
}

// Options returns the fetch-option bundle for the leaf. Fetch is nil when
// the leaf declared none.
func (l *Leaf) Options() Options {
	return Options{Key: l.key, Fetch: l.fetch}
}

// Context returns the nested contextual scope, or nil.
func (l *Leaf) Context() *Scope {
	return l.ctx
}

// Operation is a dynamic entry. Its definition key is fixed at composition;
// Call evaluates the user's function and prefixes whatever it returns.
type Operation struct {
	def  Key
	path string
	call func(args []any) (Def, error)
	c    *composer
}

func (*Operation) entry() {}

// Kind always returns KindDynamic.
func (o *Operation) Kind() Kind {
	return KindDynamic
}

// Def returns the operation's definition key, independent of any call.
func (o *Operation) Def() Key {
	return o.def
}

// Call evaluates the operation with args. Nested schemas returned by the
// operation are validated here, since they only exist at call time.
func (o *Operation) Call(args ...any) (*Leaf, error) {
	d, err := o.call(args)
	if err != nil {
		return nil, fmt.Errorf("querykey: %s: %w", o.path, err)
	}
	if d.kind == KindDynamic {
		return nil, fmt.Errorf("%w: %s", ErrNestedDynamic, o.path)
	}
	leaf, err := o.c.leaf(o.def, d, o.path, false)
	if err != nil {
		return nil, err
	}
	o.c.cfg.logger.Debug().
		Str("operation", o.path).
		Str("key", leaf.key.String()).
		Msg("evaluated operation")
	return leaf, nil
}

// MustCall is like Call but panics on error.
func (o *Operation) MustCall(args ...any) *Leaf {
	leaf, err := o.Call(args...)
	if err != nil {
		panic(err)
	}
	return leaf
}

func sortedNames(schema Schema) []string {
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
