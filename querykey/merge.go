package querykey

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// MergeMode selects how Merger resolves scopes that share a root name.
type MergeMode int

const (
	// MergeFields unions the entries of colliding scopes; later scopes win
	// per entry.
	MergeFields MergeMode = iota
	// MergeReplace keeps only the last scope for a root name.
	MergeReplace
	// MergeStrict rejects colliding root names with ErrDuplicateScope.
	MergeStrict
)

// String returns the string representation of the mode.
func (m MergeMode) String() string {
	switch m {
	case MergeFields:
		return "fields"
	case MergeReplace:
		return "replace"
	case MergeStrict:
		return "strict"
	default:
		return "unknown"
	}
}

// Registry maps root names to composed scopes.
type Registry struct {
	names  []string
	scopes map[string]*Scope
}

func newRegistry() *Registry {
	return &Registry{scopes: make(map[string]*Scope)}
}

func (r *Registry) put(s *Scope) {
	if _, ok := r.scopes[s.name]; !ok {
		r.names = append(r.names, s.name)
	}
	r.scopes[s.name] = s
}

// Scope returns the scope registered under name.
func (r *Registry) Scope(name string) (*Scope, bool) {
	s, ok := r.scopes[name]
	return s, ok
}

// MustScope is like Scope but panics if name is not registered.
func (r *Registry) MustScope(name string) *Scope {
	s, ok := r.Scope(name)
	if !ok {
		panic(fmt.Sprintf("querykey: registry has no scope %q", name))
	}
	return s
}

// Names returns the root names in the order they were first merged.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of scopes.
func (r *Registry) Len() int {
	return len(r.names)
}

// Keys flattens every scope's Keys under its root name.
func (r *Registry) Keys() map[string]Key {
	out := make(map[string]Key)
	for _, name := range r.names {
		for path, k := range r.scopes[name].Keys() {
			out[name+"."+path] = k
		}
	}
	return out
}

// Merger combines composed scopes into a Registry.
//
// Contract:
// - Concurrency: a Merger is immutable after construction and safe for concurrent use.
// - Ownership: merged scopes share entries with their inputs; treat them as read-only.
type Merger struct {
	mode   MergeMode
	logger zerolog.Logger
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithMergeMode sets the collision policy. The default is MergeFields.
func WithMergeMode(mode MergeMode) MergerOption {
	return func(m *Merger) {
		m.mode = mode
	}
}

// WithMergeLogger sets the logger used for debug events.
func WithMergeLogger(logger zerolog.Logger) MergerOption {
	return func(m *Merger) {
		m.logger = logger
	}
}

// NewMerger creates a Merger.
func NewMerger(opts ...MergerOption) *Merger {
	m := &Merger{
		mode:   MergeFields,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mode returns the merger's collision policy.
func (m *Merger) Mode() MergeMode {
	return m.mode
}

// Merge registers each scope under its root name, in argument order.
// Merging zero scopes yields an empty registry. Scopes that share a root
// name must share a family in every mode; otherwise Merge returns
// ErrFamilyMismatch.
func (m *Merger) Merge(scopes ...*Scope) (*Registry, error) {
	reg := newRegistry()
	for i, s := range scopes {
		if s == nil {
			return nil, fmt.Errorf("%w: argument %d", ErrNilScope, i)
		}

		prev, exists := reg.scopes[s.name]
		if !exists {
			reg.put(s)
			continue
		}
		if prev.family != s.family {
			return nil, fmt.Errorf("%w: %q is a %s scope, argument %d is a %s scope",
				ErrFamilyMismatch, s.name, prev.family, i, s.family)
		}

		switch m.mode {
		case MergeStrict:
			return nil, fmt.Errorf("%w: %q", ErrDuplicateScope, s.name)
		case MergeReplace:
			reg.put(s)
		default:
			reg.put(mergeFields(prev, s))
		}
		m.logger.Debug().
			Str("scope", s.name).
			Str("mode", m.mode.String()).
			Msg("merged colliding scope")
	}
	return reg, nil
}

// Merge combines scopes with MergeFields semantics. Nil scopes are skipped.
// It panics if a query scope and a mutation scope share a root name; use a
// Merger to get an error instead.
func Merge(scopes ...*Scope) *Registry {
	nonNil := make([]*Scope, 0, len(scopes))
	for _, s := range scopes {
		if s != nil {
			nonNil = append(nonNil, s)
		}
	}
	reg, err := NewMerger().Merge(nonNil...)
	if err != nil {
		panic(err)
	}
	return reg
}

// mergeFields shallow-merges next over prev. Entries are shared, not copied.
func mergeFields(prev, next *Scope) *Scope {
	entries := make(map[string]Entry, len(prev.entries)+len(next.entries))
	for name, e := range prev.entries {
		entries[name] = e
	}
	for name, e := range next.entries {
		entries[name] = e
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Scope{
		name:    next.name,
		family:  next.family,
		def:     next.def,
		names:   names,
		entries: entries,
	}
}
