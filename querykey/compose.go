package querykey

import (
	"strings"

	"github.com/rs/zerolog"
)

const (
	// DefaultReservedPrefix marks names the composer keeps for itself.
	DefaultReservedPrefix = "_"

	defField = "_def"
	ctxField = "_ctx"
)

// Option configures composition.
type Option func(*config)

type config struct {
	logger         zerolog.Logger
	reservedPrefix string
	family         Family
}

// WithLogger sets the logger used for debug events. The default is zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithReservedPrefix overrides the reserved name prefix. An empty prefix
// leaves the default in place.
func WithReservedPrefix(prefix string) Option {
	return func(c *config) {
		if prefix != "" {
			c.reservedPrefix = prefix
		}
	}
}

func newConfig(family Family, opts []Option) config {
	cfg := config{
		logger:         zerolog.Nop(),
		reservedPrefix: DefaultReservedPrefix,
		family:         family,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Compose builds the query scope for root from schema. A nil schema yields
// a scope holding only its definition key [root].
//
// Composition fails before producing anything when any static level of the
// schema declares a reserved name or a segment that cannot be encoded.
func Compose(root string, schema Schema, opts ...Option) (*Scope, error) {
	return compose(FamilyQuery, root, schema, opts)
}

// ComposeMutations is Compose for mutation keys.
func ComposeMutations(root string, schema Schema, opts ...Option) (*Scope, error) {
	return compose(FamilyMutation, root, schema, opts)
}

// MustCompose is like Compose but panics on error. It is meant for
// package-level variables.
func MustCompose(root string, schema Schema, opts ...Option) *Scope {
	s, err := Compose(root, schema, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// MustComposeMutations is like ComposeMutations but panics on error.
func MustComposeMutations(root string, schema Schema, opts ...Option) *Scope {
	s, err := ComposeMutations(root, schema, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func compose(family Family, root string, schema Schema, opts []Option) (*Scope, error) {
	if strings.TrimSpace(root) == "" {
		return nil, ErrEmptyRoot
	}

	c := &composer{cfg: newConfig(family, opts)}
	s, err := c.scope(root, NewKey(root), schema, root)
	if err != nil {
		c.cfg.logger.Debug().Err(err).Str("scope", root).Msg("composition rejected")
		return nil, err
	}
	s.log(c.cfg.logger, "composed scope")
	return s, nil
}

// composer carries configuration through the recursive rewrite. Operations
// keep a reference to it so call-time composition behaves like definition time.
type composer struct {
	cfg config
}

func (c *composer) scope(name string, def Key, schema Schema, path string) (*Scope, error) {
	names, err := c.assertNames(schema, path)
	if err != nil {
		return nil, err
	}

	s := &Scope{
		name:    name,
		family:  c.cfg.family,
		def:     def,
		names:   names,
		entries: make(map[string]Entry, len(names)),
	}

	for _, entryName := range names {
		d := schema[entryName]
		key := def.Append(entryName)
		entryPath := path + "." + entryName

		if d.kind == KindDynamic {
			s.entries[entryName] = &Operation{
				def:  key,
				path: entryPath,
				call: d.call,
				c:    c,
			}
			continue
		}

		leaf, err := c.leaf(key, d, entryPath, true)
		if err != nil {
			return nil, err
		}
		s.entries[entryName] = leaf
	}

	return s, nil
}

// leaf composes a non-dynamic definition under base, which already ends
// with the entry name. Only static leaves record a definition key.
func (c *composer) leaf(base Key, d Def, path string, static bool) (*Leaf, error) {
	if err := checkSegments(path, d.segments); err != nil {
		return nil, err
	}

	l := &Leaf{
		kind:  d.kind,
		key:   base.Append(d.segments...),
		fetch: d.fetch,
	}
	if static && d.hasSegments {
		l.def = base
		l.hasDef = true
	}

	if d.nested != nil {
		ctx, err := c.scope(base.Root(), l.key, d.nested, path+"."+ctxField)
		if err != nil {
			return nil, err
		}
		l.ctx = ctx
	}

	return l, nil
}

// assertNames returns the schema's names sorted, rejecting reserved ones.
func (c *composer) assertNames(schema Schema, path string) ([]string, error) {
	names := sortedNames(schema)
	for _, name := range names {
		if strings.HasPrefix(name, c.cfg.reservedPrefix) {
			return nil, &ReservedNameError{Path: path, Name: name, Prefix: c.cfg.reservedPrefix}
		}
	}
	return names, nil
}
