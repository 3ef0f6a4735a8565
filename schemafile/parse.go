package schemafile

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/keyfactory/querykey"
)

// Structured entry fields.
const (
	fieldKey     = "key"
	fieldFetch   = "fetch"
	fieldContext = "context"
	fieldParams  = "params"
)

func (l *loader) document(doc *yaml.Node, source string) ([]*querykey.Scope, error) {
	n := resolve(doc)
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, nil
		}
		n = resolve(n.Content[0])
	}
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, newParseError(source, "", n, ErrInvalidDocument)
	}

	var scopes []*querykey.Scope
	err := l.eachPair(n, "", source, func(root string, value *yaml.Node) error {
		schema, err := l.schema(value, root, source)
		if err != nil {
			return err
		}
		scope, err := l.compose(root, schema)
		if err != nil {
			return fmt.Errorf("schemafile: compose %q: %w", root, err)
		}
		scopes = append(scopes, scope)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scopes, nil
}

// schema decodes a mapping of entry names. A null node is a nil schema.
func (l *loader) schema(n *yaml.Node, path, source string) (querykey.Schema, error) {
	n = resolve(n)
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, newParseError(source, path, n, fmt.Errorf("%w: want a mapping of entry names", ErrInvalidEntry))
	}

	schema := make(querykey.Schema, len(n.Content)/2)
	err := l.eachPair(n, path, source, func(name string, value *yaml.Node) error {
		def, err := l.entry(value, join(path, name), source)
		if err != nil {
			return err
		}
		schema[name] = def
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schema, nil
}

func (l *loader) entry(n *yaml.Node, path, source string) (querykey.Def, error) {
	n = resolve(n)
	switch {
	case isNull(n):
		return querykey.Null(), nil
	case n.Kind == yaml.SequenceNode:
		segments, err := l.segments(n, path, source)
		if err != nil {
			return querykey.Def{}, err
		}
		return querykey.Literal(segments...), nil
	case n.Kind == yaml.MappingNode:
		return l.structured(n, path, source)
	default:
		return querykey.Def{}, newParseError(source, path, n,
			fmt.Errorf("%w: want ~, a sequence or a mapping", ErrInvalidEntry))
	}
}

func (l *loader) structured(n *yaml.Node, path, source string) (querykey.Def, error) {
	var (
		segments []any
		fetch    querykey.FetchFunc
		nested   querykey.Schema
		params   []string
		dynamic  bool
	)

	err := l.eachPair(n, path, source, func(field string, value *yaml.Node) error {
		fieldPath := join(path, field)
		value = resolve(value)
		switch field {
		case fieldKey:
			if isNull(value) {
				return nil
			}
			if value.Kind != yaml.SequenceNode {
				return newParseError(source, fieldPath, value, fmt.Errorf("%w: key must be a sequence", ErrInvalidEntry))
			}
			var err error
			segments, err = l.segments(value, fieldPath, source)
			return err

		case fieldFetch:
			if value.Kind != yaml.ScalarNode || isNull(value) {
				return newParseError(source, fieldPath, value, fmt.Errorf("%w: fetch must be a name", ErrInvalidEntry))
			}
			fn, ok := l.cfg.fetchers[value.Value]
			if !ok || fn == nil {
				return newParseError(source, fieldPath, value, fmt.Errorf("%w: %q", ErrUnboundFetch, value.Value))
			}
			fetch = fn
			return nil

		case fieldContext:
			schema, err := l.schema(value, fieldPath, source)
			if err != nil {
				return err
			}
			if schema == nil {
				schema = querykey.Schema{}
			}
			nested = schema
			return nil

		case fieldParams:
			if value.Kind != yaml.SequenceNode {
				return newParseError(source, fieldPath, value, fmt.Errorf("%w: params must be a sequence of names", ErrInvalidEntry))
			}
			if err := value.Decode(&params); err != nil {
				return newParseError(source, fieldPath, value, fmt.Errorf("%w: %v", ErrInvalidEntry, err))
			}
			dynamic = true
			return nil

		default:
			return newParseError(source, fieldPath, value, fmt.Errorf("%w %q", ErrUnknownField, field))
		}
	})
	if err != nil {
		return querykey.Def{}, err
	}

	if dynamic {
		return querykey.DynamicN(len(params), func(args ...any) querykey.Def {
			return querykey.WithFetchAndNested(fetch, nested, slices.Concat(segments, args)...)
		}), nil
	}
	return querykey.WithFetchAndNested(fetch, nested, segments...), nil
}

func (l *loader) segments(n *yaml.Node, path, source string) ([]any, error) {
	segments := make([]any, 0, len(n.Content))
	for _, item := range n.Content {
		var v any
		if err := resolve(item).Decode(&v); err != nil {
			return nil, newParseError(source, path, item, fmt.Errorf("%w: %v", ErrInvalidEntry, err))
		}
		segments = append(segments, v)
	}
	return segments, nil
}

// eachPair visits a mapping's pairs in document order, rejecting
// non-string and repeated names. Merge keys ("<<") are expanded after the
// explicit pairs; explicit names win over merged ones.
func (l *loader) eachPair(n *yaml.Node, path, source string, fn func(name string, value *yaml.Node) error) error {
	pairs, err := l.pairs(n, path, source)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := fn(p.key.Value, p.value); err != nil {
			return err
		}
	}
	return nil
}

type pair struct {
	key, value *yaml.Node
}

func (l *loader) pairs(n *yaml.Node, path, source string) ([]pair, error) {
	var (
		out    []pair
		merged []pair
	)
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := resolve(n.Content[i])
		if k.Kind == yaml.ScalarNode && k.ShortTag() == mergeTag {
			m, err := l.mergePairs(n.Content[i+1], path, source)
			if err != nil {
				return nil, err
			}
			merged = append(merged, m...)
			continue
		}
		if k.Kind != yaml.ScalarNode || isNull(k) {
			return nil, newParseError(source, path, k, fmt.Errorf("%w: names must be strings", ErrInvalidEntry))
		}
		if seen[k.Value] {
			return nil, newParseError(source, join(path, k.Value), k, fmt.Errorf("%w %q", ErrDuplicateName, k.Value))
		}
		seen[k.Value] = true
		out = append(out, pair{key: k, value: n.Content[i+1]})
	}
	for _, p := range merged {
		if seen[p.key.Value] {
			continue
		}
		seen[p.key.Value] = true
		out = append(out, p)
	}
	return out, nil
}

// mergePairs returns the pairs a merge key contributes. For a sequence of
// mappings the earlier mapping wins.
func (l *loader) mergePairs(v *yaml.Node, path, source string) ([]pair, error) {
	v = resolve(v)
	switch v.Kind {
	case yaml.MappingNode:
		return l.pairs(v, path, source)
	case yaml.SequenceNode:
		var out []pair
		seen := make(map[string]bool)
		for _, item := range v.Content {
			item = resolve(item)
			if item.Kind != yaml.MappingNode {
				return nil, newParseError(source, path, item, fmt.Errorf("%w: merge value must be a mapping", ErrInvalidEntry))
			}
			ps, err := l.pairs(item, path, source)
			if err != nil {
				return nil, err
			}
			for _, p := range ps {
				if !seen[p.key.Value] {
					seen[p.key.Value] = true
					out = append(out, p)
				}
			}
		}
		return out, nil
	default:
		return nil, newParseError(source, path, v, fmt.Errorf("%w: merge value must be a mapping", ErrInvalidEntry))
	}
}

const mergeTag = "!!merge"

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func newParseError(source, path string, n *yaml.Node, err error) *ParseError {
	return &ParseError{
		Source: source,
		Path:   path,
		Line:   n.Line,
		Column: n.Column,
		Err:    err,
	}
}
