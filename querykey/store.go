package querykey

import "sort"

// NewStore composes every schema under its map key and returns them as one
// registry, ordered by name. A nil schema yields a root-only scope.
func NewStore(schemas map[string]Schema, opts ...Option) (*Registry, error) {
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := newRegistry()
	for _, name := range names {
		s, err := Compose(name, schemas[name], opts...)
		if err != nil {
			return nil, err
		}
		reg.put(s)
	}
	return reg, nil
}
