package querykey

import "context"

// FetchContext is what a cache engine hands to a fetch function.
// Cancellation is carried by the context passed alongside it.
type FetchContext struct {
	// Key is the key the engine is resolving.
	Key Key
	// PageParam is the page cursor for paginated queries.
	PageParam any
	// Meta is engine-defined metadata.
	Meta map[string]any
	// Variables are the mutation inputs for FamilyMutation leaves.
	Variables any
}

// FetchFunc resolves the value for a key.
type FetchFunc func(ctx context.Context, fc FetchContext) (any, error)

// Options is a fetch-option bundle: a key paired with the function that
// resolves it, ready to hand to a cache engine.
type Options struct {
	Key   Key
	Fetch FetchFunc
}

// Execute calls the bundle's fetch function. When fc.Key is empty it
// defaults to the bundle's key.
func (o Options) Execute(ctx context.Context, fc FetchContext) (any, error) {
	if o.Fetch == nil {
		return nil, ErrNoFetch
	}
	if fc.Key.Len() == 0 {
		fc.Key = o.Key
	}
	return o.Fetch(ctx, fc)
}
