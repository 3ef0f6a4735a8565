// Package querykey composes hierarchical cache-key tuples and fetch-option
// bundles for client-side data-fetching caches.
//
// A Schema describes the operations of one entity ("users", "todos"). Compose
// turns it into a Scope whose every key starts with the scope's definition
// key, so invalidating a parent key invalidates all of its descendants:
//
//	var todos = querykey.MustCompose("todos", querykey.Schema{
//		"all":    querykey.Null(),
//		"detail": querykey.Dynamic1(func(id string) querykey.Def { return querykey.Literal(id) }),
//	})
//
//	todos.MustLeaf("all").Key()              // ["todos","all"]
//	todos.MustOperation("detail").Def()      // ["todos","detail"]
//	todos.MustOperation("detail").MustCall("t1").Key() // ["todos","detail","t1"]
//
// Merge combines independently composed scopes into one Registry keyed by
// root name. The package performs no caching, fetching or invalidation; it
// only shapes the keys and options a cache engine consumes.
package querykey
