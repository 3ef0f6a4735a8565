// Package schemafile loads query-key schemas from YAML documents.
//
// A document maps root names to schemas. Each schema entry is one of:
//
//	all: ~                  # null: the key is [root, "all"]
//	list: [open, 10]        # sequence: segments spread after the entry name
//	detail:                 # mapping: a structured leaf
//	  key: [u1]             #   optional segments
//	  fetch: getUser        #   name bound with WithFetch
//	  context:              #   nested schema composed under the leaf's key
//	    settings: ~
//	byID:
//	  params: [id]          # an operation taking one argument per param
//	  fetch: getUser
//
// Fetch functions cannot be written in YAML, so fetch names are resolved
// against functions registered by the caller. A stream may hold several
// documents; their scopes are combined with querykey.Merger.
package schemafile
