// Package cache flattens querykey tuples into string keys for caches that
// only understand strings.
//
// DefaultKeyer hashes the canonical tuple into a fixed-size key, PathKeyer
// keeps the hierarchy readable and prefix-scannable, and ScopedKeyer adds a
// tenant prefix to either.
package cache
