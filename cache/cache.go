package cache

import (
	"errors"
	"strings"

	"github.com/jonwraymond/keyfactory/querykey"
)

// MaxKeyLength is the maximum allowed length for a flattened cache key.
const MaxKeyLength = 512

// Sentinel errors for key flattening.
var (
	ErrEmptyKey   = errors.New("cache: key tuple is empty")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrInvalidSeparator indicates a PathKeyer separator that could appear
	// inside an encoded segment.
	ErrInvalidSeparator = errors.New("cache: separator overlaps segment encoding")
)

// Keyer flattens a key tuple into a string key for string-keyed engines.
//
// Contract:
// - Determinism: structurally equal tuples must produce the same string.
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: the returned key must pass ValidateKey.
type Keyer interface {
	// Key returns the string form of k.
	Key(k querykey.Key) (string, error)
}

// ValidateKey checks if a flattened key is usable by a string-keyed engine.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
