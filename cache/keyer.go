package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonwraymond/keyfactory/querykey"
)

// DefaultKeyer produces opaque, fixed-size keys.
// Format: cache:<root>:<hash>
// where hash is the first 16 hex characters of SHA-256 over the tuple's
// canonical JSON. The root stays readable so keys can be grouped per entity.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic hashed key.
func (k *DefaultKeyer) Key(key querykey.Key) (string, error) {
	if key.Len() == 0 {
		return "", ErrEmptyKey
	}

	canonical, err := key.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize key: %w", err)
	}

	hash := sha256.Sum256(canonical)
	out := "cache:" + escapeSegment(key.Root()) + ":" + hex.EncodeToString(hash[:8])
	if err := ValidateKey(out); err != nil {
		return "", err
	}
	return out, nil
}

// PathKeyer produces hierarchical keys such as "users:detail:u1". String
// segments are query-escaped; every other segment is written as "=" plus its
// escaped canonical JSON, so "1" and 1 flatten differently. The separator may
// not contain any character an encoded segment can, which keeps the
// encoding injective: a tuple prefix maps to a string prefix ending in the
// separator, and engines that scan by pattern can find a whole scope with
// Pattern.
type PathKeyer struct {
	sep string
}

// NewPathKeyer creates a path keyer. An empty separator defaults to ":".
// An unusable separator is reported by Key and Pattern as
// ErrInvalidSeparator.
func NewPathKeyer(sep string) *PathKeyer {
	if sep == "" {
		sep = ":"
	}
	return &PathKeyer{sep: sep}
}

// Key joins the encoded segments of key.
func (k *PathKeyer) Key(key querykey.Key) (string, error) {
	out, err := k.join(key)
	if err != nil {
		return "", err
	}
	if err := ValidateKey(out); err != nil {
		return "", err
	}
	return out, nil
}

// Pattern returns a glob that matches every key strictly below prefix.
// The prefix's own key is not matched; look it up with Key.
func (k *PathKeyer) Pattern(prefix querykey.Key) (string, error) {
	out, err := k.join(prefix)
	if err != nil {
		return "", err
	}
	return out + k.sep + "*", nil
}

func (k *PathKeyer) join(key querykey.Key) (string, error) {
	if err := checkSeparator(k.sep); err != nil {
		return "", err
	}
	if key.Len() == 0 {
		return "", ErrEmptyKey
	}

	parts := make([]string, key.Len())
	for i := range parts {
		seg := key.At(i)
		if s, ok := seg.(string); ok {
			parts[i] = escapeSegment(s)
			continue
		}
		raw, err := querykey.NewKey(seg).MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("cache: segment %d: %w", i, err)
		}
		parts[i] = valueTag + escapeSegment(string(raw[1:len(raw)-1]))
	}
	return strings.Join(parts, k.sep), nil
}

// valueTag marks a non-string segment. QueryEscape always escapes it, so no
// string segment can start with it.
const valueTag = "="

// segmentChars is every character an encoded segment can contain, plus the
// glob metacharacters Pattern relies on.
const segmentChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_.~%+" + valueTag + "*?[]\\"

func checkSeparator(sep string) error {
	if strings.ContainsAny(sep, segmentChars) {
		return fmt.Errorf("%w: %q", ErrInvalidSeparator, sep)
	}
	return nil
}

// escapeSegment query-escapes s, which also escapes glob metacharacters.
func escapeSegment(s string) string {
	return url.QueryEscape(s)
}

// ScopedKeyer wraps a Keyer with a prefix for tenant isolation.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every key.
// A nil inner keyer defaults to a PathKeyer.
func NewScopedKeyer(inner Keyer, prefix string) *ScopedKeyer {
	if inner == nil {
		inner = NewPathKeyer("")
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// Key returns the prefixed key from the inner keyer.
func (k *ScopedKeyer) Key(key querykey.Key) (string, error) {
	out, err := k.inner.Key(key)
	if err != nil {
		return "", err
	}
	out = k.prefix + out
	if err := ValidateKey(out); err != nil {
		return "", err
	}
	return out, nil
}

var (
	_ Keyer = (*DefaultKeyer)(nil)
	_ Keyer = (*PathKeyer)(nil)
	_ Keyer = (*ScopedKeyer)(nil)
)
