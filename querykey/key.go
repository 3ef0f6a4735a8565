package querykey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Key is an immutable, ordered tuple of key segments.
//
// Segments are JSON-encodable scalars or plain objects. Two keys are equal
// when their segments are structurally equal, regardless of map ordering or
// whether a number was written as an int or a float.
type Key struct {
	segments []any
}

// NewKey builds a key from the given segments.
func NewKey(segments ...any) Key {
	return Key{segments: cloneSegments(segments)}
}

// Len returns the number of segments.
func (k Key) Len() int {
	return len(k.segments)
}

// At returns the i-th segment. It panics if i is out of range.
func (k Key) At(i int) any {
	return k.segments[i]
}

// Segments returns a copy of the key's segments.
func (k Key) Segments() []any {
	return cloneSegments(k.segments)
}

// Root returns the first segment as a string, or "" for an empty key.
func (k Key) Root() string {
	if len(k.segments) == 0 {
		return ""
	}
	if s, ok := k.segments[0].(string); ok {
		return s
	}
	return fmt.Sprint(k.segments[0])
}

// Append returns a new key with segments added after k's own.
// k is never modified.
func (k Key) Append(segments ...any) Key {
	out := make([]any, 0, len(k.segments)+len(segments))
	out = append(out, k.segments...)
	out = append(out, segments...)
	return Key{segments: out}
}

// HasPrefix reports whether prefix matches the leading segments of k.
func (k Key) HasPrefix(prefix Key) bool {
	if prefix.Len() > k.Len() {
		return false
	}
	for i, seg := range prefix.segments {
		if !segmentEqual(k.segments[i], seg) {
			return false
		}
	}
	return true
}

// Equal reports whether k and other are structurally equal.
func (k Key) Equal(other Key) bool {
	return k.Len() == other.Len() && k.HasPrefix(other)
}

// String returns the canonical JSON form of the key.
func (k Key) String() string {
	b, err := k.MarshalJSON()
	if err != nil {
		return fmt.Sprint(k.segments)
	}
	return string(b)
}

// MarshalJSON encodes the key as a JSON array with object keys sorted.
func (k Key) MarshalJSON() ([]byte, error) {
	return canonicalizeSlice(k.segments)
}

// UnmarshalJSON decodes a JSON array into the key. Numbers are kept as
// json.Number so large integers survive the round trip.
func (k *Key) UnmarshalJSON(data []byte) error {
	var segments []any
	if err := decodeNumbers(data, &segments); err != nil {
		return fmt.Errorf("querykey: decode key: %w", err)
	}
	k.segments = segments
	return nil
}

func cloneSegments(segments []any) []any {
	if len(segments) == 0 {
		return nil
	}
	out := make([]any, len(segments))
	copy(out, segments)
	return out
}

func segmentEqual(a, b any) bool {
	ca, errA := canonicalize(a)
	cb, errB := canonicalize(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

// checkSegments verifies every segment has a canonical encoding.
func checkSegments(path string, segments []any) error {
	for i, seg := range segments {
		if _, err := canonicalize(seg); err != nil {
			return &SegmentError{Path: path, Index: i, Err: err}
		}
	}
	return nil
}

// canonicalize produces a deterministic JSON representation of v.
// Maps are sorted by key and numbers are normalized so that 1 and 1.0
// encode the same way while integers keep every digit.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	case Key:
		return canonicalizeSlice(val.segments)
	case string, bool:
		return json.Marshal(val)
	case float64:
		return canonicalFloat(val)
	case json.Number:
		return canonicalNumber(val.String())
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	// Round-trip structs, typed maps and other numeric kinds through the
	// generic representation so they compare equal to their plain forms.
	var generic any
	if err := decodeNumbers(raw, &generic); err != nil {
		return nil, err
	}
	return canonicalize(generic)
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// canonicalNumber renders JSON number text. Integer literals are kept
// verbatim; anything with a fraction or exponent goes through float64.
func canonicalNumber(text string) ([]byte, error) {
	if !strings.ContainsAny(text, ".eE") {
		if text == "-0" {
			return []byte("0"), nil
		}
		return []byte(text), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, err
	}
	return canonicalFloat(f)
}

// canonicalFloat writes integral floats without a fraction or exponent so
// they match the same value written as an integer.
func canonicalFloat(f float64) ([]byte, error) {
	if f == 0 {
		return []byte("0"), nil
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return json.Marshal(f)
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}
