package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a cache entry. Two keys address the same entry iff their
// parts are structurally equal: same length, same values, same JSON types,
// so the number 1 and the string "1" are different parts.
type Key struct {
	parts []string
}

// NewKey builds a key from JSON-encodable parts.
func NewKey(parts ...any) Key {
	k := Key{parts: make([]string, len(parts))}
	for i, p := range parts {
		b, err := json.Marshal(p)
		if err != nil {
			b = []byte(fmt.Sprintf("%q", fmt.Sprint(p)))
		}
		k.parts[i] = string(b)
	}
	return k
}

// Len returns the number of parts.
func (k Key) Len() int {
	return len(k.parts)
}

// Equal reports structural equality.
func (k Key) Equal(o Key) bool {
	if len(k.parts) != len(o.parts) {
		return false
	}
	for i := range k.parts {
		if k.parts[i] != o.parts[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p's parts are a leading run of k's parts.
// Invalidating p affects every entry whose key has p as prefix.
func (k Key) HasPrefix(p Key) bool {
	if len(p.parts) > len(k.parts) {
		return false
	}
	for i := range p.parts {
		if k.parts[i] != p.parts[i] {
			return false
		}
	}
	return true
}

// String returns the canonical encoding used as the map key.
func (k Key) String() string {
	return "[" + strings.Join(k.parts, ",") + "]"
}
