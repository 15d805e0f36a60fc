// Package ids allocates opaque, deterministic identifiers for stage-block
// graph nodes: block ids, variable ids, list ids. See spec.md §4.A.
package ids

import (
	"hash/fnv"
)

// alphabet is the 64-symbol encoding set. Index order is significant: it
// defines the little-endian base-64 digit values used by encode.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_$"

const idLength = 12

// Allocator hands out 12-character identifiers derived from arbitrary keys,
// resolving collisions between non-equal keys via open addressing. One
// Allocator is created per pipeline run; it holds no state beyond that run
// and is never shared across invocations.
type Allocator struct {
	seen map[string]string // key -> id, for keys already allocated
	used map[string]bool   // id -> taken, across all keys
}

// New creates an empty Allocator.
func New() *Allocator {
	return &Allocator{
		seen: make(map[string]string),
		used: make(map[string]bool),
	}
}

// Alloc returns the id for key, allocating one on first use. Equal keys
// (by ==, after the caller has normalized them to a comparable form, e.g.
// with Key) always receive the same id; distinct keys that hash to the
// same candidate id are reassigned by linear probing until a free slot is
// found.
func (a *Allocator) Alloc(key string) string {
	if id, ok := a.seen[key]; ok {
		return id
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	n := h.Sum64()

	id := encode(n)
	for a.used[id] {
		n++
		id = encode(n)
	}

	a.seen[key] = id
	a.used[id] = true
	return id
}

// encode renders n as little-endian base-64 in the alphabet above,
// left-padded with the zero symbol to idLength characters.
func encode(n uint64) string {
	var digits []byte
	for n > 0 {
		digits = append(digits, alphabet[n&0x3f])
		n >>= 6
	}
	buf := make([]byte, idLength)
	pad := idLength - len(digits)
	for i := 0; i < pad; i++ {
		buf[i] = alphabet[0]
	}
	copy(buf[pad:], digits)
	return string(buf)
}

// Key joins the parts of a structural key (scope pointer tag, kind tag,
// name, node reference, ...) into the single comparable string Alloc
// expects. Callers build keys from whatever distinguishes two identifiers
// that must not collide, e.g. Key("var", scopeID, name).
func Key(parts ...string) string {
	total := 0
	for _, p := range parts {
		total += len(p) + 1
	}
	buf := make([]byte, 0, total)
	for _, p := range parts {
		buf = append(buf, p...)
		buf = append(buf, 0)
	}
	return string(buf)
}
