// Package idgen generates the k-sortable row identifiers used throughout
// Verbex's storage layer (spec.md §3 invariant 5, GLOSSARY).
//
// Every row id is a 26-character Crockford base32 string whose lexicographic
// order approximates insertion order within the process. Callers must treat
// the id as opaque; only this package knows its internal structure.
package idgen

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// entropy is shared and guarded by mu so that ids generated in rapid
// succession within one process still sort monotonically, per ulid's
// monotonic reader contract.
var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a fresh k-sortable identifier for the current instant.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}

// Equal reports whether two ids are the same identifier under the
// case-insensitive comparison spec.md §3 invariant 5 mandates.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Less reports whether a sorts strictly before b under the same
// case-insensitive, lexicographic comparison used for ids and timestamps.
func Less(a, b string) bool {
	return strings.ToUpper(a) < strings.ToUpper(b)
}
