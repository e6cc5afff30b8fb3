// Package ids generates monotonic sortable chunk identifiers and content
// hashes.
package ids

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = rand.Reader
)

// New returns a 26-character Crockford-Base32 identifier with a 48-bit
// millisecond timestamp prefix and 80 bits of randomness. Identifiers are
// monotonically non-decreasing across increasing timestamps; at equal
// timestamps, ordering is determined by the underlying entropy source.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewAt is New with an explicit timestamp, used by tests that need
// deterministic ordering.
func NewAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// ContentHash returns the lowercase hex SHA-256 digest of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
