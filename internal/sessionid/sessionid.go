// Package sessionid generates sortable session identifiers: a UUIDv7
// encoded as 26 characters of Crockford base32, so ids created later
// sort later and directory listings of session logs read in order.
package sessionid

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"
)

// Crockford's base32: no i, l, o or u
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

const encodedLen = 26

// Generator produces session ids from an injectable clock and source of
// randomness.
type Generator struct {
	now  func() time.Time
	rand io.Reader
}

// NewGenerator creates a generator. A nil clock or reader falls back to
// the real one.
func NewGenerator(now func() time.Time, r io.Reader) *Generator {
	if now == nil {
		now = time.Now
	}
	if r == nil {
		r = rand.Reader
	}
	return &Generator{now: now, rand: r}
}

var defaultGenerator = NewGenerator(nil, nil)

// New returns a fresh session id.
func New() string {
	return defaultGenerator.New()
}

// New returns a fresh session id from the generator's clock and
// randomness.
func (g *Generator) New() string {
	var id [16]byte

	// UUIDv7: 48-bit millisecond timestamp, then random bits with the
	// version and variant fields forced
	ms := g.now().UnixMilli()
	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)

	if _, err := io.ReadFull(g.rand, id[6:]); err != nil {
		panic("sessionid: read random bytes: " + err.Error())
	}
	id[6] = id[6]&0x0f | 0x70
	id[8] = id[8]&0x3f | 0x80

	return encode(id)
}

// encode maps 128 bits onto 26 base32 digits. Two zero bits are
// prepended so the bit count divides evenly, which keeps the first
// digit in 0-7 and the encoding order-preserving.
func encode(id [16]byte) string {
	out := make([]byte, 0, encodedLen)
	acc := uint32(0)
	nbits := 2
	for _, b := range id {
		acc = acc<<8 | uint32(b)
		nbits += 8
		for nbits >= 5 {
			nbits -= 5
			out = append(out, alphabet[(acc>>nbits)&0x1f])
		}
	}
	return string(out)
}

// Validate checks that id is a well-formed session id.
func Validate(id string) error {
	if len(id) != encodedLen {
		return fmt.Errorf("session ID must be exactly %d characters, got %d", encodedLen, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("session ID first character must be 0-7, got %c", id[0])
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(alphabet, id[i]) < 0 {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}
