package identity

import (
	cryptorand "crypto/rand"
	"fmt"
	"io"
	"math/big"
)

var (
	// idReader is used for random id generation. This declaration allows us to
	// replace it for testing.
	idReader = cryptorand.Reader
)

const (
	sessionIDEntropyBytes = 9
	sessionIDBase         = 36

	// 2^64-1 is 13 characters in base36. The extra entropy byte fills the
	// high bits so every identifier has the same length.
	sessionIDLength = 13
)

// NewID generates a short random identifier used to correlate the log lines
// of a single control session. Identifiers are fixed length, base36 encoded
// and should be treated opaquely.
func NewID() string {
	var p [sessionIDEntropyBytes]byte

	if _, err := io.ReadFull(idReader, p[:]); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}

	p[0] |= 0x80 // set high bit to avoid the need for padding
	return (&big.Int{}).SetBytes(p[:]).Text(sessionIDBase)[1 : sessionIDLength+1]
}
