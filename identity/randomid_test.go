package identity

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	idReader = rand.New(rand.NewSource(0))

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewID()

		var n big.Int
		_, ok := n.SetString(id, sessionIDBase)
		require.Truef(t, ok, "id %q should be base 36", id)
		require.Lenf(t, id, sessionIDLength, "id %q has unexpected length", id)

		_, dup := seen[id]
		require.Falsef(t, dup, "duplicate id %q", id)
		seen[id] = struct{}{}
	}
}
