package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndexSize(t *testing.T) {
	for _, size := range []int{0, -4, 3, 100} {
		_, err := newIndex(size)
		assert.Errorf(t, err, "size %d should be rejected", size)
	}
	ix, err := newIndex(16)
	require.NoError(t, err)
	assert.Len(t, ix.buckets, 16)
}

func TestIndexChaining(t *testing.T) {
	ix, err := newIndex(4)
	require.NoError(t, err)

	// 1, 5 and 9 share a bucket.
	b1 := newBinding(&Entry{name: "a"}, 1)
	b5 := newBinding(&Entry{name: "b"}, 5)
	b9 := newBinding(&Entry{name: "c"}, 9)
	b2 := newBinding(&Entry{name: "d"}, 2)
	for _, b := range []*binding{b1, b5, b9, b2} {
		ix.insert(b)
	}

	assert.Equal(t, b1, ix.find(1))
	assert.Equal(t, b5, ix.find(5))
	assert.Equal(t, b9, ix.find(9))
	assert.Equal(t, b2, ix.find(2))
	assert.Nil(t, ix.find(13))

	// Unlink the middle of the chain (head is b9, then b5, then b1).
	require.True(t, ix.remove(b5))
	assert.Nil(t, ix.find(5))
	assert.Equal(t, b1, ix.find(1))
	assert.Equal(t, b9, ix.find(9))
	// The unlinked node still leads back into its chain.
	assert.Equal(t, b1, b5.next.Load())

	assert.False(t, ix.remove(b5))

	require.True(t, ix.remove(b9))
	assert.Equal(t, b1, ix.bucket(1).Load())
}

func TestIndexClear(t *testing.T) {
	ix, err := newIndex(4)
	require.NoError(t, err)
	for i := 1; i <= 10; i++ {
		ix.insert(newBinding(&Entry{}, i))
	}

	unlinked := ix.clear()
	assert.Len(t, unlinked, 10)
	for i := 1; i <= 10; i++ {
		assert.Nil(t, ix.find(i))
	}

	var n int
	ix.walk(func(int, *binding) { n++ })
	assert.Zero(t, n)
}
