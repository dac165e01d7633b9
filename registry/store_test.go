package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(t *testing.T, s *store) []string {
	entries, err := s.list()
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.name)
	}
	return out
}

func TestStoreCreate(t *testing.T) {
	s := newStore()

	e, err := s.create("eth0")
	require.NoError(t, err)
	assert.Equal(t, "eth0", e.Name())
	assert.Equal(t, Unbound, e.ifindex())
	assert.Equal(t, 1, s.len())

	_, err = s.create("eth0")
	assert.True(t, IsErrDuplicateName(err))
	assert.Equal(t, 1, s.len())

	assert.Equal(t, e, s.get("eth0"))
	assert.Nil(t, s.get("eth1"))
}

func TestStoreRemove(t *testing.T) {
	s := newStore()
	_, err := s.create("eth0")
	require.NoError(t, err)

	_, err = s.remove("eth1")
	assert.True(t, IsErrNotFound(err))

	e, err := s.remove("eth0")
	require.NoError(t, err)
	assert.Equal(t, "eth0", e.name)
	assert.Equal(t, 0, s.len())
	assert.Nil(t, s.get("eth0"))

	_, err = s.remove("eth0")
	assert.True(t, IsErrNotFound(err))
}

func TestStoreInsertionOrder(t *testing.T) {
	s := newStore()
	// Names chosen so that lexical order differs from insertion order.
	for _, name := range []string{"wlan0", "eth1", "br-lan", "eth0"} {
		_, err := s.create(name)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"wlan0", "eth1", "br-lan", "eth0"}, names(t, s))

	_, err := s.remove("eth1")
	require.NoError(t, err)
	_, err = s.create("eth1")
	require.NoError(t, err)
	assert.Equal(t, []string{"wlan0", "br-lan", "eth0", "eth1"}, names(t, s))
}

func TestStoreClear(t *testing.T) {
	s := newStore()
	for i := 0; i < 300; i++ {
		_, err := s.create(fmt.Sprintf("veth%d", i))
		require.NoError(t, err)
	}

	removed, err := s.clear()
	require.NoError(t, err)
	require.Len(t, removed, 300)
	assert.Equal(t, "veth0", removed[0].name)
	assert.Equal(t, "veth299", removed[299].name)
	assert.Equal(t, 0, s.len())
	assert.Empty(t, names(t, s))

	_, err = s.create("veth0")
	require.NoError(t, err)
}
