//go:build !windows
// +build !windows

package xnet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListenLocalReplacesStaleSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "run", "ifset.sock")
	require.NoError(t, os.MkdirAll(filepath.Dir(socket), 0o700))
	require.NoError(t, os.WriteFile(socket, nil, 0o600))

	l, err := ListenLocal(socket)
	require.NoError(t, err)
	defer l.Close()

	fi, err := os.Stat(socket)
	require.NoError(t, err)
	require.Equal(t, os.ModeSocket, fi.Mode()&os.ModeSocket)

	accepted := make(chan error, 1)
	go func() {
		c, err := l.Accept()
		if err == nil {
			c.Close()
		}
		accepted <- err
	}()

	c, err := DialTimeoutLocal(socket, time.Second)
	require.NoError(t, err)
	c.Close()
	require.NoError(t, <-accepted)
}
