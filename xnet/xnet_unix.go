//go:build !windows
// +build !windows

package xnet

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// ListenLocal opens a local socket for control communication. A stale socket
// file left behind by a previous daemon is removed first.
func ListenLocal(socket string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socket), 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create control socket directory")
	}
	if err := os.Remove(socket); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed to remove stale control socket %s", socket)
	}
	l, err := net.Listen("unix", socket)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(socket, 0o660); err != nil {
		l.Close()
		return nil, errors.Wrap(err, "failed to set control socket permissions")
	}
	return l, nil
}

// DialTimeoutLocal is a DialTimeout function for local sockets
func DialTimeoutLocal(socket string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", socket, timeout)
}
