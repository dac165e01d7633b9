//go:build !linux
// +build !linux

package device

import (
	"context"

	"github.com/docker/go-events"
	"github.com/pkg/errors"
)

// ErrNotSupported is returned by watchers unavailable on this platform.
var ErrNotSupported = errors.New("netlink watcher is only supported on linux")

// NetlinkWatcher is unavailable on this platform; use a Poller.
type NetlinkWatcher struct{}

// NewNetlinkWatcher returns a watcher whose Run fails with ErrNotSupported.
func NewNetlinkWatcher() *NetlinkWatcher {
	return &NetlinkWatcher{}
}

// Run implements Watcher.
func (w *NetlinkWatcher) Run(ctx context.Context, sink events.Sink) error {
	return ErrNotSupported
}
