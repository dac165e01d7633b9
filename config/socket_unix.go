//go:build !windows

package config

// DefaultSocket is the default control socket path.
const DefaultSocket = "/var/run/ifset/ifset.sock"
