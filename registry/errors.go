package registry

import (
	"github.com/pkg/errors"
)

var (
	// ErrDuplicateName is returned by Add when an entry with the same name
	// is already in the managed set.
	ErrDuplicateName = errors.New("interface already exists")

	// ErrNotFound is returned by store lookups for unknown names. Delete
	// swallows it.
	ErrNotFound = errors.New("interface not found")

	// ErrAllocationFailure is returned when an entry cannot be created
	// because the registry is at capacity.
	ErrAllocationFailure = errors.New("no space left for interface")

	// ErrInvalidName is returned for names that cannot be Linux interface
	// names.
	ErrInvalidName = errors.New("invalid interface name")

	// ErrClosed is returned for mutations attempted after Close.
	ErrClosed = errors.New("registry is closed")
)

// IsErrDuplicateName returns true if err was caused by adding a name that is
// already managed.
func IsErrDuplicateName(err error) bool {
	return errors.Cause(err) == ErrDuplicateName
}

// IsErrNotFound returns true if err was caused by a name that is not managed.
func IsErrNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// IsErrAllocationFailure returns true if err was caused by the registry
// being full.
func IsErrAllocationFailure(err error) bool {
	return errors.Cause(err) == ErrAllocationFailure
}

// IsErrInvalidName returns true if err was caused by an invalid interface
// name.
func IsErrInvalidName(err error) bool {
	return errors.Cause(err) == ErrInvalidName
}
