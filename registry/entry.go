package registry

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

const (
	// Unbound is the interface index reported for entries that are not
	// bound to a live device.
	Unbound = -1

	// MaxNameLen is the longest accepted interface name, IFNAMSIZ without
	// the terminating NUL.
	MaxNameLen = 15
)

var (
	entryPool   = sync.Pool{New: func() interface{} { return new(Entry) }}
	bindingPool = sync.Pool{New: func() interface{} { return new(binding) }}
)

// Entry is a managed interface. Entries are owned by the registry: the store
// and the binding index reference the same Entry, and after removal the
// Entry is recycled once no lookup can still observe it.
type Entry struct {
	name string
	// seq orders entries by insertion in the store.
	seq uint64
	// link is the entry's node in the binding index, nil while unbound.
	// Only accessed with the update lock held.
	link *binding

	released atomic.Bool
}

func newEntry(name string, seq uint64) *Entry {
	e := entryPool.Get().(*Entry)
	e.name = name
	e.seq = seq
	e.link = nil
	e.released.Store(false)
	return e
}

// Name returns the interface name.
func (e *Entry) Name() string {
	return e.name
}

// ifindex returns the bound interface index or Unbound. Requires the update
// lock.
func (e *Entry) ifindex() int {
	if e.link == nil {
		return Unbound
	}
	return e.link.ifindex
}

func (e *Entry) release() {
	e.name = ""
	e.seq = 0
	e.link = nil
	e.released.Store(true)
	entryPool.Put(e)
}

// binding is the node linking an Entry into a bucket of the binding index.
// A node is immutable once published except for next, which writers update
// when unlinking a successor. A node is never relinked: unbinding retires it
// and a later bind allocates a fresh one, so a reader standing on an
// unlinked node always continues into the chain it started in.
type binding struct {
	ifindex int
	entry   *Entry
	next    atomic.Pointer[binding]

	released atomic.Bool
}

func newBinding(e *Entry, ifindex int) *binding {
	b := bindingPool.Get().(*binding)
	b.ifindex = ifindex
	b.entry = e
	b.next.Store(nil)
	b.released.Store(false)
	return b
}

func (b *binding) release() {
	b.ifindex = Unbound
	b.entry = nil
	b.next.Store(nil)
	b.released.Store(true)
	bindingPool.Put(b)
}

// ValidateName checks that name is usable as a Linux interface name.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.Wrap(ErrInvalidName, "empty name")
	case len(name) > MaxNameLen:
		return errors.Wrapf(ErrInvalidName, "%q is longer than %d bytes", name, MaxNameLen)
	case name == "." || name == "..":
		return errors.Wrapf(ErrInvalidName, "%q", name)
	case strings.ContainsAny(name, "/: \t\n\v\f\r"):
		return errors.Wrapf(ErrInvalidName, "%q contains a reserved character", name)
	}
	return nil
}
