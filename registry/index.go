package registry

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// DefaultBuckets matches the kernel's NETDEV_HASHENTRIES.
const DefaultBuckets = 256

// index is a fixed-size hash table of bound entries keyed by interface
// index. Buckets are singly linked chains of binding nodes.
//
// contains and find may run concurrently with writers without any lock,
// inside a read-side critical section. insert, remove and clear require
// the update lock. Writers publish a node only after it is fully
// initialized and never modify a published node except for its next
// pointer, so a concurrent reader sees either the chain before a change or
// the chain after it.
type index struct {
	mask    int
	buckets []atomic.Pointer[binding]
}

func newIndex(size int) (*index, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, errors.Errorf("bucket count %d is not a power of two", size)
	}
	return &index{
		mask:    size - 1,
		buckets: make([]atomic.Pointer[binding], size),
	}, nil
}

func (ix *index) bucket(ifindex int) *atomic.Pointer[binding] {
	return &ix.buckets[ifindex&ix.mask]
}

// find returns the node bound to ifindex, or nil.
func (ix *index) find(ifindex int) *binding {
	for b := ix.bucket(ifindex).Load(); b != nil; b = b.next.Load() {
		if b.ifindex == ifindex {
			return b
		}
	}
	return nil
}

// insert links b at the head of its bucket.
func (ix *index) insert(b *binding) {
	head := ix.bucket(b.ifindex)
	b.next.Store(head.Load())
	head.Store(b)
}

// remove unlinks b from its bucket. b keeps its next pointer so that readers
// positioned on it can finish walking the chain.
func (ix *index) remove(b *binding) bool {
	p := ix.bucket(b.ifindex)
	for cur := p.Load(); cur != nil; cur = p.Load() {
		if cur == b {
			p.Store(b.next.Load())
			return true
		}
		p = &cur.next
	}
	return false
}

// clear unlinks every node and returns them.
func (ix *index) clear() []*binding {
	var unlinked []*binding
	for i := range ix.buckets {
		for b := ix.buckets[i].Load(); b != nil; b = b.next.Load() {
			unlinked = append(unlinked, b)
		}
		ix.buckets[i].Store(nil)
	}
	return unlinked
}

// walk calls fn for every linked node. Requires the update lock.
func (ix *index) walk(fn func(bucket int, b *binding)) {
	for i := range ix.buckets {
		for b := ix.buckets[i].Load(); b != nil; b = b.next.Load() {
			fn(i, b)
		}
	}
}
