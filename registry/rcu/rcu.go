// Package rcu tracks lock-free readers so that writers can wait out a grace
// period before releasing memory those readers may still reference.
//
// Readers bracket every traversal of shared structures with ReadLock and
// ReadUnlock. Both are wait-free with respect to other readers and never
// wait for a writer. A writer that has unlinked an object records the epoch
// with Snapshot and, before reusing the object, calls WaitFor with that
// epoch. WaitFor returns once every reader that could have observed the
// object before it was unlinked has left its critical section.
//
// Readers are expected to be short and non-blocking; a reader that never
// calls ReadUnlock stalls reclamation forever.
package rcu

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Each reader counter sits on its own cache line; the two parities are
// written by every reader.
type counter struct {
	n atomic.Int64
	_ [56]byte
}

// Domain is a grace-period domain. The zero value is ready to use.
type Domain struct {
	// epoch is the current reader epoch. Readers register against its
	// parity.
	epoch atomic.Uint64
	_     [56]byte

	readers [2]counter

	// completed is the highest epoch whose readers are known to have
	// drained.
	completed atomic.Uint64

	// syncMu serializes grace periods and protects stalled.
	syncMu sync.Mutex
	// stalled is set when a grace period was abandoned before the
	// previous epoch's readers drained.
	stalled bool
}

// Guard identifies the reader slot taken by ReadLock.
type Guard struct {
	slot uint64
}

// ReadLock enters a read-side critical section. It never blocks: it only
// retries when a grace period starts between loading the epoch and
// registering on it, at most once per such grace period. Grace periods are
// serialized, so a reader is delayed only while writers keep calling
// Synchronize back to back; the read side is lock-free rather than
// wait-free.
func (d *Domain) ReadLock() Guard {
	for {
		e := d.epoch.Load()
		slot := e & 1
		d.readers[slot].n.Add(1)
		if d.epoch.Load() == e {
			return Guard{slot: slot}
		}
		// A grace period started between the load and the registration.
		// Back out so the writer does not wait on a reader that might
		// have observed the new state, and register again.
		d.readers[slot].n.Add(-1)
	}
}

// ReadUnlock leaves the critical section entered by ReadLock.
func (d *Domain) ReadUnlock(g Guard) {
	d.readers[g.slot].n.Add(-1)
}

// Snapshot returns the current epoch. Objects unlinked before the call are
// safe to release once WaitFor(snapshot) returns.
func (d *Domain) Snapshot() uint64 {
	return d.epoch.Load()
}

// Elapsed reports whether the grace period for snapshot has already passed.
func (d *Domain) Elapsed(snapshot uint64) bool {
	return d.completed.Load() > snapshot
}

// WaitFor blocks until the grace period for snapshot has elapsed or ctx is
// done.
func (d *Domain) WaitFor(ctx context.Context, snapshot uint64) error {
	for !d.Elapsed(snapshot) {
		if err := d.Synchronize(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Synchronize completes one grace period. Normally it starts a new epoch
// and waits until every reader registered in the previous one has left;
// readers that begin after the flip are not waited for. If the previous
// grace period was cancelled, Synchronize finishes that one instead.
func (d *Domain) Synchronize(ctx context.Context) error {
	d.syncMu.Lock()
	defer d.syncMu.Unlock()

	if d.stalled {
		// The last grace period was cancelled after flipping the epoch.
		// Finish draining it before starting another one, since the next
		// flip reuses that parity.
		cur := d.epoch.Load()
		if err := d.drain(ctx, &d.readers[(cur-1)&1]); err != nil {
			return err
		}
		d.stalled = false
		d.completed.Store(cur)
		return nil
	}

	old := d.epoch.Load()
	d.epoch.Store(old + 1)

	if err := d.drain(ctx, &d.readers[old&1]); err != nil {
		d.stalled = true
		return err
	}
	d.completed.Store(old + 1)
	return nil
}

func (d *Domain) drain(ctx context.Context, c *counter) error {
	backoff := time.Microsecond
	for spins := 0; c.n.Load() != 0; spins++ {
		if spins < 64 {
			runtime.Gosched()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < time.Millisecond {
			backoff *= 2
		}
	}
	return nil
}
