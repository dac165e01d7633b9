package registry

import (
	"context"
	"sync"

	"github.com/docker/go-events"
	metrics "github.com/docker/go-metrics"
	"github.com/moby/ifset/log"
	"github.com/moby/ifset/registry/rcu"
	"github.com/moby/ifset/watch"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultMaxEntries bounds the managed set when Config.MaxEntries is zero.
const DefaultMaxEntries = 1024

// Resolver reports whether a live device currently carries a name. It is
// called with the update lock held and must answer from memory.
type Resolver interface {
	LinkByName(name string) (ifindex int, ok bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (int, bool)

// LinkByName calls f(name).
func (f ResolverFunc) LinkByName(name string) (int, bool) {
	return f(name)
}

// Config configures a Registry.
type Config struct {
	// Buckets is the size of the binding index. It must be a power of two;
	// zero selects DefaultBuckets.
	Buckets int
	// MaxEntries caps the number of managed interfaces; zero selects
	// DefaultMaxEntries.
	MaxEntries int
	// Resolver binds new entries to devices that already exist. Optional.
	Resolver Resolver
}

// Registry is the set of managed interfaces.
//
// Add, Delete, Clear, DeviceAttached and DeviceDetached are serialized by
// a single update lock and apply their changes to the store and the binding
// index together. Lookup and Name never take that lock.
type Registry struct {
	// updateLock must be held while reading or changing store, index or
	// closed. It is never held across I/O.
	updateLock sync.Mutex

	store *store
	index *index

	rcu       rcu.Domain
	reclaimer *reclaimer
	queue     *watch.Queue

	resolver   Resolver
	maxEntries int
	closed     bool
}

// New creates an empty registry. The context is used for the reclaimer's
// logging.
func New(ctx context.Context, config Config) (*Registry, error) {
	if config.Buckets == 0 {
		config.Buckets = DefaultBuckets
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}
	ix, err := newIndex(config.Buckets)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		store:      newStore(),
		index:      ix,
		queue:      watch.NewQueue(),
		resolver:   config.Resolver,
		maxEntries: config.MaxEntries,
	}
	r.reclaimer = newReclaimer(ctx, &r.rcu)
	return r, nil
}

// update runs cb with the update lock held. Log lines cb adds to logs are
// written after the lock is released.
func (r *Registry) update(cb func(logs *deferredLog) error) error {
	var logs deferredLog
	defer logs.flush()

	r.updateLock.Lock()
	defer r.updateLock.Unlock()
	defer metrics.StartTimer(updateLatency)()

	if r.closed {
		return ErrClosed
	}
	return cb(&logs)
}

// deferredLog holds log lines produced under the update lock, so a slow log
// sink never stalls mutations or snapshots.
type deferredLog struct {
	lines []func()
}

func (l *deferredLog) add(fn func()) {
	l.lines = append(l.lines, fn)
}

func (l *deferredLog) flush() {
	for _, fn := range l.lines {
		fn()
	}
	l.lines = nil
}

// Lookup reports whether ifindex is bound to a managed interface. It never
// blocks and may run concurrently with any mutation; a lookup that overlaps
// a mutation observes the state either before or after it.
func (r *Registry) Lookup(ifindex int) bool {
	if ifindex <= 0 {
		return false
	}
	g := r.rcu.ReadLock()
	found := r.index.find(ifindex) != nil
	r.rcu.ReadUnlock(g)
	return found
}

// Name returns the managed interface bound to ifindex. Like Lookup it never
// blocks.
func (r *Registry) Name(ifindex int) (string, bool) {
	if ifindex <= 0 {
		return "", false
	}
	g := r.rcu.ReadLock()
	defer r.rcu.ReadUnlock(g)

	b := r.index.find(ifindex)
	if b == nil {
		return "", false
	}
	return b.entry.name, true
}

// Add adds name to the managed set. If a device called name exists it is
// bound immediately.
func (r *Registry) Add(ctx context.Context, name string) (err error) {
	defer func() { observe("add", err) }()

	if err := ValidateName(name); err != nil {
		return err
	}

	ctx = log.WithField(ctx, "ifname", name)
	err = r.update(func(logs *deferredLog) error {
		if r.store.get(name) != nil {
			return ErrDuplicateName
		}
		if r.store.len() >= r.maxEntries {
			return ErrAllocationFailure
		}
		e, err := r.store.create(name)
		if err != nil {
			return err
		}
		entriesGauge.Inc(1)
		r.queue.Publish(EventAdd{Name: name})

		if r.resolver != nil {
			if ifindex, ok := r.resolver.LinkByName(name); ok && ifindex > 0 {
				r.bind(ctx, logs, e, ifindex)
			}
		}
		return nil
	})
	if err != nil {
		if IsErrDuplicateName(err) {
			log.G(ctx).Errorf("%s already exists", name)
		} else {
			log.G(ctx).WithError(err).Error("failed to add interface")
		}
		return errors.WithMessage(err, name)
	}
	log.G(ctx).Debug("interface added")
	return nil
}

// Delete removes name from the managed set. Deleting a name that is not
// managed is not an error.
func (r *Registry) Delete(ctx context.Context, name string) (err error) {
	defer func() { observe("delete", err) }()

	ctx = log.WithField(ctx, "ifname", name)
	err = r.update(func(logs *deferredLog) error {
		e, err := r.store.remove(name)
		if err != nil {
			return err
		}
		if e.link != nil {
			r.unbind(ctx, logs, e)
		}
		entriesGauge.Dec(1)
		r.queue.Publish(EventDelete{Name: name})
		r.retire(ctx, logs, e)
		return nil
	})
	switch {
	case IsErrNotFound(err):
		return nil
	case err != nil:
		return errors.WithMessage(err, name)
	}
	log.G(ctx).Debug("interface deleted")
	return nil
}

// Clear removes every interface from the managed set.
func (r *Registry) Clear(ctx context.Context) (err error) {
	defer func() { observe("clear", err) }()

	return r.update(func(logs *deferredLog) error {
		return r.clear(ctx, logs)
	})
}

func (r *Registry) clear(ctx context.Context, logs *deferredLog) error {
	for _, b := range r.index.clear() {
		b.entry.link = nil
		boundGauge.Dec(1)
		r.queue.Publish(EventUnbind{Name: b.entry.name, Index: b.ifindex})
		r.retire(ctx, logs, b)
	}
	entries, err := r.store.clear()
	if err != nil {
		return err
	}
	for _, e := range entries {
		entriesGauge.Dec(1)
		r.queue.Publish(EventDelete{Name: e.name})
		r.retire(ctx, logs, e)
	}
	count := len(entries)
	logs.add(func() {
		log.G(ctx).WithField("count", count).Debug("interfaces cleared")
	})
	return nil
}

// DeviceAttached binds the managed interface called name, if any, to
// ifindex, rebinding it when it is still bound to a different index. An
// entry of another name occupying ifindex is unbound first.
func (r *Registry) DeviceAttached(ctx context.Context, name string, ifindex int) {
	if ifindex <= 0 {
		return
	}
	ctx = log.WithFields(ctx, logrus.Fields{"ifname": name, "ifindex": ifindex})
	err := r.update(func(logs *deferredLog) error {
		e := r.store.get(name)
		if e == nil {
			return nil
		}
		r.bind(ctx, logs, e, ifindex)
		return nil
	})
	observe("attach", err)
}

// DeviceDetached unbinds the managed interface bound to ifindex, if any.
// The interface stays in the managed set.
func (r *Registry) DeviceDetached(ctx context.Context, ifindex int) {
	if ifindex <= 0 {
		return
	}
	ctx = log.WithFields(ctx, logrus.Fields{"ifindex": ifindex})
	err := r.update(func(logs *deferredLog) error {
		b := r.index.find(ifindex)
		if b == nil {
			return nil
		}
		name := b.entry.name
		logs.add(func() {
			log.G(ctx).Infof("%s changed, delete it", name)
		})
		r.unbind(ctx, logs, b.entry)
		return nil
	})
	observe("detach", err)
}

// bind links e into the index under ifindex. Requires the update lock.
func (r *Registry) bind(ctx context.Context, logs *deferredLog, e *Entry, ifindex int) {
	name := e.name
	if e.link != nil {
		if e.link.ifindex == ifindex {
			return
		}
		// The device was recreated or renamed before its removal was
		// reported.
		stale := e.link.ifindex
		logs.add(func() {
			log.G(ctx).WithField("stale", stale).Warnf("%s rebound to a new device", name)
		})
		r.unbind(ctx, logs, e)
	}
	if occupant := r.index.find(ifindex); occupant != nil {
		displaced := occupant.entry.name
		logs.add(func() {
			log.G(ctx).Warnf("%s displaced by %s", displaced, name)
		})
		r.unbind(ctx, logs, occupant.entry)
	}

	b := newBinding(e, ifindex)
	r.index.insert(b)
	e.link = b
	boundGauge.Inc(1)
	r.queue.Publish(EventBind{Name: name, Index: ifindex})
	logs.add(func() {
		log.G(ctx).Infof("%s registered, add it", name)
	})
}

// unbind unlinks e from the index and retires its node. Requires the update
// lock.
func (r *Registry) unbind(ctx context.Context, logs *deferredLog, e *Entry) {
	b := e.link
	if b == nil {
		return
	}
	r.index.remove(b)
	e.link = nil
	boundGauge.Dec(1)
	r.queue.Publish(EventUnbind{Name: e.name, Index: b.ifindex})
	r.retire(ctx, logs, b)
}

func (r *Registry) retire(ctx context.Context, logs *deferredLog, obj reclaimable) {
	if err := r.reclaimer.retire(obj); err != nil {
		// Unreachable while the registry is open. The object is left to
		// the garbage collector instead of being recycled.
		logs.add(func() {
			log.G(ctx).WithError(err).Error("failed to retire object")
		})
	}
}

// Watch returns a channel receiving EventAdd, EventDelete, EventBind and
// EventUnbind in commit order, and a function to stop watching.
func (r *Registry) Watch() (chan events.Event, func()) {
	return r.queue.Watch()
}

// Drain waits until every entry removed so far has been released.
func (r *Registry) Drain(ctx context.Context) error {
	return r.reclaimer.drain(ctx)
}

// Close clears the registry, waits for all removed entries to be released
// and stops publishing events. Later mutations fail with ErrClosed; lookups
// report nothing bound.
func (r *Registry) Close(ctx context.Context) error {
	var logs deferredLog
	r.updateLock.Lock()
	if r.closed {
		r.updateLock.Unlock()
		return nil
	}
	err := r.clear(ctx, &logs)
	r.closed = true
	r.updateLock.Unlock()
	logs.flush()

	if rerr := r.reclaimer.close(); rerr != nil && err == nil {
		err = rerr
	}
	if qerr := r.queue.Close(); qerr != nil && err == nil {
		err = qerr
	}
	return err
}
