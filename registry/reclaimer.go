package registry

import (
	"context"
	"time"

	"github.com/docker/go-events"
	"github.com/moby/ifset/log"
	"github.com/moby/ifset/registry/rcu"
	"github.com/pkg/errors"
)

// reclaimable is an object that lookups may reference without a lock and
// that must not be recycled before a grace period has elapsed.
type reclaimable interface {
	release()
}

type retired struct {
	obj   reclaimable
	epoch uint64
	at    time.Time
}

// barrier is closed by the reclaim sink once every object retired before it
// was released.
type barrier chan struct{}

// reclaimer defers the release of unlinked entries and nodes until no
// lookup that might have observed them is still running. retire never
// waits: retired objects are queued and released in order by a background
// goroutine.
type reclaimer struct {
	rcu   *rcu.Domain
	queue *events.Queue
}

func newReclaimer(ctx context.Context, d *rcu.Domain) *reclaimer {
	return &reclaimer{
		rcu: d,
		queue: events.NewQueue(&reclaimSink{
			ctx: log.WithModule(ctx, "reclaimer"),
			rcu: d,
		}),
	}
}

// retire hands an object that has already been unlinked from every shared
// structure to the reclaimer.
func (r *reclaimer) retire(obj reclaimable) error {
	ev := retired{
		obj:   obj,
		epoch: r.rcu.Snapshot(),
		at:    time.Now(),
	}
	if err := r.queue.Write(ev); err != nil {
		return errors.Wrap(err, "reclaimer is closed")
	}
	reclaimPending.Inc()
	return nil
}

// drain waits until everything retired before the call has been released.
func (r *reclaimer) drain(ctx context.Context) error {
	b := make(barrier)
	if err := r.queue.Write(b); err != nil {
		return errors.Wrap(err, "reclaimer is closed")
	}
	select {
	case <-b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close releases every pending object and stops the reclaimer.
func (r *reclaimer) close() error {
	return r.queue.Close()
}

type reclaimSink struct {
	// ctx carries logging fields only.
	ctx context.Context
	rcu *rcu.Domain
}

func (s *reclaimSink) Write(event events.Event) error {
	switch ev := event.(type) {
	case retired:
		// Readers never block, so the grace period always ends; it is not
		// tied to the caller's context.
		if err := s.rcu.WaitFor(context.Background(), ev.epoch); err != nil {
			return err
		}
		ev.obj.release()
		reclaimPending.Dec()
		reclaimDelay.UpdateSince(ev.at)
	case barrier:
		close(ev)
	default:
		log.G(s.ctx).Errorf("unexpected reclaimer event %T", event)
	}
	return nil
}

func (s *reclaimSink) Close() error {
	return nil
}
