package watch

import (
	"sync"

	"github.com/docker/go-events"
)

// Queue is the structure used to publish events and watch for them.
//
// Publish never waits for watchers: events are handed to an unbounded
// in-memory queue in front of the broadcaster, so the publisher may hold a
// lock while publishing and the order of publication is preserved.
type Queue struct {
	mu        sync.Mutex
	in        *events.Queue
	broadcast *events.Broadcaster
	closed    bool
}

// NewQueue creates a new publish/subscribe queue which supports watchers.
func NewQueue() *Queue {
	broadcast := events.NewBroadcaster()
	return &Queue{
		in:        events.NewQueue(broadcast),
		broadcast: broadcast,
	}
}

// Watch returns a channel which will receive all items published to the
// queue from this point, until cancel is called.
func (q *Queue) Watch() (eventq chan events.Event, cancel func()) {
	return q.CallbackWatch(nil)
}

// CallbackWatch returns a channel which will receive all events published to
// the queue from this point that pass the check in the provided callback
// function. The returned cancel function will stop the flow of events and
// close the channel.
func (q *Queue) CallbackWatch(matcher events.Matcher) (eventq chan events.Event, cancel func()) {
	ch := &closingChannel{Channel: events.NewChannel(0)}
	sink := events.Sink(events.NewQueue(ch))

	if matcher != nil {
		sink = events.NewFilter(sink, matcher)
	}

	q.mu.Lock()
	closed := q.closed
	if !closed {
		_ = q.broadcast.Add(sink)
	}
	q.mu.Unlock()

	if closed {
		sink.Close()
		return ch.C, func() {}
	}

	var once sync.Once
	return ch.C, func() {
		once.Do(func() {
			q.mu.Lock()
			if !q.closed {
				_ = q.broadcast.Remove(sink)
			}
			q.mu.Unlock()
			ch.Channel.Close()
			sink.Close()
		})
	}
}

// closingChannel closes C once the sink is closed, so a watcher ranging
// over it stops when it is cancelled or the queue is closed. The sink is
// only closed by its events.Queue after the last Write has returned.
type closingChannel struct {
	*events.Channel
	once sync.Once
}

func (c *closingChannel) Close() error {
	err := c.Channel.Close()
	c.once.Do(func() { close(c.C) })
	return err
}

// Publish adds an item to the queue.
func (q *Queue) Publish(item events.Event) {
	_ = q.in.Write(item)
}

// Close flushes pending events to the watchers and closes the queue.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	// Closing the inbound queue flushes it and then closes the broadcaster,
	// which closes every watcher sink.
	return q.in.Close()
}
