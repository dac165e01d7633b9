package device

import (
	"context"

	"github.com/docker/go-events"
	"github.com/moby/ifset/log"
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// subscribeFunc matches netlink.LinkSubscribeWithOptions with the options
// the watcher needs. updates is closed when the subscription ends, after
// onError has been called with the reason, if any.
type subscribeFunc func(updates chan<- netlink.LinkUpdate, done <-chan struct{}, onError func(error)) error

func linkSubscribe(updates chan<- netlink.LinkUpdate, done <-chan struct{}, onError func(error)) error {
	return netlink.LinkSubscribeWithOptions(updates, done, netlink.LinkSubscribeOptions{
		ErrorCallback: onError,
	})
}

// NetlinkWatcher reports device changes as the kernel announces them on
// the rtnetlink link group.
type NetlinkWatcher struct {
	list      func() (Links, error)
	subscribe subscribeFunc
}

// NewNetlinkWatcher returns a watcher subscribed to rtnetlink link events.
func NewNetlinkWatcher() *NetlinkWatcher {
	return &NetlinkWatcher{
		list:      netlinkLinks,
		subscribe: linkSubscribe,
	}
}

// netlinkLinks lists the live devices through rtnetlink.
func netlinkLinks() (Links, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, err
	}
	current := make(Links, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		current[attrs.Index] = attrs.Name
	}
	return current, nil
}

// Run implements Watcher. The devices present when Run starts are reported
// as Attached first. If the subscription is lost, for instance because the
// kernel dropped notifications, Run subscribes again and resynchronizes.
func (w *NetlinkWatcher) Run(ctx context.Context, sink events.Sink) error {
	ctx = log.WithModule(ctx, "netlink")
	known := make(Links)

	for ctx.Err() == nil {
		lost, err := w.watch(ctx, known, sink)
		if err != nil {
			return err
		}
		if lost != nil {
			log.G(ctx).WithError(lost).Warn("link subscription lost, resynchronizing")
		}
	}
	return nil
}

// watch runs one subscription until ctx is done or the subscription ends.
// The reason a subscription ended is returned as lost.
func (w *NetlinkWatcher) watch(ctx context.Context, known Links, sink events.Sink) (lost error, err error) {
	updates := make(chan netlink.LinkUpdate, 64)
	done := make(chan struct{})
	failures := make(chan error, 1)

	onError := func(err error) {
		select {
		case failures <- err:
		default:
		}
	}
	// Subscribe before listing so that no change falls between the two.
	if err := w.subscribe(updates, done, onError); err != nil {
		return nil, errors.Wrap(err, "failed to subscribe to link events")
	}

	closed := false
	defer func() {
		close(done)
		if !closed {
			for range updates {
			}
		}
	}()

	if err := w.resync(known, sink); err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				closed = true
				select {
				case lost = <-failures:
				default:
					lost = errors.New("subscription closed")
				}
				return lost, nil
			}
			for _, ev := range track(known, linkEvent(u)) {
				if err := sink.Write(ev); err != nil {
					return nil, err
				}
			}
		case <-ctx.Done():
			return nil, nil
		}
	}
}

func (w *NetlinkWatcher) resync(known Links, sink events.Sink) error {
	current, err := w.list()
	if err != nil {
		return err
	}
	for _, ev := range reconcile(known, current) {
		if err := sink.Write(ev); err != nil {
			return err
		}
	}
	return nil
}

// linkEvent converts a link update into an Attached or Detached event, or
// nil for updates that carry no device identity.
func linkEvent(u netlink.LinkUpdate) events.Event {
	if u.Link == nil {
		return nil
	}
	attrs := u.Link.Attrs()
	if attrs == nil || attrs.Index <= 0 {
		return nil
	}
	switch u.Header.Type {
	case unix.RTM_NEWLINK:
		if attrs.Name == "" {
			return nil
		}
		return Attached{Name: attrs.Name, Index: attrs.Index}
	case unix.RTM_DELLINK:
		return Detached{Name: attrs.Name, Index: attrs.Index}
	}
	return nil
}

// track records ev in known and returns the events to deliver for it. The
// kernel sends RTM_NEWLINK for every flag change, most of which are of no
// interest here. A rename arrives as a single RTM_NEWLINK carrying the new
// name; it is delivered as a Detached of the old name followed by an
// Attached of the new one.
func track(known Links, ev events.Event) []events.Event {
	switch ev := ev.(type) {
	case Attached:
		old, ok := known[ev.Index]
		if ok && old == ev.Name {
			return nil
		}
		known[ev.Index] = ev.Name
		if ok {
			return []events.Event{Detached{Name: old, Index: ev.Index}, ev}
		}
		return []events.Event{ev}
	case Detached:
		name, ok := known[ev.Index]
		if !ok {
			return nil
		}
		delete(known, ev.Index)
		return []events.Event{Detached{Name: name, Index: ev.Index}}
	}
	return nil
}
