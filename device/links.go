package device

import (
	"net"
	"sort"

	"github.com/docker/go-events"
)

// Links maps interface index to name for every live device.
type Links map[int]string

// SystemLinks lists the devices currently known to the operating system.
func SystemLinks() (Links, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	links := make(Links, len(ifaces))
	for _, iface := range ifaces {
		links[iface.Index] = iface.Name
	}
	return links, nil
}

// reconcile returns the events that turn known into current, and updates
// known accordingly. Detached events come first, both groups ordered by
// index. A renamed device yields a Detached followed by an Attached.
func reconcile(known, current Links) []events.Event {
	var detached, attached []int
	for ifindex, name := range known {
		if cur, ok := current[ifindex]; !ok || cur != name {
			detached = append(detached, ifindex)
		}
	}
	for ifindex, name := range current {
		if old, ok := known[ifindex]; !ok || old != name {
			attached = append(attached, ifindex)
		}
	}
	sort.Ints(detached)
	sort.Ints(attached)

	evs := make([]events.Event, 0, len(detached)+len(attached))
	for _, ifindex := range detached {
		evs = append(evs, Detached{Name: known[ifindex], Index: ifindex})
		delete(known, ifindex)
	}
	for _, ifindex := range attached {
		evs = append(evs, Attached{Name: current[ifindex], Index: ifindex})
		known[ifindex] = current[ifindex]
	}
	return evs
}
