package device

import (
	"sync"

	"github.com/docker/go-events"
)

// Table records the live devices seen by a watcher. It forwards every event
// to the next sink after updating itself, so a resolver consulted while the
// event is being handled already reflects it.
type Table struct {
	mu      sync.RWMutex
	byName  map[string]int
	byIndex map[int]string
	next    events.Sink
}

// NewTable returns an empty table forwarding events to next.
func NewTable(next events.Sink) *Table {
	return &Table{
		byName:  make(map[string]int),
		byIndex: make(map[int]string),
		next:    next,
	}
}

// LinkByName returns the interface index of the live device called name.
func (t *Table) LinkByName(name string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ifindex, ok := t.byName[name]
	return ifindex, ok
}

// Len returns the number of live devices.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byIndex)
}

// Write implements events.Sink.
func (t *Table) Write(event events.Event) error {
	t.mu.Lock()
	switch ev := event.(type) {
	case Attached:
		if old, ok := t.byIndex[ev.Index]; ok && old != ev.Name {
			delete(t.byName, old)
		}
		if old, ok := t.byName[ev.Name]; ok && old != ev.Index {
			delete(t.byIndex, old)
		}
		t.byName[ev.Name] = ev.Index
		t.byIndex[ev.Index] = ev.Name
	case Detached:
		if name, ok := t.byIndex[ev.Index]; ok {
			delete(t.byName, name)
			delete(t.byIndex, ev.Index)
		}
	}
	t.mu.Unlock()

	return t.next.Write(event)
}

// Close implements events.Sink.
func (t *Table) Close() error {
	return t.next.Close()
}
