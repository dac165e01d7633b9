// Package device reports network devices appearing and disappearing.
//
// Watchers emit Attached and Detached events into an events.Sink. A Table
// placed in the pipeline remembers which devices are currently live so that
// newly managed names can be resolved without touching the kernel, and a
// Sink at the end of the pipeline delivers the events to a Handler such as
// the interface registry.
package device

import (
	"context"

	"github.com/docker/go-events"
	"github.com/moby/ifset/log"
	"github.com/pkg/errors"
)

// Attached reports that a device called Name exists with interface index
// Index. A rename is reported as Attached with the new name.
type Attached struct {
	Name  string
	Index int
}

// Detached reports that the device with interface index Index is gone.
type Detached struct {
	Name  string
	Index int
}

// Handler consumes device lifecycle notifications.
type Handler interface {
	DeviceAttached(ctx context.Context, name string, ifindex int)
	DeviceDetached(ctx context.Context, ifindex int)
}

// Watcher produces device lifecycle events until its context is done.
type Watcher interface {
	Run(ctx context.Context, sink events.Sink) error
}

// Sink delivers device events to a Handler.
type Sink struct {
	ctx     context.Context
	handler Handler
}

// NewSink returns a sink delivering events to handler. ctx is passed to the
// handler and carries its logger.
func NewSink(ctx context.Context, handler Handler) *Sink {
	return &Sink{
		ctx:     log.WithModule(ctx, "device"),
		handler: handler,
	}
}

// Write implements events.Sink.
func (s *Sink) Write(event events.Event) error {
	switch ev := event.(type) {
	case Attached:
		deviceEvents.WithLabelValues("attached").Inc()
		s.handler.DeviceAttached(s.ctx, ev.Name, ev.Index)
	case Detached:
		deviceEvents.WithLabelValues("detached").Inc()
		s.handler.DeviceDetached(s.ctx, ev.Index)
	default:
		return errors.Errorf("unexpected device event %T", event)
	}
	return nil
}

// Close implements events.Sink.
func (s *Sink) Close() error {
	return nil
}
