package main

import (
	"bytes"
	"context"

	"github.com/moby/ifset/ioutils"
	"github.com/moby/ifset/log"
	"github.com/moby/ifset/registry"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// followEvents logs registry changes and, when path is set, rewrites the
// table file after each one. It returns when ctx is done or the registry is
// closed.
func followEvents(ctx context.Context, reg *registry.Registry, path string) error {
	ctx = log.WithModule(ctx, "events")
	ch, cancel := reg.Watch()
	defer cancel()

	if path != "" {
		if err := exportTable(reg, path); err != nil {
			return err
		}
	}

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			logEvent(ctx, ev)
			if path == "" {
				continue
			}
			if err := exportTable(reg, path); err != nil {
				log.G(ctx).WithError(err).Warn("failed to export interface table")
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func logEvent(ctx context.Context, ev interface{}) {
	var fields logrus.Fields
	switch ev := ev.(type) {
	case registry.EventAdd:
		fields = logrus.Fields{"event": "add", "ifname": ev.Name}
	case registry.EventDelete:
		fields = logrus.Fields{"event": "delete", "ifname": ev.Name}
	case registry.EventBind:
		fields = logrus.Fields{"event": "bind", "ifname": ev.Name, "ifindex": ev.Index}
	case registry.EventUnbind:
		fields = logrus.Fields{"event": "unbind", "ifname": ev.Name, "ifindex": ev.Index}
	default:
		return
	}
	log.G(ctx).WithFields(fields).Debug("registry changed")
}

// exportTable writes the current introspection table to path atomically.
func exportTable(reg *registry.Registry, path string) error {
	rows, err := reg.Snapshot()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := registry.WriteTable(&buf, rows); err != nil {
		return err
	}
	return errors.Wrapf(ioutils.AtomicWriteFile(path, buf.Bytes(), 0644), "failed to write %s", path)
}
