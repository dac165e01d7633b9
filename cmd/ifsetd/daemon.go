package main

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	metrics "github.com/docker/go-metrics"
	"github.com/moby/ifset/config"
	"github.com/moby/ifset/control"
	"github.com/moby/ifset/device"
	"github.com/moby/ifset/log"
	"github.com/moby/ifset/registry"
	"github.com/moby/ifset/xnet"
	"github.com/pkg/errors"
)

// shutdownTimeout bounds how long Close waits for pending reclamation.
const shutdownTimeout = 10 * time.Second

// run starts the registry and its collaborators and blocks until ctx is
// done or one of them fails.
func run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The device table is both the resolver consulted by Add and the first
	// stage of the watcher pipeline feeding the registry.
	var table *device.Table
	reg, err := registry.New(ctx, registry.Config{
		Buckets:    cfg.Registry.Buckets,
		MaxEntries: cfg.Registry.MaxEntries,
		Resolver: registry.ResolverFunc(func(name string) (int, bool) {
			return table.LinkByName(name)
		}),
	})
	if err != nil {
		return err
	}
	table = device.NewTable(device.NewSink(ctx, reg))

	errCh := make(chan error, 4)
	var wg sync.WaitGroup
	start := spawn(&wg, errCh)

	defer shutdown(cancel, &wg, reg)

	start(func() error {
		return followEvents(ctx, reg, cfg.Registry.TableFile)
	})

	var watcher device.Watcher
	switch cfg.Watcher.Mode {
	case config.WatcherPoll:
		watcher = device.NewPoller(clock.NewClock(), cfg.Watcher.PollInterval)
	default:
		watcher = device.NewNetlinkWatcher()
	}
	start(func() error {
		return errors.Wrap(watcher.Run(ctx, table), "device watcher failed")
	})

	for _, name := range cfg.Interfaces {
		if err := reg.Add(ctx, name); err != nil && !registry.IsErrDuplicateName(err) {
			return errors.Wrap(err, "failed to add configured interface")
		}
	}

	if cfg.Metrics.Addr != "" {
		l, err := net.Listen("tcp", cfg.Metrics.Addr)
		if err != nil {
			return errors.Wrap(err, "failed to listen for metrics")
		}
		server := &http.Server{Handler: metricsMux()}
		go func() {
			<-ctx.Done()
			server.Close()
		}()
		start(func() error {
			if err := server.Serve(l); err != nil && err != http.ErrServerClosed {
				return errors.Wrap(err, "metrics server failed")
			}
			return nil
		})
		log.G(ctx).WithField("addr", l.Addr().String()).Info("serving metrics")
	}

	l, err := xnet.ListenLocal(cfg.Control.Socket)
	if err != nil {
		return errors.Wrap(err, "failed to listen on control socket")
	}
	server := control.NewServer(reg, control.Config{
		Rate:  cfg.Control.Rate,
		Burst: cfg.Control.Burst,
	})
	start(func() error {
		return server.Serve(ctx, l)
	})
	log.G(ctx).WithField("socket", cfg.Control.Socket).Info("ifsetd started")

	select {
	case <-ctx.Done():
		log.G(ctx).Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

// shutdown cancels the daemon context and waits for every goroutine
// started through spawn before closing the registry, so nothing mutates it
// once it is closed.
func shutdown(cancel context.CancelFunc, wg *sync.WaitGroup, reg *registry.Registry) {
	cancel()
	wg.Wait()

	ctx, cancelClose := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelClose()
	if err := reg.Close(ctx); err != nil {
		log.G(ctx).WithError(err).Error("failed to close registry")
	}
	log.G(ctx).Info("registry closed")
}

// spawn returns a function running fn in a goroutine tracked by wg and
// reporting its error, if any, on errCh.
func spawn(wg *sync.WaitGroup, errCh chan<- error) func(fn func() error) {
	return func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errCh <- err
			}
		}()
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
