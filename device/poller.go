package device

import (
	"context"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/docker/go-events"
	"github.com/moby/ifset/log"
	"github.com/pkg/errors"
)

// DefaultPollInterval is how often a Poller lists devices by default.
const DefaultPollInterval = 2 * time.Second

// Poller detects device changes by listing devices periodically. It works
// on every platform but reports changes up to one interval late.
type Poller struct {
	clock    clock.Clock
	interval time.Duration
	list     func() (Links, error)
}

// NewPoller returns a poller listing system devices every interval.
func NewPoller(clk clock.Clock, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		clock:    clk,
		interval: interval,
		list:     SystemLinks,
	}
}

// Run implements Watcher. The first listing is reported before Run starts
// waiting; a failure to take it is returned.
func (p *Poller) Run(ctx context.Context, sink events.Sink) error {
	ctx = log.WithModule(ctx, "poller")
	known := make(Links)

	if err := p.poll(known, sink); err != nil {
		return errors.Wrap(err, "failed to list devices")
	}

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C():
			if err := p.poll(known, sink); err != nil {
				log.G(ctx).WithError(err).Warn("failed to list devices")
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *Poller) poll(known Links, sink events.Sink) error {
	current, err := p.list()
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
