package device

import (
	"context"
	"sync"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/docker/go-events"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLinks struct {
	mu    sync.Mutex
	links Links
	err   error
}

func (f *fakeLinks) set(links Links, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = links
	f.err = err
}

func (f *fakeLinks) list() (Links, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(Links, len(f.links))
	for k, v := range f.links {
		out[k] = v
	}
	return out, nil
}

func TestPoller(t *testing.T) {
	clk := fakeclock.NewFakeClock(time.Now())
	links := &fakeLinks{links: Links{1: "lo", 2: "eth0"}}
	p := NewPoller(clk, time.Second)
	p.list = links.list

	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, rec)
	}()

	// The initial listing is reported before the first tick.
	require.Eventually(t, func() bool { return len(rec.get()) == 2 }, 5*time.Second, time.Millisecond)

	links.set(Links{1: "lo", 3: "eth0"}, nil)
	clk.WaitForWatcherAndIncrement(time.Second)
	require.Eventually(t, func() bool { return len(rec.get()) == 4 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, []events.Event{
		Attached{Name: "lo", Index: 1},
		Attached{Name: "eth0", Index: 2},
		Detached{Name: "eth0", Index: 2},
		Attached{Name: "eth0", Index: 3},
	}, rec.get())

	// Listing failures are logged and retried on the next tick.
	links.set(nil, errors.New("netlink unavailable"))
	clk.Increment(time.Second)
	links.set(Links{1: "lo"}, nil)
	require.Eventually(t, func() bool {
		clk.Increment(time.Second)
		return len(rec.get()) == 5
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, Detached{Name: "eth0", Index: 3}, rec.get()[4])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerInitialFailure(t *testing.T) {
	clk := fakeclock.NewFakeClock(time.Now())
	p := NewPoller(clk, 0)
	assert.Equal(t, DefaultPollInterval, p.interval)

	p.list = (&fakeLinks{err: errors.New("boom")}).list
	err := p.Run(context.Background(), &recorder{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
