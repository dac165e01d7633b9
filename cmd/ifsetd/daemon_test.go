package main

import (
	"context"
	"sync"
	"testing"

	"github.com/moby/ifset/registry"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownStopsUsersBeforeClosingRegistry(t *testing.T) {
	reg, err := registry.New(context.Background(), registry.Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	start := spawn(&wg, errCh)

	// A collaborator that still writes to the registry while stopping.
	addErr := make(chan error, 1)
	start(func() error {
		<-ctx.Done()
		addErr <- reg.Add(context.Background(), "eth0")
		return nil
	})

	shutdown(cancel, &wg, reg)

	require.NoError(t, <-addErr)
	rows, err := reg.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, rows, "registry must be cleared by close")
	assert.Equal(t, registry.ErrClosed, errors.Cause(reg.Add(context.Background(), "eth1")))
	assert.Empty(t, errCh)
}
