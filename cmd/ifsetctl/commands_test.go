package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/moby/ifset/control"
	"github.com/moby/ifset/registry"
	"github.com/moby/ifset/xnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) string {
	socket := filepath.Join(t.TempDir(), "ifset.sock")
	l, err := xnet.ListenLocal(socket)
	require.NoError(t, err)

	reg, err := registry.New(context.Background(), registry.Config{
		Resolver: registry.ResolverFunc(func(name string) (int, bool) {
			if name == "lo" {
				return 1, true
			}
			return 0, false
		}),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, control.NewServer(reg, control.Config{}).Serve(ctx, l))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		assert.NoError(t, reg.Close(context.Background()))
	})
	return socket
}

func execute(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	mainCmd.SetOut(&out)
	mainCmd.SetErr(&out)
	mainCmd.SetArgs(args)
	listCmd.Flags().Set("quiet", "false")
	_, err := mainCmd.ExecuteC()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	socket := startServer(t)
	flags := []string{"--socket", socket, "--timeout", time.Second.String()}

	_, err := execute(t, append([]string{"add", "lo", "eth9"}, flags...)...)
	require.NoError(t, err)

	out, err := execute(t, append([]string{"ls"}, flags...)...)
	require.NoError(t, err)
	assert.Equal(t, "ifindex ifname\n1       lo\n-1      eth9\n", out)

	out, err = execute(t, append([]string{"ls", "-q"}, flags...)...)
	require.NoError(t, err)
	assert.Equal(t, "lo\neth9\n", out)

	out, err = execute(t, append([]string{"lookup", "1"}, flags...)...)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	_, err = execute(t, append([]string{"add", "lo"}, flags...)...)
	assert.Error(t, err)

	_, err = execute(t, append([]string{"rm", "lo"}, flags...)...)
	require.NoError(t, err)
	out, err = execute(t, append([]string{"lookup", "1"}, flags...)...)
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	_, err = execute(t, append([]string{"clear"}, flags...)...)
	require.NoError(t, err)
	out, err = execute(t, append([]string{"ls"}, flags...)...)
	require.NoError(t, err)
	assert.Equal(t, "ifindex ifname\n", out)

	_, err = execute(t, append([]string{"lookup", "one"}, flags...)...)
	assert.Error(t, err)
}
