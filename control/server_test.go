package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/moby/ifset/registry"
	"github.com/moby/ifset/xnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type links map[string]int

func (l links) LinkByName(name string) (int, bool) {
	ifindex, ok := l[name]
	return ifindex, ok
}

func newTestServer(t *testing.T, config Config) (*registry.Registry, net.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	reg, err := registry.New(ctx, registry.Config{
		MaxEntries: 4,
		Resolver:   links{"eth0": 2, "eth1": 3},
	})
	require.NoError(t, err)

	server, client := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewServer(reg, config).ServeConn(ctx, server)
	}()

	t.Cleanup(func() {
		client.Close()
		cancel()
		<-done
		assert.NoError(t, reg.Close(context.Background()))
	})
	return reg, client
}

func TestClient(t *testing.T) {
	reg, conn := newTestServer(t, Config{})
	c := NewClient(conn)

	require.NoError(t, c.Add("eth0"))
	require.NoError(t, c.Add("wlan0"))
	require.NoError(t, c.Add("eth1"))

	err := c.Add("eth0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	rows, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []registry.Row{
		{Index: 2, Name: "eth0"},
		{Index: registry.Unbound, Name: "wlan0"},
		{Index: 3, Name: "eth1"},
	}, rows)

	ok, err := c.Lookup(2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, reg.Lookup(2))

	require.NoError(t, c.Delete("eth0"))
	require.NoError(t, c.Delete("eth0"))
	ok, err = c.Lookup(2)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Clear())
	rows, err = c.List()
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.False(t, reg.Lookup(3))
}

func TestClientCapacity(t *testing.T) {
	_, conn := newTestServer(t, Config{})
	c := NewClient(conn)

	for i := 0; i < 4; i++ {
		require.NoError(t, c.Add(fmt.Sprintf("veth%d", i)))
	}
	err := c.Add("veth4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no space left")
}

func TestServerRawProtocol(t *testing.T) {
	_, conn := newTestServer(t, Config{})
	br := bufio.NewReader(conn)

	send := func(line string) string {
		_, err := conn.Write([]byte(line))
		require.NoError(t, err)
		reply, err := br.ReadString('\n')
		require.NoError(t, err)
		return strings.TrimSuffix(reply, "\n")
	}

	assert.Equal(t, "ok", send("a eth0\n"))
	assert.Equal(t, "ok", send("a     eth1\n"))
	for _, bad := range []string{"x eth0\n", "a\n", "a eth0/1\n"} {
		reply := send(bad)
		assert.True(t, strings.HasPrefix(reply, "error: "), reply)
		assert.Contains(t, reply, "malformed command")
	}
	assert.Equal(t, "error: command too large", send("a "+strings.Repeat("x", 300)+"\n"))
	assert.Equal(t, "true", send("q 3\n"))
	assert.Equal(t, "false", send("q 42\n"))

	assert.Equal(t, registry.TableHeader, send("l\n"))
	for _, want := range []string{"2       eth0", "3       eth1", ""} {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, want, strings.TrimSuffix(line, "\n"))
	}

	assert.Equal(t, "ok", send("c\n"))
	assert.Equal(t, registry.TableHeader, send("l\n"))
	line, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "\n", line)
}

func TestReadCommand(t *testing.T) {
	input := "a eth0\n" + strings.Repeat("y", 5000) + "\nc\nl"
	br := bufio.NewReaderSize(strings.NewReader(input), 16)

	line, err := readCommand(br)
	require.NoError(t, err)
	assert.Equal(t, "a eth0\n", string(line))

	_, err = readCommand(br)
	assert.True(t, IsErrInputTooLarge(err))

	line, err = readCommand(br)
	require.NoError(t, err)
	assert.Equal(t, "c\n", string(line))

	line, err = readCommand(br)
	require.NoError(t, err)
	assert.Equal(t, "l", string(line))

	_, err = readCommand(br)
	assert.Equal(t, io.EOF, err)
}

func TestServeSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ifset.sock")
	l, err := xnet.ListenLocal(socket)
	require.NoError(t, err)

	reg, err := registry.New(context.Background(), registry.Config{})
	require.NoError(t, err)
	defer reg.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewServer(reg, Config{Rate: 1000, Burst: 10}).Serve(ctx, l)
	}()

	c, err := Dial(socket, time.Second)
	require.NoError(t, err)
	require.NoError(t, c.Add("lo"))
	rows, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []registry.Row{{Index: registry.Unbound, Name: "lo"}}, rows)

	// Open sessions are closed on shutdown.
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	_, err = c.List()
	assert.Error(t, err)
	c.Close()
}
