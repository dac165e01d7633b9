package control

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/moby/ifset/registry"
	"github.com/moby/ifset/xnet"
	"github.com/pkg/errors"
)

// Client speaks the control protocol over a single connection. It is not
// safe for concurrent use.
type Client struct {
	conn io.ReadWriteCloser
	br   *bufio.Reader
}

// Dial connects to the control socket.
func Dial(socket string, timeout time.Duration) (*Client, error) {
	conn, err := xnet.DialTimeoutLocal(socket, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", socket)
	}
	return NewClient(conn), nil
}

// NewClient returns a client using conn.
func NewClient(conn io.ReadWriteCloser) *Client {
	return &Client{
		conn: conn,
		br:   bufio.NewReader(conn),
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Add asks the server to manage name.
func (c *Client) Add(name string) error {
	return c.do(Command{Verb: VerbAdd, Name: name})
}

// Delete asks the server to stop managing name.
func (c *Client) Delete(name string) error {
	return c.do(Command{Verb: VerbDelete, Name: name})
}

// Clear asks the server to drop every managed interface.
func (c *Client) Clear() error {
	return c.do(Command{Verb: VerbClear})
}

// Lookup asks whether ifindex is bound to a managed interface.
func (c *Client) Lookup(ifindex int) (bool, error) {
	line, err := c.roundTrip(Command{Verb: VerbLookup, Index: ifindex})
	if err != nil {
		return false, err
	}
	ok, err := strconv.ParseBool(line)
	if err != nil {
		return false, errors.Errorf("unexpected reply %q", line)
	}
	return ok, nil
}

// List returns the introspection table.
func (c *Client) List() ([]registry.Row, error) {
	line, err := c.roundTrip(Command{Verb: VerbList})
	if err != nil {
		return nil, err
	}
	if line != registry.TableHeader {
		return nil, errors.Errorf("unexpected table header %q", line)
	}

	var rows []registry.Row
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			return rows, nil
		}
		row, err := parseRow(line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

func (c *Client) do(cmd Command) error {
	line, err := c.roundTrip(cmd)
	if err != nil {
		return err
	}
	if line != "ok" {
		return errors.Errorf("unexpected reply %q", line)
	}
	return nil
}

// roundTrip sends cmd and returns the first reply line. Server side
// failures are returned as errors.
func (c *Client) roundTrip(cmd Command) (string, error) {
	if _, err := fmt.Fprintf(c.conn, "%s\n", cmd); err != nil {
		return "", errors.Wrap(err, "failed to send command")
	}
	line, err := c.readLine()
	if err != nil {
		return "", err
	}
	if msg := strings.TrimPrefix(line, "error: "); msg != line {
		return "", errors.New(msg)
	}
	return line, nil
}

func (c *Client) readLine() (string, error) {
	line, err := c.br.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", errors.Wrap(err, "failed to read reply")
	}
	return strings.TrimSuffix(line, "\n"), nil
}

func parseRow(line string) (registry.Row, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return registry.Row{}, errors.Errorf("malformed table row %q", line)
	}
	index, err := strconv.Atoi(fields[0])
	if err != nil {
		return registry.Row{}, errors.Errorf("malformed table row %q", line)
	}
	return registry.Row{Index: index, Name: fields[1]}, nil
}
