package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/moby/ifset/identity"
	"github.com/moby/ifset/log"
	"github.com/moby/ifset/registry"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Registry is the set of operations the control server drives.
type Registry interface {
	Add(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	Clear(ctx context.Context) error
	Lookup(ifindex int) bool
	Snapshot() ([]registry.Row, error)
}

// Config configures a Server.
type Config struct {
	// Rate limits the commands accepted per second on one connection.
	// Zero means no limit.
	Rate float64
	// Burst is the number of commands that may exceed Rate at once.
	Burst int
}

// Server serves the text control protocol. Each connection carries
// newline-terminated commands; every command gets a single reply line,
// "ok" or "error: <reason>", except VerbList whose reply is the
// introspection table followed by an empty line and VerbLookup whose reply
// is "true" or "false".
type Server struct {
	registry Registry
	limit    rate.Limit
	burst    int

	wg sync.WaitGroup
}

// NewServer returns a server driving reg.
func NewServer(reg Registry, config Config) *Server {
	limit := rate.Inf
	if config.Rate > 0 {
		limit = rate.Limit(config.Rate)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		registry: reg,
		limit:    limit,
		burst:    burst,
	}
}

// Serve accepts connections on l until ctx is done, then closes l and waits
// for open sessions to finish.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	ctx = log.WithModule(ctx, "control")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			l.Close()
		case <-stop:
		}
	}()

	defer s.wg.Wait()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to accept control connection")
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(ctx, conn)
		}()
	}
}

// ServeConn runs a control session on conn until the peer closes it or ctx
// is done. conn is closed on return.
func (s *Server) ServeConn(ctx context.Context, conn io.ReadWriteCloser) {
	defer conn.Close()

	ctx = log.WithField(ctx, "session", identity.NewID())
	log.G(ctx).Debug("control session started")
	defer log.G(ctx).Debug("control session ended")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	limiter := rate.NewLimiter(s.limit, s.burst)
	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	for {
		line, err := readCommand(br)
		switch {
		case err == io.EOF:
			return
		case err == nil:
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			err = s.execute(ctx, line, bw)
			if err != nil {
				reply(bw, err)
			}
		case IsErrInputTooLarge(err):
			reply(bw, err)
		default:
			if ctx.Err() == nil {
				log.G(ctx).WithError(err).Warn("control session failed")
			}
			return
		}
		if err := bw.Flush(); err != nil {
			return
		}
	}
}

// execute runs one command and writes its successful reply. A returned
// error has not been replied to.
func (s *Server) execute(ctx context.Context, line []byte, w io.Writer) error {
	cmd, err := Parse(line)
	if err != nil {
		log.G(ctx).WithError(err).Debug("rejected control command")
		return err
	}

	switch cmd.Verb {
	case VerbAdd:
		err = s.registry.Add(ctx, cmd.Name)
	case VerbDelete:
		err = s.registry.Delete(ctx, cmd.Name)
	case VerbClear:
		err = s.registry.Clear(ctx)
	case VerbLookup:
		_, err = fmt.Fprintln(w, s.registry.Lookup(cmd.Index))
		return err
	case VerbList:
		rows, err := s.registry.Snapshot()
		if err != nil {
			return err
		}
		if err := registry.WriteTable(w, rows); err != nil {
			return err
		}
		_, err = fmt.Fprintln(w)
		return err
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, "ok")
	return err
}

func reply(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}

// readCommand reads one newline-terminated command. A command longer than
// MaxCommandSize is consumed up to its newline and reported as
// ErrInputTooLarge. A final command without a newline is returned as is.
func readCommand(br *bufio.Reader) ([]byte, error) {
	var (
		line     []byte
		tooLarge bool
	)
	for {
		frag, err := br.ReadSlice('\n')
		if !tooLarge {
			line = append(line, frag...)
			if len(line) > MaxCommandSize {
				tooLarge, line = true, nil
			}
		}

		switch err {
		case nil:
			if tooLarge {
				return nil, ErrInputTooLarge
			}
			return line, nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if tooLarge {
				return nil, ErrInputTooLarge
			}
			if len(line) > 0 {
				return line, nil
			}
			return nil, io.EOF
		default:
			return nil, err
		}
	}
}
