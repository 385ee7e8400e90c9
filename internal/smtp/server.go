package smtp

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net"
	"net/netip"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/shineum/smtp-test-server/internal/config"
	"github.com/shineum/smtp-test-server/internal/email"
	"github.com/shineum/smtp-test-server/internal/parser"
)

// DefaultPort is used by StartWithConfig when the address string has no port.
const DefaultPort = 587

// result is one completed or failed session.
type result struct {
	email *email.Email
	err   error
}

// accepted is one outcome of the listener.
type accepted struct {
	conn net.Conn
	err  error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for the server and its connections.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server accepts SMTP connections and hands their messages to the caller.
//
// Connections are only taken from the listener while a receive call is in
// progress. Results are buffered one at a time: a second finished session
// waits until the first has been received.
type Server struct {
	auth     Auth
	listener net.Listener
	serverIP string
	logger   *slog.Logger

	// accepted is unbuffered so a connection is handed over only inside a
	// receive call.
	accepted chan accepted

	// results is never closed; the server itself keeps it alive.
	results chan result

	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// Start binds address and returns a running server using the given policy.
func Start(address string, auth Auth, opts ...Option) (*Server, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	auth = normalizeAuth(auth)

	s := &Server{
		auth:     auth,
		listener: ln,
		serverIP: hostIP(ln.Addr()),
		logger:   slog.Default(),
		accepted: make(chan accepted),
		results:  make(chan result, 1),
		done:     make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Info("SMTP test server listening",
		"addr", ln.Addr().String(),
		"auth", authName(auth),
	)

	go s.acceptLoop()
	return s, nil
}

// StartWithConfig starts a server from a parsed address. The port
// defaults to DefaultPort. When the address carries no credentials, strict
// selects AcceptAnonOnly and otherwise AcceptAll.
func StartWithConfig(addr config.Address, strict bool, opts ...Option) (*Server, error) {
	return Start(addr.ListenAddr(DefaultPort), AuthFor(addr, strict), opts...)
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// TryReceive waits for the next session result, accepting new connections
// while it waits. It returns the received email or the error of a failed
// session, an *AcceptError when the listener fails, ctx.Err() on
// cancellation and ErrServerClosed after Close.
func (s *Server) TryReceive(ctx context.Context) (*email.Email, error) {
	for {
		select {
		case a := <-s.accepted:
			if a.err != nil {
				return nil, &AcceptError{Err: a.err}
			}
			s.spawn(a.conn)
		case r := <-s.results:
			return r.email, r.err
		case <-ctx.Done():
			// a finished session is still handed out after cancellation
			select {
			case r := <-s.results:
				return r.email, r.err
			default:
			}
			return nil, ctx.Err()
		case <-s.done:
			return nil, ErrServerClosed
		}
	}
}

// Receive waits for the next successfully received email, discarding failed
// sessions. It only returns an error on cancellation or after Close.
func (s *Server) Receive(ctx context.Context) (*email.Email, error) {
	for {
		msg, err := s.TryReceive(ctx)
		if err == nil {
			return msg, nil
		}
		if s.stopped(ctx, err) {
			return nil, err
		}
		s.logger.Debug("discarding failed session", "error", err)
	}
}

// Stream yields received emails until ctx is done or the server is closed.
// Failed sessions are discarded.
func (s *Server) Stream(ctx context.Context) iter.Seq[*email.Email] {
	return func(yield func(*email.Email) bool) {
		for {
			msg, err := s.Receive(ctx)
			if err != nil || !yield(msg) {
				return
			}
		}
	}
}

// TryStream yields every session result, including failures, until ctx is
// done or the server is closed.
func (s *Server) TryStream(ctx context.Context) iter.Seq2[*email.Email, error] {
	return func(yield func(*email.Email, error) bool) {
		for {
			msg, err := s.TryReceive(ctx)
			if s.stopped(ctx, err) {
				return
			}
			if !yield(msg, err) {
				return
			}
		}
	}
}

// stopped reports whether err from TryReceive ends receiving, as opposed to
// describing one failed session.
func (s *Server) stopped(ctx context.Context, err error) bool {
	if errors.Is(err, ErrServerClosed) {
		return true
	}
	return err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// Close stops the listener, drops every open connection and waits for the
// connection goroutines to exit.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.listener.Close()

		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()

		s.wg.Wait()
		s.logger.Info("SMTP test server stopped")
	})
	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		select {
		case s.accepted <- accepted{conn: conn, err: err}:
		case <-s.done:
			if conn != nil {
				conn.Close()
			}
			return
		}
		if errors.Is(err, net.ErrClosed) {
			return
		}
	}
}

// spawn starts the goroutine serving conn.
func (s *Server) spawn(conn net.Conn) {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		conn.Close()
		return
	default:
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.serve(conn)
}

// serve runs sessions on conn until one quits or fails.
func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	logger := s.logger.With(
		"conn", ulid.Make().String(),
		"remote", conn.RemoteAddr().String(),
	)
	logger.Debug("connection accepted")

	session := NewSession(conn, s.serverIP, hostIP(conn.RemoteAddr()), s.auth, logger)
	for {
		resp, err := session.Exchange()
		if errors.Is(err, errPeerClosed) {
			logger.Debug("connection closed by peer", "error", err)
			return
		}
		if err != nil {
			logger.Debug("session failed", "error", err)
			s.deliver(result{err: err})
			return
		}

		switch resp.Kind {
		case ResponseEmail:
			msg, err := parser.Parse(resp.Email, parser.WithLogger(logger))
			if !s.deliver(result{email: msg, err: err}) {
				return
			}
		case ResponseContinue:
		case ResponseQuit:
			logger.Debug("session quit")
			return
		}
	}
}

// deliver enqueues r, giving up when the server is closed.
func (s *Server) deliver(r result) bool {
	select {
	case s.results <- r:
		return true
	case <-s.done:
		return false
	}
}

// hostIP returns the IP part of addr in its textual form.
func hostIP(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		if ip, ok := netip.AddrFromSlice(tcp.IP); ok {
			return ip.Unmap().String()
		}
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func authName(auth Auth) string {
	switch auth.(type) {
	case Login:
		return "login"
	case AcceptAll:
		return "accept-all"
	default:
		return "anon-only"
	}
}
