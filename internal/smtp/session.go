package smtp

import (
	"io"
	"log/slog"
	"strings"

	"github.com/shineum/smtp-test-server/internal/email"
)

// ResponseKind tells the connection loop how a session ended.
type ResponseKind int

const (
	// ResponseEmail means the transaction completed and carries a payload.
	ResponseEmail ResponseKind = iota
	// ResponseContinue means the session restarts on the same connection.
	ResponseContinue
	// ResponseQuit means the connection must be dropped without further traffic.
	ResponseQuit
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseEmail:
		return "email"
	case ResponseContinue:
		return "continue"
	case ResponseQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Response is the outcome of one session. Email is set only for ResponseEmail.
type Response[T any] struct {
	Kind  ResponseKind
	Email T
}

// Session drives the fixed SMTP command sequence over one connection:
//
//	220 greeting, EHLO, 250 capabilities, optional AUTH PLAIN, then either
//	NOOP/QUIT or MAIL FROM/RCPT TO/DATA/body/"."/QUIT.
//
// Exchange may be called repeatedly; each call is one session.
type Session struct {
	t        *transport
	serverIP string
	clientIP string
	auth     Auth
}

// NewSession creates a session on rw. serverIP is announced in the greeting
// and clientIP is required in the EHLO line.
func NewSession(rw io.ReadWriter, serverIP, clientIP string, auth Auth, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	auth = normalizeAuth(auth)
	return &Session{
		t:        newTransport(rw, logger),
		serverIP: serverIP,
		clientIP: clientIP,
		auth:     auth,
	}
}

// Exchange runs one session from the greeting to QUIT.
func (s *Session) Exchange() (Response[email.Data], error) {
	var none Response[email.Data]

	if err := s.t.write("220 " + s.serverIP + "\r\n"); err != nil {
		return none, err
	}
	if err := s.t.readExpect("EHLO [" + s.clientIP + "]\r\n"); err != nil {
		return none, err
	}

	if err := s.t.write("250-" + s.serverIP + "\r\n"); err != nil {
		return none, err
	}
	if err := s.t.write("250 AUTH PLAIN\r\n"); err != nil {
		return none, err
	}

	line, err := s.t.read()
	if err != nil {
		return none, err
	}

	if strings.HasPrefix(line, "AUTH") {
		if !s.authorized(line) {
			return s.rejectAuth()
		}
		if err := s.t.write("235 Authentication successful\r\n"); err != nil {
			return none, err
		}
		if line, err = s.t.read(); err != nil {
			return none, err
		}
	} else if _, required := s.auth.(Login); required {
		return s.rejectAuth()
	}

	switch {
	case line == "NOOP\r\n":
		return s.noop()
	case strings.HasPrefix(line, "MAIL"):
		return s.transaction(line)
	default:
		return none, &UnexpectedContinuationError{Actual: line}
	}
}

// authorized reports whether the AUTH line is accepted under the policy.
func (s *Session) authorized(line string) bool {
	switch a := s.auth.(type) {
	case Login:
		return line == a.plainCommand()
	case AcceptAll:
		return true
	default:
		return false
	}
}

// rejectAuth answers 535 and waits for QUIT.
func (s *Session) rejectAuth() (Response[email.Data], error) {
	if err := s.t.write("535 Authentication failed\r\n"); err != nil {
		return Response[email.Data]{}, err
	}
	if err := s.quit(); err != nil {
		return Response[email.Data]{}, err
	}
	return Response[email.Data]{Kind: ResponseQuit}, nil
}

func (s *Session) noop() (Response[email.Data], error) {
	if err := s.t.write("250 Ok\r\n"); err != nil {
		return Response[email.Data]{}, err
	}
	if err := s.quit(); err != nil {
		return Response[email.Data]{}, err
	}
	return Response[email.Data]{Kind: ResponseContinue}, nil
}

// transaction handles MAIL FROM through QUIT. The body is taken from a
// single read after 354.
func (s *Session) transaction(line string) (Response[email.Data], error) {
	var none Response[email.Data]

	from, err := expectAddress(line, "MAIL FROM")
	if err != nil {
		return none, err
	}
	if err := s.t.write("250 Ok\r\n"); err != nil {
		return none, err
	}

	if line, err = s.t.read(); err != nil {
		return none, err
	}
	to, err := expectAddress(line, "RCPT TO")
	if err != nil {
		return none, err
	}
	if err := s.t.write("250 Ok\r\n"); err != nil {
		return none, err
	}

	if err := s.t.readExpect("DATA\r\n"); err != nil {
		return none, err
	}
	if err := s.t.write("354 Go\r\n"); err != nil {
		return none, err
	}

	raw, err := s.t.readOnce()
	if err != nil {
		return none, err
	}

	if err := s.t.readExpect("\r\n.\r\n"); err != nil {
		return none, err
	}
	if err := s.t.write("250 Ok\r\n"); err != nil {
		return none, err
	}
	if err := s.quit(); err != nil {
		return none, err
	}

	return Response[email.Data]{
		Kind: ResponseEmail,
		Email: email.Data{
			Raw:         raw,
			AddressFrom: from,
			AddressTo:   to,
		},
	}, nil
}

// quit expects QUIT and answers 221.
func (s *Session) quit() error {
	if err := s.t.readExpect("QUIT\r\n"); err != nil {
		return err
	}
	return s.t.write("221 Ok\r\n")
}

// expectAddress extracts the address from "<command>:<address>\r\n".
func expectAddress(line, command string) (string, error) {
	prefix := command + ":<"
	if strings.HasPrefix(line, prefix) && strings.HasSuffix(line, ">\r\n") && len(line) >= len(prefix)+3 {
		return line[len(prefix) : len(line)-3], nil
	}
	return "", &UnexpectedDataError{
		Expected: command + ":<...>\r\n",
		Actual:   line,
	}
}
