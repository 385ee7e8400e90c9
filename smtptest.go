// Package smtptest runs a minimal SMTP endpoint for tests that need to
// observe the emails an application sends.
//
// The endpoint accepts exactly one command sequence (EHLO, optional AUTH
// PLAIN, MAIL FROM, RCPT TO, DATA) and only multipart messages with a
// text/plain and a text/html part. Anything else is reported as an error.
//
//	s, err := smtptest.Start("127.0.0.1:0", smtptest.AcceptAnonOnly{})
//	...
//	defer s.Close()
//	msg, err := s.TryReceive(ctx)
package smtptest

import (
	"log/slog"

	"github.com/shineum/smtp-test-server/internal/config"
	"github.com/shineum/smtp-test-server/internal/email"
	"github.com/shineum/smtp-test-server/internal/smtp"
)

type (
	// Server is a running test endpoint.
	Server = smtp.Server
	// Option configures a Server.
	Option = smtp.Option

	// Auth is the authentication policy of a Server.
	Auth = smtp.Auth
	// Login requires AUTH PLAIN with exactly these credentials.
	Login = smtp.Login
	// AcceptAnonOnly rejects every AUTH attempt.
	AcceptAnonOnly = smtp.AcceptAnonOnly
	// AcceptAll accepts any AUTH attempt as well as no AUTH.
	AcceptAll = smtp.AcceptAll

	// Address is a parsed "[user:password@]host[:port]" string.
	Address = config.Address

	// Email is a received and validated message.
	Email = email.Email
)

// DefaultPort is the port StartWithConfig listens on when the address has none.
const DefaultPort = smtp.DefaultPort

var (
	// ErrServerClosed is returned by receive calls after Close.
	ErrServerClosed = smtp.ErrServerClosed
	// ErrConversion matches every error about a message that is valid MIME
	// but not an acceptable email.
	ErrConversion = email.ErrConversion
)

// Start binds address and returns a running server using the given policy.
func Start(address string, auth Auth, opts ...Option) (*Server, error) {
	return smtp.Start(address, auth, opts...)
}

// StartWithConfig starts a server from an address string such as
// "user:pwd@127.0.0.1:2525". The port defaults to DefaultPort. Credentials
// select Login; without them strict selects AcceptAnonOnly and otherwise
// AcceptAll.
func StartWithConfig(address string, strict bool, opts ...Option) (*Server, error) {
	addr, err := config.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	return smtp.StartWithConfig(addr, strict, opts...)
}

// ParseAddress parses an address string.
func ParseAddress(address string) (Address, error) {
	return config.ParseAddress(address)
}

// WithLogger sets the logger used for the server and its connections.
func WithLogger(logger *slog.Logger) Option {
	return smtp.WithLogger(logger)
}
