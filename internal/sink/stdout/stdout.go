// Package stdout implements a Sink that prints received emails.
package stdout

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/shineum/smtp-test-server/internal/email"
)

const separator = "========================================\n"

// Sink prints email messages in a human-readable format.
type Sink struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
	// headers enables a dump of every decoded header.
	headers bool
}

// Option configures a Sink.
type Option func(*Sink)

// WithWriter replaces os.Stdout as the output destination.
func WithWriter(w io.Writer) Option {
	return func(s *Sink) {
		s.writer = w
	}
}

// WithHeaders also prints every decoded header, sorted by name.
func WithHeaders() Option {
	return func(s *Sink) {
		s.headers = true
	}
}

// New creates a new stdout Sink.
func New(opts ...Option) *Sink {
	s := &Sink{writer: os.Stdout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver prints msg. It returns the write error, if any.
func (s *Sink) Deliver(_ context.Context, msg *email.Email) error {
	var b strings.Builder

	b.WriteString(separator)
	fmt.Fprintf(&b, "MAIL FROM: %s\n", msg.AddressFrom)
	fmt.Fprintf(&b, "RCPT TO: %s\n", msg.AddressTo)
	fmt.Fprintf(&b, "From: %s\n", msg.From())
	fmt.Fprintf(&b, "To: %s\n", msg.To())
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)

	if s.headers && len(msg.Headers) > 0 {
		b.WriteString("Headers:\n")
		for _, key := range slices.Sorted(maps.Keys(msg.Headers)) {
			fmt.Fprintf(&b, "  %s: %s\n", key, msg.Headers[key])
		}
	}

	b.WriteString("Text:\n")
	b.WriteString(trimBody(msg.TextBody) + "\n")
	b.WriteString("HTML:\n")
	b.WriteString(trimBody(msg.HTMLBody) + "\n")
	b.WriteString(separator)

	if _, err := io.WriteString(s.writer, b.String()); err != nil {
		return fmt.Errorf("stdout: write: %w", err)
	}
	return nil
}

// Name returns the sink name.
func (s *Sink) Name() string {
	return "stdout"
}

func trimBody(body string) string {
	return strings.TrimRight(body, "\r\n")
}
