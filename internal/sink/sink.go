// Package sink defines where received emails are handed off.
package sink

import (
	"context"

	"github.com/shineum/smtp-test-server/internal/email"
)

// Sink consumes emails accepted by the test server, e.g. to print them or
// record them for later inspection.
type Sink interface {
	// Deliver hands one received email to the sink.
	Deliver(ctx context.Context, msg *email.Email) error

	// Name returns the human-readable name of this sink.
	Name() string
}
