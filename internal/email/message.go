// Package email defines the received-message data model and its error taxonomy.
package email

import "net/textproto"

// Data is the raw envelope captured by a completed SMTP transaction.
type Data struct {
	// Raw is the message payload as received after DATA.
	Raw []byte

	// AddressFrom is the MAIL FROM address without angle brackets.
	AddressFrom string

	// AddressTo is the RCPT TO address without angle brackets.
	AddressTo string
}

// Email is a received message after validation.
type Email struct {
	// AddressFrom is the sender as received in the SMTP exchange.
	// It does not include a display name.
	AddressFrom string

	// AddressTo is the recipient as received in the SMTP exchange.
	// It does not include a display name.
	AddressTo string

	// Subject is the decoded Subject header.
	Subject string

	// Headers maps each header name to its last decoded value. Keys are in
	// canonical MIME form (textproto.CanonicalMIMEHeaderKey), not as written
	// in the message: "Message-ID" is stored as "Message-Id" and
	// "MIME-Version" as "Mime-Version". Use Header for lookups by any
	// spelling.
	Headers map[string]string

	// TextBody is the decoded text/plain part.
	TextBody string

	// HTMLBody is the decoded text/html part.
	HTMLBody string
}

// From returns the complete From header, including the display name.
func (e *Email) From() string {
	return e.Headers["From"]
}

// To returns the complete To header, including the display name.
func (e *Email) To() string {
	return e.Headers["To"]
}

// Header returns the decoded value of the named header. The name is matched
// case-insensitively.
func (e *Email) Header(name string) string {
	return e.Headers[textproto.CanonicalMIMEHeaderKey(name)]
}
