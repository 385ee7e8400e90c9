// Package mailbuild builds outgoing test messages with a text part, an HTML
// part or both on top of go-mail.
package mailbuild

import (
	"bytes"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Mailbox is a display name and address pair.
type Mailbox struct {
	Name    string
	Address string
}

// New creates a message with From, To and Subject set.
func New(from, to Mailbox, subject string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(from.Name, from.Address); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.AddToFormat(to.Name, to.Address); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(subject)
	return m, nil
}

// BodyText sets a single text/plain body.
func BodyText(m *mail.Msg, text string) *mail.Msg {
	m.SetBodyString(mail.TypeTextPlain, text)
	return m
}

// BodyHTML sets a single text/html body.
func BodyHTML(m *mail.Msg, html string) *mail.Msg {
	m.SetBodyString(mail.TypeTextHTML, html)
	return m
}

// BodyTextAndHTML sets a multipart/alternative body with the text part first
// and the HTML part second.
func BodyTextAndHTML(m *mail.Msg, text, html string) *mail.Msg {
	m.SetBodyString(mail.TypeTextPlain, text)
	m.AddAlternativeString(mail.TypeTextHTML, html)
	return m
}

// Encode renders m as the raw bytes a client sends after DATA.
func Encode(m *mail.Msg) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return buf.Bytes(), nil
}
