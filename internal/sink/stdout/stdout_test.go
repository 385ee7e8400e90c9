package stdout

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shineum/smtp-test-server/internal/email"
	"github.com/shineum/smtp-test-server/internal/sink"
)

var _ sink.Sink = (*Sink)(nil)

func testEmail() *email.Email {
	return &email.Email{
		AddressFrom: "sender@example.com",
		AddressTo:   "recipient@example.com",
		Subject:     "Monthly Report",
		Headers: map[string]string{
			"From":       `"Sender" <sender@example.com>`,
			"To":         "<recipient@example.com>",
			"Subject":    "Monthly Report",
			"Message-Id": "<1@example.com>",
		},
		TextBody: "Please find the report below.\r\n",
		HTMLBody: "<p>Please find the report below.</p>\r\n",
	}
}

func TestDeliver_BasicEmail(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := New(WithWriter(&buf))

	if err := s.Deliver(context.Background(), testEmail()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	for _, want := range []string{
		"MAIL FROM: sender@example.com\n",
		"RCPT TO: recipient@example.com\n",
		`From: "Sender" <sender@example.com>` + "\n",
		"To: <recipient@example.com>\n",
		"Subject: Monthly Report\n",
		"Text:\nPlease find the report below.\n",
		"HTML:\n<p>Please find the report below.</p>\n",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(output, "\r") {
		t.Error("output should not contain carriage returns")
	}
	if strings.Contains(output, "Headers:") {
		t.Error("output should not dump headers by default")
	}
	if !strings.HasPrefix(output, separator) {
		t.Error("output should start with separator line")
	}
	if !strings.HasSuffix(output, separator) {
		t.Error("output should end with separator line")
	}
}

func TestDeliver_WithHeaders(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := New(WithWriter(&buf), WithHeaders())

	if err := s.Deliver(context.Background(), testEmail()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Headers:\n  From: ") {
		t.Error("output missing header dump")
	}

	messageID := strings.Index(output, "  Message-Id: <1@example.com>\n")
	subject := strings.Index(output, "  Subject: Monthly Report\n")
	if messageID < 0 || subject < 0 {
		t.Fatalf("output missing headers:\n%s", output)
	}
	if messageID > subject {
		t.Error("headers should be sorted by name")
	}
}

type failingWriter struct{}

var errWrite = errors.New("disk full")

func (failingWriter) Write([]byte) (int, error) {
	return 0, errWrite
}

func TestDeliver_WriteError(t *testing.T) {
	t.Parallel()

	s := New(WithWriter(failingWriter{}))
	err := s.Deliver(context.Background(), testEmail())
	if !errors.Is(err, errWrite) {
		t.Fatalf("Deliver: got %v, want %v", err, errWrite)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	s := New()
	if s.Name() != "stdout" {
		t.Errorf("Name: got %q, want %q", s.Name(), "stdout")
	}
}

func TestTrimBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty", body: "", want: ""},
		{name: "trailing crlf", body: "hello\r\n", want: "hello"},
		{name: "multiple line endings", body: "hello\r\n\r\n", want: "hello"},
		{name: "inner crlf kept", body: "a\r\nb", want: "a\r\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := trimBody(tt.body); got != tt.want {
				t.Errorf("trimBody(%q): got %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}
