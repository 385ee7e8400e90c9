// Package parser validates the raw payload of an SMTP transaction and turns it
// into an email.Email holding exactly one text/plain and one text/html part.
package parser

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/shineum/smtp-test-server/internal/email"
)

const (
	mimeTextPlain = "text/plain"
	mimeTextHTML  = "text/html"
)

var headerDecoder = &mime.WordDecoder{CharsetReader: charset.NewReaderLabel}

// part is a decoded top-level body part.
type part struct {
	mediaType string
	body      string
}

// Option configures Parse.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for recoverable decoding problems, such as an
// unknown part charset. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Parse parses data.Raw as a MIME message and validates it against the
// envelope addresses. A payload that is not valid MIME yields an
// *email.ParseError; every validation failure matches email.ErrConversion.
func Parse(data email.Data, opts ...Option) (*email.Email, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	msg, err := mail.ReadMessage(bytes.NewReader(data.Raw))
	if err != nil {
		return nil, &email.ParseError{Err: err}
	}

	parts, err := readParts(msg, o.logger)
	if err != nil {
		return nil, &email.ParseError{Err: err}
	}

	return convert(data, msg.Header, parts)
}

func convert(data email.Data, header mail.Header, parts []part) (*email.Email, error) {
	from, err := singleHeader(header, "From", email.ErrMissingFrom)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(from, "<"+data.AddressFrom+">") {
		return nil, &email.AddressMismatchError{Header: "From", SMTP: data.AddressFrom, Email: from}
	}

	to, err := singleHeader(header, "To", email.ErrMissingTo)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(to, "<"+data.AddressTo+">") {
		return nil, &email.AddressMismatchError{Header: "To", SMTP: data.AddressTo, Email: to}
	}

	subject, err := singleHeader(header, "Subject", email.ErrMissingSubject)
	if err != nil {
		return nil, err
	}
	subject = strings.TrimSuffix(subject, "\r\n")

	if len(parts) != 2 {
		return nil, &email.PartCountError{Count: len(parts)}
	}
	if parts[0].mediaType != mimeTextPlain {
		return nil, &email.PartMimeError{Actual: parts[0].mediaType, Expected: mimeTextPlain}
	}
	if parts[1].mediaType != mimeTextHTML {
		return nil, &email.PartMimeError{Actual: parts[1].mediaType, Expected: mimeTextHTML}
	}

	headers := make(map[string]string, len(header))
	for key, values := range header {
		headers[key] = decodeHeader(values[len(values)-1])
	}

	return &email.Email{
		AddressFrom: data.AddressFrom,
		AddressTo:   data.AddressTo,
		Subject:     subject,
		Headers:     headers,
		TextBody:    parts[0].body,
		HTMLBody:    parts[1].body,
	}, nil
}

// singleHeader returns the decoded value of a header that must occur exactly once.
func singleHeader(header mail.Header, name string, missing error) (string, error) {
	values := header[name]
	switch len(values) {
	case 0:
		return "", missing
	case 1:
		return decodeHeader(values[0]), nil
	}

	decoded := make([]string, 0, len(values))
	for _, v := range values {
		decoded = append(decoded, decodeHeader(v))
	}
	return "", &email.DuplicateHeaderError{Header: name, Values: decoded}
}

// decodeHeader decodes RFC 2047 encoded words, keeping the raw value when
// decoding fails.
func decodeHeader(value string) string {
	decoded, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// readParts returns the top-level parts of a multipart message. A message
// that is not multipart has no parts.
func readParts(msg *mail.Message, logger *slog.Logger) ([]part, error) {
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return nil, nil
	}

	boundary := params["boundary"]
	if boundary == "" {
		return nil, errors.New("multipart message missing boundary")
	}

	reader := multipart.NewReader(msg.Body, boundary)

	var parts []part
	for {
		p, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read next part: %w", err)
		}

		mediaType, params := partMediaType(p.Header.Get("Content-Type"))
		body, err := readPartContent(p, params["charset"], logger)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s part: %w", mediaType, err)
		}

		parts = append(parts, part{mediaType: mediaType, body: body})
	}

	return parts, nil
}

// partMediaType extracts the media type of a part, defaulting to text/plain.
func partMediaType(value string) (string, map[string]string) {
	if strings.TrimSpace(value) == "" {
		return mimeTextPlain, nil
	}

	mediaType, params, err := mime.ParseMediaType(value)
	if err != nil && mediaType == "" {
		mediaType, _, _ = strings.Cut(value, ";")
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mediaType, params
}

// readPartContent reads and decodes the body of a part. The multipart reader
// already undoes quoted-printable; base64 is decoded here. Parts that are not
// base64 keep the line break preceding the next boundary delimiter.
func readPartContent(p *multipart.Part, charsetLabel string, logger *slog.Logger) (string, error) {
	raw, err := io.ReadAll(p)
	if err != nil {
		return "", err
	}

	encoding := strings.ToLower(strings.TrimSpace(p.Header.Get("Content-Transfer-Encoding")))

	var content []byte
	switch encoding {
	case "base64":
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		content, err = base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			content, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return "", fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
	default:
		content = append(raw, '\r', '\n')
	}

	return decodeCharset(content, charsetLabel, logger)
}

// decodeCharset converts content from the declared charset to UTF-8.
func decodeCharset(content []byte, label string, logger *slog.Logger) (string, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8", "us-ascii":
		return string(content), nil
	}

	reader, err := charset.NewReaderLabel(label, bytes.NewReader(content))
	if err != nil {
		logger.Warn("unknown part charset, keeping raw content",
			"charset", label,
			"error", err,
		)
		return string(content), nil
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s content: %w", label, err)
	}
	return string(decoded), nil
}
