package email

import (
	"errors"
	"fmt"
)

// ErrConversion matches every error raised while validating a parsed message.
var ErrConversion = errors.New("email conversion failed")

var (
	ErrMissingFrom    = fmt.Errorf("%w: missing `From` address", ErrConversion)
	ErrMissingTo      = fmt.Errorf("%w: missing `To` address", ErrConversion)
	ErrMissingSubject = fmt.Errorf("%w: missing `Subject` header", ErrConversion)
)

// ParseError reports a payload that is not a valid MIME message.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse message: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DuplicateHeaderError reports a header that must occur once but occurred more often.
type DuplicateHeaderError struct {
	Header string
	Values []string
}

func (e *DuplicateHeaderError) Error() string {
	return fmt.Sprintf("multiple `%s` headers: %q", e.Header, e.Values)
}

func (e *DuplicateHeaderError) Is(target error) bool {
	return target == ErrConversion
}

// AddressMismatchError reports a From or To header that does not carry the
// envelope address.
type AddressMismatchError struct {
	Header string
	SMTP   string
	Email  string
}

func (e *AddressMismatchError) Error() string {
	return fmt.Sprintf("mismatch `%s` address; smtp: %s, email: %s", e.Header, e.SMTP, e.Email)
}

func (e *AddressMismatchError) Is(target error) bool {
	return target == ErrConversion
}

// PartCountError reports a message that does not have exactly two top-level parts.
type PartCountError struct {
	Count int
}

func (e *PartCountError) Error() string {
	return fmt.Sprintf("unexpected part count; expected 2, received %d", e.Count)
}

func (e *PartCountError) Is(target error) bool {
	return target == ErrConversion
}

// PartMimeError reports a top-level part with the wrong media type.
type PartMimeError struct {
	Actual   string
	Expected string
}

func (e *PartMimeError) Error() string {
	return fmt.Sprintf("unexpected part mimetype; expected %q, received %q", e.Expected, e.Actual)
}

func (e *PartMimeError) Is(target error) bool {
	return target == ErrConversion
}
