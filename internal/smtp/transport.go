package smtp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// readWait is the pause after a read that returned no bytes.
const readWait = 10 * time.Millisecond

// readBufferSize bounds what a single read can capture, including the message body.
const readBufferSize = 128 * 1024

// transport exchanges literal chunks with the client. Every read returns
// whatever the next non-empty read of the underlying stream delivered; it
// does not split or join lines.
type transport struct {
	rw     io.ReadWriter
	logger *slog.Logger
	buf    []byte
}

func newTransport(rw io.ReadWriter, logger *slog.Logger) *transport {
	return &transport{
		rw:     rw,
		logger: logger,
		buf:    make([]byte, readBufferSize),
	}
}

// read waits for the next non-empty chunk and decodes it as text, replacing
// invalid UTF-8.
func (t *transport) read() (string, error) {
	for {
		n, err := t.rw.Read(t.buf)
		if n > 0 {
			data := decodeLossy(t.buf[:n])
			t.logger.Debug("smtp recv", "data", data)
			return data, nil
		}
		if err != nil {
			return "", transportError("read", err)
		}
		time.Sleep(readWait)
	}
}

// readOnce performs exactly one read and returns its bytes, which may be empty.
func (t *transport) readOnce() ([]byte, error) {
	n, err := t.rw.Read(t.buf)
	if n == 0 && err != nil {
		return nil, transportError("read", err)
	}
	data := bytes.Clone(t.buf[:n])
	t.logger.Debug("smtp recv", "bytes", n)
	return data, nil
}

// readExpect reads a chunk that must equal expected.
func (t *transport) readExpect(expected string) error {
	data, err := t.read()
	if err != nil {
		return err
	}
	if data != expected {
		return &UnexpectedDataError{Expected: expected, Actual: data}
	}
	return nil
}

func (t *transport) write(data string) error {
	t.logger.Debug("smtp send", "data", data)
	if _, err := io.WriteString(t.rw, data); err != nil {
		return transportError("write", err)
	}
	return nil
}

func decodeLossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	decoded, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return string(decoded)
}

func transportError(op string, err error) error {
	if isPeerClosed(err) {
		return fmt.Errorf("smtp: %s: %w: %w", op, errPeerClosed, err)
	}
	return fmt.Errorf("smtp: %s: %w", op, err)
}

func isPeerClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
