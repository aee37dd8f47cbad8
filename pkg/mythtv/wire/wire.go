// Package wire implements MythTV backend packet framing.
//
// Each packet is an 8-byte ASCII decimal length, left-justified and padded
// with spaces, followed by that many bytes of payload. The payload is a list
// of string tokens joined by "[]:[]".
package wire

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Framing constants.
const (
	Separator  = "[]:[]"
	HeaderSize = 8

	// DefaultMaxPacketSize bounds a single payload. Recording lists from
	// large backends run to a few MiB.
	DefaultMaxPacketSize = 64 << 20

	// maxHeaderValue is the largest length an 8-digit header can carry.
	maxHeaderValue = 99999999
)

var (
	// ErrMalformedHeader is returned when the length header is not a
	// non-negative decimal.
	ErrMalformedHeader = errors.New("malformed packet header")

	// ErrPacketTooLarge is returned for payloads over the size limit.
	ErrPacketTooLarge = errors.New("packet too large")
)

// Encode frames tokens as a complete packet.
func Encode(tokens []string) ([]byte, error) {
	payload := strings.Join(tokens, Separator)
	if len(payload) > maxHeaderValue {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(payload))
	}
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = fmt.Appendf(buf, "%-8d", len(payload))
	buf = append(buf, payload...)
	return buf, nil
}

// Decode splits a payload into tokens.
func Decode(payload []byte) []string {
	return strings.Split(string(payload), Separator)
}

// ParseHeader returns the payload length from an 8-byte header.
func ParseHeader(header []byte) (int, error) {
	if len(header) != HeaderSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrMalformedHeader, len(header))
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(header)))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedHeader, header)
	}
	return n, nil
}

// Conn reads and writes packets on a network connection. Reads and writes
// may run concurrently with each other but not with themselves.
type Conn struct {
	conn    net.Conn
	r       *bufio.Reader
	maxSize int
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithMaxPacketSize overrides DefaultMaxPacketSize.
func WithMaxPacketSize(n int) ConnOption {
	return func(c *Conn) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// NewConn wraps conn.
func NewConn(conn net.Conn, opts ...ConnOption) *Conn {
	c := &Conn{
		conn:    conn,
		r:       bufio.NewReader(conn),
		maxSize: DefaultMaxPacketSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to addr and wraps the connection.
func Dial(ctx context.Context, addr string, opts ...ConnOption) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	return NewConn(conn, opts...), nil
}

// ReadPacket reads one packet. The context deadline and cancellation apply
// to the read.
func (c *Conn) ReadPacket(ctx context.Context) ([]string, error) {
	stop := c.bind(ctx, c.conn.SetReadDeadline)
	defer stop()

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(c.r, header); err != nil {
		return nil, c.ioError(ctx, "reading header", err)
	}
	n, err := ParseHeader(header)
	if err != nil {
		return nil, err
	}
	if n > c.maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrPacketTooLarge, n, c.maxSize)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		return nil, c.ioError(ctx, "reading payload", err)
	}
	return Decode(payload), nil
}

// WritePacket writes tokens as one packet.
func (c *Conn) WritePacket(ctx context.Context, tokens []string) error {
	buf, err := Encode(tokens)
	if err != nil {
		return err
	}

	stop := c.bind(ctx, c.conn.SetWriteDeadline)
	defer stop()

	if _, err := c.conn.Write(buf); err != nil {
		return c.ioError(ctx, "writing packet", err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the backend address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// bind applies the context deadline to the connection and interrupts
// blocked I/O when the context is cancelled.
func (c *Conn) bind(ctx context.Context, setDeadline func(time.Time) error) func() {
	deadline, _ := ctx.Deadline()
	_ = setDeadline(deadline)

	stop := context.AfterFunc(ctx, func() {
		_ = setDeadline(time.Unix(1, 0))
	})
	return func() {
		stop()
		_ = setDeadline(time.Time{})
	}
}

func (c *Conn) ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	// The connection deadline is the context deadline; its timer may not have fired yet.
	if _, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s: %w", op, err)
}
