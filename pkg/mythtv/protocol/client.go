package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmylchreest/gomyth/internal/observability"
	"github.com/jmylchreest/gomyth/pkg/mythtv/codec"
	"github.com/jmylchreest/gomyth/pkg/mythtv/models"
	"github.com/jmylchreest/gomyth/pkg/mythtv/record"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
	"github.com/jmylchreest/gomyth/pkg/mythtv/wire"
)

// Default connection settings.
const (
	DefaultPort        = 6543
	DefaultDialTimeout = 10 * time.Second
)

// Announce modes for the ANN command.
const (
	AnnouncePlayback = "Playback"
	AnnounceMonitor  = "Monitor"
)

// Dialer opens the network connection to a backend.
type Dialer func(ctx context.Context, addr string) (net.Conn, error)

// Client is a connection to a MythTV backend control port. It is safe for
// concurrent use; requests are serialized since the protocol has no request
// identifiers.
type Client struct {
	addr     string
	version  versioning.Version
	reg      *record.Registry
	logger   *slog.Logger
	hostname string
	announce string

	mu     sync.Mutex
	conn   *wire.Conn
	closed bool
	ended  bool
	// broken holds the I/O error that left the stream out of step. The
	// socket is already closed once it is set.
	broken error
}

type options struct {
	version       versioning.Version
	retryRejected bool
	registry      *record.Registry
	logger        *slog.Logger
	hostname      string
	announce      string
	dialer        Dialer
	dialTimeout   time.Duration
	maxPacketSize int
}

// ClientOption configures Dial.
type ClientOption func(*options)

// WithVersion sets the protocol version offered first. Defaults to
// DefaultVersion.
func WithVersion(v versioning.Version) ClientOption {
	return func(o *options) {
		o.version = v
	}
}

// WithRetryRejected makes Dial reconnect with the backend's own version
// when it rejects the offered one and that version is supported.
func WithRetryRejected(retry bool) ClientOption {
	return func(o *options) {
		o.retryRejected = retry
	}
}

// WithRegistry sets the record registry used to decode replies.
func WithRegistry(reg *record.Registry) ClientOption {
	return func(o *options) {
		o.registry = reg
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHostname sets the client name announced to the backend. Defaults to
// the local host name.
func WithHostname(name string) ClientOption {
	return func(o *options) {
		o.hostname = name
	}
}

// WithAnnounce selects the ANN mode. Monitor connections do not hold
// recordings open.
func WithAnnounce(mode string) ClientOption {
	return func(o *options) {
		o.announce = mode
	}
}

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) ClientOption {
	return func(o *options) {
		o.dialer = d
	}
}

// WithDialTimeout bounds connecting and the handshake.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(o *options) {
		o.dialTimeout = d
	}
}

// WithMaxPacketSize bounds reply sizes.
func WithMaxPacketSize(n int) ClientOption {
	return func(o *options) {
		o.maxPacketSize = n
	}
}

// Dial connects to the backend at addr, negotiates the protocol version and
// announces the client. A missing port defaults to 6543.
func Dial(ctx context.Context, addr string, opts ...ClientOption) (*Client, error) {
	o := options{
		version:     DefaultVersion,
		logger:      slog.Default(),
		announce:    AnnouncePlayback,
		dialTimeout: DefaultDialTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.hostname == "" {
		o.hostname, _ = os.Hostname()
	}
	if o.registry == nil {
		o.registry = models.NewRegistry(codec.New(models.NewCatalog()), record.WithLogger(o.logger))
	}
	if o.dialer == nil {
		var d net.Dialer
		o.dialer = func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		}
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(DefaultPort))
	}
	if !Supported(o.version) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, o.version)
	}

	if o.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.dialTimeout)
		defer cancel()
	}

	logger := observability.WithComponent(o.logger, "mythprotocol").With(slog.String("backend", addr))
	c := &Client{
		addr:     addr,
		reg:      o.registry,
		logger:   observability.WithCorrelationID(logger, uuid.NewString()),
		hostname: o.hostname,
		announce: o.announce,
	}

	conn, version, err := c.negotiate(ctx, o, o.version)
	var rejected *RejectedError
	if errors.As(err, &rejected) && o.retryRejected && Supported(rejected.Backend) {
		c.logger.InfoContext(ctx, "retrying with backend protocol version",
			slog.String("offered", rejected.Offered.String()),
			slog.String("backend_version", rejected.Backend.String()))
		conn, version, err = c.negotiate(ctx, o, rejected.Backend)
	}
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.version = version

	if err := c.announceClient(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	c.logger.DebugContext(ctx, "connected to backend", slog.String("protocol", version.String()))
	return c, nil
}

// negotiate opens a connection and performs the MYTH_PROTO_VERSION
// exchange. The backend drops the connection after a REJECT.
func (c *Client) negotiate(ctx context.Context, o options, v versioning.Version) (*wire.Conn, versioning.Version, error) {
	token, ok := Token(v)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}

	raw, err := o.dialer(ctx, c.addr)
	if err != nil {
		return nil, 0, fmt.Errorf("connecting to %s: %w", c.addr, err)
	}
	var connOpts []wire.ConnOption
	if o.maxPacketSize > 0 {
		connOpts = append(connOpts, wire.WithMaxPacketSize(o.maxPacketSize))
	}
	conn := wire.NewConn(raw, connOpts...)

	cmd := fmt.Sprintf("MYTH_PROTO_VERSION %d", v)
	if token != "" {
		cmd += " " + token
	}
	if err := conn.WritePacket(ctx, []string{cmd}); err != nil {
		_ = conn.Close()
		return nil, 0, err
	}
	reply, err := conn.ReadPacket(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, 0, err
	}

	switch {
	case len(reply) >= 1 && reply[0] == "ACCEPT":
		return conn, v, nil
	case len(reply) >= 2 && reply[0] == "REJECT":
		_ = conn.Close()
		backend, err := strconv.Atoi(strings.TrimSpace(reply[1]))
		if err != nil {
			return nil, 0, fmt.Errorf("%w: REJECT with version %q", ErrUnexpectedReply, reply[1])
		}
		return nil, 0, &RejectedError{Offered: v, Backend: versioning.Version(backend)}
	default:
		_ = conn.Close()
		return nil, 0, fmt.Errorf("%w: handshake reply %q", ErrUnexpectedReply, reply)
	}
}

func (c *Client) announceClient(ctx context.Context) error {
	reply, err := c.exchange(ctx, CmdAnnounce, []string{fmt.Sprintf("%s %s %s 0", CmdAnnounce, c.announce, c.hostname)})
	if err != nil {
		return err
	}
	return expectOK(CmdAnnounce, reply)
}

// Version returns the negotiated protocol version.
func (c *Client) Version() versioning.Version { return c.version }

// Registry returns the registry replies are decoded with.
func (c *Client) Registry() *record.Registry { return c.reg }

// Addr returns the backend address.
func (c *Client) Addr() string { return c.addr }

// Close sends DONE and closes the connection. It is safe to call more than
// once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.broken != nil {
		return nil
	}

	if !c.ended {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.conn.WritePacket(ctx, []string{CmdDone})
	}
	return c.conn.Close()
}

// usable returns the error for a client that can no longer exchange
// packets. Callers hold c.mu.
func (c *Client) usable(cmd string) error {
	switch {
	case c.closed:
		return ErrClosed
	case c.broken != nil:
		return fmt.Errorf("%s: %w: connection failed: %v", cmd, ErrClosed, c.broken)
	case c.ended:
		return fmt.Errorf("%s: %w: session ended with %s", cmd, ErrClosed, CmdDone)
	}
	return nil
}

// fail drops the connection after an I/O error. The protocol carries no
// request identifiers, so a reply still in flight would otherwise be read
// as the answer to the next command. Callers hold c.mu.
func (c *Client) fail(ctx context.Context, cmd string, err error) error {
	if c.broken == nil {
		c.broken = err
		_ = c.conn.Close()
		c.logger.WarnContext(ctx, "dropping backend connection",
			slog.String("command", cmd),
			slog.String("error", err.Error()))
	}
	return fmt.Errorf("%s: %w", cmd, err)
}

// call checks cmd against the negotiated version and exchanges one packet.
func (c *Client) call(ctx context.Context, cmd string, tokens ...string) ([]string, error) {
	if err := checkCommand(cmd, c.version); err != nil {
		return nil, err
	}
	return c.exchange(ctx, cmd, tokens)
}

func (c *Client) exchange(ctx context.Context, cmd string, tokens []string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(cmd); err != nil {
		return nil, err
	}

	start := time.Now()

	if err := c.conn.WritePacket(ctx, tokens); err != nil {
		return nil, c.fail(ctx, cmd, err)
	}
	reply, err := c.conn.ReadPacket(ctx)
	if err != nil {
		return nil, c.fail(ctx, cmd, err)
	}

	c.logger.DebugContext(ctx, "backend command",
		slog.String("command", cmd),
		slog.Int("reply_tokens", len(reply)),
		slog.Duration("duration", time.Since(start)))

	if isErrorReply(reply) {
		return nil, &BackendError{Command: cmd, Reply: reply}
	}
	return reply, nil
}

func expectOK(cmd string, reply []string) error {
	if len(reply) == 0 || reply[0] != "OK" {
		return fmt.Errorf("%s: %w: %q", cmd, ErrUnexpectedReply, reply)
	}
	return nil
}

// programTokens returns p's tokens after checking it matches the
// connection's protocol version.
func (c *Client) programTokens(p *models.ProgramInfo) ([]string, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil program", ErrUnexpectedReply)
	}
	if p.Version() != c.version {
		return nil, fmt.Errorf("%w: program is protocol %s, connection is %s", ErrVersionMismatch, p.Version(), c.version)
	}
	return p.Tokens(), nil
}
