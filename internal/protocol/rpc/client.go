package rpc

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittomount/internal/logger"
	"github.com/marmos91/dittomount/internal/protocol/xdr"
	"github.com/marmos91/dittomount/pkg/metrics"
)

// State is the lifecycle state of a Client.
//
//	Idle -> Sending -> AwaitingReply -> Decoding -> Idle
//	                                             \-> Failed (any fatal error)
//
// Failed is terminal: the stream may be positioned in the middle of a
// message, so the connection must be closed and a new Client dialed.
type State int

const (
	StateIdle State = iota
	StateSending
	StateAwaitingReply
	StateDecoding
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSending:
		return "Sending"
	case StateAwaitingReply:
		return "AwaitingReply"
	case StateDecoding:
		return "Decoding"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Dialer opens the byte stream a Client runs on. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

const defaultReadChunk = 4096

type options struct {
	logger        *logger.Logger
	metrics       metrics.ClientMetrics
	dialer        Dialer
	maxRecordSize int
	readChunk     int
	callTimeout   time.Duration
	cred          OpaqueAuth
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger. Defaults to the package default logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics sink. Defaults to no-op.
func WithMetrics(m metrics.ClientMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithDialer replaces the TCP dialer used by Dial.
func WithDialer(d Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithMaxRecordSize bounds the size of a reassembled reply.
func WithMaxRecordSize(n int) Option {
	return func(o *options) { o.maxRecordSize = n }
}

// WithReadChunk sets the size of each read from the connection.
func WithReadChunk(n int) Option {
	return func(o *options) { o.readChunk = n }
}

// WithCallTimeout bounds every call, in addition to any context deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) { o.callTimeout = d }
}

// WithAuth sets the credential sent with every call. The verifier is always
// AUTH_NONE.
func WithAuth(cred OpaqueAuth) Option {
	return func(o *options) { o.cred = cred }
}

func buildOptions(opts []Option) options {
	o := options{
		dialer:        &net.Dialer{},
		maxRecordSize: DefaultMaxRecordSize,
		readChunk:     defaultReadChunk,
		cred:          NoAuth(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.metrics = metrics.OrNoop(o.metrics)
	if o.readChunk <= 0 {
		o.readChunk = defaultReadChunk
	}
	return o
}

// Client is an ONC RPC client over a single stream connection with at most
// one call outstanding.
//
// Thread safety:
// A Client is NOT safe for concurrent use. Callers that share one must
// serialize access themselves (pkg/mountclient does).
type Client struct {
	conn      net.Conn
	addr      string
	sessionID string

	dec   *RecordDecoder
	chunk []byte

	nextXID uint32
	state   State
	failure error

	cred        OpaqueAuth
	callTimeout time.Duration

	log     *logger.Logger
	metrics metrics.ClientMetrics
}

// Dial connects to address over TCP and returns an Idle client.
//
// Returns a *ConnectionError (Op "dial") if the connection cannot be made.
func Dial(ctx context.Context, address string, opts ...Option) (*Client, error) {
	o := buildOptions(opts)

	conn, err := o.dialer.DialContext(ctx, "tcp", address)
	o.metrics.RecordConnect(err)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Addr: address, Err: err}
	}

	return newClient(conn, address, o), nil
}

// NewClient wraps an already established stream.
func NewClient(conn net.Conn, opts ...Option) *Client {
	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return newClient(conn, addr, buildOptions(opts))
}

func newClient(conn net.Conn, addr string, o options) *Client {
	sessionID := uuid.NewString()
	c := &Client{
		conn:        conn,
		addr:        addr,
		sessionID:   sessionID,
		dec:         NewRecordDecoder(o.maxRecordSize),
		chunk:       make([]byte, o.readChunk),
		nextXID:     1,
		state:       StateIdle,
		cred:        o.cred,
		callTimeout: o.callTimeout,
		log:         o.logger.With("session", sessionID).With("server", addr),
		metrics:     o.metrics,
	}
	c.log.Debug("RPC client connected")
	return c
}

// State returns the lifecycle state.
func (c *Client) State() State { return c.state }

// Failed reports whether the client hit a fatal error and must be discarded.
func (c *Client) Failed() bool { return c.state == StateFailed }

// Err returns the error that moved the client to Failed, or nil.
func (c *Client) Err() error { return c.failure }

// SessionID identifies this connection in logs.
func (c *Client) SessionID() string { return c.sessionID }

// RemoteAddr returns the address the client is connected to.
func (c *Client) RemoteAddr() string { return c.addr }

// Close closes the connection. The client is Failed afterwards.
func (c *Client) Close() error {
	if c.state != StateFailed {
		c.state = StateFailed
		c.failure = &ConnectionError{Op: "closed", Addr: c.addr, Err: net.ErrClosed}
	}
	c.log.Debug("RPC client closed")
	return c.conn.Close()
}

// Call sends one call and decodes the results as Resp.
//
// The steps are: allocate an xid, encode header and arguments, send them as
// a single last fragment, read until one reply is reassembled, check the
// xid, decode the reply header and finally decode Resp requiring the reply
// to be consumed exactly.
//
// Errors:
//   - *xdr.EncodeError: the arguments are invalid; nothing was sent and the
//     client stays Idle
//   - *ReplyStatusError: a well-formed non-success reply; the client stays Idle
//   - anything else (ConnectionError, FramingError, CorrelationError,
//     xdr.DecodeError, xdr.TrailingBytesError): the client is Failed
func Call[Resp any, PResp interface {
	*Resp
	xdr.Decodable
}](ctx context.Context, c *Client, program, version, procedure uint32, args xdr.Encodable) (Resp, error) {
	var zero Resp

	results, err := c.roundTrip(ctx, program, version, procedure, args)
	if err != nil {
		return zero, err
	}

	resp, _, err := xdr.Unmarshal[Resp, PResp](results)
	if err != nil {
		return zero, c.fail(err)
	}

	c.state = StateIdle
	return resp, nil
}

// roundTrip performs a call up to and including the reply header. On
// success the client is left in Decoding and the result bytes are returned.
func (c *Client) roundTrip(ctx context.Context, program, version, procedure uint32, args xdr.Encodable) ([]byte, error) {
	switch c.state {
	case StateIdle:
	case StateFailed:
		return nil, &ConnectionError{Op: "call", Addr: c.addr, Err: errors.Join(ErrClientFailed, c.failure)}
	default:
		return nil, &ConnectionError{Op: "call", Addr: c.addr, Err: ErrCallInProgress}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	xid := c.nextXID
	c.nextXID++

	call := CallMessage{
		XID:        xid,
		MsgType:    uint32(MsgCall),
		RPCVersion: RPCVersion,
		Program:    program,
		Version:    version,
		Procedure:  procedure,
		Cred:       c.cred,
		Verf:       NoAuth(),
	}
	payload, err := call.Marshal(args)
	if err != nil {
		return nil, err
	}
	record, err := EncodeRecord(payload)
	if err != nil {
		return nil, err
	}

	stop := c.watch(ctx)
	defer stop()

	log := c.log.With("xid", xid)

	c.state = StateSending
	log.Debug("RPC call: program=%d version=%d procedure=%d (%d bytes)", program, version, procedure, len(payload))
	if _, err := c.conn.Write(record); err != nil {
		return nil, c.fail(&ConnectionError{Op: "write", Addr: c.addr, Err: c.cause(ctx, err)})
	}
	c.metrics.RecordBytes("sent", len(record))

	c.state = StateAwaitingReply
	msg, err := ReadRecord(c.conn, c.dec, c.chunk)
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			connErr.Addr = c.addr
			connErr.Err = c.cause(ctx, connErr.Err)
		}
		return nil, c.fail(err)
	}
	c.metrics.RecordBytes("received", len(msg)+markerSize)

	c.state = StateDecoding
	d := xdr.NewDecoder(msg)

	replyXID, err := d.Uint32()
	if err != nil {
		return nil, c.fail(err)
	}
	if replyXID != xid {
		return nil, c.fail(&CorrelationError{Expected: xid, Got: replyXID})
	}

	var header ReplyHeader
	d = xdr.NewDecoder(msg)
	if err := header.DecodeXDR(d); err != nil {
		return nil, c.fail(err)
	}

	if statusErr := header.StatusError(); statusErr != nil {
		if err := d.Finish("rpc reply"); err != nil {
			return nil, c.fail(err)
		}
		c.state = StateIdle
		log.Debug("RPC reply: %v", statusErr)
		return nil, statusErr
	}

	log.Debug("RPC reply: SUCCESS (%d result bytes)", d.Remaining())
	return d.Rest(), nil
}

// fail moves the client to Failed and returns err.
func (c *Client) fail(err error) error {
	c.state = StateFailed
	c.failure = err
	c.metrics.RecordFailure(KindOf(err).String())
	c.log.Warn("RPC client failed: %v", err)
	return err
}

// cause prefers the context error when the context ended the I/O.
func (c *Client) cause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	// The connection deadline can fire just before the context's own timer.
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) && errors.Is(err, os.ErrDeadlineExceeded) {
		return context.DeadlineExceeded
	}
	return err
}

// watch applies the call deadline to the connection and, while the call
// runs, interrupts blocked I/O when ctx is cancelled. The returned function
// must be called before the next call starts.
func (c *Client) watch(ctx context.Context) func() {
	var deadline time.Time
	if c.callTimeout > 0 {
		deadline = time.Now().Add(c.callTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)

	if ctx.Done() == nil {
		return func() {}
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			_ = c.conn.SetDeadline(time.Unix(1, 0))
		case <-done:
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}
