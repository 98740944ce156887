// Package mountclient is the public entry point for talking to a MOUNT v3
// server.
//
// A Client owns at most one RPC connection at a time. It dials lazily on the
// first call, serializes concurrent callers (the protocol allows one
// outstanding call per connection), and after a fatal error closes the
// connection so that the next call dials afresh. Calls are never retried.
//
// Successful mounts are recorded in a mounttab.Store and removed again on
// UMNT and UMNTALL.
package mountclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/dittomount/internal/logger"
	"github.com/marmos91/dittomount/internal/protocol/mount"
	"github.com/marmos91/dittomount/internal/protocol/rpc"
	"github.com/marmos91/dittomount/internal/ratelimiter"
	"github.com/marmos91/dittomount/pkg/metrics"
	"github.com/marmos91/dittomount/pkg/store/mounttab"
	"github.com/marmos91/dittomount/pkg/store/mounttab/memory"
)

// ErrClosed is returned by calls on a closed Client.
var ErrClosed = errors.New("mountclient: client closed")

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger. Nil means the default logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics sets the metrics sink. Nil means no metrics.
func WithMetrics(m metrics.ClientMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithMountTable sets the store that records mounts. The caller keeps
// ownership: Close does not close it. Without this option an in-memory
// table is used.
func WithMountTable(store mounttab.Store) Option {
	return func(c *Client) { c.table = store }
}

// WithDialer replaces the TCP dialer.
func WithDialer(d rpc.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// Client is a MOUNT v3 client. It is safe for concurrent use; calls are
// executed one at a time.
type Client struct {
	cfg     Config
	baseLog *logger.Logger
	log     *logger.Logger
	metrics metrics.ClientMetrics
	limiter *ratelimiter.RateLimiter
	dialer  rpc.Dialer
	auth    rpc.OpaqueAuth

	table     mounttab.Store
	ownsTable bool

	// sem holds one token; taking it grants exclusive use of conn.
	sem    chan struct{}
	conn   *rpc.Client
	closed bool
}

// New creates a client for cfg.Server. No connection is made until the
// first call.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()

	auth, err := cfg.Auth.credential()
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		limiter: ratelimiter.New(cfg.RateLimit.CallsPerSecond, cfg.RateLimit.Burst),
		auth:    auth,
		sem:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.baseLog = c.log
	c.log = c.log.With("server", cfg.Server)
	c.metrics = metrics.OrNoop(c.metrics)
	if c.table == nil {
		c.table = memory.New()
		c.ownsTable = true
	}
	c.sem <- struct{}{}

	return c, nil
}

// Server returns the configured mountd address.
func (c *Client) Server() string {
	return c.cfg.Server
}

// Null pings the server.
func (c *Client) Null(ctx context.Context) error {
	return c.do(ctx, mount.ProcNull, func(rc *rpc.Client) error {
		return mount.Null(ctx, rc)
	})
}

// Mount mounts path and records it in the mount table.
func (c *Client) Mount(ctx context.Context, path string) (mount.MountResult, error) {
	var (
		result  mount.MountResult
		session string
	)
	err := c.do(ctx, mount.ProcMnt, func(rc *rpc.Client) error {
		var err error
		result, err = mount.Mount(ctx, rc, path)
		session = rc.SessionID()
		return err
	})
	if err != nil {
		return mount.MountResult{}, err
	}

	flavors := make([]uint32, len(result.AuthFlavors))
	for i, f := range result.AuthFlavors {
		flavors[i] = uint32(f)
	}
	entry := mounttab.Entry{
		Server:      c.cfg.Server,
		ExportPath:  path,
		Handle:      uint64(result.Handle),
		AuthFlavors: flavors,
		SessionID:   session,
		MountedAt:   time.Now(),
	}
	if err := c.table.Put(ctx, entry); err != nil {
		// The server already recorded the mount; only our bookkeeping failed.
		c.log.Warn("Mounted %s but could not record it: %v", path, err)
	}

	c.log.Info("Mounted %s (handle=%s, flavors=%v)", path, result.Handle, result.AuthFlavors)
	return result, nil
}

// Umount tells the server path is no longer mounted and drops it from the
// mount table.
func (c *Client) Umount(ctx context.Context, path string) error {
	err := c.do(ctx, mount.ProcUmnt, func(rc *rpc.Client) error {
		return mount.Umount(ctx, rc, path)
	})
	if err != nil {
		return err
	}
	if err := c.table.Delete(ctx, c.cfg.Server, path); err != nil {
		c.log.Warn("Unmounted %s but could not update the mount table: %v", path, err)
	}
	c.log.Info("Unmounted %s", path)
	return nil
}

// UmountAll removes every mount the server holds for this host and clears
// the server's entries from the mount table.
func (c *Client) UmountAll(ctx context.Context) error {
	err := c.do(ctx, mount.ProcUmntAll, func(rc *rpc.Client) error {
		return mount.UmountAll(ctx, rc)
	})
	if err != nil {
		return err
	}
	removed, err := c.table.DeleteServer(ctx, c.cfg.Server)
	if err != nil {
		c.log.Warn("Unmounted all but could not update the mount table: %v", err)
	}
	c.log.Info("Unmounted all exports (%d recorded)", removed)
	return nil
}

// Dump returns the server's mount list.
func (c *Client) Dump(ctx context.Context) ([]mount.DumpEntry, error) {
	var entries []mount.DumpEntry
	err := c.do(ctx, mount.ProcDump, func(rc *rpc.Client) error {
		var err error
		entries, err = mount.Dump(ctx, rc)
		return err
	})
	return entries, err
}

// Export returns the server's export list.
func (c *Client) Export(ctx context.Context) ([]mount.ExportEntry, error) {
	var entries []mount.ExportEntry
	err := c.do(ctx, mount.ProcExport, func(rc *rpc.Client) error {
		var err error
		entries, err = mount.Export(ctx, rc)
		return err
	})
	return entries, err
}

// Mounts lists the mounts recorded for this client's server.
func (c *Client) Mounts(ctx context.Context) ([]mounttab.Entry, error) {
	return c.table.List(ctx, c.cfg.Server)
}

// Close closes the connection, if any, and the mount table when the client
// created it. Calls waiting for the connection fail with ErrClosed.
func (c *Client) Close() error {
	<-c.sem
	defer func() { c.sem <- struct{}{} }()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		c.conn = nil
	}
	if c.ownsTable {
		if err := c.table.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// do runs fn with exclusive use of a live connection, dialing one if
// needed, and discards the connection if fn left it failed.
func (c *Client) do(ctx context.Context, proc mount.Procedure, fn func(*rpc.Client) error) error {
	select {
	case <-c.sem:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { c.sem <- struct{}{} }()

	if c.closed {
		return ErrClosed
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	rc, err := c.connect(ctx)
	if err != nil {
		c.metrics.RecordCall(proc.String(), time.Since(start), err)
		return err
	}

	err = fn(rc)
	c.metrics.RecordCall(proc.String(), time.Since(start), err)

	if err != nil {
		c.log.Debug("%s failed: %v (kind=%s)", proc, err, rpc.KindOf(err))
	}
	if rc.Failed() {
		c.log.Warn("Discarding connection %s after %s error: %v", rc.SessionID(), rpc.KindOf(err), err)
		_ = rc.Close()
		c.conn = nil
	}
	return err
}

// connect returns the current connection or dials a new one.
// Must be called with the semaphore held.
func (c *Client) connect(ctx context.Context) (*rpc.Client, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	opts := []rpc.Option{
		rpc.WithLogger(c.baseLog),
		rpc.WithMetrics(c.metrics),
		rpc.WithMaxRecordSize(c.cfg.MaxRecordSize),
		rpc.WithReadChunk(c.cfg.ReadChunkSize),
		rpc.WithCallTimeout(c.cfg.CallTimeout),
		rpc.WithAuth(c.auth),
	}
	if c.dialer != nil {
		opts = append(opts, rpc.WithDialer(c.dialer))
	}

	rc, err := rpc.Dial(dialCtx, c.cfg.Server, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", c.cfg.Server, err)
	}
	c.log.Debug("Connected to %s (session=%s)", c.cfg.Server, rc.SessionID())
	c.conn = rc
	return rc, nil
}
