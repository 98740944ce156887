// Package mountdtest provides an in-process MOUNT v3 server for tests.
//
// The server speaks the real wire protocol (record marking, RPC headers,
// XDR bodies) so clients are exercised end to end. Behaviour is driven by a
// small export table; fault injection goes through SetIntercept.
package mountdtest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/marmos91/dittomount/internal/logger"
	"github.com/marmos91/dittomount/internal/protocol/mount"
	"github.com/marmos91/dittomount/internal/protocol/rpc"
	"github.com/marmos91/dittomount/internal/protocol/xdr"
)

// Export is one path served by the fake server.
type Export struct {
	Path   string
	Groups []string

	// Handle and Flavors are returned by MNT.
	Handle  mount.FileHandle
	Flavors []rpc.AuthFlavor

	// Status, when not OK, makes MNT fail with that mountstat3.
	Status mount.Status
}

// Response is a raw reply produced by an InterceptFunc.
type Response struct {
	// Raw is written as is; record marking is the interceptor's job.
	Raw []byte

	// Hangup closes the connection after Raw is written.
	Hangup bool
}

// InterceptFunc can replace the reply to a call. Returning nil lets the
// server answer normally.
type InterceptFunc func(call *rpc.CallMessage, args []byte) *Response

// Server is a fake mountd.
type Server struct {
	mu        sync.Mutex
	exports   map[string]Export
	order     []string
	mounts    []mount.DumpEntry
	intercept InterceptFunc

	calls atomic.Int64

	listener net.Listener
	wg       sync.WaitGroup
	conns    map[net.Conn]struct{}
	closed   bool
}

// New creates a server serving exports.
func New(exports ...Export) *Server {
	s := &Server{
		exports: make(map[string]Export),
		conns:   make(map[net.Conn]struct{}),
	}
	for _, export := range exports {
		s.AddExport(export)
	}
	return s
}

// AddExport adds or replaces an export.
func (s *Server) AddExport(export Export) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exports[export.Path]; !ok {
		s.order = append(s.order, export.Path)
	}
	s.exports[export.Path] = export
}

// SetIntercept installs (or with nil removes) a reply interceptor.
func (s *Server) SetIntercept(fn InterceptFunc) {
	s.mu.Lock()
	s.intercept = fn
	s.mu.Unlock()
}

// Calls returns the number of calls received so far.
func (s *Server) Calls() int {
	return int(s.calls.Load())
}

// Mounts returns the server's current mount list.
func (s *Server) Mounts() []mount.DumpEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mount.DumpEntry(nil), s.mounts...)
}

// Start listens on a random loopback TCP port.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.ServeConn(context.Background(), conn)
			}()
		}
	}()

	return ln.Addr().String(), nil
}

// Close stops the listener and closes every open connection.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.wg.Wait()
	return err
}

// ServeConn answers calls on conn until the peer hangs up, an I/O error
// occurs or ctx is done.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	clientAddr := "pipe"
	if ra := conn.RemoteAddr(); ra != nil {
		clientAddr = ra.String()
	}
	host := clientAddr
	if h, _, err := net.SplitHostPort(clientAddr); err == nil {
		host = h
	}

	dec := rpc.NewRecordDecoder(0)
	chunk := make([]byte, 4096)

	for ctx.Err() == nil {
		message, err := rpc.ReadRecord(conn, dec, chunk)
		if err != nil {
			var connErr *rpc.ConnectionError
			if !errors.As(err, &connErr) {
				logger.Debug("mountdtest: bad record from %s: %v", clientAddr, err)
			}
			return
		}

		call, err := rpc.ReadCall(message)
		if err != nil {
			logger.Debug("mountdtest: error parsing RPC call: %v", err)
			return
		}
		args, err := rpc.ReadData(message, call)
		if err != nil {
			return
		}
		s.calls.Add(1)

		logger.Debug("mountdtest: RPC Call: XID=0x%x Program=%d Version=%d Procedure=%d",
			call.XID, call.Program, call.Version, call.Procedure)

		resp, err := s.handle(call, args, host)
		if err != nil {
			logger.Debug("mountdtest: %v", err)
			return
		}
		if len(resp.Raw) > 0 {
			if _, err := conn.Write(resp.Raw); err != nil {
				return
			}
		}
		if resp.Hangup {
			return
		}
	}
}

func (s *Server) handle(call *rpc.CallMessage, args []byte, host string) (*Response, error) {
	s.mu.Lock()
	intercept := s.intercept
	s.mu.Unlock()

	if intercept != nil {
		if resp := intercept(call, args); resp != nil {
			return resp, nil
		}
	}

	reply, err := s.reply(call, args, host)
	if err != nil {
		return nil, err
	}
	return &Response{Raw: reply}, nil
}

func (s *Server) reply(call *rpc.CallMessage, args []byte, host string) ([]byte, error) {
	if call.RPCVersion != rpc.RPCVersion {
		return rpc.MakeDeniedReply(call.XID, rpc.RejectedReply{
			Stat:     rpc.RPCMismatch,
			Mismatch: &rpc.VersionRange{Low: rpc.RPCVersion, High: rpc.RPCVersion},
		})
	}
	if call.Program != mount.Program {
		return rpc.MakeErrorReply(call.XID, rpc.ProgUnavail, nil)
	}
	if call.Version != mount.Version {
		return rpc.MakeErrorReply(call.XID, rpc.ProgMismatch, &rpc.VersionRange{Low: mount.Version, High: mount.Version})
	}

	var result xdr.Encodable
	switch mount.Procedure(call.Procedure) {
	case mount.ProcNull:
		result = xdr.Void{}

	case mount.ProcMnt:
		path, _, err := xdr.Unmarshal[mount.DirPath](args)
		if err != nil {
			return rpc.MakeErrorReply(call.XID, rpc.GarbageArgs, nil)
		}
		result = s.mnt(string(path), host)

	case mount.ProcUmnt:
		path, _, err := xdr.Unmarshal[mount.DirPath](args)
		if err != nil {
			return rpc.MakeErrorReply(call.XID, rpc.GarbageArgs, nil)
		}
		s.umnt(string(path), host)
		result = xdr.Void{}

	case mount.ProcUmntAll:
		s.umntAll(host)
		result = xdr.Void{}

	case mount.ProcDump:
		result = mount.MountList(s.Mounts())

	case mount.ProcExport:
		result = s.exportList()

	default:
		return rpc.MakeErrorReply(call.XID, rpc.ProcUnavail, nil)
	}

	body, err := xdr.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", mount.Procedure(call.Procedure), err)
	}
	return rpc.MakeSuccessReply(call.XID, body)
}

func (s *Server) mnt(path, host string) mount.MountReply {
	s.mu.Lock()
	defer s.mu.Unlock()

	export, ok := s.exports[path]
	if !ok {
		return mount.MountReply{Status: mount.ErrNoEnt}
	}
	if export.Status != mount.OK {
		return mount.MountReply{Status: export.Status}
	}

	s.mounts = append(s.mounts, mount.DumpEntry{Hostname: host, Directory: path})
	flavors := export.Flavors
	if flavors == nil {
		flavors = []rpc.AuthFlavor{rpc.AuthNone}
	}
	return mount.MountReply{
		Status: mount.OK,
		Result: mount.MountResult{Handle: export.Handle, AuthFlavors: flavors},
	}
}

func (s *Server) umnt(path, host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.mounts[:0]
	for _, m := range s.mounts {
		if m.Hostname != host || m.Directory != path {
			kept = append(kept, m)
		}
	}
	s.mounts = kept
}

func (s *Server) umntAll(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.mounts[:0]
	for _, m := range s.mounts {
		if m.Hostname != host {
			kept = append(kept, m)
		}
	}
	s.mounts = kept
}

func (s *Server) exportList() mount.Exports {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make(mount.Exports, 0, len(s.order))
	for _, path := range s.order {
		export := s.exports[path]
		list = append(list, mount.ExportEntry{Directory: export.Path, Groups: export.Groups})
	}
	return list
}
