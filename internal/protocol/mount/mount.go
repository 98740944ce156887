// Package mount is the client side of the NFS MOUNT protocol, version 3
// (RFC 1813 Appendix I).
//
// Every procedure is a thin function over rpc.Call: it names the program,
// version and procedure, and the argument/result types carry their own XDR
// encoding. Procedure-level failures (a non-OK mountstat3) are returned as
// *StatusError, which classifies as rpc.KindReplyStatus and leaves the
// connection usable.
package mount

import (
	"context"
	"fmt"
	"slices"

	"github.com/marmos91/dittomount/internal/protocol/rpc"
	"github.com/marmos91/dittomount/internal/protocol/xdr"
)

// DirPath is a server path as sent in MNT and UMNT (dirpath, at most
// MaxPathLen bytes).
type DirPath string

func (p DirPath) EncodeXDR(e *xdr.Encoder) error {
	if len(p) > MaxPathLen {
		return &xdr.EncodeError{What: "dirpath", Reason: fmt.Sprintf("%d bytes exceeds MNTPATHLEN (%d)", len(p), MaxPathLen)}
	}
	return e.StringMax(string(p), MaxPathLen)
}

func (p *DirPath) DecodeXDR(d *xdr.Decoder) error {
	s, err := d.StringMax(MaxPathLen)
	if err != nil {
		return err
	}
	*p = DirPath(s)
	return nil
}

// FileHandle is the root handle returned by MNT. This server family encodes
// it as an unsigned hyper (8 bytes on the wire).
type FileHandle uint64

func (h FileHandle) String() string {
	return fmt.Sprintf("0x%016x", uint64(h))
}

// MountResult is mountres3_ok: the root handle of the export and the
// authentication flavors the server accepts for it, in server order.
//
// Wire Format:
//   - Handle:      8 bytes
//   - Count:       4 bytes
//   - AuthFlavors: Count * 4 bytes
type MountResult struct {
	Handle      FileHandle
	AuthFlavors []rpc.AuthFlavor
}

// Equal reports whether both results carry the same handle and the same
// flavor list, element by element.
func (r MountResult) Equal(other MountResult) bool {
	return r.Handle == other.Handle && slices.Equal(r.AuthFlavors, other.AuthFlavors)
}

func (r MountResult) EncodeXDR(e *xdr.Encoder) error {
	e.Uint64(uint64(r.Handle))
	return xdr.EncodeSlice(e, r.AuthFlavors, xdr.EncodeEnum[rpc.AuthFlavor])
}

func (r *MountResult) DecodeXDR(d *xdr.Decoder) error {
	handle, err := d.Uint64()
	if err != nil {
		return err
	}
	flavors, err := xdr.DecodeSlice(d, xdr.DecodeEnum[rpc.AuthFlavor])
	if err != nil {
		return err
	}
	r.Handle = FileHandle(handle)
	r.AuthFlavors = flavors
	return nil
}

// MountReply is mountres3, the MNT result union:
//
//	union mountres3 switch (mountstat3 fhs_status) {
//	case MNT3_OK:
//	    mountres3_ok mountinfo;
//	default:
//	    void;
//	};
type MountReply struct {
	Status Status

	// Result is meaningful only when Status is OK.
	Result MountResult
}

func (r MountReply) EncodeXDR(e *xdr.Encoder) error {
	if err := xdr.EncodeEnum(e, r.Status); err != nil {
		return err
	}
	if r.Status == OK {
		return r.Result.EncodeXDR(e)
	}
	return nil
}

func (r *MountReply) DecodeXDR(d *xdr.Decoder) error {
	status, err := xdr.DecodeEnum[Status](d)
	if err != nil {
		return err
	}
	r.Status = status
	if status == OK {
		return r.Result.DecodeXDR(d)
	}
	return nil
}

// StatusError is a MOUNT procedure that completed with a non-OK mountstat3.
type StatusError struct {
	Procedure Procedure
	Status    Status
	Path      string
}

func (e *StatusError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("mount: %s %s: %s", e.Procedure, e.Path, e.Status)
	}
	return fmt.Sprintf("mount: %s: %s", e.Procedure, e.Status)
}

// Kind classifies the error for rpc.KindOf: a reply status, not fatal.
func (e *StatusError) Kind() rpc.ErrorKind { return rpc.KindReplyStatus }

// Mount calls MNT for path and returns the export's root handle and
// accepted auth flavors.
//
// Errors:
//   - *StatusError when the server answers with a status other than MNT3_OK
//     (e.g. MNT3ERR_ACCES)
//   - *xdr.EncodeError when path exceeds MaxPathLen; nothing is sent
//   - any error of rpc.Call
func Mount(ctx context.Context, client *rpc.Client, path string) (MountResult, error) {
	reply, err := rpc.Call[MountReply](ctx, client, Program, Version, uint32(ProcMnt), DirPath(path))
	if err != nil {
		return MountResult{}, err
	}
	if reply.Status != OK {
		return MountResult{}, &StatusError{Procedure: ProcMnt, Status: reply.Status, Path: path}
	}
	return reply.Result, nil
}
