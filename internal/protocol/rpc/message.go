package rpc

import (
	"github.com/marmos91/dittomount/internal/protocol/xdr"
)

// CallMessage is the header of every RPC call sent by the client.
//
// Wire Format (XDR encoding):
//   - XID:        4 bytes (transaction identifier)
//   - MsgType:    4 bytes (must be 0 for CALL)
//   - RPCVersion: 4 bytes (must be 2)
//   - Program:    4 bytes (program number)
//   - Version:    4 bytes (program version)
//   - Procedure:  4 bytes (procedure number within program)
//   - Cred:       variable (authentication credentials)
//   - Verf:       variable (authentication verifier)
//   - [procedure-specific arguments follow]
//
// The fields are plain uint32 so the header can be (un)marshalled by
// reflection with go-xdr, the same way the server side parses it.
//
// Reference: RFC 5531 Section 9
type CallMessage struct {
	// XID is echoed back by the server and lets the client pair the reply
	// with this call.
	XID uint32

	// MsgType is always 0 (MsgCall) for calls.
	MsgType uint32

	// RPCVersion is always 2.
	RPCVersion uint32

	// Program, Version and Procedure route the call on the server.
	Program   uint32
	Version   uint32
	Procedure uint32

	// Cred identifies the caller; Verf is the caller's verifier.
	// Both are AUTH_NONE with an empty body unless configured otherwise.
	Cred OpaqueAuth
	Verf OpaqueAuth
}

// OpaqueAuth is an authentication credential or verifier: a flavor plus a
// flavor-specific body the RPC layer does not interpret.
//
// Reference: RFC 5531 Section 8.2
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte `xdr:"opaque"`
}

// NoAuth is the AUTH_NONE credential/verifier: flavor 0, empty body.
func NoAuth() OpaqueAuth {
	return OpaqueAuth{Flavor: uint32(AuthNone), Body: []byte{}}
}

func (a OpaqueAuth) EncodeXDR(e *xdr.Encoder) error {
	e.Uint32(a.Flavor)
	return e.OpaqueMax(a.Body, MaxAuthBytes)
}

func (a *OpaqueAuth) DecodeXDR(d *xdr.Decoder) error {
	var err error
	if a.Flavor, err = d.Uint32(); err != nil {
		return err
	}
	a.Body, err = d.OpaqueMax(MaxAuthBytes)
	return err
}

// UnixAuth is the body of an AUTH_SYS credential.
//
//	struct authsys_parms {
//	    unsigned int stamp;
//	    string machinename<255>;
//	    unsigned int uid;
//	    unsigned int gid;
//	    unsigned int gids<16>;
//	};
type UnixAuth struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

const (
	maxMachineName = 255
	maxUnixGIDs    = 16
)

func (u UnixAuth) EncodeXDR(e *xdr.Encoder) error {
	e.Uint32(u.Stamp)
	if err := e.StringMax(u.MachineName, maxMachineName); err != nil {
		return err
	}
	e.Uint32(u.UID)
	e.Uint32(u.GID)
	if len(u.GIDs) > maxUnixGIDs {
		return &xdr.EncodeError{What: "authsys_parms", Reason: "more than 16 supplementary groups"}
	}
	return xdr.Uint32s(u.GIDs).EncodeXDR(e)
}

func (u *UnixAuth) DecodeXDR(d *xdr.Decoder) error {
	var err error
	if u.Stamp, err = d.Uint32(); err != nil {
		return err
	}
	if u.MachineName, err = d.StringMax(maxMachineName); err != nil {
		return err
	}
	if u.UID, err = d.Uint32(); err != nil {
		return err
	}
	if u.GID, err = d.Uint32(); err != nil {
		return err
	}
	var gids xdr.Uint32s
	if err := gids.DecodeXDR(d); err != nil {
		return err
	}
	u.GIDs = gids
	return nil
}

// Credential wraps the AUTH_SYS body in an OpaqueAuth.
func (u UnixAuth) Credential() (OpaqueAuth, error) {
	body, err := xdr.Marshal(u)
	if err != nil {
		return OpaqueAuth{}, err
	}
	return OpaqueAuth{Flavor: uint32(AuthSys), Body: body}, nil
}

// ============================================================================
// Reply
// ============================================================================

// VersionRange is the [Low, High] range a server reports on a version
// mismatch (RPC_MISMATCH or PROG_MISMATCH).
type VersionRange struct {
	Low  uint32
	High uint32
}

// AcceptedReply is the MSG_ACCEPTED arm of a reply.
type AcceptedReply struct {
	Verf OpaqueAuth
	Stat AcceptStat

	// Mismatch is set only when Stat is ProgMismatch.
	Mismatch *VersionRange
}

// RejectedReply is the MSG_DENIED arm of a reply.
type RejectedReply struct {
	Stat RejectStat

	// Mismatch is set only when Stat is RPCMismatch.
	Mismatch *VersionRange

	// AuthStat is meaningful only when Stat is AuthError.
	AuthStat AuthStat
}

// ReplyHeader is a decoded reply header: a tagged variant on Stat where
// exactly one of Accepted or Rejected is set. Procedure results follow the
// header only when Accepted.Stat is Success.
//
// Wire Format:
//   - XID:        4 bytes
//   - MsgType:    4 bytes (must be 1 for REPLY)
//   - ReplyStat:  4 bytes (0=MSG_ACCEPTED, 1=MSG_DENIED)
//   - [accepted]  Verf, AcceptStat[, low, high]
//   - [denied]    RejectStat, (low, high | AuthStat)
type ReplyHeader struct {
	XID      uint32
	Stat     ReplyStat
	Accepted *AcceptedReply
	Rejected *RejectedReply
}

// Succeeded reports whether results follow the header.
func (h *ReplyHeader) Succeeded() bool {
	return h.Stat == MsgAccepted && h.Accepted != nil && h.Accepted.Stat == Success
}

// StatusError returns nil for a successful reply and a *ReplyStatusError
// describing the outcome otherwise.
func (h *ReplyHeader) StatusError() error {
	if h.Succeeded() {
		return nil
	}
	err := &ReplyStatusError{XID: h.XID, Stat: h.Stat}
	if h.Accepted != nil {
		err.AcceptStat = h.Accepted.Stat
		err.Mismatch = h.Accepted.Mismatch
	}
	if h.Rejected != nil {
		err.RejectStat = h.Rejected.Stat
		err.AuthStat = h.Rejected.AuthStat
		err.Mismatch = h.Rejected.Mismatch
	}
	return err
}

func (h ReplyHeader) EncodeXDR(e *xdr.Encoder) error {
	e.Uint32(h.XID)
	e.Uint32(uint32(MsgReply))
	if err := xdr.EncodeEnum(e, h.Stat); err != nil {
		return err
	}

	switch h.Stat {
	case MsgAccepted:
		acc := h.Accepted
		if acc == nil {
			acc = &AcceptedReply{Verf: NoAuth(), Stat: Success}
		}
		if err := acc.Verf.EncodeXDR(e); err != nil {
			return err
		}
		if err := xdr.EncodeEnum(e, acc.Stat); err != nil {
			return err
		}
		if acc.Stat == ProgMismatch {
			return encodeRange(e, acc.Mismatch)
		}
	case MsgDenied:
		rej := h.Rejected
		if rej == nil {
			return &xdr.EncodeError{What: "rejected_reply", Reason: "missing rejection details"}
		}
		if err := xdr.EncodeEnum(e, rej.Stat); err != nil {
			return err
		}
		switch rej.Stat {
		case RPCMismatch:
			return encodeRange(e, rej.Mismatch)
		case AuthError:
			return xdr.EncodeEnum(e, rej.AuthStat)
		}
	}
	return nil
}

func (h *ReplyHeader) DecodeXDR(d *xdr.Decoder) error {
	var err error
	if h.XID, err = d.Uint32(); err != nil {
		return err
	}

	typeOffset := d.Offset()
	msgType, err := xdr.DecodeEnum[MsgType](d)
	if err != nil {
		return err
	}
	if msgType != MsgReply {
		return &xdr.DecodeError{What: "msg_type", Offset: typeOffset, Reason: "expected REPLY, got " + msgType.String()}
	}

	if h.Stat, err = xdr.DecodeEnum[ReplyStat](d); err != nil {
		return err
	}

	switch h.Stat {
	case MsgAccepted:
		acc := &AcceptedReply{}
		if err := acc.Verf.DecodeXDR(d); err != nil {
			return err
		}
		if acc.Stat, err = xdr.DecodeEnum[AcceptStat](d); err != nil {
			return err
		}
		if acc.Stat == ProgMismatch {
			if acc.Mismatch, err = decodeRange(d); err != nil {
				return err
			}
		}
		h.Accepted = acc
	case MsgDenied:
		rej := &RejectedReply{}
		if rej.Stat, err = xdr.DecodeEnum[RejectStat](d); err != nil {
			return err
		}
		switch rej.Stat {
		case RPCMismatch:
			if rej.Mismatch, err = decodeRange(d); err != nil {
				return err
			}
		case AuthError:
			if rej.AuthStat, err = xdr.DecodeEnum[AuthStat](d); err != nil {
				return err
			}
		}
		h.Rejected = rej
	}
	return nil
}

func encodeRange(e *xdr.Encoder, r *VersionRange) error {
	if r == nil {
		return &xdr.EncodeError{What: "mismatch_info", Reason: "missing version range"}
	}
	e.Uint32(r.Low)
	e.Uint32(r.High)
	return nil
}

func decodeRange(d *xdr.Decoder) (*VersionRange, error) {
	low, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	high, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	return &VersionRange{Low: low, High: high}, nil
}
