package rpc

import (
	"bytes"
	"fmt"

	"github.com/marmos91/dittomount/internal/protocol/xdr"
	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// Marshal encodes the call header followed by the procedure arguments.
// The header goes through go-xdr reflection, the arguments through their
// own EncodeXDR.
func (m *CallMessage) Marshal(args xdr.Encodable) ([]byte, error) {
	var buf bytes.Buffer

	if _, err := xdr2.Marshal(&buf, m); err != nil {
		return nil, &xdr.EncodeError{What: "call header", Reason: err.Error()}
	}
	if args != nil {
		if err := args.EncodeXDR(xdr.NewEncoder(&buf)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// headerLen is the encoded size of the call header, credentials included.
func (m *CallMessage) headerLen() int {
	authLen := func(a OpaqueAuth) int {
		n := uint32(len(a.Body))
		return 8 + int(n+xdr.Padding(n))
	}
	return 6*4 + authLen(m.Cred) + authLen(m.Verf)
}

// ============================================================================
// Server side
// ============================================================================
//
// The helpers below parse calls and build replies. The client never needs
// them; they back the in-process test server and anyone embedding a
// minimal responder.

// ReadCall parses the call header of a reassembled message.
func ReadCall(data []byte) (*CallMessage, error) {
	call := &CallMessage{}
	if _, err := xdr2.Unmarshal(bytes.NewReader(data), call); err != nil {
		return nil, fmt.Errorf("unmarshal RPC call: %w", err)
	}

	if call.MsgType != uint32(MsgCall) {
		return nil, fmt.Errorf("expected CALL (0), got %d", call.MsgType)
	}
	if len(call.Cred.Body) > MaxAuthBytes || len(call.Verf.Body) > MaxAuthBytes {
		return nil, fmt.Errorf("credential body exceeds %d bytes", MaxAuthBytes)
	}

	return call, nil
}

// ReadData returns the procedure arguments that follow the header of call.
func ReadData(message []byte, call *CallMessage) ([]byte, error) {
	offset := call.headerLen()
	if offset > len(message) {
		return nil, fmt.Errorf("message of %d bytes shorter than its %d byte header", len(message), offset)
	}
	return message[offset:], nil
}

// MakeSuccessReply builds a record-marked MSG_ACCEPTED/SUCCESS reply
// carrying the already encoded results in data.
func MakeSuccessReply(xid uint32, data []byte) ([]byte, error) {
	return makeReply(ReplyHeader{
		XID:      xid,
		Stat:     MsgAccepted,
		Accepted: &AcceptedReply{Verf: NoAuth(), Stat: Success},
	}, data)
}

// MakeErrorReply builds a record-marked MSG_ACCEPTED reply with a non-success
// status. mismatch must be set for ProgMismatch and is ignored otherwise.
func MakeErrorReply(xid uint32, stat AcceptStat, mismatch *VersionRange) ([]byte, error) {
	return makeReply(ReplyHeader{
		XID:      xid,
		Stat:     MsgAccepted,
		Accepted: &AcceptedReply{Verf: NoAuth(), Stat: stat, Mismatch: mismatch},
	}, nil)
}

// MakeDeniedReply builds a record-marked MSG_DENIED reply.
func MakeDeniedReply(xid uint32, rejected RejectedReply) ([]byte, error) {
	return makeReply(ReplyHeader{
		XID:      xid,
		Stat:     MsgDenied,
		Rejected: &rejected,
	}, nil)
}

func makeReply(header ReplyHeader, data []byte) ([]byte, error) {
	var buf bytes.Buffer

	if err := header.EncodeXDR(xdr.NewEncoder(&buf)); err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}
	buf.Write(data)

	return EncodeRecord(buf.Bytes())
}
