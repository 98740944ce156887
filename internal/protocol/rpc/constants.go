package rpc

import "fmt"

// RPCVersion is the only ONC RPC protocol version (RFC 5531).
const RPCVersion = 2

// MsgType distinguishes calls from replies.
//
// Reference: RFC 5531 Section 9 (RPC Message Protocol)
type MsgType uint32

const (
	// MsgCall is a request from the client to the server.
	MsgCall MsgType = 0

	// MsgReply is the server's answer, carrying the XID of the call.
	MsgReply MsgType = 1
)

func (t MsgType) Valid() bool { return t == MsgCall || t == MsgReply }

func (t MsgType) String() string {
	switch t {
	case MsgCall:
		return "CALL"
	case MsgReply:
		return "REPLY"
	default:
		return fmt.Sprintf("MsgType(%d)", uint32(t))
	}
}

// ReplyStat is the discriminant of a reply: accepted or denied.
type ReplyStat uint32

const (
	// MsgAccepted means the server recognized program and version and tried
	// to run the procedure. AcceptStat says how that went.
	MsgAccepted ReplyStat = 0

	// MsgDenied means the server rejected the call before running it
	// (RPC version mismatch or authentication failure).
	MsgDenied ReplyStat = 1
)

func (s ReplyStat) Valid() bool { return s == MsgAccepted || s == MsgDenied }

func (s ReplyStat) String() string {
	switch s {
	case MsgAccepted:
		return "MSG_ACCEPTED"
	case MsgDenied:
		return "MSG_DENIED"
	default:
		return fmt.Sprintf("ReplyStat(%d)", uint32(s))
	}
}

// AcceptStat is the outcome of an accepted call.
type AcceptStat uint32

const (
	// Success: the procedure ran and its results follow.
	Success AcceptStat = 0

	// ProgUnavail: the program is not exported by the server.
	ProgUnavail AcceptStat = 1

	// ProgMismatch: the program version is not supported; the reply carries
	// the lowest and highest supported versions.
	ProgMismatch AcceptStat = 2

	// ProcUnavail: the procedure number is unknown to the program.
	ProcUnavail AcceptStat = 3

	// GarbageArgs: the server could not decode the arguments.
	GarbageArgs AcceptStat = 4

	// SystemErr: e.g. memory allocation failure on the server.
	SystemErr AcceptStat = 5
)

func (s AcceptStat) Valid() bool { return s <= SystemErr }

func (s AcceptStat) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case ProgUnavail:
		return "PROG_UNAVAIL"
	case ProgMismatch:
		return "PROG_MISMATCH"
	case ProcUnavail:
		return "PROC_UNAVAIL"
	case GarbageArgs:
		return "GARBAGE_ARGS"
	case SystemErr:
		return "SYSTEM_ERR"
	default:
		return fmt.Sprintf("AcceptStat(%d)", uint32(s))
	}
}

// RejectStat is the reason a call was denied.
type RejectStat uint32

const (
	// RPCMismatch: RPC version is not 2; the reply carries the supported range.
	RPCMismatch RejectStat = 0

	// AuthError: the credentials were refused; the reply carries an AuthStat.
	AuthError RejectStat = 1
)

func (s RejectStat) Valid() bool { return s == RPCMismatch || s == AuthError }

func (s RejectStat) String() string {
	switch s {
	case RPCMismatch:
		return "RPC_MISMATCH"
	case AuthError:
		return "AUTH_ERROR"
	default:
		return fmt.Sprintf("RejectStat(%d)", uint32(s))
	}
}

// AuthStat explains an AUTH_ERROR rejection.
type AuthStat uint32

const (
	AuthOK               AuthStat = 0
	AuthBadCred          AuthStat = 1
	AuthRejectedCred     AuthStat = 2
	AuthBadVerf          AuthStat = 3
	AuthRejectedVerf     AuthStat = 4
	AuthTooWeak          AuthStat = 5
	AuthInvalidResp      AuthStat = 6
	AuthFailed           AuthStat = 7
	AuthKerbGeneric      AuthStat = 8
	AuthTimeExpire       AuthStat = 9
	AuthTktFile          AuthStat = 10
	AuthDecode           AuthStat = 11
	AuthNetAddr          AuthStat = 12
	RPCSecGSSCredProblem AuthStat = 13
	RPCSecGSSCtxProblem  AuthStat = 14
)

func (s AuthStat) Valid() bool { return s <= RPCSecGSSCtxProblem }

func (s AuthStat) String() string {
	names := [...]string{
		"AUTH_OK", "AUTH_BADCRED", "AUTH_REJECTEDCRED", "AUTH_BADVERF", "AUTH_REJECTEDVERF",
		"AUTH_TOOWEAK", "AUTH_INVALIDRESP", "AUTH_FAILED", "AUTH_KERB_GENERIC", "AUTH_TIMEEXPIRE",
		"AUTH_TKTFILE", "AUTH_DECODE", "AUTH_NET_ADDR", "RPCSEC_GSS_CREDPROBLEM", "RPCSEC_GSS_CTXPROBLEM",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return fmt.Sprintf("AuthStat(%d)", uint32(s))
}

// AuthFlavor identifies an authentication scheme (RFC 5531 Section 8.2).
//
// Only the identifiers are modeled; AUTH_SYS is the one flavor this client
// can also produce credentials for (see UnixAuth).
type AuthFlavor uint32

const (
	// AuthNone carries no credentials (also known as AUTH_NULL).
	AuthNone AuthFlavor = 0

	// AuthSys carries Unix uid/gid credentials (also known as AUTH_UNIX).
	AuthSys AuthFlavor = 1

	// AuthShort is a server-issued shorthand for a previous AUTH_SYS credential.
	AuthShort AuthFlavor = 2

	// AuthDH is Diffie-Hellman authentication (formerly AUTH_DES).
	AuthDH AuthFlavor = 3

	// RPCSecGSS is RPCSEC_GSS (RFC 2203).
	RPCSecGSS AuthFlavor = 6

	// Kerberos pseudo-flavors advertised by mountd (RFC 2623 Section 2.2).
	AuthKrb5  AuthFlavor = 390003
	AuthKrb5i AuthFlavor = 390004
	AuthKrb5p AuthFlavor = 390005
)

func (f AuthFlavor) Valid() bool {
	switch f {
	case AuthNone, AuthSys, AuthShort, AuthDH, RPCSecGSS, AuthKrb5, AuthKrb5i, AuthKrb5p:
		return true
	}
	return false
}

func (f AuthFlavor) String() string {
	switch f {
	case AuthNone:
		return "AUTH_NONE"
	case AuthSys:
		return "AUTH_SYS"
	case AuthShort:
		return "AUTH_SHORT"
	case AuthDH:
		return "AUTH_DH"
	case RPCSecGSS:
		return "RPCSEC_GSS"
	case AuthKrb5:
		return "KRB5"
	case AuthKrb5i:
		return "KRB5I"
	case AuthKrb5p:
		return "KRB5P"
	default:
		return fmt.Sprintf("AuthFlavor(%d)", uint32(f))
	}
}

// MaxAuthBytes bounds the body of an opaque_auth (RFC 5531 Section 8.2).
const MaxAuthBytes = 400
