package mount

import "fmt"

// Program and version of the MOUNT protocol (RFC 1813 Appendix I).
const (
	Program uint32 = 100005
	Version uint32 = 3
)

// Protocol limits (RFC 1813 Appendix I).
const (
	// MaxPathLen is MNTPATHLEN: maximum bytes in a dirpath.
	MaxPathLen = 1024

	// MaxNameLen is MNTNAMLEN: maximum bytes in a name (hostname, group).
	MaxNameLen = 255
)

// Procedure is a MOUNT procedure number.
type Procedure uint32

// Mount Protocol Procedure Numbers
// These identify the different Mount operations as defined in RFC 1813 Appendix I.
const (
	// ProcNull - Do nothing (connectivity test)
	ProcNull Procedure = 0

	// ProcMnt - Add mount entry, returns the root file handle
	ProcMnt Procedure = 1

	// ProcDump - Return mount entries
	ProcDump Procedure = 2

	// ProcUmnt - Remove mount entry
	ProcUmnt Procedure = 3

	// ProcUmntAll - Remove all mount entries of the caller
	ProcUmntAll Procedure = 4

	// ProcExport - Return export list
	ProcExport Procedure = 5
)

func (p Procedure) Valid() bool { return p <= ProcExport }

func (p Procedure) String() string {
	switch p {
	case ProcNull:
		return "NULL"
	case ProcMnt:
		return "MNT"
	case ProcDump:
		return "DUMP"
	case ProcUmnt:
		return "UMNT"
	case ProcUmntAll:
		return "UMNTALL"
	case ProcExport:
		return "EXPORT"
	default:
		return fmt.Sprintf("Procedure(%d)", uint32(p))
	}
}

// Status is mountstat3, the outcome of an MNT call.
type Status uint32

// Mount Status Codes
// These are the error codes that can be returned by the MNT procedure.
const (
	// OK - Success
	OK Status = 0

	// ErrPerm - Not owner
	ErrPerm Status = 1

	// ErrNoEnt - No such file or directory
	ErrNoEnt Status = 2

	// ErrIO - I/O error
	ErrIO Status = 5

	// ErrAccess - Permission denied
	ErrAccess Status = 13

	// ErrNotDir - Not a directory
	ErrNotDir Status = 20

	// ErrInval - Invalid argument
	ErrInval Status = 22

	// ErrNameTooLong - Filename too long
	ErrNameTooLong Status = 63

	// ErrNotSupp - Operation not supported
	ErrNotSupp Status = 10004

	// ErrServerFault - Server fault
	ErrServerFault Status = 10006
)

func (s Status) Valid() bool {
	switch s {
	case OK, ErrPerm, ErrNoEnt, ErrIO, ErrAccess, ErrNotDir,
		ErrInval, ErrNameTooLong, ErrNotSupp, ErrServerFault:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case OK:
		return "MNT3_OK"
	case ErrPerm:
		return "MNT3ERR_PERM"
	case ErrNoEnt:
		return "MNT3ERR_NOENT"
	case ErrIO:
		return "MNT3ERR_IO"
	case ErrAccess:
		return "MNT3ERR_ACCES"
	case ErrNotDir:
		return "MNT3ERR_NOTDIR"
	case ErrInval:
		return "MNT3ERR_INVAL"
	case ErrNameTooLong:
		return "MNT3ERR_NAMETOOLONG"
	case ErrNotSupp:
		return "MNT3ERR_NOTSUPP"
	case ErrServerFault:
		return "MNT3ERR_SERVERFAULT"
	default:
		return fmt.Sprintf("Status(%d)", uint32(s))
	}
}
