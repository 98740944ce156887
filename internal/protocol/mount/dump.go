package mount

import (
	"context"

	"github.com/marmos91/dittomount/internal/protocol/rpc"
	"github.com/marmos91/dittomount/internal/protocol/xdr"
)

// DumpEntry represents a single mount entry in the DUMP response.
// This structure corresponds to the "mountbody" type in RFC 1813 Appendix I.
type DumpEntry struct {
	// Hostname is the name or address of the client that mounted the filesystem
	// Example: "192.168.1.100" or "client.example.com"
	Hostname string

	// Directory is the path on the server that was mounted
	// Example: "/export" or "/data/shared"
	Directory string
}

func encodeDumpEntry(e *xdr.Encoder, entry DumpEntry) error {
	if err := e.StringMax(entry.Hostname, MaxNameLen); err != nil {
		return err
	}
	return DirPath(entry.Directory).EncodeXDR(e)
}

func decodeDumpEntry(d *xdr.Decoder) (DumpEntry, error) {
	hostname, err := d.StringMax(MaxNameLen)
	if err != nil {
		return DumpEntry{}, err
	}
	var dir DirPath
	if err := dir.DecodeXDR(d); err != nil {
		return DumpEntry{}, err
	}
	return DumpEntry{Hostname: hostname, Directory: string(dir)}, nil
}

// MountList is the DUMP result: a linked list of mountbody entries.
//
// The response format follows the XDR specification for a linked list,
// where each entry is preceded by a boolean indicating it is present.
//
//	struct mountbody {
//	    name       ml_hostname;
//	    dirpath    ml_directory;
//	    mountlist  ml_next;
//	};
type MountList []DumpEntry

func (l MountList) EncodeXDR(e *xdr.Encoder) error {
	return xdr.EncodeList(e, l, encodeDumpEntry)
}

func (l *MountList) DecodeXDR(d *xdr.Decoder) error {
	entries, err := xdr.DecodeList(d, decodeDumpEntry)
	if err != nil {
		return err
	}
	*l = entries
	return nil
}

// Dump returns the server's list of active mounts (hostname, directory).
//
// The list is informational: servers only learn about mounts through MNT and
// UMNT and commonly keep stale entries after clients disappear.
// RFC 1813 Appendix I
func Dump(ctx context.Context, client *rpc.Client) ([]DumpEntry, error) {
	list, err := rpc.Call[MountList](ctx, client, Program, Version, uint32(ProcDump), xdr.Void{})
	if err != nil {
		return nil, err
	}
	return list, nil
}
