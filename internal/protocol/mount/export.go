package mount

import (
	"context"

	"github.com/marmos91/dittomount/internal/protocol/rpc"
	"github.com/marmos91/dittomount/internal/protocol/xdr"
)

// ExportEntry represents a single export entry in the EXPORT response.
// This structure corresponds to the "exportnode" type in RFC 1813 Appendix I.
type ExportEntry struct {
	// Directory is the path on the server that can be mounted
	// This is the path clients will use in the MNT procedure
	Directory string

	// Groups is a list of host groups or client names allowed to mount this export
	// If empty, the export is available to all clients (world-exportable)
	// Example: ["client1.example.com", "192.168.1.0/24", "@engineering"]
	Groups []string
}

func encodeGroup(e *xdr.Encoder, name string) error {
	return e.StringMax(name, MaxNameLen)
}

func decodeGroup(d *xdr.Decoder) (string, error) {
	return d.StringMax(MaxNameLen)
}

func encodeExportEntry(e *xdr.Encoder, entry ExportEntry) error {
	if err := DirPath(entry.Directory).EncodeXDR(e); err != nil {
		return err
	}
	return xdr.EncodeList(e, entry.Groups, encodeGroup)
}

func decodeExportEntry(d *xdr.Decoder) (ExportEntry, error) {
	var dir DirPath
	if err := dir.DecodeXDR(d); err != nil {
		return ExportEntry{}, err
	}
	groups, err := xdr.DecodeList(d, decodeGroup)
	if err != nil {
		return ExportEntry{}, err
	}
	return ExportEntry{Directory: string(dir), Groups: groups}, nil
}

// Exports is the EXPORT result: a linked list of exportnode entries, each
// with its own linked list of group names.
//
//	struct exportnode {
//	    dirpath  ex_dir;
//	    groups   ex_groups;
//	    exports  ex_next;
//	};
type Exports []ExportEntry

func (x Exports) EncodeXDR(e *xdr.Encoder) error {
	return xdr.EncodeList(e, x, encodeExportEntry)
}

func (x *Exports) DecodeXDR(d *xdr.Decoder) error {
	entries, err := xdr.DecodeList(d, decodeExportEntry)
	if err != nil {
		return err
	}
	*x = entries
	return nil
}

// Export returns every filesystem the server exports.
//
// EXPORT returns all configured exports regardless of access permissions:
// clients may not be allowed to mount all listed exports. Mount access
// control is enforced by MNT.
// RFC 1813 Appendix I
func Export(ctx context.Context, client *rpc.Client) ([]ExportEntry, error) {
	exports, err := rpc.Call[Exports](ctx, client, Program, Version, uint32(ProcExport), xdr.Void{})
	if err != nil {
		return nil, err
	}
	return exports, nil
}
