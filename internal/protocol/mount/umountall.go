package mount

import (
	"context"

	"github.com/marmos91/dittomount/internal/protocol/rpc"
	"github.com/marmos91/dittomount/internal/protocol/xdr"
)

// UmountAll removes every mount list entry of the calling host.
//
// The server identifies the caller by address or credentials, not by
// connection, so entries created over other connections are removed too.
// RFC 1813 Appendix I
func UmountAll(ctx context.Context, client *rpc.Client) error {
	_, err := rpc.Call[xdr.Void](ctx, client, Program, Version, uint32(ProcUmntAll), xdr.Void{})
	return err
}
