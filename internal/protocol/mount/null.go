package mount

import (
	"context"

	"github.com/marmos91/dittomount/internal/protocol/rpc"
	"github.com/marmos91/dittomount/internal/protocol/xdr"
)

// Null calls procedure 0, which does nothing. It is used to check that the
// server is up and speaks MOUNT v3.
// RFC 1813 Appendix I
func Null(ctx context.Context, client *rpc.Client) error {
	_, err := rpc.Call[xdr.Void](ctx, client, Program, Version, uint32(ProcNull), xdr.Void{})
	return err
}
