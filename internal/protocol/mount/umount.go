package mount

import (
	"context"

	"github.com/marmos91/dittomount/internal/protocol/rpc"
	"github.com/marmos91/dittomount/internal/protocol/xdr"
)

// Umount removes the caller's entry for path from the server's mount list.
//
// UMNT returns void: the server reports nothing even if path was never
// mounted. The client is responsible for actually unmounting on its side.
// RFC 1813 Appendix I
func Umount(ctx context.Context, client *rpc.Client, path string) error {
	_, err := rpc.Call[xdr.Void](ctx, client, Program, Version, uint32(ProcUmnt), DirPath(path))
	return err
}
