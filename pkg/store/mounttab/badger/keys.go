package badger

// Key Namespace
// =============
//
// Prefix   Key Format                    Value Type
// ==================================================
// "mnt:"   mnt:<server>:<export path>    mounttab.Entry (JSON)
//
// Servers are host:port strings and contain ':' themselves, so a prefix
// scan over "mnt:<server>:" can also match a longer server name sharing the
// same prefix. Scans therefore re-check Entry.Server after decoding.

const prefixMount = "mnt:"

func keyMount(server, path string) []byte {
	return []byte(prefixMount + server + ":" + path)
}

func keyServerPrefix(server string) []byte {
	if server == "" {
		return []byte(prefixMount)
	}
	return []byte(prefixMount + server + ":")
}
