package mountclient

import (
	"fmt"
	"os"
	"time"

	"github.com/marmos91/dittomount/internal/protocol/rpc"
)

// Config configures a Client. It is embedded as the "client" section of the
// configuration file.
type Config struct {
	// Server is the mountd address as host:port.
	// Default: localhost:2049
	Server string `mapstructure:"server" yaml:"server" validate:"required,hostname_port"`

	// DialTimeout bounds connection establishment.
	// Default: 5s
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout" validate:"required,gt=0"`

	// CallTimeout bounds each call, from sending the request to decoding the
	// reply. A call that times out leaves the connection unusable; the next
	// call dials again.
	// 0 means no timeout besides the caller's context.
	// Default: 30s
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout" validate:"min=0"`

	// MaxRecordSize is the largest reply accepted, in bytes.
	// Default: 1048576 (1MB)
	MaxRecordSize int `mapstructure:"max_record_size" yaml:"max_record_size" validate:"min=0"`

	// ReadChunkSize is the size of each socket read.
	// Default: 4096
	ReadChunkSize int `mapstructure:"read_chunk_size" yaml:"read_chunk_size" validate:"min=0"`

	// RateLimit throttles outgoing calls.
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`

	// Auth selects the credential sent with every call.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`
}

// RateLimitConfig is a token bucket. CallsPerSecond 0 disables limiting.
type RateLimitConfig struct {
	CallsPerSecond float64 `mapstructure:"calls_per_second" yaml:"calls_per_second" validate:"min=0"`
	Burst          int     `mapstructure:"burst" yaml:"burst" validate:"min=0"`
}

// AuthConfig selects the call credential.
type AuthConfig struct {
	// Flavor is "none" (AUTH_NONE) or "unix" (AUTH_SYS).
	// Default: none
	Flavor string `mapstructure:"flavor" yaml:"flavor" validate:"required,oneof=none unix"`

	// The fields below are only used with the unix flavor.
	// MachineName defaults to the local hostname.
	MachineName string   `mapstructure:"machine_name" yaml:"machine_name" validate:"max=255"`
	UID         uint32   `mapstructure:"uid" yaml:"uid"`
	GID         uint32   `mapstructure:"gid" yaml:"gid"`
	GIDs        []uint32 `mapstructure:"gids" yaml:"gids" validate:"max=16"`
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Server == "" {
		c.Server = "localhost:2049"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.MaxRecordSize == 0 {
		c.MaxRecordSize = rpc.DefaultMaxRecordSize
	}
	if c.ReadChunkSize == 0 {
		c.ReadChunkSize = 4096
	}
	if c.Auth.Flavor == "" {
		c.Auth.Flavor = "none"
	}
}

// credential builds the opaque_auth sent as the call credential.
func (a AuthConfig) credential() (rpc.OpaqueAuth, error) {
	switch a.Flavor {
	case "", "none":
		return rpc.NoAuth(), nil
	case "unix":
		machine := a.MachineName
		if machine == "" {
			machine, _ = os.Hostname()
		}
		cred, err := rpc.UnixAuth{
			Stamp:       uint32(time.Now().Unix()),
			MachineName: machine,
			UID:         a.UID,
			GID:         a.GID,
			GIDs:        a.GIDs,
		}.Credential()
		if err != nil {
			return rpc.OpaqueAuth{}, fmt.Errorf("build AUTH_SYS credential: %w", err)
		}
		return cred, nil
	default:
		return rpc.OpaqueAuth{}, fmt.Errorf("unknown auth flavor %q", a.Flavor)
	}
}
