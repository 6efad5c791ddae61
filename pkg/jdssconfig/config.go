// Package jdssconfig models the opaque, read-only configuration map the
// driver is handed per invocation.
package jdssconfig

import (
	"strconv"
	"strings"
)

// Recognized configuration keys.
const (
	KeySanHosts           = "san_hosts"
	KeySanAPIPort         = "san_api_port"
	KeyRESTProtocol       = "jovian_rest_protocol"
	KeySanLogin           = "san_login"
	KeySanPassword        = "san_password"
	KeyPool               = "jovian_pool"
	KeyTargetPrefix       = "target_prefix"
	KeyTargetPort         = "target_port"
	KeyThinProvision      = "san_thin_provision"
	KeyBlockSize          = "jovian_block_size"
	KeyCHAPPasswordLen    = "chap_password_len"
	KeyISCSIVIPAddresses  = "iscsi_vip_addresses"
	KeyNFSVIPAddresses    = "nfs_vip_addresses"
	KeyReservedPercentage = "reserved_percentage"
	KeySkipTLSVerify      = "skip_tls_verify"
	KeyLunsPerTarget      = "luns_per_target"
)

// Config is a typed read-only view over an opaque key/value map. It never
// mutates the map it wraps and never persists anything: the driver holds
// no long-lived state.
type Config struct {
	values map[string]string
}

// New wraps values. The map is not copied defensively; callers must treat
// it as immutable once wrapped, matching the "opaque read-only" contract.
func New(values map[string]string) Config {
	if values == nil {
		values = map[string]string{}
	}
	return Config{values: values}
}

// String returns the raw value for key, or def if absent or empty.
func (c Config) String(key, def string) string {
	if v, ok := c.values[key]; ok && v != "" {
		return v
	}
	return def
}

// Int parses the value for key as an integer, or returns def on absence or
// parse failure.
func (c Config) Int(key string, def int) int {
	v, ok := c.values[key]
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Bool parses the value for key as a boolean ("true"/"false"/"1"/"0"), or
// returns def on absence or parse failure.
func (c Config) Bool(key string, def bool) bool {
	v, ok := c.values[key]
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// StringSlice splits a comma-separated value for key, trimming whitespace
// around each element. Empty elements are dropped.
func (c Config) StringSlice(key string) []string {
	raw, ok := c.values[key]
	if !ok || raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Fallback values used when a key is absent from the configuration map.
const (
	DefaultLunsPerTarget = 8
	DefaultTargetPort    = 3260
	DefaultSanAPIPort    = 82
	DefaultRESTProtocol  = "https"
)

// SanHosts returns the ordered list of appliance endpoints.
func (c Config) SanHosts() []string { return c.StringSlice(KeySanHosts) }

// Pool returns the configured default pool name.
func (c Config) Pool() string { return c.String(KeyPool, "") }

// TargetPrefix returns the configured default iSCSI IQN prefix.
func (c Config) TargetPrefix() string { return c.String(KeyTargetPrefix, "") }

// LunsPerTarget returns the configured LUN bound per target.
func (c Config) LunsPerTarget() int { return c.Int(KeyLunsPerTarget, DefaultLunsPerTarget) }

// CHAPPasswordLen returns the configured generated CHAP password length.
func (c Config) CHAPPasswordLen() int { return c.Int(KeyCHAPPasswordLen, 16) }

// ISCSIVIPAddresses returns the whitelist of allowed iSCSI VIP addresses.
func (c Config) ISCSIVIPAddresses() []string { return c.StringSlice(KeyISCSIVIPAddresses) }

// ThinProvision returns the configured default thin/thick flag.
func (c Config) ThinProvision() bool { return c.Bool(KeyThinProvision, true) }

// BlockSize returns the configured default ZFS volblocksize.
func (c Config) BlockSize() string { return c.String(KeyBlockSize, "64K") }

// ReservedPercentage returns the percentage of pool capacity reserved and
// excluded from reported free space.
func (c Config) ReservedPercentage() int { return c.Int(KeyReservedPercentage, 0) }
