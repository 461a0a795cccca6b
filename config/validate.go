package config

import (
	"fmt"
	"net"
	"strings"

	"idregistry/storage"
)

// Validate rejects configurations the daemon cannot start with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress must not be empty")
	}
	for _, proxy := range cfg.RPCTrustedProxies {
		trimmed := strings.TrimSpace(proxy)
		if _, _, err := net.ParseCIDR(trimmed); err == nil {
			continue
		}
		if net.ParseIP(trimmed) == nil {
			return fmt.Errorf("config: RPCTrustedProxies entry %q is not an address or CIDR", proxy)
		}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case storage.BackendMemory:
	case storage.BackendLevelDB, storage.BackendBolt:
		if strings.TrimSpace(cfg.DataDir) == "" {
			return fmt.Errorf("storage: %s backend requires DataDir", cfg.Storage.Backend)
		}
	case storage.BackendSQL:
		if strings.TrimSpace(cfg.Storage.DSN) == "" && strings.TrimSpace(cfg.DataDir) == "" {
			return fmt.Errorf("storage: sql backend requires DSN or DataDir")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limit: RequestsPerMinute must be positive")
	}
	if cfg.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit: Burst must be positive")
	}
	if cfg.Auth.ClockSkewSeconds < 0 {
		return fmt.Errorf("auth: ClockSkewSeconds must not be negative")
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 {
		return fmt.Errorf("logging: rotation limits must not be negative")
	}
	return nil
}
