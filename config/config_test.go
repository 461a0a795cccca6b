package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadCreatesDefault(t *testing.T) {
	t.Setenv(EnvEnvironment, "")
	t.Setenv(EnvJWTSecret, "")
	path := filepath.Join(t.TempDir(), "nested", "registry.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":8080" || cfg.Storage.Backend != "leveldb" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not persisted: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.RateLimit != cfg.RateLimit || reloaded.Auth != cfg.Auth {
		t.Fatalf("reloaded config differs: %+v vs %+v", reloaded, cfg)
	}
}

func TestLoadParsesTOML(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	path := filepath.Join(t.TempDir(), "registry.toml")
	contents := `RPCAddress = "0.0.0.0:9000"
RPCTrustedProxies = ["10.0.0.1"]
DataDir = "./data"

[Storage]
Backend = "bolt"

[Auth]
HMACSecret = "file-secret"
Issuer = "issuer"
ClockSkewSeconds = 30

[RateLimit]
RequestsPerMinute = 120
Burst = 10

[Logging]
Level = "debug"
File = "/var/log/registryd.log"

[Telemetry]
Traces = true
Headers = "authorization=Bearer x"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != "0.0.0.0:9000" || cfg.Storage.Backend != "bolt" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Auth.HMACSecret != "file-secret" || cfg.Auth.ClockSkew() != 30*time.Second {
		t.Fatalf("unexpected auth %+v", cfg.Auth)
	}
	if cfg.RateLimit.RequestsPerMinute != 120 || cfg.RateLimit.Burst != 10 {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
	if len(cfg.RPCTrustedProxies) != 1 || cfg.RPCTrustedProxies[0] != "10.0.0.1" {
		t.Fatalf("unexpected trusted proxies: %v", cfg.RPCTrustedProxies)
	}
	if !cfg.Telemetry.Traces || cfg.Telemetry.Metrics {
		t.Fatalf("unexpected telemetry %+v", cfg.Telemetry)
	}
	// Unset keys keep their defaults.
	if cfg.Logging.MaxBackups != 5 {
		t.Fatalf("expected default MaxBackups, got %d", cfg.Logging.MaxBackups)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	contents := `RPCAddress: "127.0.0.1:7000"
Storage:
  Backend: sql
  DSN: postgres://registry@localhost/registry
RateLimit:
  RequestsPerMinute: 30
  Burst: 3
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != "sql" || !strings.HasPrefix(cfg.Storage.DSN, "postgres://") {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.toml")
	if err := os.WriteFile(path, []byte("GenesisFile = \"genesis.json\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvEnvironment, "prod")
	t.Setenv(EnvJWTSecret, "env-secret")
	cfg, err := Load(filepath.Join(t.TempDir(), "registry.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "prod" || cfg.Auth.HMACSecret != "env-secret" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty address":   func(c *Config) { c.RPCAddress = " " },
		"unknown backend": func(c *Config) { c.Storage.Backend = "redis" },
		"zero rate":       func(c *Config) { c.RateLimit.RequestsPerMinute = 0 },
		"zero burst":      func(c *Config) { c.RateLimit.Burst = 0 },
		"negative skew":   func(c *Config) { c.Auth.ClockSkewSeconds = -1 },
		"leveldb no dir":  func(c *Config) { c.DataDir = "" },
		"bad proxy":       func(c *Config) { c.RPCTrustedProxies = []string{"proxy.local"} },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	cfg := Default()
	cfg.Storage.Backend = "memory"
	cfg.DataDir = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("memory backend without data dir: %v", err)
	}
	cfg.RPCTrustedProxies = []string{"10.0.0.1", "192.168.0.0/16", "::1"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("trusted proxies: %v", err)
	}
}
