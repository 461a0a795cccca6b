package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	EnvEnvironment = "REGISTRY_ENV"
	EnvJWTSecret   = "REGISTRY_JWT_SECRET"
)

type Config struct {
	RPCAddress  string    `toml:"RPCAddress" yaml:"RPCAddress"`
	DataDir     string    `toml:"DataDir" yaml:"DataDir"`
	Environment string    `toml:"Environment" yaml:"Environment"`
	Storage     Storage   `toml:"Storage" yaml:"Storage"`
	Auth        Auth      `toml:"Auth" yaml:"Auth"`
	RateLimit   RateLimit `toml:"RateLimit" yaml:"RateLimit"`
	Logging     Logging   `toml:"Logging" yaml:"Logging"`
	Telemetry   Telemetry `toml:"Telemetry" yaml:"Telemetry"`

	// RPCTrustedProxies lists peers (addresses or CIDRs) allowed to supply
	// X-Real-IP / X-Forwarded-For for rate limiting.
	RPCTrustedProxies []string `toml:"RPCTrustedProxies" yaml:"RPCTrustedProxies"`
}

// Storage selects the durable backend. DSN is only read by the sql backend.
type Storage struct {
	Backend string `toml:"Backend" yaml:"Backend"`
	DSN     string `toml:"DSN" yaml:"DSN"`
}

// Auth configures bearer token validation for mutating RPC calls.
type Auth struct {
	HMACSecret       string `toml:"HMACSecret" yaml:"HMACSecret"`
	Issuer           string `toml:"Issuer" yaml:"Issuer"`
	Audience         string `toml:"Audience" yaml:"Audience"`
	ClockSkewSeconds int    `toml:"ClockSkewSeconds" yaml:"ClockSkewSeconds"`
}

func (a Auth) ClockSkew() time.Duration {
	return time.Duration(a.ClockSkewSeconds) * time.Second
}

type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute" yaml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst" yaml:"Burst"`
}

type Logging struct {
	Level      string `toml:"Level" yaml:"Level"`
	File       string `toml:"File" yaml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups" yaml:"MaxBackups"`
}

type Telemetry struct {
	Endpoint string `toml:"Endpoint" yaml:"Endpoint"`
	Insecure bool   `toml:"Insecure" yaml:"Insecure"`
	Headers  string `toml:"Headers" yaml:"Headers"`
	Traces   bool   `toml:"Traces" yaml:"Traces"`
	Metrics  bool   `toml:"Metrics" yaml:"Metrics"`
}

// Default returns the configuration written when no file exists.
func Default() *Config {
	return &Config{
		RPCAddress:  ":8080",
		DataDir:     "./registry-data",
		Environment: "dev",
		Storage:     Storage{Backend: "leveldb"},
		Auth:        Auth{Issuer: "registryd", ClockSkewSeconds: 120},
		RateLimit:   RateLimit{RequestsPerMinute: 600, Burst: 60},
		Logging:     Logging{Level: "info", MaxSizeMB: 100, MaxBackups: 5},
		Telemetry:   Telemetry{Endpoint: "localhost:4318", Insecure: true},
	}
}

// Load loads the configuration from the given path. A missing file is
// replaced by the defaults, which are persisted to path. Files ending in
// .yaml or .yml are decoded as YAML, everything else as TOML.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	if isYAML(path) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		cfg.Environment = env
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.Auth.HMACSecret = secret
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	return toml.NewEncoder(f).Encode(cfg)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
