package ftp2http

import (
	"strings"
	"testing"
	"time"

	"github.com/apnarm/ftp2http/accounts"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Relay.URL = "http://backend.example/upload"
	return cfg
}

func TestDefaultConfigNeedsOnlyRelayURL(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing relay URL to fail")
	}
	cfg = validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}
	if cfg.Relay.SpoolThreshold != 8<<20 || cfg.Auth.CachePasswords {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestConfigValidateViolations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative relay url", func(c *Config) { c.Relay.URL = "/upload" }, "Relay URL"},
		{"ftp relay url", func(c *Config) { c.Relay.URL = "ftp://host/x" }, "Relay URL"},
		{"negative timeout", func(c *Config) { c.Relay.Timeout = -time.Second }, "Relay Timeout"},
		{"negative spool", func(c *Config) { c.Relay.SpoolThreshold = -1 }, "SpoolThreshold"},
		{"relative backend", func(c *Config) { c.Auth.Backends = []string{"/auth"} }, "Backends"},
		{"cache without size", func(c *Config) {
			c.Auth.CachePasswords = true
			c.Auth.PasswordCacheSize = 0
		}, "PasswordCacheSize"},
		{"duplicate account", func(c *Config) {
			c.Auth.Accounts = []accounts.Account{accounts.NewAccount("a", ""), accounts.NewAccount("a", "")}
		}, "already"},
		{"bad algorithm", func(c *Config) { c.Password.Algorithm = "md5" }, "Password Algorithm"},
		{"bad bcrypt cost", func(c *Config) { c.Password.BcryptCost = 99 }, "BcryptCost"},
		{"weak argon memory", func(c *Config) {
			c.Password.Algorithm = "argon2id"
			c.Password.Memory = 1024
		}, "Password Memory"},
		{"token without key", func(c *Config) { c.Token.Enabled = true }, "requires PrivateKey"},
		{"token bad method", func(c *Config) {
			c.Token.Enabled = true
			c.Token.SigningMethod = "none"
			c.Token.PrivateKey = []byte("k")
		}, "signing method"},
		{"throttle zero attempts", func(c *Config) {
			c.Security.EnableLoginThrottle = true
			c.Security.MaxLoginAttempts = 0
		}, "MaxLoginAttempts"},
		{"ip throttle alone", func(c *Config) { c.Security.EnableIPThrottle = true }, "EnableIPThrottle"},
		{"audit zero buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, "BufferSize"},
		{"histograms without metrics", func(c *Config) { c.Metrics.EnableLatencyHistograms = true }, "EnableLatencyHistograms"},
	}

	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestWithConfigClones(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Backends = []string{"http://a.example/"}
	cfg.Token.PrivateKey = []byte("secret")

	b := New().WithConfig(cfg)
	cfg.Auth.Backends[0] = "http://mutated.example/"
	cfg.Token.PrivateKey[0] = 'X'

	if b.config.Auth.Backends[0] != "http://a.example/" || string(b.config.Token.PrivateKey) != "secret" {
		t.Fatal("builder config must not alias caller slices")
	}
}

func TestNewPasswordHasher(t *testing.T) {
	cfg := DefaultConfig().Password
	cfg.BcryptCost = 4
	h, err := NewPasswordHasher(cfg)
	if err != nil {
		t.Fatalf("bcrypt hasher: %v", err)
	}
	hash, err := h.Hash("pw")
	if err != nil || !strings.HasPrefix(hash, "$2a$04$") {
		t.Fatalf("unexpected bcrypt hash %q %v", hash, err)
	}

	cfg.Algorithm = "argon2id"
	cfg.Memory = 8 * 1024
	cfg.Time = 1
	cfg.Parallelism = 1
	h, err = NewPasswordHasher(cfg)
	if err != nil {
		t.Fatalf("argon2 hasher: %v", err)
	}
	hash, err = h.Hash("pw")
	if err != nil || !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected argon2 hash %q %v", hash, err)
	}

	cfg.Algorithm = "scrypt"
	if _, err := NewPasswordHasher(cfg); err == nil {
		t.Fatal("expected unsupported algorithm error")
	}
}
