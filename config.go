package ftp2http

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/apnarm/ftp2http/accounts"
	"github.com/apnarm/ftp2http/password"
	"github.com/apnarm/ftp2http/relay"
)

// Config holds every gateway setting. The FTP listener settings live in
// ftpdriver.Config.
type Config struct {
	Relay    RelayConfig
	Auth     AuthConfig
	Password PasswordConfig
	Token    TokenConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
RELAY CONFIG
====================================
*/

// RelayConfig controls how finished uploads reach the backend.
type RelayConfig struct {
	// URL is the backend every upload is POSTed to.
	URL     string
	Timeout time.Duration
	// SpoolThreshold is the in-memory size of one upload body before it
	// spills to TempDir. Zero keeps bodies in memory.
	SpoolThreshold int64
	TempDir        string
}

/*
====================================
AUTH CONFIG
====================================
*/

// AuthConfig describes the account table and the remote validator chain.
type AuthConfig struct {
	Accounts []accounts.Account
	// Backends are absolute validator URLs tried in order.
	Backends         []string
	ValidatorTimeout time.Duration
	// CachePasswords keeps each accepted password so relays can send it as
	// Basic auth. Off means relays never carry an Authorization header.
	CachePasswords    bool
	PasswordCacheSize int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the algorithm for newly produced hashes.
// Verification always follows the stored hash.
type PasswordConfig struct {
	Algorithm   string // "bcrypt" (default) or "argon2id"
	BcryptCost  int
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig enables the signed upload token sent with every relay.
type TokenConfig struct {
	Enabled       bool
	Header        string
	TTL           time.Duration
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls failed-login throttling. Throttling needs redis.
type SecurityConfig struct {
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the relay latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the gateway defaults. Relay.URL has no default.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	argon := password.DefaultConfig()
	return Config{
		Relay: RelayConfig{
			Timeout:        60 * time.Second,
			SpoolThreshold: 8 << 20,
		},
		Auth: AuthConfig{
			ValidatorTimeout:  10 * time.Second,
			CachePasswords:    false,
			PasswordCacheSize: accounts.DefaultPasswordCacheSize,
		},
		Password: PasswordConfig{
			Algorithm:   "bcrypt",
			BcryptCost:  12,
			Memory:      argon.Memory,
			Time:        argon.Time,
			Parallelism: argon.Parallelism,
			SaltLength:  argon.SaltLength,
			KeyLength:   argon.KeyLength,
		},
		Token: TokenConfig{
			Enabled:       false,
			Header:        relay.DefaultTokenHeader,
			TTL:           5 * time.Minute,
			SigningMethod: "ed25519",
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   false,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Auth.Accounts = append([]accounts.Account(nil), cfg.Auth.Accounts...)
	out.Auth.Backends = append([]string(nil), cfg.Auth.Backends...)
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate returns the first violation found in c.
func (c *Config) Validate() error {
	// Relay
	if strings.TrimSpace(c.Relay.URL) == "" {
		return errors.New("Relay URL is required")
	}
	u, err := url.Parse(c.Relay.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("Relay URL must be an absolute http(s) URL")
	}
	if c.Relay.Timeout < 0 {
		return errors.New("Relay Timeout must be >= 0")
	}
	if c.Relay.SpoolThreshold < 0 {
		return errors.New("Relay SpoolThreshold must be >= 0")
	}

	// Auth
	if c.Auth.ValidatorTimeout < 0 {
		return errors.New("Auth ValidatorTimeout must be >= 0")
	}
	if c.Auth.CachePasswords && c.Auth.PasswordCacheSize <= 0 {
		return errors.New("Auth PasswordCacheSize must be > 0 when CachePasswords is true")
	}
	for _, backend := range c.Auth.Backends {
		bu, err := url.Parse(backend)
		if err != nil || !bu.IsAbs() || bu.Host == "" {
			return errors.New("Auth Backends must be absolute URLs")
		}
	}
	seen := make(map[string]struct{}, len(c.Auth.Accounts))
	for _, acct := range c.Auth.Accounts {
		if _, dup := seen[acct.Username]; dup {
			return ErrDuplicateAccount
		}
		seen[acct.Username] = struct{}{}
	}

	// Password
	switch c.Password.Algorithm {
	case "bcrypt":
		if _, err := password.NewBcrypt(c.Password.BcryptCost); err != nil {
			return errors.New("Password BcryptCost is out of range")
		}
	case "argon2id":
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	default:
		return errors.New("Password Algorithm must be 'bcrypt' or 'argon2id'")
	}

	// Token
	if c.Token.Enabled {
		if c.Token.TTL <= 0 {
			return errors.New("Token TTL must be > 0")
		}
		if strings.TrimSpace(c.Token.Header) == "" {
			return errors.New("Token Header must not be empty")
		}
		switch c.Token.SigningMethod {
		case "ed25519":
			if len(c.Token.PrivateKey) == 0 {
				return errors.New("ed25519 requires PrivateKey")
			}
		case "hs256":
			if len(c.Token.PrivateKey) == 0 {
				return errors.New("hs256 requires PrivateKey")
			}
		default:
			return errors.New("unsupported Token signing method")
		}
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableIPThrottle && !c.Security.EnableLoginThrottle {
		return errors.New("Security EnableIPThrottle requires EnableLoginThrottle")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

// NewPasswordHasher returns the hasher selected by cfg for producing new
// account hashes.
func NewPasswordHasher(cfg PasswordConfig) (password.Hasher, error) {
	switch cfg.Algorithm {
	case "", "bcrypt":
		h, err := password.NewBcrypt(cfg.BcryptCost)
		if err != nil {
			return nil, err
		}
		return h, nil
	case "argon2id":
		h, err := password.NewArgon2(password.Config{
			Memory:      cfg.Memory,
			Time:        cfg.Time,
			Parallelism: cfg.Parallelism,
			SaltLength:  cfg.SaltLength,
			KeyLength:   cfg.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, errors.New("unsupported password algorithm")
	}
}
