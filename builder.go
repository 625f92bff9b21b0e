package ftp2http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/apnarm/ftp2http/accounts"
	"github.com/apnarm/ftp2http/internal/rate"
	"github.com/apnarm/ftp2http/jwt"
	"github.com/apnarm/ftp2http/password"
	"github.com/apnarm/ftp2http/relay"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Gateway. A Builder builds at most once.
type Builder struct {
	config     Config
	redis      redis.UniversalClient
	httpClient *http.Client
	logger     *slog.Logger
	auditSink  AuditSink

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used by the failed-login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sets the client shared by the validators and the relay. It
// replaces the per-component timeouts of Config with the client's own.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithLogger sets the gateway logger. The default is slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the sink fed by the audit dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the relay latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Gateway.
func (b *Builder) Build() (*Gateway, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Security.EnableLoginThrottle && b.redis == nil {
		return nil, errors.New("Security EnableLoginThrottle requires redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- ACCOUNTS --------
	store := accounts.NewStore()
	for _, acct := range cfg.Auth.Accounts {
		if err := store.AddAccount(acct); err != nil {
			return nil, err
		}
	}

	validatorClient := b.httpClient
	if validatorClient == nil {
		validatorClient = &http.Client{Timeout: cfg.Auth.ValidatorTimeout}
	}
	chain, err := accounts.NewChain(cfg.Auth.Backends, validatorClient, logger)
	if err != nil {
		return nil, err
	}

	var cache *accounts.PasswordCache
	if cfg.Auth.CachePasswords {
		cache, err = accounts.NewPasswordCache(cfg.Auth.PasswordCacheSize)
		if err != nil {
			return nil, err
		}
	}

	g := &Gateway{
		config:  cloneConfig(cfg),
		auth:    accounts.NewAuthenticator(store, chain, cache, password.Verify, logger),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
	}

	if cfg.Security.EnableLoginThrottle {
		g.limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	// -------- RELAY --------
	opts := []relay.Option{
		relay.WithObserver(g),
		relay.WithLogger(logger),
		relay.WithHTTPClient(b.httpClient),
	}
	if cfg.Token.Enabled {
		jm, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.Token.TTL,
			SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
			PublicKey:     cloneBytes(cfg.Token.PublicKey),
			Issuer:        cfg.Token.Issuer,
			Audience:      cfg.Token.Audience,
			KeyID:         cfg.Token.KeyID,
		})
		if err != nil {
			g.audit.Close()
			return nil, err
		}
		opts = append(opts, relay.WithTokenIssuer(jm))
	}

	rl, err := relay.New(relay.Config{
		Target:         cfg.Relay.URL,
		Timeout:        cfg.Relay.Timeout,
		SpoolThreshold: cfg.Relay.SpoolThreshold,
		TempDir:        cfg.Relay.TempDir,
		TokenHeader:    cfg.Token.Header,
	}, opts...)
	if err != nil {
		g.audit.Close()
		return nil, err
	}
	g.relay = rl

	b.built = true

	return g, nil
}
