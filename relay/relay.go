package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenHeader carries the optional signed upload token.
const DefaultTokenHeader = "X-Upload-Token"

// Config holds the process-wide relay settings.
type Config struct {
	// Target is the backend URL every upload is POSTed to. Path and query
	// are preserved.
	Target string
	// Timeout bounds one relay round-trip. Zero disables the bound.
	Timeout time.Duration
	// SpoolThreshold is the number of body bytes kept in memory before the
	// upload spills to a temporary file. Zero keeps everything in memory.
	SpoolThreshold int64
	// TempDir holds spilled uploads. Empty means os.TempDir.
	TempDir string
	// TokenHeader names the header carrying the upload token.
	TokenHeader string
}

// TokenIssuer signs a per-upload token attached to the relay request.
type TokenIssuer interface {
	CreateUpload(username, filename, uploadID string) (string, error)
}

// OutcomeKind classifies how an upload ended.
type OutcomeKind string

const (
	// OutcomeRelayed means the backend accepted the upload with a 2xx status.
	OutcomeRelayed OutcomeKind = "relayed"
	// OutcomeFailed means the relay returned an UnexpectedHTTPResponse.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomeDiscarded means the upload was dropped without a relay.
	OutcomeDiscarded OutcomeKind = "discarded"
)

// Outcome describes one finished upload.
type Outcome struct {
	UploadID string
	Username string
	Filename string
	Kind     OutcomeKind
	// Bytes counts file bytes, excluding the multipart envelope.
	Bytes    int64
	Duration time.Duration
	Err      error
}

// Observer receives exactly one Outcome per upload that received data.
type Observer interface {
	ObserveUpload(ctx context.Context, outcome Outcome)
}

// Option configures a Relay.
type Option func(*Relay)

// WithHTTPClient replaces the default client. The client's Timeout is left
// untouched.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Relay) {
		if client != nil {
			r.client = client
		}
	}
}

// WithTokenIssuer attaches a signed upload token to every relay.
func WithTokenIssuer(issuer TokenIssuer) Option {
	return func(r *Relay) { r.tokens = issuer }
}

// WithObserver registers the outcome observer.
func WithObserver(obs Observer) Option {
	return func(r *Relay) { r.observer = obs }
}

// WithLogger sets the logger used for relay diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Relay creates uploads bound to one backend target. It is safe for
// concurrent use; uploads share nothing but the HTTP client.
type Relay struct {
	target   *url.URL
	client   *http.Client
	cfg      Config
	tokens   TokenIssuer
	observer Observer
	logger   *slog.Logger
}

// New validates cfg and returns a Relay.
func New(cfg Config, opts ...Option) (*Relay, error) {
	target, err := url.Parse(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, cfg.Target)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("relay: timeout must be >= 0")
	}
	if cfg.TokenHeader == "" {
		cfg.TokenHeader = DefaultTokenHeader
	}

	r := &Relay{
		target: target,
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Target returns the backend URL.
func (r *Relay) Target() string {
	return r.target.String()
}

// NewUpload returns a fresh upload for filename owned by username. An empty
// password means the relay is sent without an Authorization header.
func (r *Relay) NewUpload(filename, username, password string) *Upload {
	return &Upload{
		id:       uuid.NewString(),
		name:     filename,
		username: username,
		password: password,
		relay:    r,
	}
}

func (r *Relay) observe(ctx context.Context, o Outcome) {
	if r.observer != nil {
		r.observer.ObserveUpload(ctx, o)
	}
}
