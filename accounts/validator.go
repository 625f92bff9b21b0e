package accounts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Validator probes one remote endpoint with HTTP Basic auth.
type Validator struct {
	url    string
	client *http.Client
}

// NewValidator returns a validator for the absolute http(s) URL rawURL.
// A nil client selects http.DefaultClient.
func NewValidator(rawURL string, client *http.Client) (*Validator, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValidator, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValidator, rawURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Validator{url: u.String(), client: client}, nil
}

// URL returns the probed endpoint.
func (v *Validator) URL() string { return v.url }

// Validate reports whether the endpoint accepts username and password. A
// non-2xx status is a plain rejection; a transport failure is returned as
// an error.
func (v *Validator) Validate(ctx context.Context, username, password string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return false, err
	}
	req.SetBasicAuth(username, password)

	resp, err := v.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode/100 == 2, nil
}

// Chain is an ordered, read-only list of validators.
type Chain struct {
	validators []*Validator
	logger     *slog.Logger
}

// NewChain builds a chain from URLs in order. All validators share client.
func NewChain(urls []string, client *http.Client, logger *slog.Logger) (*Chain, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{logger: logger}
	for _, raw := range urls {
		v, err := NewValidator(raw, client)
		if err != nil {
			return nil, err
		}
		c.validators = append(c.validators, v)
	}
	return c, nil
}

// Len returns the number of validators.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.validators)
}

// Validate tries each validator in order and stops at the first success,
// returning its URL. Transport errors are logged and skipped.
func (c *Chain) Validate(ctx context.Context, username, password string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, v := range c.validators {
		ok, err := v.Validate(ctx, username, password)
		if err != nil {
			c.logger.ErrorContext(ctx, "remote validator unreachable",
				slog.String("validator", v.url),
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			return v.url, true
		}
	}
	return "", false
}
