package accounts

import (
	"context"
	"log/slog"

	"github.com/apnarm/ftp2http/password"
)

// Source tells which check accepted a login.
type Source string

const (
	// SourceLocal means the stored hash matched.
	SourceLocal Source = "local"
	// SourceRemote means a remote validator answered 2xx.
	SourceRemote Source = "remote"
)

// VerifyFunc checks password against a stored hash.
type VerifyFunc func(password, encodedHash string) (bool, error)

// Result describes an accepted login.
type Result struct {
	Account     Account
	Source      Source
	Validator   string
	StubCreated bool
}

// Authenticator combines the account table, the validator chain and the
// password cache. It is safe for concurrent use.
type Authenticator struct {
	store  *Store
	chain  *Chain
	cache  *PasswordCache
	verify VerifyFunc
	logger *slog.Logger
}

// NewAuthenticator wires the collaborators. chain and cache may be nil.
func NewAuthenticator(store *Store, chain *Chain, cache *PasswordCache, verify VerifyFunc, logger *slog.Logger) *Authenticator {
	if store == nil {
		store = NewStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		store:  store,
		chain:  chain,
		cache:  cache,
		verify: verify,
		logger: logger,
	}
}

// Store returns the account table.
func (a *Authenticator) Store() *Store { return a.store }

// Authenticate checks username and password locally, then remotely. On
// success it creates the remote-only stub when needed and, when caching is
// enabled, pins the password until EndSession is called for username.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (Result, error) {
	res := Result{}

	if a.checkLocal(ctx, username, password) {
		res.Source = SourceLocal
	} else if endpoint, ok := a.chain.Validate(ctx, username, password); ok {
		res.Source = SourceRemote
		res.Validator = endpoint
	} else {
		return Result{}, ErrAuthenticationFailed
	}

	acct, created, err := a.store.EnsureRemoteAccount(username)
	if err != nil {
		// A username that cannot own a home scope never logs in.
		return Result{}, ErrAuthenticationFailed
	}
	res.Account = acct
	res.StubCreated = created

	a.cache.Pin(username, password)
	return res, nil
}

// EndSession releases the password pinned by one successful Authenticate.
func (a *Authenticator) EndSession(username string) {
	a.cache.Unpin(username)
}

// CachedPassword returns the password cached for username, if any.
func (a *Authenticator) CachedPassword(username string) (string, bool) {
	return a.cache.Get(username)
}

// PinnedPasswords returns the number of users whose password is held for a
// live session.
func (a *Authenticator) PinnedPasswords() int {
	return a.cache.Pinned()
}

// CachingEnabled reports whether accepted passwords are cached.
func (a *Authenticator) CachingEnabled() bool {
	return a.cache.Enabled()
}

func (a *Authenticator) checkLocal(ctx context.Context, username, pass string) bool {
	acct, ok := a.store.Get(username)
	if !ok || acct.RemoteOnly() || a.verify == nil {
		return false
	}
	match, err := a.verify(pass, acct.PasswordHash)
	if err != nil {
		algorithm := password.Algorithm(acct.PasswordHash)
		if algorithm == "" {
			algorithm = "unknown"
		}
		a.logger.WarnContext(ctx, "stored password hash unusable",
			slog.String("username", username),
			slog.String("algorithm", algorithm),
			slog.String("error", err.Error()),
		)
		return false
	}
	return match
}
