package ftp2http

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/apnarm/ftp2http/accounts"
	"github.com/apnarm/ftp2http/internal/logctx"
	"github.com/apnarm/ftp2http/internal/rate"
	"github.com/apnarm/ftp2http/postfs"
	"github.com/apnarm/ftp2http/relay"
	"github.com/apnarm/ftp2http/transfer"
	"github.com/google/uuid"
)

// Gateway is the process-wide core shared by every FTP session. Build one
// with [Builder.Build]; all methods are safe for concurrent use.
type Gateway struct {
	config  Config
	auth    *accounts.Authenticator
	relay   *relay.Relay
	limiter *rate.Limiter
	audit   *auditDispatcher
	metrics *Metrics
	logger  *slog.Logger
	closed  atomic.Bool
}

var _ relay.Observer = (*Gateway)(nil)

// Authenticate checks a login. On success it returns the Session whose home
// scope the FTP engine must confine the client to. Every rejection is
// ErrAuthenticationFailed, or ErrLoginRateLimited while throttled.
//
// The client IP and the engine's connection id are read from ctx (see
// WithClientIP and WithSessionID).
func (g *Gateway) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	if !g.ready() {
		return nil, ErrGatewayNotReady
	}

	ip := clientIPFromContext(ctx)

	if g.limiter != nil {
		if err := g.limiter.CheckLogin(ctx, username, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				g.metrics.Inc(MetricLoginRateLimited)
				g.emitAudit(ctx, auditEventLoginRateLimited, false, username, "", ErrLoginRateLimited, nil)
				g.logger.WarnContext(ctx, "login_rate_limited",
					slog.String("username", username),
					slog.String("ip", ip),
				)
				return nil, ErrLoginRateLimited
			}
			// Throttle storage is down: keep accepting logins.
			g.logger.WarnContext(ctx, "login throttle unavailable", slog.String("error", err.Error()))
		}
	}

	res, err := g.auth.Authenticate(ctx, username, password)
	if err != nil {
		g.metrics.Inc(MetricLoginFailure)
		g.emitAudit(ctx, auditEventLoginFailure, false, username, "", err, nil)
		g.logger.WarnContext(ctx, "authentication_failed",
			slog.String("username", username),
			slog.String("ip", ip),
		)
		if g.limiter != nil {
			if lerr := g.limiter.IncrementLogin(ctx, username, ip); lerr != nil && !errors.Is(lerr, rate.ErrRateLimited) {
				g.logger.WarnContext(ctx, "login throttle unavailable", slog.String("error", lerr.Error()))
			}
		}
		return nil, ErrAuthenticationFailed
	}

	if g.limiter != nil {
		if err := g.limiter.ResetLogin(ctx, username); err != nil {
			g.logger.WarnContext(ctx, "login throttle unavailable", slog.String("error", err.Error()))
		}
	}

	sessionID := sessionIDFromContext(ctx)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	sess := &Session{
		ID:              sessionID,
		Username:        res.Account.Username,
		Home:            res.Account.Home(),
		RemoteAddr:      ip,
		Source:          string(res.Source),
		Validator:       res.Validator,
		LoginMessage:    res.Account.LoginMessage,
		QuitMessage:     res.Account.QuitMessage,
		AuthenticatedAt: time.Now().UTC(),
	}

	g.metrics.Inc(MetricLoginSuccess)
	if res.Source == accounts.SourceRemote {
		g.metrics.Inc(MetricLoginRemote)
	}
	g.emitAudit(ctx, auditEventLoginSuccess, true, username, "", nil, func() map[string]string {
		md := map[string]string{"source": sess.Source}
		if sess.Validator != "" {
			md["validator"] = sess.Validator
		}
		return md
	})
	if res.StubCreated {
		g.metrics.Inc(MetricRemoteAccountCreated)
		g.emitAudit(ctx, auditEventRemoteAccountCreated, true, username, "", nil, nil)
	}

	g.logger.InfoContext(ctx, "login accepted",
		slog.String("username", username),
		slog.String("source", sess.Source),
	)
	return sess, nil
}

// EndSession releases the per-session state held for sess, such as its
// pinned relay password. The FTP engine calls it once per successful
// Authenticate when the connection ends.
func (g *Gateway) EndSession(ctx context.Context, sess *Session) {
	if g == nil || g.auth == nil || sess == nil {
		return
	}
	g.auth.EndSession(sess.Username)
	g.logger.DebugContext(ctx, "session ended", slog.String("username", sess.Username))
}

// PinnedPasswords returns the number of users whose relay password is held
// for a live session. It is zero when password caching is off.
func (g *Gateway) PinnedPasswords() int {
	if !g.ready() {
		return 0
	}
	return g.auth.PinnedPasswords()
}

// Filesystem returns the restricted filesystem of sess.
func (g *Gateway) Filesystem(sess *Session) (*postfs.FS, error) {
	if !g.ready() {
		return nil, ErrGatewayNotReady
	}
	if sess == nil {
		return nil, ErrNilSession
	}
	return postfs.New(sess.Username, g.auth, g.relay), nil
}

// OpenUpload opens path for writing in the filesystem of sess and returns the
// transfer that owns the new upload. mode follows postfs.FS.Open.
func (g *Gateway) OpenUpload(ctx context.Context, sess *Session, path, mode string) (*transfer.Interceptor, error) {
	fs, err := g.Filesystem(sess)
	if err != nil {
		return nil, err
	}

	upload, err := g.openAllowed(sess, fs, path, mode)
	if err != nil {
		g.metrics.Inc(MetricUploadRefused)
		g.logger.InfoContext(ctx, "open refused",
			slog.String("path", path),
			slog.String("mode", mode),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	g.metrics.Inc(MetricUploadOpened)
	g.logger.DebugContext(logctx.WithUploadData(ctx, &logctx.UploadData{
		UploadID: upload.ID(),
		Filename: upload.Name(),
	}), "upload opened")
	return transfer.New(upload, g.logger), nil
}

// ObserveUpload records metrics and audit events for a finished upload. The
// relay calls it once per upload that received data.
func (g *Gateway) ObserveUpload(ctx context.Context, o relay.Outcome) {
	if g == nil {
		return
	}
	ctx = logctx.WithUploadData(ctx, &logctx.UploadData{UploadID: o.UploadID, Filename: o.Filename})

	switch o.Kind {
	case relay.OutcomeRelayed:
		g.metrics.Inc(MetricUploadRelayed)
		g.metrics.Add(MetricUploadBytes, uint64(o.Bytes))
		g.metrics.Observe(MetricRelayLatency, o.Duration)
		g.emitAudit(ctx, auditEventUploadRelayed, true, o.Username, o.UploadID, nil, uploadMetadata(o))
		g.logger.InfoContext(ctx, "upload relayed",
			slog.Int64("bytes", o.Bytes),
			slog.Duration("duration", o.Duration),
		)
	case relay.OutcomeFailed:
		g.metrics.Inc(MetricUploadFailed)
		g.metrics.Observe(MetricRelayLatency, o.Duration)
		g.emitAudit(ctx, auditEventUploadFailed, false, o.Username, o.UploadID, o.Err, uploadMetadata(o))
	case relay.OutcomeDiscarded:
		g.metrics.Inc(MetricUploadDiscarded)
		g.emitAudit(ctx, auditEventUploadDiscarded, false, o.Username, o.UploadID, nil, uploadMetadata(o))
		g.logger.InfoContext(ctx, "upload discarded", slog.Int64("bytes", o.Bytes))
	}
}

// openAllowed opens path when the account holds the write permission.
func (g *Gateway) openAllowed(sess *Session, fs *postfs.FS, path, mode string) (*relay.Upload, error) {
	if acct, ok := g.auth.Store().Get(sess.Username); ok && !acct.HasPerm(accounts.PermWrite) {
		return nil, &postfs.OpError{Op: "open", Path: path, Err: ErrPermissionDenied}
	}
	return fs.Open(path, mode)
}

func uploadMetadata(o relay.Outcome) func() map[string]string {
	return func() map[string]string {
		return map[string]string{
			"file":  o.Filename,
			"bytes": strconv.FormatInt(o.Bytes, 10),
		}
	}
}

// Relay returns the upload relay.
func (g *Gateway) Relay() *relay.Relay {
	return g.relay
}

// Accounts returns the live account table, including remote-only accounts
// created at login.
func (g *Gateway) Accounts() *accounts.Store {
	return g.auth.Store()
}

// Logger returns the gateway logger.
func (g *Gateway) Logger() *slog.Logger {
	return g.logger
}

// MetricsSnapshot returns a copy of the gateway counters.
func (g *Gateway) MetricsSnapshot() MetricsSnapshot {
	if g == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return g.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (g *Gateway) AuditDropped() uint64 {
	if g == nil {
		return 0
	}
	return g.audit.Dropped()
}

// AuditDelivered returns the number of audit events handed to the sink.
func (g *Gateway) AuditDelivered() uint64 {
	if g == nil {
		return 0
	}
	return g.audit.Delivered()
}

// Close flushes pending audit events. Authenticate fails afterwards; uploads
// already open still relay.
func (g *Gateway) Close() {
	if g == nil {
		return
	}
	g.closed.Store(true)
	g.audit.Close()
}

func (g *Gateway) ready() bool {
	return g != nil && g.auth != nil && !g.closed.Load()
}

// Config returns a copy of the configuration the gateway was built with.
func (g *Gateway) Config() Config {
	return cloneConfig(g.config)
}
