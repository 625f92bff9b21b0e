package ftpdriver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	ftp2http "github.com/apnarm/ftp2http"
	"github.com/apnarm/ftp2http/internal/logctx"
	ftpserver "github.com/fclairamb/ftpserverlib"
)

var _ ftpserver.MainDriver = (*Driver)(nil)

// Driver is the MainDriver handed to the FTP engine.
type Driver struct {
	gw     *ftp2http.Gateway
	config Config
	tls    *tls.Config
	logger *slog.Logger

	mu       sync.Mutex
	conns    map[uint32]string
	perIP    map[string]int
	sessions map[uint32]*ftp2http.Session
}

// New validates cfg and returns a Driver serving gw.
func New(gw *ftp2http.Gateway, cfg Config, logger *slog.Logger) (*Driver, error) {
	if gw == nil {
		return nil, ftp2http.ErrGatewayNotReady
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = gw.Logger()
	}

	d := &Driver{
		gw:       gw,
		config:   cfg,
		logger:   logger,
		conns:    make(map[uint32]string),
		perIP:    make(map[string]int),
		sessions: make(map[uint32]*ftp2http.Session),
	}

	if len(cfg.TLSCertPEM) > 0 {
		// The PEM carries both the certificate and the key.
		cert, err := tls.X509KeyPair(cfg.TLSCertPEM, cfg.TLSCertPEM)
		if err != nil {
			return nil, fmt.Errorf("ftpdriver: load certificate: %w", err)
		}
		d.tls = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	return d, nil
}

// GetSettings returns the engine settings.
func (d *Driver) GetSettings() (*ftpserver.Settings, error) {
	s := &ftpserver.Settings{
		ListenAddr:  d.config.ListenAddr,
		Listener:    d.config.Listener,
		PublicHost:  d.config.PublicHost,
		IdleTimeout: int(d.config.IdleTimeout.Seconds()),
		Banner:      d.config.Banner,
	}
	if d.config.PassivePortStart > 0 {
		s.PassiveTransferPortRange = &ftpserver.PortRange{
			Start: d.config.PassivePortStart,
			End:   d.config.PassivePortEnd,
		}
	}
	if d.tls != nil {
		s.TLSRequired = ftpserver.MandatoryEncryption
	}
	return s, nil
}

// ClientConnected admits a new control connection.
func (d *Driver) ClientConnected(cc ftpserver.ClientContext) (string, error) {
	ip := hostOf(cc.RemoteAddr())
	if err := d.admit(cc.ID(), ip); err != nil {
		d.logger.Warn("connection refused",
			slog.String("remote_addr", ip),
			slog.String("reason", err.Error()),
		)
		return err.Error(), err
	}
	d.logger.Debug("client connected",
		slog.Uint64("conn_id", uint64(cc.ID())),
		slog.String("remote_addr", ip),
	)
	return d.config.Banner, nil
}

// ClientDisconnected releases the connection slot and ends the session
// logged in on it, if any.
func (d *Driver) ClientDisconnected(cc ftpserver.ClientContext) {
	d.release(cc.ID())
	d.unbind(cc.ID())
}

// AuthUser authenticates a login through the gateway. Any failure is
// reported to the client as ErrAuthenticationFailed.
func (d *Driver) AuthUser(cc ftpserver.ClientContext, user, pass string) (ftpserver.ClientDriver, error) {
	cd, err := d.login(cc.ID(), hostOf(cc.RemoteAddr()), user, pass)
	if err != nil {
		return nil, err
	}
	return cd, nil
}

// GetTLSConfig returns the TLS settings, if a certificate is configured.
func (d *Driver) GetTLSConfig() (*tls.Config, error) {
	if d.tls == nil {
		return nil, ErrTLSNotConfigured
	}
	return d.tls, nil
}

// Connections returns the number of admitted connections.
func (d *Driver) Connections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *Driver) admit(id uint32, ip string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.config.MaxConnections > 0 && len(d.conns) >= d.config.MaxConnections {
		return ErrTooManyConnections
	}
	if d.config.MaxConnectionsPerIP > 0 && d.perIP[ip] >= d.config.MaxConnectionsPerIP {
		return ErrTooManyConnectionsPerIP
	}
	d.conns[id] = ip
	d.perIP[ip]++
	return nil
}

func (d *Driver) release(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ip, ok := d.conns[id]
	if !ok {
		return
	}
	delete(d.conns, id)
	if d.perIP[ip] <= 1 {
		delete(d.perIP, ip)
	} else {
		d.perIP[ip]--
	}
}

// bind records sess as the login of connection id. A previous login on the
// same connection is ended first.
func (d *Driver) bind(id uint32, sess *ftp2http.Session) {
	d.mu.Lock()
	prev := d.sessions[id]
	d.sessions[id] = sess
	d.mu.Unlock()

	if prev != nil {
		d.gw.EndSession(context.Background(), prev)
	}
}

func (d *Driver) unbind(id uint32) {
	d.mu.Lock()
	sess := d.sessions[id]
	delete(d.sessions, id)
	d.mu.Unlock()

	if sess != nil {
		d.gw.EndSession(context.Background(), sess)
	}
}

// Sessions returns the number of logged-in connections.
func (d *Driver) Sessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

func (d *Driver) login(id uint32, ip, user, pass string) (*clientDriver, error) {
	connID := strconv.FormatUint(uint64(id), 10)
	ctx := ftp2http.WithSessionID(ftp2http.WithClientIP(context.Background(), ip), connID)

	sess, err := d.gw.Authenticate(ctx, user, pass)
	if err != nil {
		if errors.Is(err, ftp2http.ErrLoginRateLimited) {
			return nil, err
		}
		return nil, ErrAuthenticationFailed
	}

	fs, err := d.gw.Filesystem(sess)
	if err != nil {
		d.gw.EndSession(ctx, sess)
		return nil, err
	}
	d.bind(id, sess)

	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID:  sess.ID,
		Username:   sess.Username,
		RemoteAddr: ip,
	})
	return newClientDriver(ctx, d.gw, sess, fs, d.logger), nil
}

func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
