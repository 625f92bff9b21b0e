package ftpdriver

import (
	"errors"
	"net"
	"time"
)

// Defaults carried over from the original server.
const (
	DefaultMaxConnections      = 256
	DefaultMaxConnectionsPerIP = 5
	DefaultIdleTimeout         = 5 * time.Minute
	DefaultBanner              = "ftp2http ready."
)

// Config holds the listener settings of the FTP engine.
type Config struct {
	// ListenAddr is host:port. Ignored when Listener is set.
	ListenAddr string
	// Listener is an already open socket, such as one inherited by fd.
	Listener net.Listener
	// PublicHost is the IP announced in passive replies. Empty uses the
	// control connection's local address.
	PublicHost string
	// PassivePortStart and PassivePortEnd bound the passive data ports.
	// Both zero lets the engine pick.
	PassivePortStart int
	PassivePortEnd   int
	// TLSCertPEM holds a certificate and its private key. When set, control
	// and data channels must be encrypted.
	TLSCertPEM []byte

	IdleTimeout         time.Duration
	Banner              string
	MaxConnections      int
	MaxConnectionsPerIP int
}

// DefaultConfig returns a Config listening on all interfaces, port 21.
func DefaultConfig() Config {
	return Config{
		ListenAddr:          ":21",
		IdleTimeout:         DefaultIdleTimeout,
		Banner:              DefaultBanner,
		MaxConnections:      DefaultMaxConnections,
		MaxConnectionsPerIP: DefaultMaxConnectionsPerIP,
	}
}

// Validate returns the first violation found in c.
func (c *Config) Validate() error {
	if c.Listener == nil && c.ListenAddr == "" {
		return errors.New("ftpdriver: ListenAddr or Listener is required")
	}
	if c.PassivePortStart < 0 || c.PassivePortEnd < 0 || c.PassivePortStart > 65535 || c.PassivePortEnd > 65535 {
		return errors.New("ftpdriver: passive ports must be within 0-65535")
	}
	if (c.PassivePortStart == 0) != (c.PassivePortEnd == 0) {
		return errors.New("ftpdriver: passive port range needs both bounds")
	}
	if c.PassivePortStart > c.PassivePortEnd {
		return errors.New("ftpdriver: passive port range is inverted")
	}
	if c.PublicHost != "" && net.ParseIP(c.PublicHost) == nil {
		return errors.New("ftpdriver: PublicHost must be an IP address")
	}
	if c.IdleTimeout < 0 {
		return errors.New("ftpdriver: IdleTimeout must be >= 0")
	}
	if c.MaxConnections < 0 || c.MaxConnectionsPerIP < 0 {
		return errors.New("ftpdriver: connection limits must be >= 0")
	}
	return nil
}
