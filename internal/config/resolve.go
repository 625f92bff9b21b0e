package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	ftp2http "github.com/apnarm/ftp2http"
	"github.com/apnarm/ftp2http/accounts"
	"github.com/apnarm/ftp2http/ftpdriver"
)

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Backends returns the validator URLs. Entries without an http(s) scheme
// are appended to HTTPURL.
func (f *File) Backends() []string {
	out := make([]string, 0, len(f.AuthenticationBackends))
	for _, u := range f.AuthenticationBackends {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			u = f.HTTPURL + u
		}
		out = append(out, u)
	}
	return out
}

// Accounts returns the local account table.
func (f *File) Accounts() []accounts.Account {
	out := make([]accounts.Account, 0, len(f.Users))
	for _, u := range f.Users {
		acct := accounts.NewAccount(u.Name, u.Hash)
		if u.Perm != "" {
			acct.Perm = u.Perm
		}
		if u.LoginMessage != "" {
			acct.LoginMessage = u.LoginMessage
		}
		if u.QuitMessage != "" {
			acct.QuitMessage = u.QuitMessage
		}
		out = append(out, acct)
	}
	return out
}

// Gateway builds the gateway configuration on top of the defaults.
func (f *File) Gateway() (ftp2http.Config, error) {
	cfg := ftp2http.DefaultConfig()
	if f.HTTPURL == "" {
		return cfg, errors.New("http_url is required")
	}

	cfg.Relay.URL = f.HTTPURL
	if f.RelayTimeout > 0 {
		cfg.Relay.Timeout = f.RelayTimeout
	}
	if f.SpoolThreshold > 0 {
		cfg.Relay.SpoolThreshold = f.SpoolThreshold
	}
	cfg.Relay.TempDir = f.TempDir

	cfg.Auth.Accounts = f.Accounts()
	cfg.Auth.Backends = f.Backends()
	cfg.Auth.CachePasswords = f.HTTPBasicAuth

	if t := f.LoginThrottle; t.Enabled {
		cfg.Security.EnableLoginThrottle = true
		cfg.Security.EnableIPThrottle = t.PerIP
		if t.MaxAttempts > 0 {
			cfg.Security.MaxLoginAttempts = t.MaxAttempts
		}
		if t.Cooldown > 0 {
			cfg.Security.LoginCooldownDuration = t.Cooldown
		}
	}

	if t := f.UploadToken; t.Enabled {
		if t.KeyPath == "" {
			return cfg, errors.New("upload_token.key_path is required")
		}
		key, err := os.ReadFile(t.KeyPath)
		if err != nil {
			return cfg, fmt.Errorf("upload token key: %w", err)
		}
		cfg.Token.Enabled = true
		cfg.Token.PrivateKey = key
		if t.Method != "" {
			cfg.Token.SigningMethod = t.Method
		}
		if cfg.Token.SigningMethod == "hs256" {
			cfg.Token.PrivateKey = []byte(strings.TrimSpace(string(key)))
		}
		if t.Header != "" {
			cfg.Token.Header = t.Header
		}
		if t.TTL > 0 {
			cfg.Token.TTL = t.TTL
		}
		cfg.Token.Issuer = t.Issuer
		cfg.Token.KeyID = t.KeyID
	}

	cfg.Audit.Enabled = f.AuditLog != ""
	cfg.Metrics.Enabled = f.MetricsAddr != ""
	cfg.Metrics.EnableLatencyHistograms = cfg.Metrics.Enabled

	return cfg, cfg.Validate()
}

// Driver builds the FTP listener configuration. It opens the inherited
// listener, reads the certificate and resolves the masquerade address.
func (f *File) Driver(ctx context.Context, resolver Resolver) (ftpdriver.Config, error) {
	cfg := ftpdriver.DefaultConfig()
	cfg.ListenAddr = net.JoinHostPort(f.ListenHost, strconv.Itoa(f.ListenPort))

	if f.ListenFD >= 0 {
		ln, err := net.FileListener(os.NewFile(uintptr(f.ListenFD), "ftp2http-listener"))
		if err != nil {
			return cfg, fmt.Errorf("listen_fd %d: %w", f.ListenFD, err)
		}
		cfg.Listener = ln
	}

	// Both bounds are needed; a single one is ignored.
	if f.PassivePortMin > 0 && f.PassivePortMax > 0 {
		cfg.PassivePortStart = f.PassivePortMin
		cfg.PassivePortEnd = f.PassivePortMax
	}

	if f.MasqueradeAddress != "" {
		ip, err := resolveIPv4(ctx, resolver, f.MasqueradeAddress)
		if err != nil {
			return cfg, fmt.Errorf("masquerade_address: %w", err)
		}
		cfg.PublicHost = ip
	}

	if f.SSLCertPath != "" {
		pem, err := os.ReadFile(f.SSLCertPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("cannot find SSL certificate file: %s", f.SSLCertPath)
			}
			return cfg, err
		}
		cfg.TLSCertPEM = pem
	}

	if f.IdleTimeout > 0 {
		cfg.IdleTimeout = f.IdleTimeout
	}
	if f.Banner != "" {
		cfg.Banner = f.Banner
	}

	return cfg, cfg.Validate()
}

func resolveIPv4(ctx context.Context, resolver Resolver, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	if len(addrs) > 0 {
		return addrs[0].IP.String(), nil
	}
	return "", fmt.Errorf("no address for %s", host)
}
