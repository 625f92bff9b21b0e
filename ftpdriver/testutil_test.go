package ftpdriver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	ftp2http "github.com/apnarm/ftp2http"
	"github.com/apnarm/ftp2http/accounts"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type upload struct {
	auth string
	body string
}

type backend struct {
	*httptest.Server
	status atomic.Int64
	mu     sync.Mutex
	got    []upload
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	b.status.Store(http.StatusOK)
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.got = append(b.got, upload{auth: r.Header.Get("Authorization"), body: string(body)})
		b.mu.Unlock()
		status := int(b.status.Load())
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, "not welcome here\n")
		}
	}))
	t.Cleanup(b.Close)
	return b
}

func (b *backend) uploads() []upload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]upload(nil), b.got...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGateway(t *testing.T, target string) *ftp2http.Gateway {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("alice-pw"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := ftp2http.DefaultConfig()
	cfg.Relay.URL = target
	cfg.Auth.CachePasswords = true
	cfg.Auth.Accounts = []accounts.Account{accounts.NewAccount("alice", string(hash))}

	gw, err := ftp2http.New().WithConfig(cfg).WithLogger(discardLogger()).Build()
	require.NoError(t, err)
	t.Cleanup(gw.Close)
	return gw
}

func newTestDriver(t *testing.T, gw *ftp2http.Gateway, mutate func(*Config)) *Driver {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := New(gw, cfg, discardLogger())
	require.NoError(t, err)
	return d
}
