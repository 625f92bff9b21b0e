package postfs

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/apnarm/ftp2http/relay"
)

type passwords map[string]string

func (p passwords) CachedPassword(username string) (string, bool) {
	pw, ok := p[username]
	return pw, ok
}

type backend struct {
	hits     atomic.Int64
	lastAuth atomic.Value
	lastBody atomic.Value
}

func newRelay(t *testing.T) (*relay.Relay, *backend) {
	t.Helper()
	b := &backend{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		b.lastAuth.Store(r.Header.Get("Authorization"))
		b.lastBody.Store(string(body))
	}))
	t.Cleanup(srv.Close)

	rl, err := relay.New(relay.Config{Target: srv.URL})
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	return rl, b
}

func TestOpenWriteModesStartUpload(t *testing.T) {
	rl, b := newRelay(t)
	fs := New("alice", passwords{"alice": "secret"}, rl)

	for _, mode := range []string{"w", "wb"} {
		u, err := fs.Open("/alice/report.txt", mode)
		if err != nil {
			t.Fatalf("mode %s: %v", mode, err)
		}
		if u.Name() != "report.txt" || u.Username() != "alice" {
			t.Fatalf("unexpected upload binding %s/%s", u.Username(), u.Name())
		}
		_, _ = u.Write([]byte("x"))
		if err := u.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	if b.hits.Load() != 2 {
		t.Fatalf("expected 2 relays, got %d", b.hits.Load())
	}
	if auth := b.lastAuth.Load().(string); !strings.HasPrefix(auth, "Basic ") {
		t.Fatalf("expected cached password used, got %q", auth)
	}
	if body := b.lastBody.Load().(string); !strings.Contains(body, `name="alice"; filename="report.txt"`) {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestOpenWithoutCachedPasswordSendsNoAuth(t *testing.T) {
	rl, b := newRelay(t)
	fs := New("bob", nil, rl)

	u, err := fs.Open("/bob/f.bin", "wb")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = u.Write([]byte("x"))
	_ = u.Close()
	if auth := b.lastAuth.Load().(string); auth != "" {
		t.Fatalf("expected no authorization, got %q", auth)
	}
}

func TestOpenRejectsOtherModes(t *testing.T) {
	rl, _ := newRelay(t)
	fs := New("alice", nil, rl)

	for _, mode := range []string{"r", "rb", "a", "ab", "r+", "w+", ""} {
		_, err := fs.Open("/alice/f", mode)
		if !errors.Is(err, ErrUnsupportedOperation) {
			t.Fatalf("mode %q: expected ErrUnsupportedOperation, got %v", mode, err)
		}
	}
	_, err := fs.Open("/alice/f", "r")
	if err.Error() != "open mode r: filesystem operations are disabled." {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestOpenOutsideHomeRejectedBeforeSink(t *testing.T) {
	rl, b := newRelay(t)
	fs := New("user", passwords{"other_user": "pw"}, rl)

	for _, p := range []string{"/other_user/x", "/user/../other_user/x", "/userx/f", "relative"} {
		if fs.ValidPath(p) {
			t.Fatalf("%q must be invalid", p)
		}
		u, err := fs.Open(p, "wb")
		if u != nil || !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("%q: expected ErrInvalidPath, got %v", p, err)
		}
	}
	if b.hits.Load() != 0 {
		t.Fatal("no relay may happen for invalid paths")
	}
}

func TestOpenRequiresDirectChildOfHome(t *testing.T) {
	rl, _ := newRelay(t)
	fs := New("alice", nil, rl)

	for _, p := range []string{"/alice", "/alice/", "/alice/sub/f.txt"} {
		if _, err := fs.Open(p, "wb"); !errors.Is(err, ErrUnsupportedOperation) {
			t.Fatalf("%q: expected ErrUnsupportedOperation, got %v", p, err)
		}
	}
}

func TestValidPath(t *testing.T) {
	fs := New("alice", nil, nil)

	valid := []string{"/alice", "/alice/", "/alice/f", "/alice/./f", "/alice/sub/../f", "//alice//f"}
	for _, p := range valid {
		if !fs.ValidPath(p) {
			t.Fatalf("%q should be valid", p)
		}
	}
	invalid := []string{"/", "/alice2", "/alice/../bob", "/alic", ""}
	for _, p := range invalid {
		if fs.ValidPath(p) {
			t.Fatalf("%q should be invalid", p)
		}
	}
}

func TestRefusedVerbs(t *testing.T) {
	fs := New("alice", nil, nil)
	p := "/alice/f"

	_, mkstempErr := fs.Mkstemp("", "", "/alice")
	_, readlinkErr := fs.Readlink(p)
	_, sizeErr := fs.GetSize(p)
	_, mtimeErr := fs.GetMTime(p)

	errs := map[string]error{
		"mkstemp":  mkstempErr,
		"mkdir":    fs.Mkdir(p),
		"rmdir":    fs.Rmdir(p),
		"remove":   fs.Remove(p),
		"rename":   fs.Rename(p, "/alice/g"),
		"chmod":    fs.Chmod(p, 0o644),
		"stat":     fs.Stat(p),
		"lstat":    fs.Lstat(p),
		"readlink": readlinkErr,
		"getsize":  sizeErr,
		"getmtime": mtimeErr,
	}
	for op, err := range errs {
		var opErr *OpError
		if !errors.As(err, &opErr) || !errors.Is(err, ErrUnsupportedOperation) {
			t.Fatalf("%s: expected unsupported operation, got %v", op, err)
		}
		if opErr.Op != op {
			t.Fatalf("%s: op recorded as %q", op, opErr.Op)
		}
		if err.Error() != op+": filesystem operations are disabled." {
			t.Fatalf("%s: unexpected message %q", op, err.Error())
		}
	}
}

func TestConstantAnswers(t *testing.T) {
	fs := New("alice", nil, nil)

	entries, err := fs.ListDir("/alice")
	if err != nil || entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty listing, got %v %v", entries, err)
	}
	if err := fs.Chdir("/anything"); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	if !fs.IsDir("/alice") || fs.IsDir("/alice/sub") || fs.IsDir("/") {
		t.Fatal("only the home scope is a directory")
	}
	if fs.IsFile("/alice/f") || fs.IsLink("/alice/f") || fs.LExists("/alice/f") {
		t.Fatal("nothing exists as a file or link")
	}
	if fs.RealPath("/alice/x/../y") != "/alice/x/../y" {
		t.Fatal("realpath must be identity")
	}
	if fs.Root() != "/alice" {
		t.Fatalf("unexpected root %q", fs.Root())
	}
}
