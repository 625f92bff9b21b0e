package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apnarm/ftp2http/jwt"
)

func newManager(t *testing.T) *jwt.Manager {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{
		TTL:           time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func okHandler(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims.Subject != wantUser {
			t.Errorf("missing claims in context: %+v", claims)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestUploadTokenAccepts(t *testing.T) {
	m := newManager(t)
	token, err := m.CreateUpload("alice", "f.txt", "u1")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	h := UploadToken(m, "")(okHandler(t, "alice"))
	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.Header.Set("X-Upload-Token", token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestUploadTokenRejects(t *testing.T) {
	m := newManager(t)
	cases := map[string]string{
		"missing": "",
		"garbage": "not-a-token",
	}
	for name, token := range cases {
		h := UploadToken(m, "X-Custom")(okHandler(t, ""))
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		if token != "" {
			req.Header.Set("X-Custom", token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}

	h := UploadToken(nil, "")(okHandler(t, ""))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("nil parser: expected 401, got %d", rec.Code)
	}
}

func TestRequireMatchingUser(t *testing.T) {
	m := newManager(t)
	token, _ := m.CreateUpload("alice", "f.txt", "u1")
	h := UploadToken(m, "")(RequireMatchingUser()(okHandler(t, "alice")))

	cases := []struct {
		name string
		user string
		want int
	}{
		{name: "no basic auth", want: http.StatusNoContent},
		{name: "same user", user: "alice", want: http.StatusNoContent},
		{name: "other user", user: "mallory", want: http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Upload-Token", token)
		if tc.user != "" {
			req.SetBasicAuth(tc.user, "pw")
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}
