package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/apnarm/ftp2http/jwt"
	"github.com/apnarm/ftp2http/relay"
)

// TokenParser verifies an upload token. *jwt.Manager satisfies it.
type TokenParser interface {
	ParseUpload(token string) (*jwt.UploadClaims, error)
}

type uploadClaimsContextKey struct{}

// ClaimsFromContext returns the claims stored by UploadToken.
func ClaimsFromContext(ctx context.Context) (*jwt.UploadClaims, bool) {
	claims, ok := ctx.Value(uploadClaimsContextKey{}).(*jwt.UploadClaims)
	return claims, ok
}

// UploadToken rejects requests without a valid token in header. An empty
// header name selects relay.DefaultTokenHeader.
func UploadToken(parser TokenParser, header string) func(http.Handler) http.Handler {
	if header == "" {
		header = relay.DefaultTokenHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if parser == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token := strings.TrimSpace(r.Header.Get(header))
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := parser.ParseUpload(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), uploadClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
