package middleware

import "net/http"

// RequireMatchingUser must run after UploadToken. When the relay carries
// Basic auth, its user must equal the token subject.
func RequireMatchingUser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if user, _, hasBasic := r.BasicAuth(); hasBasic && user != claims.Subject {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
