package ftp2http

import "context"

type clientIPContextKey struct{}
type sessionIDContextKey struct{}

// WithClientIP attaches the FTP client's IP address to ctx. The Gateway uses
// it for per-IP login throttling and audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithSessionID attaches the engine's connection id to ctx so audit events
// and the Session returned by Authenticate carry it.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey{}, id)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func sessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(sessionIDContextKey{}).(string)
	return id
}
