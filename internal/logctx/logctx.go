// Package logctx adds FTP session and upload attributes, carried in the
// context, to every slog record.
package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps another slog.Handler.
type Handler struct {
	slog.Handler
}

// New wraps h.
func New(h slog.Handler) Handler {
	return Handler{Handler: h}
}

// Handle adds the sess and upload groups found in ctx to r.
func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if sd, ok := ctx.Value(sessionDataKey{}).(*SessionData); ok {
		r.AddAttrs(slog.Group("sess",
			slog.String("id", sd.SessionID),
			slog.String("user", sd.Username),
			slog.String("remote_addr", sd.RemoteAddr),
		))
	}

	if ud, ok := ctx.Value(uploadDataKey{}).(*UploadData); ok {
		r.AddAttrs(slog.Group("upload",
			slog.String("id", ud.UploadID),
			slog.String("file", ud.Filename),
		))
	}

	return h.Handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type sessionDataKey struct{}

// SessionData identifies the FTP session a record belongs to.
type SessionData struct {
	SessionID  string
	Username   string
	RemoteAddr string
}

// WithSessionData returns a copy of ctx carrying data.
func WithSessionData(ctx context.Context, data *SessionData) context.Context {
	return context.WithValue(ctx, sessionDataKey{}, data)
}

// SessionDataFrom returns the session attributes stored in ctx, if any.
func SessionDataFrom(ctx context.Context) (*SessionData, bool) {
	sd, ok := ctx.Value(sessionDataKey{}).(*SessionData)
	return sd, ok
}

type uploadDataKey struct{}

// UploadData identifies the upload a record belongs to.
type UploadData struct {
	UploadID string
	Filename string
}

// WithUploadData returns a copy of ctx carrying data.
func WithUploadData(ctx context.Context, data *UploadData) context.Context {
	return context.WithValue(ctx, uploadDataKey{}, data)
}
