package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/apnarm/ftp2http/internal/spool"
)

// Upload is the sink for one file transfer. Write only buffers; Close
// performs the relay. All methods are safe for concurrent use, although an
// FTP data connection drives an upload from a single goroutine.
type Upload struct {
	id       string
	name     string
	username string
	password string
	relay    *Relay

	mu     sync.Mutex
	body   *spool.Buffer
	bytes  int64
	closed bool
}

// ID returns the upload id used in logs, audit events and tokens.
func (u *Upload) ID() string { return u.id }

// Name returns the uploaded file name.
func (u *Upload) Name() string { return u.name }

// Username returns the owner of the upload.
func (u *Upload) Username() string { return u.username }

// Closed reports whether Close or Discard already ran.
func (u *Upload) Closed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}

// Size returns the number of file bytes received so far.
func (u *Upload) Size() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bytes
}

// Write appends p to the upload body. The first non-empty call opens the
// buffer and writes the multipart preamble, so an upload that only ever saw
// empty writes is never relayed.
func (u *Upload) Write(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return 0, ErrUploadClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if u.body == nil {
		body := spool.New(u.relay.cfg.SpoolThreshold, u.relay.cfg.TempDir)
		if _, err := body.WriteString(preamble(u.username, u.name)); err != nil {
			_ = body.Close()
			return 0, err
		}
		u.body = body
	}

	n, err := u.body.Write(p)
	u.bytes += int64(n)
	return n, err
}

// Close relays the upload with a background context. See CloseContext.
func (u *Upload) Close() error {
	return u.CloseContext(context.Background())
}

// CloseContext performs the relay once. It returns nil on a 2xx answer and
// an *UnexpectedHTTPResponse otherwise. A second call, or a call on an
// upload that never received data, returns nil without any HTTP request.
// The buffer is released on every path.
func (u *Upload) CloseContext(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil
	}
	u.closed = true
	if u.body == nil {
		return nil
	}
	defer u.release()

	start := time.Now()
	err := u.send(ctx)

	outcome := Outcome{
		UploadID: u.id,
		Username: u.username,
		Filename: u.name,
		Kind:     OutcomeRelayed,
		Bytes:    u.bytes,
		Duration: time.Since(start),
	}
	if err != nil {
		outcome.Kind = OutcomeFailed
		outcome.Err = err
	}
	u.relay.observe(ctx, outcome)

	return err
}

// Discard drops the upload without relaying it.
func (u *Upload) Discard() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil
	}
	u.closed = true
	if u.body == nil {
		return nil
	}
	u.release()

	u.relay.observe(context.Background(), Outcome{
		UploadID: u.id,
		Username: u.username,
		Filename: u.name,
		Kind:     OutcomeDiscarded,
		Bytes:    u.bytes,
	})
	return nil
}

func (u *Upload) release() {
	if err := u.body.Close(); err != nil {
		u.relay.logger.WarnContext(context.Background(), "release upload buffer",
			slog.String("upload_id", u.id),
			slog.String("error", err.Error()),
		)
	}
}

func (u *Upload) send(ctx context.Context) error {
	if _, err := u.body.WriteString(epilogue()); err != nil {
		return transportError(err)
	}
	length := u.body.Len()

	body, err := u.body.Reader()
	if err != nil {
		return transportError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.relay.target.String(), body)
	if err != nil {
		return transportError(err)
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", ContentType)
	if u.password != "" {
		req.SetBasicAuth(u.username, u.password)
	}
	if u.relay.tokens != nil {
		token, err := u.relay.tokens.CreateUpload(u.username, u.name, u.id)
		if err != nil {
			return transportError(err)
		}
		req.Header.Set(u.relay.cfg.TokenHeader, token)
	}

	u.relay.logger.DebugContext(ctx, "relaying upload",
		slog.String("upload_id", u.id),
		slog.String("filename", u.name),
		slog.Int64("content_length", length),
		slog.Bool("spilled", u.body.Spilled()),
	)

	resp, err := u.relay.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError(resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}
