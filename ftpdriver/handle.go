package ftpdriver

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/apnarm/ftp2http/transfer"
	ftpserver "github.com/fclairamb/ftpserverlib"
	"github.com/spf13/afero"
)

var (
	_ afero.File                  = (*handle)(nil)
	_ ftpserver.FileTransfer      = (*handle)(nil)
	_ ftpserver.FileTransferError = (*handle)(nil)
)

// handle is the write-only file the engine copies a STOR payload into.
type handle struct {
	ctx     context.Context
	name    string
	it      *transfer.Interceptor
	logger  *slog.Logger
	written atomic.Int64
	opened  time.Time
}

func newHandle(ctx context.Context, name string, it *transfer.Interceptor, logger *slog.Logger) *handle {
	return &handle{
		ctx:    ctx,
		name:   name,
		it:     it,
		logger: logger,
		opened: time.Now(),
	}
}

func (h *handle) Name() string { return h.name }

func (h *handle) Write(p []byte) (int, error) {
	n, err := h.it.Write(p)
	h.written.Add(int64(n))
	return n, err
}

func (h *handle) WriteString(s string) (int, error) {
	return h.Write([]byte(s))
}

// Close relays the upload. A failed relay comes back as *TransferError so
// the engine reports the transfer as failed.
func (h *handle) Close() error {
	reply := h.it.Finish(h.ctx)
	if !reply.OK() {
		return &TransferError{Reply: reply}
	}
	h.logger.DebugContext(h.ctx, reply.Message,
		slog.String("file", h.name),
		slog.Int64("bytes", h.written.Load()),
	)
	return nil
}

// TransferError is called by the engine when the data connection failed.
// The upload is discarded and Close becomes a no-op failure.
func (h *handle) TransferError(err error) {
	reply := h.it.Abort(err)
	h.logger.InfoContext(h.ctx, reply.Message, slog.String("file", h.name))
}

// Seek only accepts the no-op rewind the engine issues for fresh stores.
func (h *handle) Seek(offset int64, whence int) (int64, error) {
	if offset == 0 && whence == io.SeekStart {
		return 0, nil
	}
	return 0, ErrNotReadable
}

func (h *handle) Read([]byte) (int, error)          { return 0, ErrNotReadable }
func (h *handle) ReadAt([]byte, int64) (int, error) { return 0, ErrNotReadable }

func (h *handle) WriteAt(p []byte, off int64) (int, error) {
	if off != h.written.Load() {
		return 0, ErrResumeUnsupported
	}
	return h.Write(p)
}

func (h *handle) Readdir(int) ([]os.FileInfo, error) { return nil, ErrNotReadable }
func (h *handle) Readdirnames(int) ([]string, error) { return nil, ErrNotReadable }

func (h *handle) Stat() (os.FileInfo, error) {
	return uploadInfo{name: h.name, size: h.written.Load(), mod: h.opened}, nil
}

func (h *handle) Sync() error { return nil }

func (h *handle) Truncate(size int64) error {
	if size == 0 && h.written.Load() == 0 {
		return nil
	}
	return ErrResumeUnsupported
}

type uploadInfo struct {
	name string
	size int64
	mod  time.Time
}

func (i uploadInfo) Name() string       { return i.name }
func (i uploadInfo) Size() int64        { return i.size }
func (i uploadInfo) Mode() os.FileMode  { return 0o200 }
func (i uploadInfo) ModTime() time.Time { return i.mod }
func (i uploadInfo) IsDir() bool        { return false }
func (i uploadInfo) Sys() any           { return nil }
