// Package spool provides the spill-to-disk byte accumulator used to hold an
// upload body until its final length is known.
//
// Bytes stay in memory until the configured threshold is crossed. At that
// point the buffered prefix is copied to a temporary file and every later
// write is appended to that file. A threshold <= 0 keeps everything in memory.
//
// # What this package must NOT do
//
//   - Perform network I/O.
//   - Keep temporary files after Close.
package spool

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrClosed is returned by every operation on a released buffer.
var ErrClosed = errors.New("spool: buffer closed")

const tempPattern = "ftp2http-upload-*"

// Buffer is a write-then-read byte accumulator. It is not safe for
// concurrent use; callers serialize access.
type Buffer struct {
	threshold int64
	dir       string

	mem    bytes.Buffer
	file   *os.File
	size   int64
	closed bool
}

// New returns an empty buffer that spills to dir (os.TempDir when empty)
// once more than threshold bytes have been written.
func New(threshold int64, dir string) *Buffer {
	return &Buffer{threshold: threshold, dir: dir}
}

// Write appends p to the buffer.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}

	if b.file == nil && b.threshold > 0 && b.size+int64(len(p)) > b.threshold {
		if err := b.spill(); err != nil {
			return 0, err
		}
	}

	var (
		n   int
		err error
	)
	if b.file != nil {
		n, err = b.file.Write(p)
	} else {
		n, err = b.mem.Write(p)
	}
	b.size += int64(n)
	return n, err
}

// WriteString appends s to the buffer.
func (b *Buffer) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

// Len reports the number of bytes written so far.
func (b *Buffer) Len() int64 {
	return b.size
}

// Spilled reports whether the contents moved to a temporary file.
func (b *Buffer) Spilled() bool {
	return b.file != nil
}

// Reader returns a reader over the complete contents. The reader is only
// valid until Close.
func (b *Buffer) Reader() (io.Reader, error) {
	if b.closed {
		return nil, ErrClosed
	}
	if b.file != nil {
		return io.NewSectionReader(b.file, 0, b.size), nil
	}
	return bytes.NewReader(b.mem.Bytes()), nil
}

// Close releases the buffer and removes any temporary file. It is safe to
// call more than once.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.mem = bytes.Buffer{}

	if b.file == nil {
		return nil
	}

	name := b.file.Name()
	closeErr := b.file.Close()
	b.file = nil
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("spool: remove %s: %w", name, err)
	}
	return closeErr
}

func (b *Buffer) spill() error {
	f, err := os.CreateTemp(b.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("spool: create temp file: %w", err)
	}
	if _, err := f.Write(b.mem.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("spool: spill to %s: %w", f.Name(), err)
	}
	b.file = f
	b.mem = bytes.Buffer{}
	return nil
}
