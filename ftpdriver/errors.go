package ftpdriver

import (
	"errors"

	"github.com/apnarm/ftp2http/transfer"
)

var (
	// ErrTooManyConnections is returned when the server is full.
	ErrTooManyConnections = errors.New("too many connections")
	// ErrTooManyConnectionsPerIP is returned when one address holds too many connections.
	ErrTooManyConnectionsPerIP = errors.New("too many connections from this IP")
	// ErrAuthenticationFailed is the only login error a client sees.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrTLSNotConfigured is returned by GetTLSConfig without a certificate.
	ErrTLSNotConfigured = errors.New("tls not configured")
	// ErrResumeUnsupported is returned for stores at a non-zero offset.
	ErrResumeUnsupported = errors.New("resuming uploads is not supported")
	// ErrNotReadable is returned by read and seek calls on an upload handle.
	ErrNotReadable = errors.New("upload handle is write-only")
)

// TransferError carries a non-successful transfer reply out of Close.
type TransferError struct {
	Reply transfer.Reply
}

func (e *TransferError) Error() string { return e.Reply.Message }

func (e *TransferError) Unwrap() error { return e.Reply.Err }
