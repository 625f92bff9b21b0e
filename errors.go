package ftp2http

import (
	"errors"

	"github.com/apnarm/ftp2http/accounts"
	"github.com/apnarm/ftp2http/postfs"
)

var (
	// ErrAuthenticationFailed is returned for every rejected login. The
	// client is never told which check failed.
	ErrAuthenticationFailed = accounts.ErrAuthenticationFailed
	// ErrDuplicateAccount is returned when a configured account repeats a username.
	ErrDuplicateAccount = accounts.ErrDuplicateAccount
	// ErrUnsupportedOperation is wrapped by every refused filesystem verb.
	ErrUnsupportedOperation = postfs.ErrUnsupportedOperation
	// ErrInvalidPath is returned for paths outside a session's home scope.
	ErrInvalidPath = postfs.ErrInvalidPath
	// ErrPermissionDenied is returned when the account may not upload.
	ErrPermissionDenied = accounts.ErrPermissionDenied
	// ErrLoginRateLimited is returned while the failed-login budget is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrGatewayNotReady is returned by methods called on a nil or closed Gateway.
	ErrGatewayNotReady = errors.New("gateway not initialized")
	// ErrNilSession is returned when an operation needs an authenticated session.
	ErrNilSession = errors.New("nil session")
)
