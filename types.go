package ftp2http

import "time"

// Session is an authenticated FTP login.
type Session struct {
	// ID is the engine connection id, or a generated uuid when none was
	// attached to the login context.
	ID         string
	Username   string
	Home       string
	RemoteAddr string
	// Source is "local" or "remote".
	Source string
	// Validator is the remote endpoint that accepted the login, if any.
	Validator       string
	LoginMessage    string
	QuitMessage     string
	AuthenticatedAt time.Time
}
