package password

import "errors"

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password: empty password")
	// ErrMalformedHash is returned for a stored hash that cannot be parsed.
	ErrMalformedHash = errors.New("password: malformed hash")
	// ErrUnsupportedHash is returned for a hash produced by an unknown algorithm.
	ErrUnsupportedHash = errors.New("password: unsupported hash algorithm")
)
