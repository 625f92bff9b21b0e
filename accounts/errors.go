package accounts

import "errors"

var (
	// ErrAuthenticationFailed is returned when no check accepted the credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrDuplicateAccount is returned by AddAccount for an existing username.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrInvalidPermission is returned for a permission string outside the FTP alphabet.
	ErrInvalidPermission = errors.New("invalid account permission")
	// ErrInvalidUsername is returned for usernames that cannot name a home scope.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrPermissionDenied is returned when an account lacks the permission
	// letter an operation needs.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidValidator is returned for a validator URL that is not absolute http(s).
	ErrInvalidValidator = errors.New("invalid validator url")
)
