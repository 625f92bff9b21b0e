package accounts

import (
	"fmt"
	"strings"
)

const (
	// DefaultPerm lets a user change directory, list and store files.
	DefaultPerm = "elw"
	// DefaultLoginMessage is recorded on the Session of a successful login.
	DefaultLoginMessage = "Login successful."
	// DefaultQuitMessage is recorded on the Session for QUIT.
	DefaultQuitMessage = "Goodbye."
	// PermWrite is the permission letter needed to store a file.
	PermWrite = "w"

	// permAlphabet lists the FTP permission letters:
	// read e,l,r and write a,d,f,m,w,M,T.
	permAlphabet = "elradfmwMT"
)

// Account is one entry of the account table. An empty PasswordHash marks a
// remote-only account.
type Account struct {
	Username     string
	PasswordHash string
	Perm         string
	LoginMessage string
	QuitMessage  string
}

// NewAccount returns an account with default permissions and messages.
func NewAccount(username, passwordHash string) Account {
	return Account{
		Username:     username,
		PasswordHash: passwordHash,
		Perm:         DefaultPerm,
		LoginMessage: DefaultLoginMessage,
		QuitMessage:  DefaultQuitMessage,
	}
}

// Home returns the account's home scope, "/<username>".
func (a Account) Home() string {
	return "/" + a.Username
}

// RemoteOnly reports whether the account can only pass remote validation.
func (a Account) RemoteOnly() bool {
	return a.PasswordHash == ""
}

// HasPerm reports whether every letter of perm is granted.
func (a Account) HasPerm(perm string) bool {
	for _, p := range perm {
		if !strings.ContainsRune(a.Perm, p) {
			return false
		}
	}
	return true
}

func (a *Account) normalize() error {
	if a.Username == "" || strings.ContainsAny(a.Username, "/\x00") || a.Username == "." || a.Username == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, a.Username)
	}
	if a.Perm == "" {
		a.Perm = DefaultPerm
	}
	for _, p := range a.Perm {
		if !strings.ContainsRune(permAlphabet, p) {
			return fmt.Errorf("%w: %q for user %q", ErrInvalidPermission, string(p), a.Username)
		}
	}
	if a.LoginMessage == "" {
		a.LoginMessage = DefaultLoginMessage
	}
	if a.QuitMessage == "" {
		a.QuitMessage = DefaultQuitMessage
	}
	return nil
}
