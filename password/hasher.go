package password

import "strings"

// Hasher produces and checks encoded password hashes.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password string, encodedHash string) (bool, error)
}

var (
	_ Hasher = (*Argon2)(nil)
	_ Hasher = (*Bcrypt)(nil)
)

// Verify checks password against encodedHash, choosing the algorithm from
// the hash prefix. Verification never depends on configured cost
// parameters, so no hasher needs to be built first.
func Verify(password string, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return (&Argon2{}).Verify(password, encodedHash)
	case isBcrypt(encodedHash):
		return (&Bcrypt{}).Verify(password, encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}

// Algorithm names the algorithm of encodedHash, or "" when unknown.
func Algorithm(encodedHash string) string {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return algorithmID
	case isBcrypt(encodedHash):
		return "bcrypt"
	default:
		return ""
	}
}

func isBcrypt(encodedHash string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encodedHash, prefix) {
			return true
		}
	}
	return false
}
