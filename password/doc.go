// Package password hashes and verifies the passwords of locally configured
// FTP accounts.
//
// Two encodings are understood:
//
//	$2b$<cost>$<salt+hash>                                  bcrypt
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>   Argon2id (PHC)
//
// [Verify] dispatches on the prefix, recomputes the hash with the embedded
// salt and parameters and compares the result in constant time.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other ftp2http package.
//   - Log plaintext passwords.
package password
