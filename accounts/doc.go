// Package accounts authenticates FTP logins against a local account table
// and an ordered chain of remote HTTP Basic-auth validators.
//
// # Authentication order
//
//  1. Local: an account with a stored hash is verified by rehashing the
//     supplied password with the stored salt and parameters.
//  2. Remote: each validator URL is probed with GET and Basic auth, in
//     configured order. The first 2xx answer wins. Transport errors are
//     logged and the chain continues.
//  3. A first remote success for an unknown user creates a remote-only
//     account (empty hash) that never satisfies the local check.
//  4. With password caching enabled, the accepted plaintext password is kept
//     so the upload relay can authenticate as the user.
//
// Callers never learn which step rejected a login; every rejection is
// [ErrAuthenticationFailed].
package accounts
