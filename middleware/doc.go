// Package middleware provides HTTP middleware for backends that receive
// ftp2http relays.
//
// # Guards
//
//   - [UploadToken] verifies the signed upload token header and stores its
//     claims in the request context.
//   - [RequireMatchingUser] rejects relays whose Basic auth user differs
//     from the token subject.
//
// # What this package must NOT do
//
//   - Parse the multipart body (handlers own the body).
//   - Sign tokens (only the gateway signs).
package middleware
