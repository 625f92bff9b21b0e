// Package rate implements the redis-backed failed-login throttle of the
// gateway.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - fl:  - failed logins per FTP user
//   - fli: - failed logins per client IP
//
// # What this package must NOT do
//
//   - Decide what a failed login is (the gateway calls IncrementLogin).
//   - Be imported outside the ftp2http module.
package rate
