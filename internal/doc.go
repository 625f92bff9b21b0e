// Package internal holds machinery private to ftp2http.
//
// # Sub-packages
//
//   - config: configuration file loading and conversion
//   - logctx: slog handler adding session and upload attributes
//   - rate: redis-backed failed-login counters
//   - spool: memory-then-disk buffer for upload bodies
//
// # What this package must NOT do
//
//   - Export types that appear in the public ftp2http API.
package internal
