// Package ftp2http is a write-only file-intake gateway: files uploaded over
// FTP are relayed, one HTTP POST per file, to a configured backend, and the
// backend's answer decides what the FTP client is told.
//
// The package is safe for concurrent use: a [Gateway] built through
// [Builder.Build] is shared by every FTP session of the process.
//
// # Architecture boundaries
//
// ftp2http is the public surface. It exposes [Gateway], [Builder], [Config],
// [Session] and the metrics and audit types. Leaf concerns live in sibling
// packages: accounts (credential store and remote validator chain), postfs
// (restricted virtual filesystem), relay (multipart upload sink), transfer
// (session close interceptor) and ftpdriver (binding to the FTP engine).
//
// # What this package must NOT do
//
//   - Read from or list anything on behalf of a client.
//   - Retry or re-queue an upload the backend rejected.
//   - Import ftpdriver (the driver imports the gateway, not the reverse).
package ftp2http
