// Package prometheus renders gateway metrics in Prometheus text exposition
// format.
//
// Counter names are ftp2http_*_total. The only histogram is
// ftp2http_relay_latency_seconds.
//
// # What this package must NOT do
//
//   - Register anything in a global Prometheus registry. Callers mount Handler.
//   - Mutate gateway state.
package prometheus
