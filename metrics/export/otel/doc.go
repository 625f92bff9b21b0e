// Package otel binds gateway metrics to an OpenTelemetry Meter.
//
// [NewExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per latency bucket. A single callback reads the
// gateway snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate gateway state.
package otel
