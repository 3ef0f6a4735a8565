// Package observe instruments query-key fetch functions.
//
// It is a pure instrumentation library: it wraps querykey.FetchFunc values
// with OpenTelemetry spans and metrics and zerolog events, and performs no
// I/O beyond exporter setup. Cache engines call the wrapped functions as
// they would the unwrapped functions.
package observe
