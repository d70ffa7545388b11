// Package instrumentation provides OpenTelemetry metrics and tracing for the
// foldersync server.
//
// The Provider owns the meter and tracer providers and selects exporters from
// configuration: Prometheus (default, scraped via the dedicated metrics
// server), OTLP over HTTP, or stdout for development. Metrics covers the
// domain instruments: active resources, tracked sessions, subscription
// counts, notification delivery outcomes, and watcher cycle timing. A
// disabled provider hands out a no-op Metrics so call sites never need to
// branch on whether instrumentation is on.
package instrumentation
