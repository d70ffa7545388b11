// Package server connects the synchronization core to the MCP transport.
//
// ServerContext wires and owns the core components: the session directory,
// the subscription index, the notification fanout, and the resource
// registry. Bridge mirrors registry state into an MCP server instance,
// tracks client sessions through transport hooks, and resolves the calling
// session for subscribe and unsubscribe requests.
//
// The package also provides the operational HTTP surface: a MetricsServer
// exposing Prometheus metrics on a dedicated port and a HealthChecker
// serving Kubernetes-style liveness and readiness probes.
package server
