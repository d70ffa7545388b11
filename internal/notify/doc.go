// Package notify implements the notification fan-out: delivery of one event
// to many sessions with per-recipient failure isolation.
//
// A bounded worker pool caps concurrent deliveries so that high resource
// churn or a large session count cannot spawn unbounded goroutines. Delivery
// is best effort; failures are logged, recorded in metrics, and surfaced to
// an optional failure handler used for lazy pruning of dead sessions.
package notify
