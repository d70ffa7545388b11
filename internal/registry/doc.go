// Package registry owns the set of resources exposed to connected sessions.
//
// The registry is the single source of truth for which resources exist.
// Add and Remove are upsert and idempotent-delete respectively; both
// broadcast list-changed notifications through the wired notifier, and
// Remove cascades into the subscription index so a removed resource keeps
// no subscribers. Observers registered at wiring time mirror mutations into
// the transport layer, replacing any need to patch foreign types.
package registry
