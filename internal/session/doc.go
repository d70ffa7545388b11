// Package session tracks connected observer sessions and their interest in
// resource events.
//
// It provides two independent structures: Directory, the set of sessions
// that want list-changed broadcasts, and Subscriptions, the per-URI index
// of sessions that want resource-updated notifications. Both are safe for
// concurrent use and hold only non-owning references; session lifecycle
// belongs to the transport layer.
package session
