package session

// Session is an opaque handle to one connected observer.
//
// Sessions are created and destroyed by the transport layer; this package
// holds only non-owning references. Two Session values refer to the same
// observer exactly when their IDs are equal. Send methods are fire and
// forget: they may fail when the peer is gone, and callers must treat such
// failures as recoverable.
type Session interface {
	// ID returns the stable identifier of the session.
	ID() string

	// SendListChanged signals that the set of resources changed and the
	// client should re-fetch the list.
	SendListChanged() error

	// SendResourceUpdated signals that the content at the given URI changed
	// and the client should re-fetch it.
	SendResourceUpdated(uri string) error
}
