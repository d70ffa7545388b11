package server

// MCP notification methods for resource synchronization events.
const (
	methodResourcesListChanged = "notifications/resources/list_changed"
	methodResourceUpdated      = "notifications/resources/updated"
)

// ClientNotifier sends a JSON-RPC notification to a single connected client.
// *mcpserver.MCPServer satisfies this interface.
type ClientNotifier interface {
	SendNotificationToSpecificClient(sessionID string, method string, params map[string]any) error
}

// mcpSession adapts an MCP client session to the session.Session interface.
// It is a lightweight handle: two values with the same session ID refer to
// the same client, so the directory and subscription index deduplicate by ID.
type mcpSession struct {
	id       string
	notifier ClientNotifier
}

func newMCPSession(id string, notifier ClientNotifier) *mcpSession {
	return &mcpSession{id: id, notifier: notifier}
}

func (s *mcpSession) ID() string {
	return s.id
}

func (s *mcpSession) SendListChanged() error {
	return s.notifier.SendNotificationToSpecificClient(s.id, methodResourcesListChanged, nil)
}

func (s *mcpSession) SendResourceUpdated(uri string) error {
	return s.notifier.SendNotificationToSpecificClient(s.id, methodResourceUpdated, map[string]any{
		"uri": uri,
	})
}
