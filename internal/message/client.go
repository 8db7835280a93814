package message

import "context"

// SessionInfo is the host's view of a session. A non-empty ParentID marks
// a sub-agent session.
type SessionInfo struct {
	ID       string
	ParentID string
	Title    string
}

// Client is the minimal host capability surface the engine depends on.
// Hosts adapt their own SDK types behind this interface; the engine never
// imports a concrete host client.
type Client interface {
	// ListMessages returns the current ordered message list for a session.
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)

	// SessionInfo returns metadata for a session, including its parent.
	SessionInfo(ctx context.Context, sessionID string) (SessionInfo, error)
}
