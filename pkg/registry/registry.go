// Package registry tracks which users currently have live connections.
//
// A user is online iff at least one connection is registered for it.
// The in-memory implementation is the default; a Redis-backed variant
// exists for clustered deployments where several server processes need
// a shared view of presence.
package registry

// Registry owns the mapping between users and their live connections.
// Implementations must never expose internal state: OnlineUsers returns
// a point-in-time copy.
type Registry interface {
	// Register adds a connection under the user. Registering an already
	// known connection id is a no-op.
	Register(connID, userID string)

	// Unregister removes the connection. Removing the user's last
	// connection takes the user offline. Unknown connection ids are
	// ignored; disconnect events may race with cleanup.
	Unregister(connID string)

	// IsOnline reports whether the user has at least one live connection.
	IsOnline(userID string) bool

	// OnlineUsers returns a snapshot of all currently online user ids.
	OnlineUsers() []string
}
