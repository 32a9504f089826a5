package repositories

// SessionStore maps a conversation id to the session token the backend issued
// for it. Tokens are overwritten, never cleared. Implementations are not
// required to persist anything: after a restart the backend simply treats the
// next message of every conversation as the start of a new session.
type SessionStore interface {
	// Get returns the stored token and whether one exists
	Get(conversationID string) (string, bool)
	// Set stores or overwrites the token for a conversation
	Set(conversationID string, token string)
}
