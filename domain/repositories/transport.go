package repositories

// Transport delivers outbound text to the chat client of a conversation.
// Delivery and retry semantics belong to the transport, not to callers.
type Transport interface {
	Send(conversationID string, text string) error
}
