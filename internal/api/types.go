package api

import "time"

// ConversationAuthRequest represents the request payload for conversation
// authentication. ConversationID is optional; a fresh one is generated when
// omitted.
type ConversationAuthRequest struct {
	ConversationID string `json:"conversation_id"`
}

// ConversationAuthResponse represents the response payload for conversation
// authentication
type ConversationAuthResponse struct {
	Token          string    `json:"token"`
	ExpiresAt      time.Time `json:"expires_at"`
	ConversationID string    `json:"conversation_id"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
