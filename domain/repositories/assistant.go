package repositories

import (
	"context"
	"fmt"
	"strings"
)

// MessageKind tells the assistant how to interpret the payload of a request
type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindVoice MessageKind = "voice"
)

// AssistantRequest is one outbound exchange with the conversational backend.
// It is built fresh per exchange and never mutated after being sent.
type AssistantRequest struct {
	Kind MessageKind

	// Text carries the user's message for text requests
	Text string

	// Audio carries the voice payload for voice requests, forwarded as-is
	// in whatever container format the client recorded it in
	Audio       []byte
	Filename    string
	ContentType string

	// SessionToken is the upstream continuation handle, empty on the first
	// exchange of a conversation
	SessionToken string
}

// AssistantReply is a completed reply assembled from the backend's stream
type AssistantReply struct {
	// Text is the accumulated reply, unsanitized. Empty means the backend
	// finished the exchange without producing content; callers must treat
	// that as "no content", not as a failure.
	Text string

	// SessionToken is the token captured during the stream, empty if the
	// backend did not issue one
	SessionToken string
}

// Assistant abstracts the conversational backend
type Assistant interface {
	// Converse issues one exchange and blocks until the streamed reply is
	// complete or the exchange fails. Failures are reported as
	// *UpstreamError, *RejectedError, or a plain transport error.
	Converse(ctx context.Context, req AssistantRequest) (*AssistantReply, error)
}

// UpstreamError is a well-formed error frame carried inside an otherwise
// successful stream. Its message is surfaced to the user verbatim.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream reported error: %s", e.Message)
}

// sttDisabledMarker is the substring the backend includes in a rejection body
// when the account has no speech-to-text capability provisioned
const sttDisabledMarker = "User has no STT service enabled"

// RejectedError is a non-200 response from the backend. The body is kept in
// full so it can be surfaced to the user.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("assistant rejected request with status %d: %s", e.StatusCode, e.Body)
}

// TranscriptionUnavailable reports whether the rejection was caused by the
// account lacking a speech-to-text service
func (e *RejectedError) TranscriptionUnavailable() bool {
	return strings.Contains(e.Body, sttDisabledMarker)
}

// UserMessage renders the rejection as a message suitable for the end user
func (e *RejectedError) UserMessage() string {
	if e.TranscriptionUnavailable() {
		return "Voice messages are not enabled for this assistant. Please send your message as text instead."
	}

	message := fmt.Sprintf("Error: %d", e.StatusCode)
	switch e.StatusCode {
	case 400:
		message += fmt.Sprintf(" - Bad Request: %s", e.Body)
	case 401:
		message += " - Unauthorized: Invalid API key."
	case 404:
		message += " - Not Found: Agent ID not found."
	case 413:
		message += " - Payload Too Large."
	case 422:
		message += " - Unprocessable Entity: Invalid data format."
	default:
		message += fmt.Sprintf(" - %s", e.Body)
	}
	return message
}
