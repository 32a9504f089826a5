package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MessageType classifies what kind of content a log entry records
type MessageType string

const (
	MessageTypeText               MessageType = "text"
	MessageTypeVoice              MessageType = "voice"
	MessageTypeVoiceTranscription MessageType = "voice_transcription"
)

// Direction tells whether the message travelled from the user to the
// assistant or the other way around
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// LogEntry is a single record in the append-only chat log. Entries for one
// conversation are appended in the order the user observed them.
type LogEntry struct {
	ID             string      `json:"id" bson:"_id,omitempty"`
	ConversationID string      `json:"conversation_id" bson:"conversation_id"`
	Timestamp      time.Time   `json:"timestamp" bson:"timestamp"`
	MessageType    MessageType `json:"message_type" bson:"message_type"`
	Content        string      `json:"content" bson:"content"`
	Direction      Direction   `json:"direction" bson:"direction"`
}

// NewLogEntry creates a log entry stamped with the current UTC time
func NewLogEntry(conversationID string, messageType MessageType, content string, direction Direction) LogEntry {
	return LogEntry{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Timestamp:      time.Now().UTC(),
		MessageType:    messageType,
		Content:        content,
		Direction:      direction,
	}
}

// Validate validates the log entry data
func (e *LogEntry) Validate() error {
	if e.ConversationID == "" {
		return errors.New("conversation_id is required")
	}

	switch e.MessageType {
	case MessageTypeText, MessageTypeVoice, MessageTypeVoiceTranscription:
	default:
		return errors.New("invalid message type")
	}

	switch e.Direction {
	case DirectionIncoming, DirectionOutgoing:
	default:
		return errors.New("invalid direction")
	}

	return nil
}
