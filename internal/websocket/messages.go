package websocket

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeStart MessageType = "start"
	MessageTypeText  MessageType = "text"
	MessageTypeVoice MessageType = "voice"
	MessageTypeReply MessageType = "reply"
	MessageTypeError MessageType = "error"
)

// InboundMessage is one message from a chat client. Text messages carry
// text; voice messages carry a base64 encoded audio payload in whatever
// container the client recorded (forwarded to the backend untouched).
type InboundMessage struct {
	Type        MessageType `json:"type"`
	Text        string      `json:"text,omitempty"`
	AudioData   string      `json:"audio_data,omitempty"` // base64 encoded
	ContentType string      `json:"content_type,omitempty"`
}

// ReplyMessage carries the assistant's reply back to the chat client
type ReplyMessage struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Text           string      `json:"text"`
	Timestamp      string      `json:"timestamp"`
}

// ErrorMessage reports a client-side protocol problem back to the client
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Code    string      `json:"error_code"`
	Message string      `json:"message"`
}

// ParseInbound decodes and validates one inbound client message
func ParseInbound(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch msg.Type {
	case MessageTypeStart:
		return &msg, nil
	case MessageTypeText:
		if msg.Text == "" {
			return nil, fmt.Errorf("text message requires a text field")
		}
		return &msg, nil
	case MessageTypeVoice:
		if msg.AudioData == "" {
			return nil, fmt.Errorf("voice message requires an audio_data field")
		}
		return &msg, nil
	case "":
		return nil, fmt.Errorf("message missing type field")
	default:
		return nil, fmt.Errorf("unknown message type: %q", msg.Type)
	}
}

// DecodeAudio decodes the base64 audio payload of a voice message
func (m *InboundMessage) DecodeAudio() ([]byte, error) {
	audio, err := base64.StdEncoding.DecodeString(m.AudioData)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio data: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("audio payload is empty")
	}
	return audio, nil
}
