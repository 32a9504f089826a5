package entities

import (
	"testing"
	"time"
)

func TestNewLogEntry(t *testing.T) {
	before := time.Now().UTC()
	entry := NewLogEntry("conv-1", MessageTypeText, "سلام", DirectionIncoming)
	after := time.Now().UTC()

	if entry.ID == "" {
		t.Error("Expected a generated id")
	}
	if entry.ConversationID != "conv-1" {
		t.Errorf("Expected conversation id 'conv-1', got %q", entry.ConversationID)
	}
	if entry.Timestamp.Before(before) || entry.Timestamp.After(after) {
		t.Errorf("Timestamp %v outside expected window", entry.Timestamp)
	}
	if entry.Timestamp.Location() != time.UTC {
		t.Error("Expected UTC timestamp")
	}

	other := NewLogEntry("conv-1", MessageTypeText, "سلام", DirectionIncoming)
	if other.ID == entry.ID {
		t.Error("Expected unique ids per entry")
	}
}

func TestLogEntry_Validate(t *testing.T) {
	valid := NewLogEntry("conv-1", MessageTypeText, "hello", DirectionIncoming)
	if err := valid.Validate(); err != nil {
		t.Errorf("Valid entry should pass validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*LogEntry)
	}{
		{name: "missing conversation id", mutate: func(e *LogEntry) { e.ConversationID = "" }},
		{name: "invalid message type", mutate: func(e *LogEntry) { e.MessageType = "video" }},
		{name: "invalid direction", mutate: func(e *LogEntry) { e.Direction = "sideways" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := NewLogEntry("conv-1", MessageTypeText, "hello", DirectionIncoming)
			tt.mutate(&entry)
			if err := entry.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLogEntry_ValidateAllTypes(t *testing.T) {
	for _, mt := range []MessageType{MessageTypeText, MessageTypeVoice, MessageTypeVoiceTranscription} {
		entry := NewLogEntry("conv-1", mt, "content", DirectionOutgoing)
		if err := entry.Validate(); err != nil {
			t.Errorf("Entry with type %q should be valid: %v", mt, err)
		}
	}
}
