package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hooshyar/peyvand/domain/entities"
	"github.com/hooshyar/peyvand/domain/repositories"
)

// ChatLog is a MongoDB-backed append-only chat log
type ChatLog struct {
	collection *mongo.Collection
}

// NewChatLog creates a new MongoDB chat log over the chat_logs collection
func NewChatLog(db *mongo.Database) repositories.ChatLog {
	return &ChatLog{
		collection: db.Collection("chat_logs"),
	}
}

// Append implements repositories.ChatLog
func (r *ChatLog) Append(ctx context.Context, entry entities.LogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	doc := bson.M{
		"_id":             entry.ID,
		"conversation_id": entry.ConversationID,
		"timestamp":       entry.Timestamp,
		"message_type":    entry.MessageType,
		"content":         entry.Content,
		"direction":       entry.Direction,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to append chat log entry: %w", err)
	}
	return nil
}

// CountByConversation returns how many entries a conversation has logged
func (r *ChatLog) CountByConversation(ctx context.Context, conversationID string) (int64, error) {
	if conversationID == "" {
		return 0, errors.New("conversation ID cannot be empty")
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return 0, fmt.Errorf("failed to count chat log entries: %w", err)
	}
	return count, nil
}
