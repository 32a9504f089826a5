package chatlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/hooshyar/peyvand/domain/entities"
	"github.com/hooshyar/peyvand/domain/repositories"
)

const defaultLogPath = "chat_logs.jsonl"

// FileLog appends chat log entries to a local JSONL file, one entry per
// line. It is the default sink when no MongoDB is configured.
type FileLog struct {
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// Ensure FileLog implements the ChatLog interface
var _ repositories.ChatLog = (*FileLog)(nil)

// NewFileLog opens (or creates) the log file in append mode. Path comes from
// the CHAT_LOG_FILE environment variable when empty.
func NewFileLog(path string, logger *zap.Logger) (*FileLog, error) {
	if path == "" {
		path = os.Getenv("CHAT_LOG_FILE")
	}
	if path == "" {
		path = defaultLogPath
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat log file %s: %w", path, err)
	}

	logger.Info("Chat log file opened", zap.String("path", path))

	return &FileLog{
		file:   file,
		logger: logger,
	}, nil
}

// Append writes one entry as a JSON line
func (f *FileLog) Append(ctx context.Context, entry entities.LogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.file.Write(line); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

// Close closes the underlying file
func (f *FileLog) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
