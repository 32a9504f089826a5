package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hooshyar/peyvand/domain/entities"
	"github.com/hooshyar/peyvand/domain/repositories"
)

// User-visible messages for the fixed interaction points
const (
	// Greeting is sent in response to the start command
	Greeting = "سلام، من پیوند هستم، دستیار هوش مصنوعی در خدمت شما"

	noContentMessage        = "No response received from the API."
	timeoutMessage          = "Error: API response timed out. Please try again later."
	transportFailureMessage = "Error: Could not reach the assistant. Please try again later."
)

// RelayService coordinates one full exchange: it logs the inbound message,
// drives the assistant, updates the session store, sanitizes the reply, and
// delivers the outcome to the chat transport and the chat log.
type RelayService struct {
	assistant repositories.Assistant
	sessions  repositories.SessionStore
	chatLog   repositories.ChatLog
	transport repositories.Transport
	logger    *zap.Logger

	// mu guards locks; each conversation gets its own mutex so exchanges
	// for one conversation are serialized while independent conversations
	// proceed concurrently. Entries are reference counted and removed when
	// the last holder releases, so the map is bounded by in-flight work,
	// not by every conversation the process ever saw.
	mu    sync.Mutex
	locks map[string]*conversationLock
}

type conversationLock struct {
	mu   sync.Mutex
	refs int
}

// NewRelayService creates a new relay service
func NewRelayService(
	assistant repositories.Assistant,
	sessions repositories.SessionStore,
	chatLog repositories.ChatLog,
	transport repositories.Transport,
	logger *zap.Logger,
) *RelayService {
	return &RelayService{
		assistant: assistant,
		sessions:  sessions,
		chatLog:   chatLog,
		transport: transport,
		logger:    logger,
	}
}

// Start handles the start command: greet the user and log the greeting
func (s *RelayService) Start(ctx context.Context, conversationID string) error {
	lock := s.lockConversation(conversationID)
	defer s.unlockConversation(conversationID, lock)

	s.logger.Info("Received start command", zap.String("conversationID", conversationID))

	if err := s.transport.Send(conversationID, Greeting); err != nil {
		return fmt.Errorf("failed to send greeting: %w", err)
	}
	s.append(ctx, entities.NewLogEntry(conversationID, entities.MessageTypeText, Greeting, entities.DirectionOutgoing))
	return nil
}

// RelayText relays one text message through the assistant
func (s *RelayService) RelayText(ctx context.Context, conversationID string, text string) error {
	s.logger.Info("Received text message",
		zap.String("conversationID", conversationID))

	incoming := entities.NewLogEntry(conversationID, entities.MessageTypeText, text, entities.DirectionIncoming)
	req := repositories.AssistantRequest{
		Kind: repositories.MessageKindText,
		Text: text,
	}
	return s.relay(ctx, conversationID, req, incoming)
}

// RelayVoice relays one voice message through the assistant. The audio
// payload is forwarded as-is; transcription happens on the backend.
func (s *RelayService) RelayVoice(ctx context.Context, conversationID string, audio []byte, contentType string) error {
	attachmentID := uuid.New().String()
	s.logger.Info("Received voice message",
		zap.String("conversationID", conversationID),
		zap.String("attachmentID", attachmentID),
		zap.Int("size", len(audio)))

	incoming := entities.NewLogEntry(
		conversationID,
		entities.MessageTypeVoice,
		fmt.Sprintf("Voice message with attachment_id: %s", attachmentID),
		entities.DirectionIncoming,
	)
	req := repositories.AssistantRequest{
		Kind:        repositories.MessageKindVoice,
		Audio:       audio,
		Filename:    attachmentID + ".ogg",
		ContentType: contentType,
	}
	return s.relay(ctx, conversationID, req, incoming)
}

// relay runs the shared exchange flow. The incoming entry is always logged
// before the request goes out; the outgoing entry is always logged after the
// reply reached the transport, so log order mirrors what the user saw.
func (s *RelayService) relay(ctx context.Context, conversationID string, req repositories.AssistantRequest, incoming entities.LogEntry) error {
	lock := s.lockConversation(conversationID)
	defer s.unlockConversation(conversationID, lock)

	s.append(ctx, incoming)

	if token, ok := s.sessions.Get(conversationID); ok {
		req.SessionToken = token
	}

	reply, err := s.assistant.Converse(ctx, req)
	if err != nil {
		// Failed exchanges never touch the session store; an earlier
		// token stays valid for the next attempt.
		s.logger.Warn("Exchange failed",
			zap.String("conversationID", conversationID),
			zap.Error(err))
		return s.deliver(ctx, conversationID, failureMessage(err), false)
	}

	if reply.SessionToken != "" {
		s.sessions.Set(conversationID, reply.SessionToken)
	}

	if reply.Text == "" {
		s.logger.Warn("Assistant completed the exchange without content",
			zap.String("conversationID", conversationID))
		return s.deliver(ctx, conversationID, noContentMessage, false)
	}

	cleaned := Sanitize(reply.Text)
	return s.deliver(ctx, conversationID, cleaned, req.Kind == repositories.MessageKindVoice)
}

// deliver sends text to the user and then records it in the chat log. When
// the reply answers a voice message it is logged a second time under the
// voice_transcription type so transcripts can be filtered by modality.
func (s *RelayService) deliver(ctx context.Context, conversationID string, text string, voiceTranscription bool) error {
	if err := s.transport.Send(conversationID, text); err != nil {
		// Nothing reached the user, so nothing is logged outgoing.
		s.logger.Error("Failed to deliver reply",
			zap.String("conversationID", conversationID),
			zap.Error(err))
		return fmt.Errorf("failed to deliver reply: %w", err)
	}

	s.append(ctx, entities.NewLogEntry(conversationID, entities.MessageTypeText, text, entities.DirectionOutgoing))
	if voiceTranscription {
		s.append(ctx, entities.NewLogEntry(conversationID, entities.MessageTypeVoiceTranscription, text, entities.DirectionOutgoing))
	}
	return nil
}

// append records a chat log entry. Sink failures are an operational concern
// only; they never fail or block the exchange.
func (s *RelayService) append(ctx context.Context, entry entities.LogEntry) {
	if err := s.chatLog.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to append chat log entry",
			zap.String("conversationID", entry.ConversationID),
			zap.String("direction", string(entry.Direction)),
			zap.Error(err))
	}
}

// failureMessage maps an exchange failure to the message shown to the user
func failureMessage(err error) string {
	var rejected *repositories.RejectedError
	if errors.As(err, &rejected) {
		return rejected.UserMessage()
	}

	var upstream *repositories.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Message
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutMessage
	}
	return transportFailureMessage
}

// lockConversation acquires the conversation's mutex, creating it on first
// use. Every acquire must be paired with unlockConversation.
func (s *RelayService) lockConversation(conversationID string) *conversationLock {
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*conversationLock)
	}
	lock, exists := s.locks[conversationID]
	if !exists {
		lock = &conversationLock{}
		s.locks[conversationID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (s *RelayService) unlockConversation(conversationID string, lock *conversationLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, conversationID)
	}
	s.mu.Unlock()
}
