package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hooshyar/peyvand/domain/repositories"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for voice payloads
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Relay handles the messages a chat client can send. Implemented by the
// relay coordinator.
type Relay interface {
	Start(ctx context.Context, conversationID string) error
	RelayText(ctx context.Context, conversationID string, text string) error
	RelayVoice(ctx context.Context, conversationID string, audio []byte, contentType string) error
}

// Hub maintains the set of active chat clients and routes outbound replies
// to the right connection. It is the Transport the relay coordinator writes
// to.
type Hub struct {
	// Registered clients, keyed by conversation id.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	relay  Relay
	logger *zap.Logger
}

// Ensure Hub implements the Transport interface
var _ repositories.Transport = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// SetRelay attaches the relay coordinator. Must be called before the hub
// accepts connections; kept out of the constructor because the coordinator
// itself needs the hub as its transport.
func (h *Hub) SetRelay(relay Relay) {
	h.relay = relay
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if previous, ok := h.clients[client.conversationID]; ok {
				previous.close()
			}
			h.clients[client.conversationID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("conversationID", client.conversationID))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.conversationID]; ok && current == client {
				delete(h.clients, client.conversationID)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("conversationID", client.conversationID))
		}
	}
}

// Send delivers text to the conversation's connected client. It fails when
// the conversation has no live connection, the connection is closing, or its
// outbound buffer is full.
func (h *Hub) Send(conversationID string, text string) error {
	h.mu.RLock()
	client, ok := h.clients[conversationID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("conversation %s has no connected client", conversationID)
	}

	payload, err := json.Marshal(ReplyMessage{
		Type:           MessageTypeReply,
		ConversationID: conversationID,
		Text:           text,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	select {
	case client.send <- payload:
		return nil
	case <-client.done:
		return fmt.Errorf("conversation %s connection is closing", conversationID)
	case <-time.After(writeWait):
		return fmt.Errorf("conversation %s send buffer is full", conversationID)
	}
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. Never closed; senders race
	// against done instead, so a disconnect can never panic a sender.
	send chan []byte

	// Closed exactly once when the hub drops this client, either on
	// unregister or when a reconnect replaces it.
	done      chan struct{}
	closeOnce sync.Once

	// Inbound messages, consumed one at a time so exchanges within the
	// conversation keep their arrival order.
	inbound chan []byte

	// Conversation id this connection is bound to
	conversationID string

	// Logger
	logger *zap.Logger
}

// close signals the pumps and any blocked sender that this client is gone
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// HandleWebSocketWithAuth handles websocket requests with a pre-authenticated
// conversation id
func HandleWebSocketWithAuth(hub *Hub, c echo.Context, conversationID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:            hub,
		conn:           conn,
		send:           make(chan []byte, 256),
		done:           make(chan struct{}),
		inbound:        make(chan []byte, 16),
		conversationID: conversationID,
		logger:         logger,
	}

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.processPump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the process loop.
func (c *Client) readPump() {
	defer func() {
		close(c.inbound)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("Ignoring non-text websocket message", zap.Int("type", messageType))
			continue
		}

		c.inbound <- message
	}
}

// processPump consumes inbound messages sequentially. One goroutine per
// connection: exchanges of a conversation never interleave, while different
// conversations run on their own connections concurrently.
func (c *Client) processPump() {
	for message := range c.inbound {
		c.processMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage dispatches one inbound message to the relay coordinator
func (c *Client) processMessage(message []byte) {
	msg, err := ParseInbound(message)
	if err != nil {
		c.logger.Warn("Rejected inbound message",
			zap.String("conversationID", c.conversationID),
			zap.Error(err))
		c.sendError("invalid_message", err.Error())
		return
	}

	ctx := context.Background()

	switch msg.Type {
	case MessageTypeStart:
		if err := c.hub.relay.Start(ctx, c.conversationID); err != nil {
			c.logger.Error("Start command failed",
				zap.String("conversationID", c.conversationID),
				zap.Error(err))
		}

	case MessageTypeText:
		if err := c.hub.relay.RelayText(ctx, c.conversationID, msg.Text); err != nil {
			c.logger.Error("Text exchange failed",
				zap.String("conversationID", c.conversationID),
				zap.Error(err))
		}

	case MessageTypeVoice:
		audio, err := msg.DecodeAudio()
		if err != nil {
			c.logger.Warn("Rejected voice payload",
				zap.String("conversationID", c.conversationID),
				zap.Error(err))
			c.sendError("invalid_audio", err.Error())
			return
		}
		if err := c.hub.relay.RelayVoice(ctx, c.conversationID, audio, msg.ContentType); err != nil {
			c.logger.Error("Voice exchange failed",
				zap.String("conversationID", c.conversationID),
				zap.Error(err))
		}
	}
}

// sendError reports a protocol problem back to this client only
func (c *Client) sendError(code, message string) {
	payload, err := json.Marshal(ErrorMessage{
		Type:    MessageTypeError,
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}

	select {
	case c.send <- payload:
	case <-c.done:
	default:
		c.logger.Warn("Dropping error message, send buffer full",
			zap.String("conversationID", c.conversationID))
	}
}
