package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hooshyar/peyvand/internal/auth"
	"github.com/hooshyar/peyvand/internal/websocket"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "peyvand",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Conversation token issuing
	v1.POST("/conversations/auth", func(c echo.Context) error {
		return conversationAuth(c, logger)
	})

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, logger)
	})
}

// conversationAuth issues a JWT bound to one conversation. Clients without
// an id get a freshly generated one.
func conversationAuth(c echo.Context, logger *zap.Logger) error {
	var req ConversationAuthRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind conversation auth request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	token, err := auth.GenerateConversationToken(conversationID)
	if err != nil {
		logger.Error("Failed to generate conversation token",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	// Calculate expiration time (24 hours from now, matching JWT claims)
	expiresAt := time.Now().Add(24 * time.Hour)

	logger.Info("Conversation authenticated",
		zap.String("conversation_id", conversationID))

	return c.JSON(http.StatusOK, ConversationAuthResponse{
		Token:          token,
		ExpiresAt:      expiresAt,
		ConversationID: conversationID,
	})
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func websocketWithAuth(hub *websocket.Hub, c echo.Context, logger *zap.Logger) error {
	// Extract JWT token from Authorization header only
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" && len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}

	if token == "" {
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required in Authorization header",
		})
	}

	// Validate JWT token
	claims, err := auth.ValidateToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	// Verify this is a chat token
	if claims.Role != "chat" {
		logger.Warn("WebSocket connection rejected: invalid role",
			zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only chat tokens are allowed for WebSocket connections",
		})
	}

	conversationID := claims.ConversationID
	if conversationID == "" {
		logger.Error("WebSocket connection rejected: missing conversation ID in token")
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "Conversation ID not found in token",
		})
	}

	logger.Info("WebSocket connection authenticated",
		zap.String("conversation_id", conversationID))

	// Handle WebSocket connection with authenticated conversation ID
	return websocket.HandleWebSocketWithAuth(hub, c, conversationID, logger)
}
