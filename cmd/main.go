package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/hooshyar/peyvand/adapters"
	"github.com/hooshyar/peyvand/adapters/agentapi"
	"github.com/hooshyar/peyvand/adapters/chatlog"
	mongodb "github.com/hooshyar/peyvand/adapters/mongo"
	"github.com/hooshyar/peyvand/domain/repositories"
	"github.com/hooshyar/peyvand/internal/api"
	"github.com/hooshyar/peyvand/internal/auth"
	"github.com/hooshyar/peyvand/internal/websocket"
	"github.com/hooshyar/peyvand/usecase"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	auth.LoadSecretFromEnv()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Upstream agent API client
	assistant, err := agentapi.NewClient(agentapi.NewConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to configure agent API client", zap.Error(err))
	}

	// Session tokens live in memory only; a restart starts every
	// conversation as a new upstream session
	sessions := adapters.NewMemorySessionStore()

	// Chat log sink: MongoDB when configured, JSONL file otherwise
	var sink repositories.ChatLog
	if os.Getenv("MONGODB_URI") != "" {
		mongoClient, err := mongodb.NewClient(logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer mongoClient.Close(context.Background())
		sink = mongodb.NewChatLog(mongoClient.Database)
	} else {
		fileLog, err := chatlog.NewFileLog("", logger)
		if err != nil {
			logger.Fatal("Failed to open chat log file", zap.Error(err))
		}
		defer fileLog.Close()
		sink = fileLog
	}

	// Initialize WebSocket hub and relay coordinator
	hub := websocket.NewHub(logger)
	relayService := usecase.NewRelayService(assistant, sessions, sink, hub, logger)
	hub.SetRelay(relayService)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, hub, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Relay server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	// In-flight exchanges may finish within the drain window; an
	// interrupted one leaves an incoming entry without its outgoing
	// counterpart, which the log format tolerates.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
