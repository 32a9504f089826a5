package agentapi

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultBaseURL        = "https://backend.yarabot.ir"
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 30 * time.Second
)

// Config holds configuration for the agent API client.
// Required fields:
// - AgentID: the per-deployment agent identifier
// - APIToken: the static bearer credential, provisioned out of band
// Optional fields with defaults:
// - BaseURL: the backend base URL (default: "https://backend.yarabot.ir")
// - ConnectTimeout: bound on establishing the connection (default: 10s)
// - ReadTimeout: bound on silence between stream frames (default: 30s)
type Config struct {
	BaseURL        string
	AgentID        string
	APIToken       string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// ValidateConfig validates the agent API config
func ValidateConfig(config Config) error {
	if config.AgentID == "" {
		return fmt.Errorf("agent API agent id is required")
	}
	if config.APIToken == "" {
		return fmt.Errorf("agent API token is required")
	}
	if config.ConnectTimeout < 0 {
		return fmt.Errorf("connect timeout must be positive, got %s", config.ConnectTimeout)
	}
	if config.ReadTimeout < 0 {
		return fmt.Errorf("read timeout must be positive, got %s", config.ReadTimeout)
	}
	return nil
}

// NewConfigFromEnv creates a Config from environment variables.
// AGENT_API_AGENT_ID and AGENT_API_TOKEN are required; the rest fall back to
// defaults.
func NewConfigFromEnv() Config {
	config := Config{
		BaseURL:  os.Getenv("AGENT_API_BASE_URL"),
		AgentID:  os.Getenv("AGENT_API_AGENT_ID"),
		APIToken: os.Getenv("AGENT_API_TOKEN"),
	}

	if secondsStr := os.Getenv("AGENT_API_CONNECT_TIMEOUT_SECONDS"); secondsStr != "" {
		if seconds, err := strconv.Atoi(secondsStr); err == nil && seconds > 0 {
			config.ConnectTimeout = time.Duration(seconds) * time.Second
		}
	}

	if secondsStr := os.Getenv("AGENT_API_READ_TIMEOUT_SECONDS"); secondsStr != "" {
		if seconds, err := strconv.Atoi(secondsStr); err == nil && seconds > 0 {
			config.ReadTimeout = time.Duration(seconds) * time.Second
		}
	}

	return config
}
