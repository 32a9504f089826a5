package agentapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hooshyar/peyvand/domain/repositories"
)

const defaultAudioContentType = "audio/ogg"

// Client talks to the agent API's chat endpoint and consumes its streamed
// frame protocol
type Client struct {
	endpoint    string
	apiToken    string
	readTimeout time.Duration
	httpClient  *http.Client
	logger      *zap.Logger
}

// Ensure Client implements the Assistant interface
var _ repositories.Assistant = (*Client)(nil)

// NewClient creates an agent API client from the given config
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
		logger.Info("Using default API base URL", zap.String("baseURL", baseURL))
	}

	connectTimeout := config.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = defaultConnectTimeout
	}

	readTimeout := config.ReadTimeout
	if readTimeout == 0 {
		readTimeout = defaultReadTimeout
	}

	// The connect bound covers dialing, TLS, and waiting for response
	// headers. The read bound is applied in Converse as a limit on silence
	// between frames; a stream that keeps delivering is never cut off.
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: connectTimeout,
		},
	}

	return &Client{
		endpoint:    fmt.Sprintf("%s/agent/bot/%s/chat", strings.TrimRight(baseURL, "/"), config.AgentID),
		apiToken:    config.APIToken,
		readTimeout: readTimeout,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// Converse issues one exchange and aggregates the streamed reply
func (c *Client) Converse(ctx context.Context, req repositories.AssistantRequest) (*repositories.AssistantReply, error) {
	body, contentType, err := buildRequestBody(req)
	if err != nil {
		return nil, err
	}

	// The read bound limits silence between frames, not the exchange as a
	// whole. The watchdog cancels the request when no frame arrives within
	// readTimeout; every decoded frame rearms it, so a slow but live stream
	// can run as long as it keeps delivering.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	watchdog := time.AfterFunc(c.readTimeout, cancel)
	defer watchdog.Stop()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("authorization", c.apiToken)

	c.logger.Debug("Sending request to agent API",
		zap.String("url", c.endpoint),
		zap.String("kind", string(req.Kind)),
		zap.Bool("hasSession", req.SessionToken != ""))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach agent API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		bodyText := string(errorBody)
		if bodyText == "" {
			bodyText = "No error body received"
		}
		c.logger.Error("Agent API rejected request",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("body", bodyText))
		return nil, &repositories.RejectedError{StatusCode: resp.StatusCode, Body: bodyText}
	}

	source := &watchedSource{
		src:     newFrameScanner(resp.Body),
		timer:   watchdog,
		timeout: c.readTimeout,
	}
	return Aggregate(source, c.logger)
}

// watchedSource rearms the read watchdog after every decoded frame so the
// timeout measures inter-frame gaps
type watchedSource struct {
	src     FrameSource
	timer   *time.Timer
	timeout time.Duration
}

func (s *watchedSource) Next() (Frame, error) {
	frame, err := s.src.Next()
	if err == nil {
		s.timer.Reset(s.timeout)
	}
	return frame, err
}

// buildRequestBody renders the request as the form encoding the backend
// expects: urlencoded fields for text, multipart with a file part for voice
func buildRequestBody(req repositories.AssistantRequest) (io.Reader, string, error) {
	switch req.Kind {
	case repositories.MessageKindText:
		if strings.TrimSpace(req.Text) == "" {
			return nil, "", fmt.Errorf("text cannot be empty")
		}
		form := url.Values{}
		form.Set("type", "text")
		form.Set("text", req.Text)
		if req.SessionToken != "" {
			form.Set("session_id", req.SessionToken)
		}
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil

	case repositories.MessageKindVoice:
		if len(req.Audio) == 0 {
			return nil, "", fmt.Errorf("audio payload cannot be empty")
		}

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		if err := writer.WriteField("type", "voice"); err != nil {
			return nil, "", fmt.Errorf("failed to write form field: %w", err)
		}
		if req.SessionToken != "" {
			if err := writer.WriteField("session_id", req.SessionToken); err != nil {
				return nil, "", fmt.Errorf("failed to write form field: %w", err)
			}
		}

		filename := req.Filename
		if filename == "" {
			filename = "voice.ogg"
		}
		audioContentType := req.ContentType
		if audioContentType == "" {
			audioContentType = defaultAudioContentType
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		header.Set("Content-Type", audioContentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(req.Audio); err != nil {
			return nil, "", fmt.Errorf("failed to write audio payload: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
		}

		return &buf, writer.FormDataContentType(), nil

	default:
		return nil, "", fmt.Errorf("unsupported message kind: %q", req.Kind)
	}
}
