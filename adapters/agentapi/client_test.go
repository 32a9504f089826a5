package agentapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/hooshyar/peyvand/domain/repositories"
)

func newTestClient(t *testing.T, baseURL string, readTimeout time.Duration) *Client {
	t.Helper()

	client, err := NewClient(Config{
		BaseURL:     baseURL,
		AgentID:     "agent-1",
		APIToken:    "secret-token",
		ReadTimeout: readTimeout,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	logger := zaptest.NewLogger(t)

	if _, err := NewClient(Config{APIToken: "tok"}, logger); err == nil {
		t.Error("Expected error when agent id is missing")
	}
	if _, err := NewClient(Config{AgentID: "agent-1"}, logger); err == nil {
		t.Error("Expected error when API token is missing")
	}
}

func TestClient_Converse_TextExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agent/bot/agent-1/chat" {
			t.Errorf("Unexpected request path %q", r.URL.Path)
		}
		if got := r.Header.Get("authorization"); got != "secret-token" {
			t.Errorf("Expected authorization header 'secret-token', got %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		if got := r.PostFormValue("type"); got != "text" {
			t.Errorf("Expected type 'text', got %q", got)
		}
		if got := r.PostFormValue("text"); got != "سلام خوبی؟" {
			t.Errorf("Unexpected text field %q", got)
		}
		if _, ok := r.PostForm["session_id"]; ok {
			t.Error("Expected no session_id on first exchange")
		}

		fmt.Fprintln(w, `{"session_id":"s1"}`)
		fmt.Fprintln(w)
		fmt.Fprintln(w, `{"data":"**سلام** "}`)
		fmt.Fprintln(w, `{"data":"**خوبم**"}`)
		fmt.Fprintln(w, `{"message_id":"m1"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	reply, err := client.Converse(context.Background(), repositories.AssistantRequest{
		Kind: repositories.MessageKindText,
		Text: "سلام خوبی؟",
	})
	if err != nil {
		t.Fatalf("Converse() error = %v", err)
	}

	if reply.Text != "**سلام** **خوبم**" {
		t.Errorf("Unexpected reply text %q", reply.Text)
	}
	if reply.SessionToken != "s1" {
		t.Errorf("Expected session token 's1', got %q", reply.SessionToken)
	}
}

func TestClient_Converse_SendsStoredSessionToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		if got := r.PostFormValue("session_id"); got != "s1" {
			t.Errorf("Expected session_id 's1', got %q", got)
		}
		fmt.Fprintln(w, `{"data":"ok"}`)
		fmt.Fprintln(w, `{"message_id":"m2"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	reply, err := client.Converse(context.Background(), repositories.AssistantRequest{
		Kind:         repositories.MessageKindText,
		Text:         "دوباره",
		SessionToken: "s1",
	})
	if err != nil {
		t.Fatalf("Converse() error = %v", err)
	}
	if reply.Text != "ok" {
		t.Errorf("Unexpected reply text %q", reply.Text)
	}
}

func TestClient_Converse_VoiceExchange(t *testing.T) {
	audio := []byte{0x4f, 0x67, 0x67, 0x53, 0x00, 0x01, 0x02}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		if got := r.FormValue("type"); got != "voice" {
			t.Errorf("Expected type 'voice', got %q", got)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if string(content) != string(audio) {
			t.Error("Audio payload was not forwarded unchanged")
		}
		if got := header.Header.Get("Content-Type"); got != "audio/ogg" {
			t.Errorf("Expected file content type 'audio/ogg', got %q", got)
		}

		fmt.Fprintln(w, `{"data":"transcribed reply"}`)
		fmt.Fprintln(w, `{"message_id":"m3"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	reply, err := client.Converse(context.Background(), repositories.AssistantRequest{
		Kind:  repositories.MessageKindVoice,
		Audio: audio,
	})
	if err != nil {
		t.Fatalf("Converse() error = %v", err)
	}
	if reply.Text != "transcribed reply" {
		t.Errorf("Unexpected reply text %q", reply.Text)
	}
}

func TestClient_Converse_RejectedWithoutTranscriptionService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"detail":"User has no STT service enabled"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	_, err := client.Converse(context.Background(), repositories.AssistantRequest{
		Kind:  repositories.MessageKindVoice,
		Audio: []byte{0x01},
	})

	var rejected *repositories.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("Expected *RejectedError, got %v", err)
	}
	if rejected.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rejected.StatusCode)
	}
	if !rejected.TranscriptionUnavailable() {
		t.Error("Expected the rejection to be recognized as transcription-unavailable")
	}
	if rejected.UserMessage() == rejected.Body {
		t.Error("Expected an actionable user message, not the raw body")
	}
}

func TestClient_Converse_RejectedGeneric(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "invalid token")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	_, err := client.Converse(context.Background(), repositories.AssistantRequest{
		Kind: repositories.MessageKindText,
		Text: "hi",
	})

	var rejected *repositories.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("Expected *RejectedError, got %v", err)
	}
	if rejected.TranscriptionUnavailable() {
		t.Error("Generic rejection must not be classified as transcription-unavailable")
	}
	if rejected.UserMessage() != "Error: 401 - Unauthorized: Invalid API key." {
		t.Errorf("Unexpected user message %q", rejected.UserMessage())
	}
}

func TestClient_Converse_UpstreamErrorFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"data":"partial"}`)
		fmt.Fprintln(w, `{"error":"agent is overloaded"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	_, err := client.Converse(context.Background(), repositories.AssistantRequest{
		Kind: repositories.MessageKindText,
		Text: "hi",
	})

	var upstreamErr *repositories.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Expected *UpstreamError, got %v", err)
	}
	if upstreamErr.Message != "agent is overloaded" {
		t.Errorf("Unexpected carried message %q", upstreamErr.Message)
	}
}

func TestClient_Converse_FramingFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "this is not a frame")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	_, err := client.Converse(context.Background(), repositories.AssistantRequest{
		Kind: repositories.MessageKindText,
		Text: "hi",
	})

	var framingErr *FramingError
	if !errors.As(err, &framingErr) {
		t.Fatalf("Expected *FramingError, got %v", err)
	}
}

func TestClient_Converse_ReadTimeoutMidStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"data":"first chunk"}`)
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		time.Sleep(1 * time.Second)
		fmt.Fprintln(w, `{"message_id":"m1"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 100*time.Millisecond)
	reply, err := client.Converse(context.Background(), repositories.AssistantRequest{
		Kind: repositories.MessageKindText,
		Text: "hi",
	})
	if err == nil {
		t.Fatalf("Expected a transport error, got reply %+v", reply)
	}

	var upstreamErr *repositories.UpstreamError
	if errors.As(err, &upstreamErr) {
		t.Errorf("Timeout must not be classified as an upstream error: %v", err)
	}
	var rejected *repositories.RejectedError
	if errors.As(err, &rejected) {
		t.Errorf("Timeout must not be classified as a rejection: %v", err)
	}
}

func TestClient_Converse_SlowStreamWithShortGapsSucceeds(t *testing.T) {
	// Ten frames at 100ms intervals: every gap is well under the read bound
	// but the exchange as a whole runs past it
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("Response writer does not support flushing")
		}
		for i := 0; i < 10; i++ {
			fmt.Fprintf(w, "{\"data\":\"chunk%d \"}\n", i)
			flusher.Flush()
			time.Sleep(100 * time.Millisecond)
		}
		fmt.Fprintln(w, `{"message_id":"m1"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 300*time.Millisecond)
	reply, err := client.Converse(context.Background(), repositories.AssistantRequest{
		Kind: repositories.MessageKindText,
		Text: "hi",
	})
	if err != nil {
		t.Fatalf("Converse() error = %v", err)
	}
	if reply.Text != "chunk0 chunk1 chunk2 chunk3 chunk4 chunk5 chunk6 chunk7 chunk8 chunk9 " {
		t.Errorf("Unexpected accumulated text %q", reply.Text)
	}
}

func TestClient_Converse_ValidatesPayload(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0", 0)

	if _, err := client.Converse(context.Background(), repositories.AssistantRequest{
		Kind: repositories.MessageKindText,
		Text: "   ",
	}); err == nil {
		t.Error("Expected error for blank text")
	}

	if _, err := client.Converse(context.Background(), repositories.AssistantRequest{
		Kind: repositories.MessageKindVoice,
	}); err == nil {
		t.Error("Expected error for empty audio payload")
	}

	if _, err := client.Converse(context.Background(), repositories.AssistantRequest{
		Kind: "video",
	}); err == nil {
		t.Error("Expected error for unsupported message kind")
	}
}
