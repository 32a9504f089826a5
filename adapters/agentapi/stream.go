package agentapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FrameRole is the semantic role of one decoded stream frame
type FrameRole int

const (
	// FrameRoleSession carries the session token for the conversation
	FrameRoleSession FrameRole = iota
	// FrameRoleData carries one fragment of the reply text
	FrameRoleData
	// FrameRoleTerminal marks the reply as complete
	FrameRoleTerminal
	// FrameRoleError carries an error the backend reported mid-stream
	FrameRoleError
	// FrameRoleUnknown matches none of the recognized keys; such frames are
	// skipped for forward compatibility
	FrameRoleUnknown
)

// Frame is one decoded JSON object from the backend's streamed response
// body. Which pointer is set decides the frame's role; when several are set
// the first role in declaration order wins.
type Frame struct {
	SessionID *string `json:"session_id"`
	Data      *string `json:"data"`
	MessageID *string `json:"message_id"`
	Err       *string `json:"error"`
}

// Role classifies the frame by which recognized key it carries
func (f Frame) Role() FrameRole {
	switch {
	case f.SessionID != nil:
		return FrameRoleSession
	case f.Data != nil:
		return FrameRoleData
	case f.MessageID != nil:
		return FrameRoleTerminal
	case f.Err != nil:
		return FrameRoleError
	default:
		return FrameRoleUnknown
	}
}

// FramingError reports a stream segment that is not a valid JSON object.
// Segments are self-contained; a broken one is never reassembled with its
// neighbors, so the whole exchange fails as a transport error.
type FramingError struct {
	Segment string
	Err     error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("malformed stream segment %q: %v", e.Segment, e.Err)
}

func (e *FramingError) Unwrap() error {
	return e.Err
}

// FrameSource yields successive frames of one streamed reply. Next returns
// io.EOF once the peer closes the stream and a *FramingError for a segment
// that cannot be decoded. A source is not restartable.
type FrameSource interface {
	Next() (Frame, error)
}

// frameScanner decodes a live response body into frames. Each whitespace
// delimited segment is trimmed; blank segments are keep-alive padding and
// skipped silently.
type frameScanner struct {
	scanner *bufio.Scanner
}

func newFrameScanner(r io.Reader) *frameScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &frameScanner{scanner: scanner}
}

func (s *frameScanner) Next() (Frame, error) {
	for s.scanner.Scan() {
		segment := strings.TrimSpace(s.scanner.Text())
		if segment == "" {
			continue
		}

		var frame Frame
		if err := json.Unmarshal([]byte(segment), &frame); err != nil {
			return Frame{}, &FramingError{Segment: segment, Err: err}
		}
		return frame, nil
	}

	if err := s.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}
