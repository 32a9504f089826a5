package agentapi

import (
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/hooshyar/peyvand/domain/repositories"
)

// noResponseMessage is reported when the backend closes the stream without
// ever delivering content
const noResponseMessage = "No response received from the API."

// Aggregate folds a streamed frame sequence into a completed reply.
//
// Per frame, first match wins: a session frame captures the token, a data
// frame extends the accumulated text, a terminal frame completes the reply
// with whatever accumulated (possibly nothing), and an error frame fails the
// exchange with the carried message. Unrecognized frames are logged and
// skipped. Consumption stops at the first terminal or error frame; frames
// after it are never read.
//
// A stream that ends without a terminal frame still completes when content
// was accumulated. The backend has been observed to close streams this way,
// so the close itself is not treated as a failure; an empty such stream is.
func Aggregate(src FrameSource, logger *zap.Logger) (*repositories.AssistantReply, error) {
	var accumulated strings.Builder
	var sessionToken string

	for {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			if accumulated.Len() > 0 {
				logger.Warn("Stream ended without a terminal frame, keeping accumulated reply",
					zap.Int("length", accumulated.Len()))
				return &repositories.AssistantReply{
					Text:         accumulated.String(),
					SessionToken: sessionToken,
				}, nil
			}
			logger.Warn("Stream ended without a terminal frame and without content")
			return nil, &repositories.UpstreamError{Message: noResponseMessage}
		}
		if err != nil {
			return nil, err
		}

		switch frame.Role() {
		case FrameRoleSession:
			sessionToken = *frame.SessionID
			logger.Debug("Captured session token from stream")

		case FrameRoleData:
			accumulated.WriteString(*frame.Data)

		case FrameRoleTerminal:
			logger.Debug("Received terminal frame, ending stream",
				zap.String("messageID", *frame.MessageID))
			return &repositories.AssistantReply{
				Text:         accumulated.String(),
				SessionToken: sessionToken,
			}, nil

		case FrameRoleError:
			logger.Warn("Backend reported an error mid-stream", zap.String("error", *frame.Err))
			return nil, &repositories.UpstreamError{Message: *frame.Err}

		default:
			logger.Warn("Skipping unrecognized stream frame")
		}
	}
}
