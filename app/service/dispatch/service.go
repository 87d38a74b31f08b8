package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"vitachat/app/client/gemini"
	"vitachat/app/service/capture"
	"vitachat/app/service/session"

	"github.com/samber/do"
	"github.com/tmc/langchaingo/llms"
)

const (
	audioInstruction = "Please answer the question spoken in this audio based on the profile context."

	fallbackEmptyReply  = "I couldn't generate a response."
	fallbackServiceFail = "Sorry, I encountered an error processing your request. Please try again."

	defaultAudioMime = "audio/webm"

	requestTimeout = 30 * time.Second
)

// Service turns a text or audio input into exactly one request through
// the active session. Service-side failures never escape as errors: the
// caller always gets a displayable reply string. Only a missing
// credential is propagated, since no conversation is possible at all.
type Service struct {
	sessionSvc *session.Service
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		sessionSvc: do.MustInvoke[*session.Service](di),
	}, nil
}

func (s *Service) SendText(ctx context.Context, text string) (string, error) {
	return s.send(ctx, llms.TextPart(text))
}

func (s *Service) SendAudio(ctx context.Context, payload capture.AudioPayload) (string, error) {
	encoded, err := EncodePayload(payload)
	if err != nil {
		slog.Error("Failed to encode audio clip", "error", err)
		return fallbackServiceFail, nil
	}

	// the SDK re-encodes inline data on the wire; round-tripping through
	// the encoder keeps the clip canonical even when the device handed
	// us a data URL
	clip, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		slog.Error("Failed to decode audio clip", "error", err)
		return fallbackServiceFail, nil
	}

	mimeType := payload.MimeType
	if mimeType == "" {
		mimeType = defaultAudioMime
	}

	// the model transcribes the clip itself; the instruction text rides
	// along in the same message
	return s.send(ctx,
		llms.BinaryPart(mimeType, clip),
		llms.TextPart(audioInstruction),
	)
}

func (s *Service) send(ctx context.Context, parts ...llms.ContentPart) (string, error) {
	handle, err := s.sessionSvc.GetOrCreate(ctx, s.sessionSvc.Resume())
	if err != nil {
		if errors.Is(err, gemini.ErrMissingCredential) {
			return "", fmt.Errorf("cannot chat: %w", err)
		}

		slog.Error("Failed to open chat session", "error", err, "telegram", true)
		return fallbackServiceFail, nil
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	reply, err := handle.Send(ctx, parts...)
	if err != nil {
		slog.Error("Chat request failed", "error", err, "telegram", true)
		return fallbackServiceFail, nil
	}

	if reply == "" {
		return fallbackEmptyReply, nil
	}

	return reply, nil
}
