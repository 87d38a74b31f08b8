package server

import (
	"errors"
	"io"
	"strings"
	"vitachat/app/client/gemini"
	"vitachat/app/service/capture"
	"vitachat/app/service/conversation"

	"github.com/gofiber/fiber/v2"
)

type chatRequest struct {
	Text string `json:"text"`
}

type resumeRequest struct {
	Resume string `json:"resume"`
}

type speechRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	turn, err := s.conversationSvc.SubmitText(c.Context(), req.Text)
	if err != nil {
		return submitError(err)
	}

	return c.JSON(turn)
}

func (s *Server) handleChatAudio(c *fiber.Ctx) error {
	payload, err := audioFromRequest(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	turn, err := s.conversationSvc.SubmitAudio(c.Context(), payload)
	if err != nil {
		return submitError(err)
	}

	return c.JSON(turn)
}

func audioFromRequest(c *fiber.Ctx) (capture.AudioPayload, error) {
	if file, err := c.FormFile("audio"); err == nil {
		src, err := file.Open()
		if err != nil {
			return capture.AudioPayload{}, err
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			return capture.AudioPayload{}, err
		}

		return capture.AudioPayload{
			Data:     data,
			MimeType: file.Header.Get(fiber.HeaderContentType),
		}, nil
	}

	body := c.Body()
	data := make([]byte, len(body))
	copy(data, body)

	mimeType := c.Get(fiber.HeaderContentType)
	if !strings.HasPrefix(mimeType, "audio/") {
		mimeType = ""
	}

	return capture.AudioPayload{Data: data, MimeType: mimeType}, nil
}

func (s *Server) handleRecordStart(c *fiber.Ctx) error {
	if err := s.captureSvc.Start(c.Context()); err != nil {
		return captureError(err)
	}

	return c.JSON(fiber.Map{"recording": true})
}

func (s *Server) handleRecordStop(c *fiber.Ctx) error {
	payload, err := s.captureSvc.Stop(c.Context())
	if err != nil {
		return captureError(err)
	}

	turn, err := s.conversationSvc.SubmitAudio(c.Context(), payload)
	if err != nil {
		return submitError(err)
	}

	return c.JSON(turn)
}

func (s *Server) handleTranscript(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"turns": s.conversationSvc.Transcript()})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	recording := s.captureSvc.Recording()

	// recording is owned by capture, not the controller; it only shows
	// through while nothing is processing
	state := s.conversationSvc.State()
	if state == conversation.StateIdle && recording {
		state = conversation.StateRecording
	}

	return c.JSON(fiber.Map{
		"state":         state,
		"recording":     recording,
		"speaking":      s.speechSvc.Speaking(),
		"speechEnabled": s.speechSvc.Enabled(),
	})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	s.sessionSvc.Invalidate()
	s.conversationSvc.Reset()

	return c.JSON(fiber.Map{"turns": s.conversationSvc.Transcript()})
}

func (s *Server) handleResume(c *fiber.Ctx) error {
	var req resumeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Resume) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "resume must not be empty")
	}

	s.sessionSvc.SetResume(req.Resume)

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSpeech(c *fiber.Ctx) error {
	var req speechRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	s.speechSvc.SetEnabled(req.Enabled)

	return c.JSON(fiber.Map{"speechEnabled": s.speechSvc.Enabled()})
}

func submitError(err error) error {
	switch {
	case errors.Is(err, conversation.ErrBusy):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, conversation.ErrEmptyInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, gemini.ErrMissingCredential):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func captureError(err error) error {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, capture.ErrAlreadyRecording), errors.Is(err, capture.ErrNotRecording):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
