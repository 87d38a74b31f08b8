package server

import (
	"context"
	"log/slog"
	"time"
	"vitachat/app/config"
	"vitachat/app/service/capture"
	"vitachat/app/service/conversation"
	"vitachat/app/service/session"
	"vitachat/app/service/speech"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg             *config.Config
	app             *fiber.App
	conversationSvc *conversation.Service
	captureSvc      *capture.Service
	sessionSvc      *session.Service
	speechSvc       *speech.Service
}

func New(di *do.Injector) (*Server, error) {
	s := &Server{
		cfg:             do.MustInvoke[*config.Config](di),
		conversationSvc: do.MustInvoke[*conversation.Service](di),
		captureSvc:      do.MustInvoke[*capture.Service](di),
		sessionSvc:      do.MustInvoke[*session.Service](di),
		speechSvc:       do.MustInvoke[*speech.Service](di),
	}

	app := fiber.New(fiber.Config{
		AppName:               "vitachat",
		DisableStartupMessage: true,
	})

	api := app.Group("/api")
	api.Post("/chat", s.handleChat)
	api.Post("/chat/audio", s.handleChatAudio)
	api.Post("/record/start", s.handleRecordStart)
	api.Post("/record/stop", s.handleRecordStop)
	api.Get("/transcript", s.handleTranscript)
	api.Get("/state", s.handleState)
	api.Post("/session/reset", s.handleReset)
	api.Put("/resume", s.handleResume)
	api.Put("/speech", s.handleSpeech)

	s.app = app

	return s, nil
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			slog.Warn("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Listening", "addr", s.cfg.Server.Listen)

	return s.app.Listen(s.cfg.Server.Listen)
}
