package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"vitachat/app/config"

	_ "embed"

	"github.com/samber/do"
	"github.com/tmc/langchaingo/llms"
)

//go:embed system_prompt.txt
var instructionPreamble string

// ModelFactory constructs the hosted chat model on demand.
type ModelFactory interface {
	NewModel(ctx context.Context) (llms.Model, error)
}

// Service owns at most one active session. The session is created
// lazily on first use and survives until Invalidate is called.
type Service struct {
	cfg     *config.Config
	factory ModelFactory

	mu     sync.Mutex
	handle *Handle
	resume string
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		cfg:     cfg,
		factory: do.MustInvoke[ModelFactory](di),
		resume:  cfg.Profile.Resume,
	}, nil
}

// GetOrCreate returns the cached session, creating one bound to the
// instruction preamble plus profileContext if none exists. A cached
// session is returned as-is even when profileContext differs from the
// text it was created with: session identity is fixed until Invalidate.
func (s *Service) GetOrCreate(ctx context.Context, profileContext string) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return s.handle, nil
	}

	model, err := s.factory.NewModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	preamble := strings.ReplaceAll(instructionPreamble, "{name}", s.cfg.Profile.Name)
	systemInstruction := preamble + "\n" + profileContext

	s.handle = &Handle{
		model:       model,
		temperature: s.cfg.Gemini.Temperature,
		history: []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, systemInstruction),
		},
	}

	return s.handle, nil
}

// Invalidate discards the cached session unconditionally. The next
// GetOrCreate rebuilds from scratch; prior conversational memory is
// gone.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handle = nil
}

// Resume returns the current profile context text.
func (s *Service) Resume() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resume
}

// SetResume replaces the profile context and invalidates the session so
// the next conversation attempt binds to the new text.
func (s *Service) SetResume(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resume = strings.TrimSpace(text)
	s.handle = nil
}
