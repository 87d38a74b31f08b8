package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"vitachat/app/config"
	"vitachat/app/service/capture"

	"github.com/samber/do"
)

const audioTurnPlaceholder = "Audio Question..."

var (
	ErrBusy       = errors.New("a request is already being processed")
	ErrEmptyInput = errors.New("input is empty")
)

// Dispatcher sends one input through the active session and always
// returns a displayable reply, except for fatal configuration errors.
type Dispatcher interface {
	SendText(ctx context.Context, text string) (string, error)
	SendAudio(ctx context.Context, payload capture.AudioPayload) (string, error)
}

// Speaker voices replies. Speak pre-empts whatever is playing.
type Speaker interface {
	Speak(text string)
	Cancel()
	Speaking() bool
}

// Service orchestrates one conversation: it owns the transcript, gates
// submissions so only one request is in flight, and hands replies to the
// speaker.
type Service struct {
	cfg         *config.Config
	dispatchSvc Dispatcher
	speechSvc   Speaker

	mu         sync.Mutex
	processing bool
	transcript []Turn
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	s := &Service{
		cfg:         cfg,
		dispatchSvc: do.MustInvoke[Dispatcher](di),
		speechSvc:   do.MustInvoke[Speaker](di),
	}

	s.seedGreeting()

	return s, nil
}

func (s *Service) seedGreeting() {
	if s.cfg.Profile.Greeting == "" {
		return
	}

	s.transcript = append(s.transcript, newTurn(RoleModel, s.cfg.Profile.Greeting, false))
}

// SubmitText sends one typed question. Rejected with ErrBusy while a
// prior request is still processing; the transcript is untouched in that
// case.
func (s *Service) SubmitText(ctx context.Context, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyInput
	}

	return s.submit(ctx, text, nil)
}

// SubmitAudio sends one recorded question. The transcript shows a
// placeholder label: the spoken content is only ever known to the hosted
// model.
func (s *Service) SubmitAudio(ctx context.Context, payload capture.AudioPayload) (Turn, error) {
	if len(payload.Data) == 0 {
		return Turn{}, ErrEmptyInput
	}

	return s.submit(ctx, audioTurnPlaceholder, &payload)
}

func (s *Service) submit(ctx context.Context, text string, payload *capture.AudioPayload) (Turn, error) {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return Turn{}, ErrBusy
	}

	s.processing = true
	userTurn := newTurn(RoleUser, text, payload != nil)
	s.transcript = append(s.transcript, userTurn)
	s.mu.Unlock()

	s.speechSvc.Cancel()

	start := time.Now()

	var (
		reply string
		err   error
	)
	if payload != nil {
		reply, err = s.dispatchSvc.SendAudio(ctx, *payload)
	} else {
		reply, err = s.dispatchSvc.SendText(ctx, text)
	}

	s.mu.Lock()
	s.processing = false

	if err != nil {
		// fatal configuration failure: roll the user turn back so the
		// transcript keeps alternating once chatting becomes possible
		s.transcript = s.transcript[:len(s.transcript)-1]
		s.mu.Unlock()

		return Turn{}, err
	}

	modelTurn := newTurn(RoleModel, reply, false)
	s.transcript = append(s.transcript, modelTurn)
	s.mu.Unlock()

	slog.Info("Processed question",
		"audio", payload != nil,
		"duration", time.Since(start))

	s.speechSvc.Speak(reply)

	return modelTurn, nil
}

// Transcript returns a snapshot of all turns in creation order.
func (s *Service) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := make([]Turn, len(s.transcript))
	copy(turns, s.transcript)

	return turns
}

// State reports the sending state. SPEAKING is advisory: it never gates
// submissions.
func (s *Service) State() SendingState {
	s.mu.Lock()
	processing := s.processing
	s.mu.Unlock()

	if processing {
		return StateProcessing
	}

	if s.speechSvc.Speaking() {
		return StateSpeaking
	}

	return StateIdle
}

// Reset clears the transcript back to the seeded greeting. The session
// itself is invalidated by the caller.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcript = nil
	s.seedGreeting()
}
