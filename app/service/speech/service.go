package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"vitachat/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

const voiceRefreshInterval = 30 * time.Second

// defaultPreferredVoices is tried in order when the config does not name
// its own preferences.
var defaultPreferredVoices = []string{"john", "filipp", "zahar"}

type Service struct {
	cfg    *config.Config
	appCtx context.Context
	synth  Synthesizer
	player Player

	mu       sync.Mutex
	enabled  bool
	voices   []Voice
	current  context.CancelFunc
	speaking bool
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		cfg:     cfg,
		appCtx:  do.MustInvoke[context.Context](di),
		synth:   do.MustInvoke[Synthesizer](di),
		player:  do.MustInvoke[Player](di),
		enabled: cfg.Speech.Enabled,
	}, nil
}

// RunRefreshLoop keeps the voice catalog current. The backend may report
// an empty catalog right after startup, so enumeration is repeated until
// voices appear and then kept fresh.
func (s *Service) RunRefreshLoop(ctx context.Context) {
	s.refreshVoices(ctx)

	ticker := time.NewTicker(voiceRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshVoices(ctx)
		}
	}
}

func (s *Service) refreshVoices(ctx context.Context) {
	voices, err := s.synth.Voices(ctx)
	if err != nil {
		slog.Warn("Failed to enumerate voices", "error", err)
		return
	}

	// an empty enumeration must never replace a populated catalog
	if len(voices) == 0 {
		return
	}

	s.mu.Lock()
	s.voices = voices
	s.mu.Unlock()
}

// Speak voices the reply asynchronously. A new reply always pre-empts
// whatever is currently playing. No-op while voice output is disabled.
func (s *Service) Speak(text string) {
	s.mu.Lock()

	if !s.enabled {
		s.mu.Unlock()
		return
	}

	if s.current != nil {
		s.current()
	}

	ctx, cancel := context.WithCancel(s.appCtx)
	s.current = cancel
	voice := s.pickVoiceLocked()
	s.mu.Unlock()

	go s.speak(ctx, cancel, text, voice)
}

func (s *Service) speak(ctx context.Context, cancel context.CancelFunc, text, voice string) {
	defer cancel()

	clean := SanitizeSpeechText(text)
	if clean == "" {
		return
	}

	s.setSpeaking(true)
	defer s.setSpeaking(false)

	wav, err := s.synth.Synthesize(ctx, Utterance{
		Text:       clean,
		Voice:      voice,
		Rate:       s.cfg.Speech.Rate,
		PitchShift: s.cfg.Speech.PitchShift,
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Warn("Speech synthesis failed", "error", err)
		}
		return
	}

	if err = s.player.Play(ctx, wav); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("Speech playback failed", "error", err)
	}
}

// Cancel stops the current utterance, if any.
func (s *Service) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current()
		s.current = nil
	}
}

func (s *Service) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	current := s.current
	if !enabled {
		s.current = nil
	}
	s.mu.Unlock()

	if !enabled && current != nil {
		current()
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enabled
}

func (s *Service) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.speaking
}

func (s *Service) setSpeaking(speaking bool) {
	s.mu.Lock()
	s.speaking = speaking
	s.mu.Unlock()
}

// pickVoiceLocked prefers configured voice names, then anything flagged
// male, then leaves the choice to the backend.
func (s *Service) pickVoiceLocked() string {
	voices := s.voices
	if len(voices) == 0 {
		return ""
	}

	preferred := s.cfg.Speech.PreferredVoices
	if len(preferred) == 0 {
		preferred = defaultPreferredVoices
	}

	for _, name := range preferred {
		idx := pie.FindFirstUsing(voices, func(v Voice) bool {
			return strings.EqualFold(v.Name, name)
		})
		if idx >= 0 {
			return voices[idx].Name
		}
	}

	idx := pie.FindFirstUsing(voices, func(v Voice) bool {
		return strings.EqualFold(v.Gender, "male") ||
			strings.Contains(strings.ToLower(v.Name), "male")
	})
	if idx >= 0 {
		return voices[idx].Name
	}

	return ""
}
