package speech

import "context"

type Voice struct {
	Name     string
	Gender   string
	Language string
}

type Utterance struct {
	Text       string
	Voice      string
	Rate       float64
	PitchShift float64
}

// Synthesizer renders an utterance into playable WAV audio. The voice
// catalog may be empty right after startup and populate later.
type Synthesizer interface {
	Voices(ctx context.Context) ([]Voice, error)
	Synthesize(ctx context.Context, utt Utterance) ([]byte, error)
}

// Player plays one WAV clip, returning once playback finishes or the
// context is cancelled.
type Player interface {
	Play(ctx context.Context, wav []byte) error
}

// Mute is the backend used when voice output is not configured.
type Mute struct{}

func (Mute) Voices(_ context.Context) ([]Voice, error) {
	return nil, nil
}

func (Mute) Synthesize(_ context.Context, _ Utterance) ([]byte, error) {
	return nil, nil
}

func (Mute) Play(_ context.Context, _ []byte) error {
	return nil
}
