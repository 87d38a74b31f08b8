package speechkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"vitachat/app/service/speech"

	"github.com/yandex-cloud/go-genproto/yandex/cloud/ai/tts/v3"
)

// SpeechKit has no voice enumeration API; this is the documented catalog.
var knownVoices = []speech.Voice{
	{Name: "john", Gender: "male", Language: "en-US"},
	{Name: "filipp", Gender: "male", Language: "ru-RU"},
	{Name: "zahar", Gender: "male", Language: "ru-RU"},
	{Name: "ermil", Gender: "male", Language: "ru-RU"},
	{Name: "madirus", Gender: "male", Language: "ru-RU"},
	{Name: "alena", Gender: "female", Language: "ru-RU"},
	{Name: "jane", Gender: "female", Language: "ru-RU"},
	{Name: "omazh", Gender: "female", Language: "ru-RU"},
}

func (y *YandexSpeechKit) Voices(_ context.Context) ([]speech.Voice, error) {
	voices := make([]speech.Voice, len(knownVoices))
	copy(voices, knownVoices)

	return voices, nil
}

func (y *YandexSpeechKit) Synthesize(ctx context.Context, utt speech.Utterance) ([]byte, error) {
	var req tts.UtteranceSynthesisRequest
	req.SetText(utt.Text)

	var hints []*tts.Hints

	if utt.Voice != "" {
		var voiceHint tts.Hints
		voiceHint.SetVoice(utt.Voice)
		hints = append(hints, &voiceHint)
	}

	if utt.Rate > 0 {
		var speedHint tts.Hints
		speedHint.SetSpeed(utt.Rate)
		hints = append(hints, &speedHint)
	}

	if utt.PitchShift != 0 {
		var pitchHint tts.Hints
		pitchHint.SetPitchShift(utt.PitchShift)
		hints = append(hints, &pitchHint)
	}

	req.SetHints(hints)

	var audioFormatOpts tts.AudioFormatOptions
	audioFormatOpts.SetContainerAudio(&tts.ContainerAudio{
		ContainerAudioType: tts.ContainerAudio_WAV,
	})
	req.SetOutputAudioSpec(&audioFormatOpts)

	stream, err := y.sdk.AI().TTSV3().Synthesizer().UtteranceSynthesis(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to start synthesis: %w", err)
	}

	var buf bytes.Buffer

	for {
		res, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to receive audio: %w", err)
		}

		if chunk := res.GetAudioChunk(); chunk != nil {
			buf.Write(chunk.GetData())
		}
	}

	return buf.Bytes(), nil
}
