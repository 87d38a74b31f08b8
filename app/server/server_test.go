package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"vitachat/app/config"
	"vitachat/app/service/capture"
	"vitachat/app/service/conversation"
	"vitachat/app/service/dispatch"
	"vitachat/app/service/session"
	"vitachat/app/service/speech"

	"github.com/samber/do"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	replies []string
	err     error
}

func (m *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}

	if len(m.replies) == 0 {
		return &llms.ContentResponse{}, nil
	}

	reply := m.replies[0]
	m.replies = m.replies[1:]

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func (m *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

type fakeFactory struct {
	model *fakeModel
}

func (f *fakeFactory) NewModel(_ context.Context) (llms.Model, error) {
	return f.model, nil
}

type fakeSession struct {
	data    []byte
	stopped chan struct{}
}

func (s *fakeSession) Read(p []byte) (int, error) {
	if len(s.data) > 0 {
		n := copy(p, s.data)
		s.data = s.data[n:]

		return n, nil
	}

	<-s.stopped

	return 0, io.EOF
}

func (s *fakeSession) MimeType() string { return "audio/webm" }

func (s *fakeSession) Stop() error {
	close(s.stopped)
	return nil
}

type fakeDevice struct {
	openErr error
}

func (d *fakeDevice) Open(_ context.Context) (capture.Session, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}

	return &fakeSession{
		data:    []byte{0x1a, 0x45, 0xdf, 0xa3},
		stopped: make(chan struct{}),
	}, nil
}

func newTestServer(t *testing.T, model *fakeModel, device capture.Device) *Server {
	t.Helper()

	di := do.New()
	do.ProvideValue(di, &config.Config{
		Profile: config.Profile{
			Name:     "John Doe",
			Resume:   "Resume text.",
			Greeting: "Hi, I can tell you about John.",
		},
		Gemini: config.Gemini{Temperature: 0.7},
	})
	do.ProvideValue[context.Context](di, context.Background())
	do.ProvideValue[session.ModelFactory](di, &fakeFactory{model: model})
	do.ProvideValue[speech.Synthesizer](di, speech.Mute{})
	do.ProvideValue[speech.Player](di, speech.Mute{})
	do.ProvideValue(di, device)

	do.Provide(di, session.New)
	do.Provide(di, speech.New)
	do.Provide(di, capture.New)
	do.Provide(di, dispatch.New)
	do.Provide(di, func(di *do.Injector) (conversation.Dispatcher, error) {
		return do.MustInvoke[*dispatch.Service](di), nil
	})
	do.Provide(di, func(di *do.Injector) (conversation.Speaker, error) {
		return do.MustInvoke[*speech.Service](di), nil
	})
	do.Provide(di, conversation.New)

	srv, err := New(di)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	return res
}

func decodeBody(t *testing.T, res *http.Response, out any) {
	t.Helper()

	defer res.Body.Close()

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestChatReturnsModelTurn(t *testing.T) {
	model := &fakeModel{replies: []string{"He has ten years of experience."}}
	srv := newTestServer(t, model, &fakeDevice{})

	res := doJSON(t, srv, http.MethodPost, "/api/chat", map[string]string{"text": "How experienced is he?"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}

	var turn conversation.Turn
	decodeBody(t, res, &turn)

	if turn.Role != conversation.RoleModel {
		t.Fatalf("unexpected role: %q", turn.Role)
	}
	if turn.Text != "He has ten years of experience." {
		t.Fatalf("unexpected reply: %q", turn.Text)
	}
	if turn.ID == "" || turn.CreatedAt.IsZero() {
		t.Fatalf("turn metadata missing: %+v", turn)
	}
}

func TestChatEmptyText(t *testing.T) {
	srv := newTestServer(t, &fakeModel{}, &fakeDevice{})

	res := doJSON(t, srv, http.MethodPost, "/api/chat", map[string]string{"text": "   "})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
}

func TestChatAudioRawBody(t *testing.T) {
	model := &fakeModel{replies: []string{"He said hello."}}
	srv := newTestServer(t, model, &fakeDevice{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/audio", bytes.NewReader([]byte{0x1a, 0x45, 0xdf, 0xa3}))
	req.Header.Set("Content-Type", "audio/webm")

	res, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}

	var turn conversation.Turn
	decodeBody(t, res, &turn)

	if turn.Text != "He said hello." {
		t.Fatalf("unexpected reply: %q", turn.Text)
	}
}

func TestRecordStartStopFlow(t *testing.T) {
	model := &fakeModel{replies: []string{"He asked about skills."}}
	srv := newTestServer(t, model, &fakeDevice{})

	res := doJSON(t, srv, http.MethodPost, "/api/record/start", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("start failed with status %d", res.StatusCode)
	}

	res = doJSON(t, srv, http.MethodPost, "/api/record/start", nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("double start must conflict, got %d", res.StatusCode)
	}

	res = doJSON(t, srv, http.MethodPost, "/api/record/stop", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stop failed with status %d", res.StatusCode)
	}

	var turn conversation.Turn
	decodeBody(t, res, &turn)

	if turn.Text != "He asked about skills." {
		t.Fatalf("unexpected reply: %q", turn.Text)
	}

	res = doJSON(t, srv, http.MethodPost, "/api/record/stop", nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("stop without start must conflict, got %d", res.StatusCode)
	}
}

func TestRecordStartPermissionDenied(t *testing.T) {
	srv := newTestServer(t, &fakeModel{}, &fakeDevice{openErr: capture.ErrPermissionDenied})

	res := doJSON(t, srv, http.MethodPost, "/api/record/start", nil)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
}

func TestTranscriptAndReset(t *testing.T) {
	model := &fakeModel{replies: []string{"answer"}}
	srv := newTestServer(t, model, &fakeDevice{})

	res := doJSON(t, srv, http.MethodPost, "/api/chat", map[string]string{"text": "question"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("chat failed with status %d", res.StatusCode)
	}

	var transcript struct {
		Turns []conversation.Turn `json:"turns"`
	}

	res = doJSON(t, srv, http.MethodGet, "/api/transcript", nil)
	decodeBody(t, res, &transcript)

	if len(transcript.Turns) != 3 {
		t.Fatalf("expected greeting + exchange, got %d turns", len(transcript.Turns))
	}

	res = doJSON(t, srv, http.MethodPost, "/api/session/reset", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reset failed with status %d", res.StatusCode)
	}
	decodeBody(t, res, &transcript)

	if len(transcript.Turns) != 1 {
		t.Fatalf("expected only the greeting after reset, got %d turns", len(transcript.Turns))
	}
	if transcript.Turns[0].Text != "Hi, I can tell you about John." {
		t.Fatalf("greeting not reseeded: %q", transcript.Turns[0].Text)
	}
}

func TestStateEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeModel{}, &fakeDevice{})

	var state struct {
		State         string `json:"state"`
		Recording     bool   `json:"recording"`
		Speaking      bool   `json:"speaking"`
		SpeechEnabled bool   `json:"speechEnabled"`
	}

	res := doJSON(t, srv, http.MethodGet, "/api/state", nil)
	decodeBody(t, res, &state)

	if state.State != "IDLE" || state.Recording || state.Speaking || state.SpeechEnabled {
		t.Fatalf("unexpected initial state: %+v", state)
	}

	res = doJSON(t, srv, http.MethodPost, "/api/record/start", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("start failed with status %d", res.StatusCode)
	}

	res = doJSON(t, srv, http.MethodGet, "/api/state", nil)
	decodeBody(t, res, &state)

	if !state.Recording {
		t.Fatal("recording flag not reported")
	}
	if state.State != "RECORDING" {
		t.Fatalf("expected RECORDING state, got %q", state.State)
	}
}

func TestResumeReplacement(t *testing.T) {
	srv := newTestServer(t, &fakeModel{replies: []string{"answer"}}, &fakeDevice{})

	res := doJSON(t, srv, http.MethodPut, "/api/resume", map[string]string{"resume": "   "})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank resume must be rejected, got %d", res.StatusCode)
	}

	res = doJSON(t, srv, http.MethodPut, "/api/resume", map[string]string{"resume": "New resume text."})
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}

	if got := srv.sessionSvc.Resume(); got != "New resume text." {
		t.Fatalf("resume not replaced: %q", got)
	}
}

func TestSpeechToggle(t *testing.T) {
	srv := newTestServer(t, &fakeModel{}, &fakeDevice{})

	var state struct {
		SpeechEnabled bool `json:"speechEnabled"`
	}

	res := doJSON(t, srv, http.MethodPut, "/api/speech", map[string]bool{"enabled": true})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	decodeBody(t, res, &state)

	if !state.SpeechEnabled {
		t.Fatal("speech was not enabled")
	}

	res = doJSON(t, srv, http.MethodPut, "/api/speech", map[string]bool{"enabled": false})
	decodeBody(t, res, &state)

	if state.SpeechEnabled {
		t.Fatal("speech was not disabled")
	}
}

func TestChatMalformedBody(t *testing.T) {
	srv := newTestServer(t, &fakeModel{}, &fakeDevice{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")

	res, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
}
