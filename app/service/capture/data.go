package capture

import (
	"context"
	"errors"
	"io"
)

// AudioPayload is one finished recording: an opaque clip plus its
// container type. Produced by Stop, consumed once by the dispatcher.
type AudioPayload struct {
	Data     []byte
	MimeType string
}

var (
	ErrPermissionDenied  = errors.New("microphone access denied")
	ErrDeviceUnavailable = errors.New("no usable audio input device")
	ErrAlreadyRecording  = errors.New("a recording is already active")
	ErrNotRecording      = errors.New("no active recording")
)

// Device opens microphone capture sessions.
type Device interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one live recording. Reads yield the encoded clip as it is
// produced; Stop finalizes the clip, after which reads drain to EOF.
type Session interface {
	io.Reader
	MimeType() string
	Stop() error
}
