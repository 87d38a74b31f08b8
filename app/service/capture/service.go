package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"vitachat/app/config"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

// Service records at most one clip at a time from the injected device.
type Service struct {
	cfg    *config.Config
	device Device

	mu     sync.Mutex
	active *recording
}

type recording struct {
	sess  Session
	buf   bytes.Buffer
	group errgroup.Group
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:    do.MustInvoke[*config.Config](di),
		device: do.MustInvoke[Device](di),
	}, nil
}

// Start opens the device and begins buffering. Starting while a
// recording is active is an error; permission and device failures are
// surfaced so the caller can show them.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return ErrAlreadyRecording
	}

	sess, err := s.device.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open capture device: %w", err)
	}

	rec := &recording{sess: sess}
	rec.group.Go(func() error {
		_, err := io.Copy(&rec.buf, sess)
		return err
	})

	s.active = rec
	slog.Debug("Recording started")

	return nil
}

// Stop finalizes the active recording into one payload and releases the
// device.
func (s *Service) Stop(ctx context.Context) (AudioPayload, error) {
	s.mu.Lock()
	rec := s.active
	s.active = nil
	s.mu.Unlock()

	if rec == nil {
		return AudioPayload{}, ErrNotRecording
	}

	if err := rec.sess.Stop(); err != nil {
		slog.Warn("Failed to stop capture session", "error", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- rec.group.Wait()
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, io.EOF) {
			return AudioPayload{}, fmt.Errorf("failed to drain capture: %w", err)
		}
	case <-ctx.Done():
		return AudioPayload{}, ctx.Err()
	}

	payload := AudioPayload{
		Data:     rec.buf.Bytes(),
		MimeType: rec.sess.MimeType(),
	}

	slog.Debug("Recording finished", "bytes", len(payload.Data), "mime", payload.MimeType)

	return payload, nil
}

// Recording reports whether a capture is active.
func (s *Service) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active != nil
}
