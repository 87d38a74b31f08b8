package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
	"vitachat/app/config"

	"github.com/samber/do"
)

const (
	startupGrace = 250 * time.Millisecond
	stopTimeout  = 1200 * time.Millisecond
)

// FFmpegDevice captures microphone audio through an ffmpeg subprocess,
// producing a single webm/opus clip per session.
type FFmpegDevice struct {
	cfg     *config.Config
	command string
}

func NewFFmpegDevice(di *do.Injector) (*FFmpegDevice, error) {
	return &FFmpegDevice{
		cfg:     do.MustInvoke[*config.Config](di),
		command: "ffmpeg",
	}, nil
}

var _ Device = (*FFmpegDevice)(nil)

func (d *FFmpegDevice) Open(ctx context.Context) (Session, error) {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", d.cfg.Capture.InputFormat,
		"-i", d.cfg.Capture.InputDevice,
		"-ac", "1",
		"-c:a", "libopus",
		"-b:a", "32k",
		"-f", "webm",
		"-",
	}

	cmd := exec.CommandContext(ctx, d.command, args...)
	slog.Debug("Running ffmpeg", "cmd", d.command+" "+strings.Join(args, " "))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// Wait closes pipes it created itself, racing a drain that is still
	// reading the tail ffmpeg flushes on SIGINT. The session owns this
	// pipe instead, so only the reader closes it.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW

	if err = cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = stdoutW.Close()

		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	// the child keeps its own copy of the write end
	_ = stdoutW.Close()

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		_ = stdout.Close()
		return nil, classifyStartFailure(err, stderr.String())
	case <-time.After(startupGrace):
	}

	return &ffmpegSession{
		stdout:  stdout,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

// classifyStartFailure maps an early ffmpeg exit onto the capture error
// taxonomy using its stderr output.
func classifyStartFailure(err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	lower := strings.ToLower(detail)

	switch {
	case strings.Contains(lower, "permission denied") || strings.Contains(lower, "access denied"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, detail)
	case err != nil:
		return fmt.Errorf("%w: %v: %s", ErrDeviceUnavailable, err, detail)
	default:
		return fmt.Errorf("%w: ffmpeg exited before capture started: %s", ErrDeviceUnavailable, detail)
	}
}

type ffmpegSession struct {
	stdout  io.ReadCloser
	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if err != nil {
		_ = s.stdout.Close()
	}

	return n, err
}

func (s *ffmpegSession) MimeType() string {
	return "audio/webm"
}

// Stop interrupts ffmpeg so it finalizes the container, escalating to a
// kill if it does not exit in time.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err := <-s.waitErr:
			s.stopErr = normalizeStopErr(err)
		case <-time.After(stopTimeout):
			if s.process != nil {
				_ = s.process.Kill()
			}
			s.stopErr = normalizeStopErr(<-s.waitErr)
		}
	})

	return s.stopErr
}

func normalizeStopErr(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// interrupt/kill exits are the expected way to end a capture
		return nil
	}

	return err
}
