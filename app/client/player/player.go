package player

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"vitachat/app/service/speech"

	"github.com/samber/do"
)

// FFPlay plays WAV clips through an ffplay subprocess. Killing the
// process via context cancellation is the cancel operation.
type FFPlay struct {
	command string
}

func New(_ *do.Injector) (*FFPlay, error) {
	return &FFPlay{command: "ffplay"}, nil
}

var _ speech.Player = (*FFPlay)(nil)

func (p *FFPlay) Play(ctx context.Context, wav []byte) error {
	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-autoexit",
		"-nodisp",
		"-",
	}

	cmd := exec.CommandContext(ctx, p.command, args...)
	cmd.Stdin = bytes.NewReader(wav)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return fmt.Errorf("ffplay failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return nil
}
