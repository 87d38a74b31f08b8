package gemini

import (
	"context"
	"errors"
	"vitachat/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// ErrMissingCredential means no API key is configured. Chatting is
// impossible until one is provided; callers must surface this instead of
// degrading silently.
var ErrMissingCredential = errors.New("gemini API key is not configured")

type Client struct {
	cfg *config.Config
}

func NewClient(di *do.Injector) (*Client, error) {
	return &Client{
		cfg: do.MustInvoke[*config.Config](di),
	}, nil
}

// NewModel constructs a chat model bound to the configured credential.
// Construction is deferred to first use so a missing key fails the
// conversation attempt, not process startup.
func (c *Client) NewModel(ctx context.Context) (llms.Model, error) {
	if c.cfg.Gemini.Token == "" {
		return nil, ErrMissingCredential
	}

	model, err := googleai.New(ctx,
		googleai.WithAPIKey(c.cfg.Gemini.Token),
		googleai.WithDefaultModel(c.cfg.Gemini.Model),
	)
	if err != nil {
		return nil, oops.Errorf("failed to create gemini client: %w", err)
	}

	return model, nil
}
