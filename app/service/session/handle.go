package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

const maxReplyTokens = 512

// Handle is one stateful conversation with the hosted model. The full
// history is replayed on every call, so the model sees prior turns
// without the caller resending them; dropping the handle loses that
// memory.
type Handle struct {
	mu          sync.Mutex
	model       llms.Model
	temperature float64
	history     []llms.MessageContent
}

// Send submits one user message built from parts and returns the reply
// text. An empty string with a nil error means the model produced no
// text.
func (h *Handle) Send(ctx context.Context, parts ...llms.ContentPart) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = append(h.history, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: parts,
	})

	res, err := h.model.GenerateContent(ctx, h.history,
		llms.WithTemperature(h.temperature),
		llms.WithMaxTokens(maxReplyTokens),
	)
	if err != nil {
		// do not replay a message the service never answered
		h.history = h.history[:len(h.history)-1]
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	var reply string
	if len(res.Choices) > 0 {
		reply = strings.TrimSpace(res.Choices[0].Content)
	}

	if reply == "" {
		// same rule as the error path: an unanswered message must not
		// be replayed on the next call
		h.history = h.history[:len(h.history)-1]
		return "", nil
	}

	h.history = append(h.history, llms.TextParts(llms.ChatMessageTypeAI, reply))

	return reply, nil
}

// HistoryLen reports the number of stored messages, system instruction
// included.
func (h *Handle) HistoryLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.history)
}
