package dispatch

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"vitachat/app/service/capture"
)

// ErrEncoding means the clip bytes could not be read or were empty.
var ErrEncoding = errors.New("failed to encode audio payload")

// EncodePayload converts a clip into transport-safe base64. Sources that
// hand back a ready-made data URL are unwrapped first so the result
// never carries a scheme prefix. Deterministic; one attempt, no retries.
func EncodePayload(payload capture.AudioPayload) (string, error) {
	data := payload.Data
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty clip", ErrEncoding)
	}

	if bytes.HasPrefix(data, []byte("data:")) {
		idx := bytes.Index(data, []byte(";base64,"))
		if idx < 0 {
			return "", fmt.Errorf("%w: malformed data URL", ErrEncoding)
		}

		encoded := data[idx+len(";base64,"):]
		if _, err := base64.StdEncoding.DecodeString(string(encoded)); err != nil {
			return "", fmt.Errorf("%w: %v", ErrEncoding, err)
		}

		return string(encoded), nil
	}

	return base64.StdEncoding.EncodeToString(data), nil
}
