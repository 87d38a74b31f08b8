package dispatch

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"vitachat/app/service/capture"
)

func TestEncodePayloadDeterministic(t *testing.T) {
	payload := capture.AudioPayload{
		Data:     []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00, 0x01},
		MimeType: "audio/webm",
	}

	first, err := EncodePayload(payload)
	if err != nil {
		t.Fatalf("EncodePayload failed: %v", err)
	}

	second, err := EncodePayload(payload)
	if err != nil {
		t.Fatalf("EncodePayload failed: %v", err)
	}

	if first != second {
		t.Fatal("encoding the same clip twice must yield the same string")
	}
	if strings.Contains(first, "data:") {
		t.Fatal("encoded payload must not carry a data-URL prefix")
	}

	decoded, err := base64.StdEncoding.DecodeString(first)
	if err != nil {
		t.Fatalf("result is not valid base64: %v", err)
	}
	if string(decoded) != string(payload.Data) {
		t.Fatal("round trip lost clip bytes")
	}
}

func TestEncodePayloadStripsDataURL(t *testing.T) {
	clip := []byte{0x01, 0x02, 0x03}
	encoded := base64.StdEncoding.EncodeToString(clip)

	payload := capture.AudioPayload{
		Data:     []byte("data:audio/webm;base64," + encoded),
		MimeType: "audio/webm",
	}

	got, err := EncodePayload(payload)
	if err != nil {
		t.Fatalf("EncodePayload failed: %v", err)
	}

	if got != encoded {
		t.Fatalf("expected unwrapped base64 %q, got %q", encoded, got)
	}
	if strings.Contains(got, "data:") {
		t.Fatal("data-URL prefix survived encoding")
	}
}

func TestEncodePayloadEmptyClip(t *testing.T) {
	_, err := EncodePayload(capture.AudioPayload{})
	if !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func TestEncodePayloadMalformedDataURL(t *testing.T) {
	_, err := EncodePayload(capture.AudioPayload{Data: []byte("data:audio/webm,plain")})
	if !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}
