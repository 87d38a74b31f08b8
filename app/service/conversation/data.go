package conversation

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one transcript entry. Immutable once appended; the transcript
// only ever grows.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	IsAudio   bool      `json:"isAudio,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func newTurn(role Role, text string, isAudio bool) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		IsAudio:   isAudio,
		CreatedAt: time.Now().UTC(),
	}
}

type SendingState string

const (
	StateIdle       SendingState = "IDLE"
	StateRecording  SendingState = "RECORDING"
	StateProcessing SendingState = "PROCESSING"
	StateSpeaking   SendingState = "SPEAKING"
)
