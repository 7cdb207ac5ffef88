package events

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventUserCreated    EventType = "user_created"
)

// Event represents an auth audit event emitted by services. It never
// carries secrets or tokens.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the given time.
func NewEvent(eventType EventType, subjectID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// HashIdentifier returns a stable hex digest of a login identifier, so audit
// consumers can correlate attempts without seeing the email itself.
func HashIdentifier(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:16])
}

// LoginFailedPayload payload. Reason is the internal error kind, e.g. "invalid_credentials".
type LoginFailedPayload struct {
	IdentifierHash string `json:"identifier_hash"`
	Reason         string `json:"reason"`
}

// UserCreatedPayload payload.
type UserCreatedPayload struct {
	IdentifierHash string `json:"identifier_hash"`
}
