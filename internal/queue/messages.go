package queue

import (
	"time"

	"github.com/google/uuid"
)

// TopicCallEvents carries every call lifecycle event (placement and
// provider status callbacks) to the call-log writer.
const TopicCallEvents = "call_events"

// CallEvent represents one call lifecycle event.
type CallEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	PhoneNumber string    `json:"phone_number"`
	DonorName   string    `json:"donor_name,omitempty"`
	CallSID     string    `json:"call_sid,omitempty"`
	Status      string    `json:"status"` // initiated, completed, busy, no-answer, failed, ...
	OccurredAt  time.Time `json:"occurred_at"`
}
