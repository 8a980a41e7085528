package hermes

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// SubjectRequests matches every inbound request subject.
	SubjectRequests = "autosocio.request.>"

	requestPrefix = "autosocio.request."
)

// RequestSubject is the subject callers publish a request of kind to.
func RequestSubject(kind string) string {
	return requestPrefix + kind
}

// CompletedSubject carries successful results of kind.
func CompletedSubject(kind string) string {
	return "autosocio." + kind + ".completed"
}

// FailedSubject carries failures of kind.
func FailedSubject(kind string) string {
	return "autosocio." + kind + ".failed"
}

// KindFromSubject extracts the request kind from a request subject.
func KindFromSubject(subject string) (string, bool) {
	kind, ok := strings.CutPrefix(subject, requestPrefix)
	if !ok || kind == "" || strings.Contains(kind, ".") {
		return "", false
	}
	return kind, true
}

// Event is the envelope of every result published by the service.
type Event struct {
	EventID   string          `json:"event_id"`
	Kind      string          `json:"kind"`
	RequestID string          `json:"request_id,omitempty"`
	Slot      string          `json:"slot,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
	Code      string          `json:"code,omitempty"`
}

// NewEvent wraps payload in an envelope with a fresh event id.
func NewEvent(kind, requestID, slot string, payload any) (Event, error) {
	ev := Event{
		EventID:   uuid.NewString(),
		Kind:      kind,
		RequestID: requestID,
		Slot:      slot,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", kind, err)
		}
		ev.Payload = b
	}
	return ev, nil
}

// NewFailure builds the envelope of a failed request.
func NewFailure(kind, requestID, slot, message, code string) Event {
	return Event{
		EventID:   uuid.NewString(),
		Kind:      kind,
		RequestID: requestID,
		Slot:      slot,
		Timestamp: time.Now().UTC(),
		Error:     message,
		Code:      code,
	}
}
