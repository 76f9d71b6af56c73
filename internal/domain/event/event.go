package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payload keys shared by publishers and subscribers
const (
	KeyOwnerID        = "owner_id"
	KeyTitle          = "title"
	KeyStatus         = "status"
	KeyPreviousStatus = "previous_status"
	KeyDecision       = "decision"
	KeyComment        = "comment"
	KeyApprovedAmount = "approved_amount"
	KeyProgress       = "progress"
	KeyDiff           = "diff"
	KeyEntryID        = "entry_id"
	KeyAmountDiffers  = "amount_differs"
)

// Event represents a domain event emitted after a state transition commits
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	RequestID     int64                  `json:"request_id"`
	ActorID       string                 `json:"actor_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with a fresh ID and correlation ID
func NewEvent(eventType Type, requestID int64, actorID string, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, requestID, actorID, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to an existing correlation chain
func NewEventWithCorrelation(eventType Type, requestID int64, actorID string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		RequestID:     requestID,
		ActorID:       actorID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a copy of the event with key set; the receiver is not modified
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if str, ok := e.Payload[key].(string); ok {
		return str
	}
	return ""
}

// GetPayloadDecimal retrieves an amount from the payload. Amounts may be
// carried as decimal.Decimal in-process or as strings after a JSON round trip.
func (e *Event) GetPayloadDecimal(key string) (decimal.Decimal, bool) {
	switch v := e.Payload[key].(type) {
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(v), true
	}
	return decimal.Zero, false
}
