package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payload keys shared by publishers and handlers
const (
	KeyClaimID    = "claim_id"
	KeyAmount     = "amount"
	KeyRemaining  = "remaining"
	KeyPaidBy     = "paid_by"
	KeyActorName  = "actor_name"
	KeyFromStatus = "from_status"
	KeyToStatus   = "to_status"
	KeyTenantID   = "tenant_id"
	KeyTenantName = "tenant_name"
	KeyPeriod     = "period"
	KeyEvidence   = "evidence_url"
	KeyMimeType   = "mime_type"
	KeySettled    = "settled"
)

// Event is a fact about a bill that already happened
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	BillID        string                 `json:"bill_id"`
	ActorID       string                 `json:"actor_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates an event with a fresh ID and its own correlation chain
func NewEvent(eventType Type, billID, actorID string, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return NewEventWithCorrelation(eventType, billID, actorID, payload, id)
}

// NewEventWithCorrelation creates an event linked to an existing correlation chain
func NewEventWithCorrelation(eventType Type, billID, actorID string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		BillID:        billID,
		ActorID:       actorID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a copy of the event with key set; the receiver is untouched
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

func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case interface{ String() string }:
			return v.String()
		}
	}
	return ""
}

// GetPayloadDecimal reads money values published as decimal, string or number
func (e *Event) GetPayloadDecimal(key string) decimal.Decimal {
	val, ok := e.Payload[key]
	if !ok {
		return decimal.Zero
	}
	switch v := val.(type) {
	case decimal.Decimal:
		return v
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	case int:
		return decimal.NewFromInt(int64(v))
	}
	return decimal.Zero
}

func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
