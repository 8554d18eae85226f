package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds carried by a LedgerEventMessage.
const (
	EventPaymentCreated = "payment.created"
	EventPaymentUpdated = "payment.updated"
	EventPaymentDeleted = "payment.deleted"
)

// LedgerEventMessage tells the worker that a payment changed. It carries
// only the payment id; the worker fetches the current row from the
// database, so a stale message can never overwrite fresher data.
type LedgerEventMessage struct {
	Event     string    `json:"event"`
	PaymentID int64     `json:"payment_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event message for the given payment
func NewLedgerEventMessage(event string, paymentID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:     event,
		PaymentID: paymentID,
		Timestamp: time.Now(),
	}
}

// Validate checks that the event kind is one this module understands
func (m *LedgerEventMessage) Validate() error {
	switch m.Event {
	case EventPaymentCreated, EventPaymentUpdated, EventPaymentDeleted:
		return nil
	}
	return fmt.Errorf("unknown ledger event %q", m.Event)
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON parses a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
