package amqp

import (
	"encoding/json"
	"time"
)

// LedgerEvent signals that a collection changed. Consumers re-read the slot
// store for the current state; the event carries no payload beyond the change.
type LedgerEvent struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewLedgerEvent(collection, op string) *LedgerEvent {
	return &LedgerEvent{
		Collection: collection,
		Op:         op,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON creates an event from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
