package amqp

import (
	"encoding/json"
	"time"

	"gastos/internal/events"
)

// ChangeMessage mirrors an events.Event on the wire. Like the in-process
// event it carries no record data; consumers refetch.
type ChangeMessage struct {
	Kind      string    `json:"kind"`
	Action    string    `json:"action"`
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(e events.Event) *ChangeMessage {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ChangeMessage{
		Kind:      string(e.Kind),
		Action:    string(e.Action),
		ID:        e.ID,
		Timestamp: ts.UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RoutingKey is "<kind>.<action>", e.g. "expenses-changed.restore".
func RoutingKey(e events.Event) string {
	return string(e.Kind) + "." + string(e.Action)
}
