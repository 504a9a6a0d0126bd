// Package hub fans JSON events out to websocket clients using the
// channel-based register/unregister/broadcast pattern.
package hub

import (
	"encoding/json"
	"time"
)

// Event is the frame sent to clients.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Encode marshals the event once for every client.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
