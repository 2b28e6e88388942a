package contracts

import (
	"encoding/json"
)

// Envelope is the JSON form of a message: a registered type name, the
// correlation ID lifted out for cheap inspection, and the message body.
type Envelope struct {
	Type          string          `json:"type"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Body          json.RawMessage `json:"body"`
}
