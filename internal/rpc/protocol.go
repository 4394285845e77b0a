// Package rpc implements the length-prefixed JSON message transport the
// cache service is reached through, along with a command router and client.
package rpc

import (
	"bytes"
	"encoding/json"

	"Users_Cache/internal/models"
)

// Request is one inbound message. A request without an id is an event
// and never gets a reply.
type Request struct {
	Pattern string          `json:"pattern"`
	Data    json.RawMessage `json:"data,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// IsEvent reports whether the sender expects no reply
func (r *Request) IsEvent() bool {
	id := bytes.TrimSpace(r.ID)
	return len(id) == 0 || bytes.Equal(id, []byte("null"))
}

// Response answers exactly one request. Response and Err are mutually exclusive.
type Response struct {
	ID         json.RawMessage  `json:"id"`
	Response   json.RawMessage  `json:"response,omitempty"`
	Err        *models.RPCError `json:"err,omitempty"`
	IsDisposed bool             `json:"isDisposed"`
}

var nullResult = json.RawMessage("null")
