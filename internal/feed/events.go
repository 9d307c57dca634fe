package feed

import "time"

const (
	EventSubmitted = "request.submitted"
	EventResolved  = "request.resolved"
)

// QueueEvent describes a change to the pending-request queue.
type QueueEvent struct {
	Type        string    `json:"type"`
	RequestID   int64     `json:"request_id"`
	RequestType string    `json:"request_type,omitempty"`
	ItemID      *int64    `json:"item_id,omitempty"`
	Action      string    `json:"action,omitempty"` // approve / reject on resolution
	At          time.Time `json:"at"`
}
