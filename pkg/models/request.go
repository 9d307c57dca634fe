package models

import (
	"encoding/json"
	"time"
)

// Request types a contributor can submit.
const (
	RequestAdd       = "ADD"
	RequestEdit      = "EDIT"
	RequestDelete    = "DELETE"
	RequestOttUpdate = "OTT_UPDATE"
)

// PendingRequest is a queued write intent awaiting admin review.
// Presence in the queue is the only persisted state: approval or
// rejection removes the row.
type PendingRequest struct {
	ID          int64           `json:"id"`
	ItemID      *int64          `json:"item_id"` // nil for ADD
	RequestType string          `json:"request_type"`
	RequestData json.RawMessage `json:"request_data"`
	Contributor string          `json:"contributor,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
