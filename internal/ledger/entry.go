package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/intake/internal/catalog"
)

// Status is the lifecycle state of an entry.
type Status string

const (
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// EntryID is a stable identifier assigned when an entry is first created.
type EntryID string

// Entry is one receiving record.
type Entry struct {
	ID         EntryID     `json:"id"`
	Key        catalog.Key `json:"key"`
	Row        catalog.Row `json:"row"`
	Quantity   string      `json:"quantity"`
	ModifiedAt time.Time   `json:"modified_at"`
	Status     Status      `json:"status,omitempty"`

	// Seq orders mutations that share a ModifiedAt.
	Seq int64 `json:"seq,omitempty"`
}

// Pending reports whether the entry counts as received. Entries persisted
// without a status are treated as received.
func (e Entry) Pending() bool {
	return e.Status == "" || e.Status == StatusReceived
}

// Cancelled reports whether the entry was soft-cancelled.
func (e Entry) Cancelled() bool {
	return e.Status == StatusCancelled
}

// Amount returns the quantity as a decimal. Unparseable quantities yield zero.
func (e Entry) Amount() decimal.Decimal {
	d, err := decimal.NewFromString(e.Quantity)
	if err != nil {
		return decimal.Zero
	}
	return d
}
