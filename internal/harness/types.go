package harness

import (
	"time"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/ledger"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int      `json:"step"`
	Action  string   `json:"action"`
	Input   string   `json:"input,omitempty"`
	Outcome string   `json:"outcome"` // "ok" or "error"
	Notices []string `json:"notices,omitempty"`
	Prompt  string   `json:"prompt"`
	Results int      `json:"results"`
}

// Outcome values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// LedgerRow is the golden-file form of a ledger entry.
type LedgerRow struct {
	Key        catalog.Key   `json:"key"`
	ID         string        `json:"id"`
	Quantity   string        `json:"quantity"`
	Status     ledger.Status `json:"status"`
	ModifiedAt time.Time     `json:"modified_at"`
	Seq        int64         `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Ledger is the final ledger, cancelled entries included, most recent
	// first.
	Ledger []LedgerRow `json:"ledger"`

	// Notices holds every notice code published, in order.
	Notices []string `json:"-"`

	// Prompt is the workflow state after the last step.
	Prompt string `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Ledger: []LedgerRow{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func ledgerRows(entries []ledger.Entry) []LedgerRow {
	rows := make([]LedgerRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, LedgerRow{
			Key:        e.Key,
			ID:         string(e.ID),
			Quantity:   e.Quantity,
			Status:     e.Status,
			ModifiedAt: e.ModifiedAt,
			Seq:        e.Seq,
		})
	}
	return rows
}
