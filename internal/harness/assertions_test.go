package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/ledger"
)

type fakeLedger map[catalog.Key]ledger.Entry

func (f fakeLedger) Get(k catalog.Key) (ledger.Entry, bool) {
	e, ok := f[k]
	return e, ok
}

func (f fakeLedger) List(includeCancelled bool) []ledger.Entry {
	var out []ledger.Entry
	for _, e := range f {
		if e.Cancelled() && !includeCancelled {
			continue
		}
		out = append(out, e)
	}
	return out
}

var sample = fakeLedger{
	"primary::1": {Key: "primary::1", Quantity: "3", Status: ledger.StatusReceived, ModifiedAt: time.Unix(0, 0)},
	"name::tea":  {Key: "name::tea", Quantity: "1", Status: ledger.StatusCancelled},
}

func TestAssertLedgerContains(t *testing.T) {
	assert.NoError(t, assertLedgerContains(sample, Assertion{Key: "primary::1", Quantity: "3", Status: "received"}))
	assert.NoError(t, assertLedgerContains(sample, Assertion{Key: "name::tea"}))

	err := assertLedgerContains(sample, Assertion{Key: "primary::1", Quantity: "4"})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, `quantity "3"`, ae.Actual)

	assert.Error(t, assertLedgerContains(sample, Assertion{Key: "name::tea", Status: "received"}))
	assert.Error(t, assertLedgerContains(sample, Assertion{Key: "primary::2"}))
}

func TestAssertLedgerAbsentAndCount(t *testing.T) {
	assert.NoError(t, assertLedgerAbsent(sample, Assertion{Key: "primary::2"}))
	assert.Error(t, assertLedgerAbsent(sample, Assertion{Key: "name::tea"}))

	assert.NoError(t, assertLedgerCount(sample, Assertion{Count: 1}))
	assert.NoError(t, assertLedgerCount(sample, Assertion{Count: 2, IncludeCancelled: true}))
	assert.Error(t, assertLedgerCount(sample, Assertion{Count: 2}))
}

func TestAssertTraceOrder(t *testing.T) {
	trace := []TraceEvent{
		{Step: 0, Action: "submit"},
		{Step: 1, Action: "confirm"},
		{Step: 2, Action: "query"},
		{Step: 3, Action: "confirm"},
	}

	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{"submit", "confirm"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{"submit", "query", "confirm"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{"confirm", "confirm"}}))
	assert.Error(t, assertTraceOrder(trace, Assertion{Actions: []string{"query", "submit"}}))
	assert.Error(t, assertTraceOrder(trace, Assertion{Actions: []string{"delete"}}))
}

func TestEvaluateAssertions_CollectsFailures(t *testing.T) {
	result := NewResult()
	result.Prompt = "closed"
	result.Notices = []string{"SAVED"}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertPromptState, State: "closed"},
		{Type: AssertNoticeSeen, Code: "SAVED"},
		{Type: AssertNoticeSeen, Code: "DENIED"},
		{Type: AssertPromptState, State: "open_for_edit"},
	}, sample)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion 2")
	assert.Contains(t, errs[1], "assertion 3")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertPromptState,
		Expected: "closed",
		Actual:   "open_for_receive",
		Trace:    []TraceEvent{{Step: 0, Action: "submit", Input: "1", Outcome: OutcomeOK}},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: prompt_state")
	assert.Contains(t, msg, "Expected: closed")
	assert.Contains(t, msg, `[1] submit "1" -> ok`)
}
