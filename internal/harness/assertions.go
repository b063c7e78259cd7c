package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/ledger"
)

// LedgerReader is the read side of *ledger.Ledger used by assertions.
type LedgerReader interface {
	Get(key catalog.Key) (ledger.Entry, bool)
	List(includeCancelled bool) []ledger.Entry
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %q -> %s %v\n",
				event.Step+1, event.Action, event.Input, event.Outcome, event.Notices)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, l LedgerReader) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, l); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, l LedgerReader) error {
	switch a.Type {
	case AssertLedgerContains:
		return assertLedgerContains(l, a)
	case AssertLedgerAbsent:
		return assertLedgerAbsent(l, a)
	case AssertLedgerCount:
		return assertLedgerCount(l, a)
	case AssertPromptState:
		return assertPromptState(result, a)
	case AssertNoticeSeen:
		return assertNoticeSeen(result, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertLedgerContains checks the entry for key (subset match on quantity
// and status).
func assertLedgerContains(l LedgerReader, a Assertion) error {
	e, ok := l.Get(catalog.Key(a.Key))
	if !ok {
		return &AssertionError{
			Type:     AssertLedgerContains,
			Expected: fmt.Sprintf("entry for %s", a.Key),
			Actual:   "no entry",
		}
	}
	if a.Quantity != "" && e.Quantity != a.Quantity {
		return &AssertionError{
			Type:     AssertLedgerContains,
			Expected: fmt.Sprintf("%s quantity %q", a.Key, a.Quantity),
			Actual:   fmt.Sprintf("quantity %q", e.Quantity),
		}
	}
	if a.Status != "" && string(e.Status) != a.Status {
		return &AssertionError{
			Type:     AssertLedgerContains,
			Expected: fmt.Sprintf("%s status %s", a.Key, a.Status),
			Actual:   fmt.Sprintf("status %s", e.Status),
		}
	}
	return nil
}

func assertLedgerAbsent(l LedgerReader, a Assertion) error {
	if e, ok := l.Get(catalog.Key(a.Key)); ok {
		return &AssertionError{
			Type:     AssertLedgerAbsent,
			Expected: fmt.Sprintf("no entry for %s", a.Key),
			Actual:   fmt.Sprintf("entry with quantity %q (%s)", e.Quantity, e.Status),
		}
	}
	return nil
}

func assertLedgerCount(l LedgerReader, a Assertion) error {
	if n := len(l.List(a.IncludeCancelled)); n != a.Count {
		return &AssertionError{
			Type:     AssertLedgerCount,
			Expected: fmt.Sprintf("%d entries (include_cancelled=%t)", a.Count, a.IncludeCancelled),
			Actual:   fmt.Sprintf("%d entries", n),
		}
	}
	return nil
}

func assertPromptState(result *Result, a Assertion) error {
	if result.Prompt != a.State {
		return &AssertionError{
			Type:     AssertPromptState,
			Expected: a.State,
			Actual:   result.Prompt,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertNoticeSeen(result *Result, a Assertion) error {
	if !slices.Contains(result.Notices, a.Code) {
		return &AssertionError{
			Type:     AssertNoticeSeen,
			Expected: fmt.Sprintf("notice %s", a.Code),
			Actual:   fmt.Sprintf("notices %v", result.Notices),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceOrder checks that actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for _, want := range a.Actions {
		found := false
		for pos < len(trace) {
			pos++
			if trace[pos-1].Action == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual:   fmt.Sprintf("%s not found after position %d", want, pos),
				Trace:    trace,
			}
		}
	}
	return nil
}
