package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/ledger"
	"github.com/roach88/intake/internal/scanner"
	"github.com/roach88/intake/internal/session"
	"github.com/roach88/intake/internal/station"
	"github.com/roach88/intake/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs steps with a manual clock and sequential entry IDs.
type Harness struct {
	clock   *testutil.ManualClock
	station *station.Station
	logger  *slog.Logger

	// notices published by the step currently executing
	stepNotices []string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store. Execution flow:
//  1. Provision the passphrase, if any
//  2. Load the catalog rows or file
//  3. Execute steps, checking expect clauses
//  4. Evaluate assertions against the trace and final ledger
//
// The returned error is reserved for setup failures; expectation and
// assertion failures are recorded in the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st := testutil.NewMemStore()
	clock := testutil.NewManualClock(time.Time{})
	sess := session.New(st, session.WithCost(bcrypt.MinCost), session.WithLogger(logger))
	led := ledger.New(st, sess,
		ledger.WithClock(clock),
		ledger.WithIDGenerator(testutil.NewSequenceGenerator("")),
		ledger.WithLogger(logger),
	)

	header := catalog.HeaderAuto
	if scenario.Header != "" {
		h, err := catalog.ParseHeaderMode(scenario.Header)
		if err != nil {
			return nil, err
		}
		header = h
	}

	h := &Harness{clock: clock, logger: logger}
	h.station = station.New(st, led, sess,
		station.WithHeaderMode(header),
		station.WithDebounce(scanner.DefaultDebounce, clock),
		station.WithLogger(logger),
	)

	result := NewResult()
	h.station.Subscribe(func(u station.Update) {
		if u.Kind != station.UpdateNotice {
			return
		}
		code := string(u.Notice.Code)
		h.stepNotices = append(h.stepNotices, code)
		result.Notices = append(result.Notices, code)
	})

	if err := h.setup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	result.Prompt = h.station.Workflow().State().String()
	result.Ledger = ledgerRows(led.List(true))

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, led) {
		result.AddError(msg)
	}
	return result, nil
}

// setup provisions the session and loads the catalog.
func (h *Harness) setup(ctx context.Context, scenario *Scenario) error {
	if scenario.Passphrase != "" {
		if err := h.station.Session().Provision(ctx, scenario.Passphrase); err != nil {
			return fmt.Errorf("provision: %w", err)
		}
		h.station.Revoke()
	}

	switch {
	case scenario.CatalogFile != "":
		if err := h.station.LoadCatalogFile(ctx, scenario.CatalogFile); err != nil {
			return err
		}
	case len(scenario.Catalog) > 0:
		if err := h.station.LoadCatalog(ctx, scenario.Catalog); err != nil {
			return err
		}
	}
	h.logger.Info("scenario setup complete", "rows", h.station.Index().DataLen())
	return nil
}

// executeSteps dispatches every step and validates its expect clause.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		gap := DefaultStepGap
		if step.After != "" {
			d, err := time.ParseDuration(step.After)
			if err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			gap = d
		}
		h.clock.Advance(gap)

		typ, ok := station.ParseEventType(step.Action)
		if !ok {
			return fmt.Errorf("step %d: unknown action %q", i, step.Action)
		}
		ev := station.Event{
			Type:  typ,
			Text:  step.Text,
			Index: step.Index,
			Key:   catalog.Key(step.Key),
			Flag:  step.Flag,
		}

		h.stepNotices = nil
		err := h.station.Dispatch(ctx, ev)

		event := TraceEvent{
			Step:    i,
			Action:  step.Action,
			Input:   stepInput(step),
			Outcome: OutcomeOK,
			Notices: slices.Clone(h.stepNotices),
			Prompt:  h.station.Workflow().State().String(),
			Results: len(h.station.Results()),
		}
		if err != nil {
			event.Outcome = OutcomeError
		}
		result.Trace = append(result.Trace, event)

		if step.Expect != nil {
			for _, msg := range h.checkExpect(i, step, event) {
				result.AddError(msg)
			}
		}

		h.logger.Info("step completed",
			"step", i,
			"action", step.Action,
			"outcome", event.Outcome,
			"error", errString(err),
		)
	}
	return nil
}

func (h *Harness) checkExpect(i int, step Step, event TraceEvent) []string {
	e := step.Expect
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("step %d (%s): ", i, step.Action)+fmt.Sprintf(format, args...))
	}

	if e.Outcome != "" && e.Outcome != event.Outcome {
		fail("expected outcome %s, got %s", e.Outcome, event.Outcome)
	}
	if e.Notice != "" && !slices.Contains(event.Notices, e.Notice) {
		fail("expected notice %s, got %v", e.Notice, event.Notices)
	}
	if e.Prompt != "" && e.Prompt != event.Prompt {
		fail("expected prompt %s, got %s", e.Prompt, event.Prompt)
	}
	if e.Results != nil && *e.Results != event.Results {
		fail("expected %d results, got %d", *e.Results, event.Results)
	}
	if e.Prefill != nil {
		if got := h.station.Workflow().Prompt().Prefill; got != *e.Prefill {
			fail("expected prefill %q, got %q", *e.Prefill, got)
		}
	}
	return errs
}

// stepInput is the trace form of a step's argument.
func stepInput(step Step) string {
	switch step.Action {
	case station.EventAuthorize.String():
		if step.Text == "" {
			return ""
		}
		return "***"
	case station.EventPick.String():
		return fmt.Sprint(step.Index)
	case station.EventFilter.String():
		return fmt.Sprint(step.Flag)
	case station.EventEdit.String(), station.EventCancelEntry.String(), station.EventDelete.String():
		return step.Key
	}
	return step.Text
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
