// Package receiving implements the receive/edit prompt as a state machine.
//
//	Closed ──OpenReceive(row)──► OpenForReceive(row) ──┐
//	  ▲    ──OpenEdit(key)────► OpenForEdit(key) ──────┤
//	  └──── Confirm ok / Cancel / Dismiss ─────────────┘
//
// Opening only fires from Closed. A trigger that arrives while a prompt is
// open is ignored, so a scan landing mid-prompt never stacks a second one.
// A Confirm with an invalid quantity keeps the prompt open.
package receiving

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/ledger"
)

// State is the workflow phase.
type State int

const (
	Closed State = iota
	OpenForReceive
	OpenForEdit
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case OpenForReceive:
		return "open_for_receive"
	case OpenForEdit:
		return "open_for_edit"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrClosed is returned by Confirm when no prompt is open.
var ErrClosed = errors.New("no receiving prompt is open")

// Rows resolves catalog rows by index. *catalog.Index implements it.
type Rows interface {
	Row(i int) (catalog.Row, bool)
}

// Ledger is the subset of *ledger.Ledger the workflow writes to.
type Ledger interface {
	Get(key catalog.Key) (ledger.Entry, bool)
	Upsert(ctx context.Context, row catalog.Row, qty string) (ledger.EntryID, error)
	Update(ctx context.Context, key catalog.Key, qty string) error
}

// Prompt describes the open prompt. The zero value is Closed.
type Prompt struct {
	State   State
	RowIdx  int
	Row     catalog.Row
	Key     catalog.Key
	Prefill string
}

// Reason says why a transition happened.
type Reason string

const (
	ReasonOpened    Reason = "opened"
	ReasonConfirmed Reason = "confirmed"
	ReasonCancelled Reason = "cancelled"
	ReasonDismissed Reason = "dismissed"
)

// Transition is published to subscribers on every state change.
type Transition struct {
	From   State
	To     Prompt
	Reason Reason
}

// Workflow is the receive/edit state machine.
type Workflow struct {
	rows      Rows
	ledger    Ledger
	prompt    Prompt
	observers map[int]func(Transition)
	nextObs   int
}

// New creates a closed workflow.
func New(rows Rows, l Ledger) *Workflow {
	if rows == nil {
		rows = catalog.Empty()
	}
	return &Workflow{rows: rows, ledger: l, observers: make(map[int]func(Transition))}
}

// SetRows swaps the catalog used to resolve row indices, as after a reload.
// An open receive prompt keeps the row it captured.
func (w *Workflow) SetRows(rows Rows) {
	if rows == nil {
		rows = catalog.Empty()
	}
	w.rows = rows
}

// Prompt returns the current prompt.
func (w *Workflow) Prompt() Prompt {
	return w.prompt
}

// State returns the current state.
func (w *Workflow) State() State {
	return w.prompt.State
}

// IsOpen reports whether a prompt is open.
func (w *Workflow) IsOpen() bool {
	return w.prompt.State != Closed
}

// OpenReceive opens a receive prompt for catalog row i, pre-filled with the
// quantity already in the ledger for that row's identity. It returns false
// without a transition when a prompt is already open, when i is not a row,
// or when the row cannot be identified.
func (w *Workflow) OpenReceive(i int) bool {
	if w.IsOpen() {
		return false
	}
	row, ok := w.rows.Row(i)
	if !ok {
		return false
	}
	key := catalog.IdentityOf(row)
	if key.Unidentifiable() {
		return false
	}

	var prefill string
	if e, ok := w.ledger.Get(key); ok {
		prefill = e.Quantity
	}
	w.transition(Prompt{State: OpenForReceive, RowIdx: i, Row: row, Key: key, Prefill: prefill}, ReasonOpened)
	return true
}

// OpenEdit opens an edit prompt for the ledger entry at key. It returns
// false when a prompt is already open, and false with ledger.ErrNotFound
// when no entry exists for key.
func (w *Workflow) OpenEdit(key catalog.Key) (bool, error) {
	if w.IsOpen() {
		return false, nil
	}
	e, ok := w.ledger.Get(key)
	if !ok {
		return false, fmt.Errorf("%w: %s", ledger.ErrNotFound, key)
	}
	w.transition(Prompt{State: OpenForEdit, RowIdx: -1, Row: e.Row, Key: key, Prefill: e.Quantity}, ReasonOpened)
	return true, nil
}

// Confirm submits input as the quantity for the open prompt.
//
// An invalid quantity returns a *ledger.ValidationError and the prompt stays
// open with the ledger untouched. Any other outcome closes the prompt; a
// *ledger.PersistenceError means the value is held in memory only.
func (w *Workflow) Confirm(ctx context.Context, input string) error {
	p := w.prompt
	if p.State == Closed {
		return ErrClosed
	}
	qty, _, err := ledger.ParseQuantity(input)
	if err != nil {
		return err
	}

	switch p.State {
	case OpenForReceive:
		_, err = w.ledger.Upsert(ctx, p.Row, qty)
	case OpenForEdit:
		err = w.ledger.Update(ctx, p.Key, qty)
	}
	w.transition(Prompt{}, ReasonConfirmed)
	return err
}

// Cancel closes the prompt without touching the ledger.
func (w *Workflow) Cancel() {
	if w.IsOpen() {
		w.transition(Prompt{}, ReasonCancelled)
	}
}

// Dismiss closes the prompt without touching the ledger, as when the
// operator leaves it without answering.
func (w *Workflow) Dismiss() {
	if w.IsOpen() {
		w.transition(Prompt{}, ReasonDismissed)
	}
}

// Subscribe registers fn for every Transition. The returned func
// unregisters it.
func (w *Workflow) Subscribe(fn func(Transition)) func() {
	id := w.nextObs
	w.nextObs++
	w.observers[id] = fn
	return func() { delete(w.observers, id) }
}

func (w *Workflow) transition(to Prompt, reason Reason) {
	from := w.prompt.State
	w.prompt = to
	t := Transition{From: from, To: to, Reason: reason}
	for _, fn := range w.observers {
		fn(t)
	}
}
