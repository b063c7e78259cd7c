package station

import (
	"sync"

	"github.com/roach88/intake/internal/catalog"
)

// EventType distinguishes input events.
type EventType int

const (
	// EventQuery is text typed into the search box.
	EventQuery EventType = iota + 1
	// EventSubmit is text submitted as a code (Enter on the search box).
	EventSubmit
	// EventScan is a code decoded by a scanner.
	EventScan
	// EventPick opens the search result at Index.
	EventPick
	// EventEdit opens the ledger entry at Key for editing.
	EventEdit
	// EventConfirm submits Text as the quantity of the open prompt.
	EventConfirm
	// EventCancelPrompt closes the open prompt.
	EventCancelPrompt
	// EventDismissPrompt closes the open prompt without an answer.
	EventDismissPrompt
	// EventCancelEntry soft-cancels the ledger entry at Key.
	EventCancelEntry
	// EventDelete removes the ledger entry at Key.
	EventDelete
	// EventClear removes every ledger entry.
	EventClear
	// EventAuthorize checks Text as the passphrase.
	EventAuthorize
	// EventRevoke ends the authorized session.
	EventRevoke
	// EventFilter sets the secondary-code filter to Flag.
	EventFilter
	// EventLoadCatalog loads the catalog file at Text (empty: configured path).
	EventLoadCatalog
)

var eventNames = map[EventType]string{
	EventQuery:         "query",
	EventSubmit:        "submit",
	EventScan:          "scan",
	EventPick:          "pick",
	EventEdit:          "edit",
	EventConfirm:       "confirm",
	EventCancelPrompt:  "cancel_prompt",
	EventDismissPrompt: "dismiss_prompt",
	EventCancelEntry:   "cancel_entry",
	EventDelete:        "delete",
	EventClear:         "clear",
	EventAuthorize:     "authorize",
	EventRevoke:        "revoke",
	EventFilter:        "filter",
	EventLoadCatalog:   "load_catalog",
}

// ParseEventType returns the EventType whose String form is name.
func ParseEventType(name string) (EventType, bool) {
	for t, n := range eventNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "unknown"
}

// Event is one unit of input for the Run loop.
type Event struct {
	Type  EventType
	Text  string
	Index int
	Key   catalog.Key
	Flag  bool

	// Reply, when set, receives the result of handling the event. It must
	// have room for one value; the loop never blocks on it.
	Reply chan<- error
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so a burst of scanner reads never blocks the
// scanner goroutine.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
