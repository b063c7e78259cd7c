package ledger

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/store"
)

// Storage is the durable key/value collaborator. *store.Store implements it.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Authorizer reports whether destructive operations are currently allowed.
// *session.Session implements it.
type Authorizer interface {
	Authorized() bool
}

// ChangeKind identifies the mutation that produced a Change.
type ChangeKind string

const (
	ChangeUpserted  ChangeKind = "upserted"
	ChangeCancelled ChangeKind = "cancelled"
	ChangeDeleted   ChangeKind = "deleted"
	ChangeCleared   ChangeKind = "cleared"
	ChangeReplaced  ChangeKind = "replaced"
	ChangeRestored  ChangeKind = "restored"
)

// Change is published to subscribers after every mutation.
// Entry is the zero value for deletions and bulk changes.
type Change struct {
	Kind  ChangeKind
	Key   catalog.Key
	Entry Entry
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the wall clock used for ModifiedAt.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithIDGenerator sets the entry ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(l *Ledger) { l.ids = g }
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// Ledger is the authoritative mapping from identity key to receiving entry.
type Ledger struct {
	entries map[catalog.Key]*Entry
	store   Storage
	auth    Authorizer
	clock   Clock
	ids     IDGenerator
	seq     sequence
	logger  *slog.Logger

	observers map[int]func(Change)
	nextObs   int
}

// New creates an empty ledger backed by s. auth gates HardDelete, ClearAll
// and Replace; a nil auth denies them all.
func New(s Storage, auth Authorizer, opts ...Option) *Ledger {
	l := &Ledger{
		entries:   make(map[catalog.Key]*Entry),
		store:     s,
		auth:      auth,
		clock:     SystemClock{},
		ids:       UUIDv7Generator{},
		logger:    slog.Default(),
		observers: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore replaces the in-memory mapping with the persisted snapshot.
// A missing snapshot leaves the ledger empty. An unreadable or corrupt
// snapshot also leaves it empty and returns a *PersistenceError.
func (l *Ledger) Restore(ctx context.Context) error {
	clear(l.entries)

	if l.store == nil {
		return nil
	}
	raw, ok, err := l.store.Get(ctx, store.KeyLedger)
	if err != nil {
		return l.persistErr("restore", err)
	}
	if !ok || raw == "" {
		l.publish(Change{Kind: ChangeRestored})
		return nil
	}

	entries, err := Decode([]byte(raw))
	if err != nil {
		return l.persistErr("restore", err)
	}
	var maxSeq int64
	for k, e := range entries {
		l.entries[k] = e
		maxSeq = max(maxSeq, e.Seq)
	}
	l.seq.resumeAt(maxSeq)
	l.publish(Change{Kind: ChangeRestored})
	return nil
}

// Upsert records qty for the identity of row. An existing entry keeps its ID
// and has its quantity replaced; a cancelled entry becomes received again.
func (l *Ledger) Upsert(ctx context.Context, row catalog.Row, qty string) (EntryID, error) {
	key := catalog.IdentityOf(row)
	if key.Unidentifiable() {
		return "", ErrUnidentifiable
	}
	q, _, err := ParseQuantity(qty)
	if err != nil {
		return "", err
	}

	e, ok := l.entries[key]
	if !ok {
		e = &Entry{ID: EntryID(l.ids.Generate()), Key: key}
		l.entries[key] = e
	}
	e.Row = row
	l.touch(e, q, StatusReceived)

	l.publish(Change{Kind: ChangeUpserted, Key: key, Entry: *e})
	return e.ID, l.persist(ctx)
}

// Update replaces the quantity of the existing entry for key.
func (l *Ledger) Update(ctx context.Context, key catalog.Key, qty string) error {
	e, ok := l.entries[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	q, _, err := ParseQuantity(qty)
	if err != nil {
		return err
	}
	l.touch(e, q, StatusReceived)

	l.publish(Change{Kind: ChangeUpserted, Key: key, Entry: *e})
	return l.persist(ctx)
}

// Cancel soft-removes the entry for key. It stays in the ledger and is only
// listed when cancelled entries are requested.
func (l *Ledger) Cancel(ctx context.Context, key catalog.Key) error {
	e, ok := l.entries[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	l.touch(e, e.Quantity, StatusCancelled)

	l.publish(Change{Kind: ChangeCancelled, Key: key, Entry: *e})
	return l.persist(ctx)
}

// HardDelete removes the entry for key. Requires an authorized session.
func (l *Ledger) HardDelete(ctx context.Context, key catalog.Key) error {
	if !l.authorized() {
		return ErrUnauthorized
	}
	if _, ok := l.entries[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(l.entries, key)

	l.publish(Change{Kind: ChangeDeleted, Key: key})
	return l.persist(ctx)
}

// ClearAll removes every entry. Requires an authorized session.
func (l *Ledger) ClearAll(ctx context.Context) error {
	if !l.authorized() {
		return ErrUnauthorized
	}
	clear(l.entries)

	l.publish(Change{Kind: ChangeCleared})
	return l.persist(ctx)
}

// Replace swaps the whole mapping for entries, as done by a snapshot import.
// Requires an authorized session. Entries are keyed by their Key field;
// entries whose key does not match their row identity are rejected.
func (l *Ledger) Replace(ctx context.Context, entries []Entry) error {
	if !l.authorized() {
		return ErrUnauthorized
	}

	next := make(map[catalog.Key]*Entry, len(entries))
	var maxSeq int64
	for i := range entries {
		e := entries[i]
		if want := catalog.IdentityOf(e.Row); e.Key != want {
			return fmt.Errorf("entry %d: key %q does not match row identity %q", i, e.Key, want)
		}
		if _, dup := next[e.Key]; dup {
			return fmt.Errorf("entry %d: duplicate key %q", i, e.Key)
		}
		if _, _, err := ParseQuantity(e.Quantity); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if e.ID == "" {
			e.ID = EntryID(l.ids.Generate())
		}
		next[e.Key] = &e
		maxSeq = max(maxSeq, e.Seq)
	}

	l.entries = next
	l.seq.resumeAt(maxSeq)
	l.publish(Change{Kind: ChangeReplaced})
	return l.persist(ctx)
}

// Get returns a copy of the entry for key.
func (l *Ledger) Get(key catalog.Key) (Entry, bool) {
	e, ok := l.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of entries, cancelled ones included.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// List returns entries most recently modified first. Cancelled entries are
// omitted unless includeCancelled is set.
func (l *Ledger) List(includeCancelled bool) []Entry {
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Cancelled() && !includeCancelled {
			continue
		}
		out = append(out, *e)
	}
	slices.SortFunc(out, compareRecent)
	return out
}

// HasPendingReceipts reports whether any entry is received (or has no
// status). Hosts use it to warn before quitting.
func (l *Ledger) HasPendingReceipts() bool {
	for _, e := range l.entries {
		if e.Pending() {
			return true
		}
	}
	return false
}

// Subscribe registers fn to receive every Change. The returned func
// unregisters it.
func (l *Ledger) Subscribe(fn func(Change)) func() {
	id := l.nextObs
	l.nextObs++
	l.observers[id] = fn
	return func() { delete(l.observers, id) }
}

// Encode serializes the mapping in its persisted form.
func (l *Ledger) Encode() ([]byte, error) {
	return json.Marshal(l.entries)
}

// Decode parses a persisted mapping. Entries missing their key field take it
// from the map key.
func Decode(data []byte) (map[catalog.Key]*Entry, error) {
	var entries map[catalog.Key]*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	for k, e := range entries {
		if e == nil {
			delete(entries, k)
			continue
		}
		if e.Key == "" {
			e.Key = k
		}
	}
	if entries == nil {
		entries = make(map[catalog.Key]*Entry)
	}
	return entries, nil
}

func (l *Ledger) touch(e *Entry, qty string, status Status) {
	e.Quantity = qty
	e.Status = status
	e.ModifiedAt = l.clock.Now()
	e.Seq = l.seq.next()
}

func (l *Ledger) authorized() bool {
	return l.auth != nil && l.auth.Authorized()
}

// persist writes the whole mapping. Failures are logged and returned; the
// in-memory state is never rolled back.
func (l *Ledger) persist(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	data, err := l.Encode()
	if err != nil {
		return l.persistErr("save", err)
	}
	if err := l.store.Set(ctx, store.KeyLedger, string(data)); err != nil {
		return l.persistErr("save", err)
	}
	return nil
}

func (l *Ledger) persistErr(op string, err error) error {
	l.logger.Warn("ledger persistence failed", "op", op, "error", err)
	return &PersistenceError{Op: op, Err: err}
}

func (l *Ledger) publish(c Change) {
	for _, fn := range l.observers {
		fn(c)
	}
}

func compareRecent(a, b Entry) int {
	if c := b.ModifiedAt.Compare(a.ModifiedAt); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Seq, a.Seq); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}
