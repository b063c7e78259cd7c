package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/ledger"
	"github.com/roach88/intake/internal/match"
	"github.com/roach88/intake/internal/receiving"
	"github.com/roach88/intake/internal/scanner"
	"github.com/roach88/intake/internal/session"
	"github.com/roach88/intake/internal/tabular"
)

// Storage is the durable key/value collaborator. *store.Store implements it.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// UpdateKind identifies what an Update carries.
type UpdateKind string

const (
	UpdateResults UpdateKind = "results"
	UpdatePrompt  UpdateKind = "prompt"
	UpdateLedger  UpdateKind = "ledger"
	UpdateCatalog UpdateKind = "catalog"
	UpdateNotice  UpdateKind = "notice"
)

// Update is published to subscribers whenever visible state changes.
type Update struct {
	Kind       UpdateKind
	Results    []match.Result
	Transition receiving.Transition
	Change     ledger.Change
	Notice     Notice
}

// Option configures a Station.
type Option func(*Station)

// WithCatalogFile sets the catalog file loaded by LoadConfiguredCatalog.
func WithCatalogFile(path string, opts tabular.Options) Option {
	return func(s *Station) {
		s.catalogPath = path
		s.tabularOpts = opts
	}
}

// WithColumns sets the catalog column layout.
func WithColumns(m catalog.ColumnMap) Option {
	return func(s *Station) { s.columns = m }
}

// WithHeaderMode sets how the catalog header row is detected.
func WithHeaderMode(h catalog.HeaderMode) Option {
	return func(s *Station) { s.header = h }
}

// WithDebounce sets the scan debounce window and the clock it is measured
// with. A nil clock uses the system clock.
func WithDebounce(window time.Duration, clock scanner.Clock) Option {
	return func(s *Station) { s.debounce = scanner.NewDebouncer(window, clock) }
}

// WithScanner attaches a scanner source, toggled with StartScanner and
// StopScanner.
func WithScanner(src scanner.Source) Option {
	return func(s *Station) { s.scanSource = src }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Station) { s.logger = logger }
}

// Station is the application state: one catalog, one ledger, one session and
// one receiving workflow. Multiple stations may coexist.
type Station struct {
	store    Storage
	index    *catalog.Index
	engine   *match.Engine
	ledger   *ledger.Ledger
	session  *session.Session
	workflow *receiving.Workflow
	debounce *scanner.Debouncer
	logger   *slog.Logger

	catalogPath string
	tabularOpts tabular.Options
	columns     catalog.ColumnMap
	header      catalog.HeaderMode

	results         []match.Result
	secondaryFilter bool

	scanSource scanner.Source
	scan       *scanner.Scanner

	queue     *eventQueue
	observers map[int]func(Update)
	nextObs   int
}

// New creates a station over an existing ledger and session. The catalog
// starts empty; call Restore and/or LoadConfiguredCatalog to populate it.
func New(s Storage, l *ledger.Ledger, sess *session.Session, opts ...Option) *Station {
	st := &Station{
		store:     s,
		index:     catalog.Empty(),
		ledger:    l,
		session:   sess,
		columns:   catalog.DefaultColumns(),
		logger:    slog.Default(),
		queue:     newEventQueue(),
		observers: make(map[int]func(Update)),
	}
	for _, opt := range opts {
		opt(st)
	}
	if st.debounce == nil {
		st.debounce = scanner.NewDebouncer(scanner.DefaultDebounce, nil)
	}
	st.engine = match.New(st.index)
	st.workflow = receiving.New(st.index, l)

	l.Subscribe(func(c ledger.Change) {
		st.publish(Update{Kind: UpdateLedger, Change: c})
	})
	st.workflow.Subscribe(func(t receiving.Transition) {
		st.publish(Update{Kind: UpdatePrompt, Transition: t})
	})
	if st.scanSource != nil {
		st.scan = scanner.New(st.scanSource, func(code string) {
			st.Enqueue(Event{Type: EventScan, Text: code})
		})
	}
	return st
}

// Index returns the loaded catalog.
func (s *Station) Index() *catalog.Index { return s.index }

// Engine returns the match engine over the loaded catalog.
func (s *Station) Engine() *match.Engine { return s.engine }

// Ledger returns the receiving ledger.
func (s *Station) Ledger() *ledger.Ledger { return s.ledger }

// Session returns the authorization session.
func (s *Station) Session() *session.Session { return s.session }

// Workflow returns the receiving workflow.
func (s *Station) Workflow() *receiving.Workflow { return s.workflow }

// Results returns the last search results.
func (s *Station) Results() []match.Result { return s.results }

// SecondaryFilter reports whether rows without a secondary code are hidden
// from search results.
func (s *Station) SecondaryFilter() bool { return s.secondaryFilter }

// Subscribe registers fn for every Update. The returned func unregisters it.
func (s *Station) Subscribe(fn func(Update)) func() {
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() { delete(s.observers, id) }
}

// Restore loads the persisted catalog snapshot and ledger. Failures are
// reported as notices and joined into the returned error; the station stays
// usable with whatever could be restored.
func (s *Station) Restore(ctx context.Context) error {
	catErr := s.restoreCatalog(ctx)
	if catErr != nil {
		s.notify(noticeFor(catErr))
	}
	ledErr := s.ledger.Restore(ctx)
	if ledErr != nil {
		s.notify(noticeFor(ledErr))
	}
	return errors.Join(catErr, ledErr)
}

// Query runs a typed search. When text exactly equals a primary or
// secondary code, the receive prompt opens straight away. A non-blank query
// with no results raises a NotFound notice.
func (s *Station) Query(text string) []match.Result {
	s.results = s.engine.Search(text, match.WithSecondaryCodeOnly(s.secondaryFilter))
	s.publish(Update{Kind: UpdateResults, Results: s.results})
	if len(s.results) == 0 && strings.TrimSpace(text) != "" {
		s.notify(Notice{Level: LevelInfo, Code: NoticeNotFound,
			Message: fmt.Sprintf("no catalog row matches %q", text)})
	}
	if match.HasDuplicates(s.results) {
		s.notify(Notice{Level: LevelInfo, Code: NoticeDuplicate,
			Message: "some catalog rows share a code or name; only the first of each is shown"})
	}

	if row, ok := s.engine.MatchesCode(text); ok {
		s.workflow.OpenReceive(row)
	}
	return s.results
}

// Submit resolves text with the three-phase exact lookup and opens the
// receive prompt for the row found.
func (s *Station) Submit(text string) error {
	return s.openExact(text)
}

// Scan handles a decoded scanner code. Repeats inside the debounce window
// and scans arriving while a prompt is open are dropped silently.
func (s *Station) Scan(code string) error {
	code, ok := scanner.Clean(code)
	if !ok || !s.debounce.Accept(code) {
		return nil
	}
	if s.workflow.IsOpen() {
		s.logger.Debug("scan ignored: prompt open", "code", code)
		return nil
	}
	return s.openExact(code)
}

func (s *Station) openExact(text string) error {
	if s.workflow.IsOpen() {
		return s.fail(ErrBusy)
	}
	row, ok := s.engine.FindExact(text)
	if !ok {
		return s.fail(fmt.Errorf("%w: %q", ErrNoMatch, text))
	}
	if !s.workflow.OpenReceive(row) {
		return s.fail(fmt.Errorf("%w: row %d cannot be identified", ErrNoMatch, row))
	}
	return nil
}

// Pick opens the receive prompt for search result i.
func (s *Station) Pick(i int) error {
	if i < 0 || i >= len(s.results) {
		return s.fail(fmt.Errorf("%w: %d", ErrNoResult, i+1))
	}
	if !s.workflow.OpenReceive(s.results[i].Row) {
		return s.fail(ErrBusy)
	}
	return nil
}

// Edit opens the edit prompt for the ledger entry at key.
func (s *Station) Edit(key catalog.Key) error {
	opened, err := s.workflow.OpenEdit(key)
	if err != nil {
		return s.fail(err)
	}
	if !opened {
		return s.fail(ErrBusy)
	}
	return nil
}

// Confirm submits qty to the open prompt.
func (s *Station) Confirm(ctx context.Context, qty string) error {
	p := s.workflow.Prompt()
	if err := s.workflow.Confirm(ctx, qty); err != nil {
		return s.fail(err)
	}
	s.notify(Notice{Level: LevelInfo, Code: NoticeSaved,
		Message: fmt.Sprintf("%s: %s", describe(p.Row, p.Key), qty)})
	return nil
}

// CancelPrompt closes the open prompt.
func (s *Station) CancelPrompt() { s.workflow.Cancel() }

// DismissPrompt closes the open prompt without an answer.
func (s *Station) DismissPrompt() { s.workflow.Dismiss() }

// CancelEntry soft-cancels the ledger entry at key.
func (s *Station) CancelEntry(ctx context.Context, key catalog.Key) error {
	return s.fail(s.ledger.Cancel(ctx, key))
}

// Delete removes the ledger entry at key. Requires an authorized session.
func (s *Station) Delete(ctx context.Context, key catalog.Key) error {
	return s.fail(s.ledger.HardDelete(ctx, key))
}

// Clear removes every ledger entry. Requires an authorized session.
func (s *Station) Clear(ctx context.Context) error {
	return s.fail(s.ledger.ClearAll(ctx))
}

// Authorize checks passphrase and grants the session on a match.
func (s *Station) Authorize(ctx context.Context, passphrase string) error {
	if err := s.session.Authorize(ctx, passphrase); err != nil {
		return s.fail(err)
	}
	s.notify(Notice{Level: LevelInfo, Code: NoticeGranted, Message: "session authorized"})
	return nil
}

// Revoke ends the authorized session.
func (s *Station) Revoke() {
	s.session.Revoke()
}

// SetSecondaryFilter hides (or shows again) rows without a secondary code in
// search results.
func (s *Station) SetSecondaryFilter(on bool) {
	s.secondaryFilter = on
}

// HasPendingReceipts reports whether the ledger holds received entries.
func (s *Station) HasPendingReceipts() bool {
	return s.ledger.HasPendingReceipts()
}

// ConfirmExit reports whether quitting needs operator confirmation, and
// publishes a warning when it does.
func (s *Station) ConfirmExit() bool {
	if !s.HasPendingReceipts() {
		return false
	}
	s.notify(Notice{Level: LevelWarn, Code: NoticePending,
		Message: "the ledger has received items that have not been exported"})
	return true
}

// StartScanner starts the attached scanner source.
func (s *Station) StartScanner(ctx context.Context) error {
	if s.scan == nil {
		return errors.New("no scanner configured")
	}
	s.debounce.Reset()
	return s.scan.Start(ctx)
}

// StopScanner stops the attached scanner source and releases its device.
func (s *Station) StopScanner() error {
	if s.scan == nil {
		return nil
	}
	return s.scan.Stop()
}

// ScannerRunning reports whether the scanner source is running.
func (s *Station) ScannerRunning() bool {
	return s.scan != nil && s.scan.Running()
}

// fail publishes a notice for err and returns it unchanged.
func (s *Station) fail(err error) error {
	if err == nil {
		return nil
	}
	n := noticeFor(err)
	if n.Code == NoticePersistence {
		s.logger.Warn("persistence failed", "error", err)
	}
	s.notify(n)
	return err
}

func (s *Station) notify(n Notice) {
	s.publish(Update{Kind: UpdateNotice, Notice: n})
}

func (s *Station) publish(u Update) {
	for _, fn := range s.observers {
		fn(u)
	}
}

func describe(row catalog.Row, key catalog.Key) string {
	if row.Name != "" {
		return row.Name
	}
	return key.String()
}
