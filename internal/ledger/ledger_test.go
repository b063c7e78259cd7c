package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/store"
	"github.com/roach88/intake/internal/testutil"
)

type fakeAuth bool

func (a fakeAuth) Authorized() bool { return bool(a) }

type fixture struct {
	ledger *Ledger
	store  *testutil.MemStore
	clock  *testutil.ManualClock
}

func newFixture(t *testing.T, authorized bool) fixture {
	t.Helper()
	s := testutil.NewMemStore()
	clock := testutil.NewManualClock(time.Time{})
	l := New(s, fakeAuth(authorized),
		WithClock(clock),
		WithIDGenerator(testutil.NewSequenceGenerator("")),
	)
	return fixture{ledger: l, store: s, clock: clock}
}

var (
	milk  = catalog.Row{Name: "Milk", Price: "10", PrimaryCode: "890123"}
	bread = catalog.Row{Name: "Bread", Price: "4", SecondaryCode: "B-1"}
	salt  = catalog.Row{Name: "Salt"}
)

func TestUpsert_ScenarioA(t *testing.T) {
	f := newFixture(t, false)

	id, err := f.ledger.Upsert(context.Background(), milk, "3")
	require.NoError(t, err)
	assert.Equal(t, EntryID("entry-0001"), id)

	e, ok := f.ledger.Get("primary::890123")
	require.True(t, ok)
	assert.Equal(t, "3", e.Quantity)
	assert.Equal(t, StatusReceived, e.Status)
	assert.Equal(t, testutil.Epoch, e.ModifiedAt)
	assert.Equal(t, 1, f.ledger.Len())
}

func TestUpsert_ReplacesQuantity(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	first, err := f.ledger.Upsert(ctx, milk, "5")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	// Same primary code, different name: same identity.
	renamed := milk
	renamed.Name = "Whole milk"
	second, err := f.ledger.Upsert(ctx, renamed, "2")
	require.NoError(t, err)

	assert.Equal(t, first, second, "entry ID is stable across upserts")
	assert.Equal(t, 1, f.ledger.Len())

	e, _ := f.ledger.Get(catalog.IdentityOf(milk))
	assert.Equal(t, "2", e.Quantity)
	assert.Equal(t, "Whole milk", e.Row.Name)
	assert.Equal(t, testutil.Epoch.Add(time.Minute), e.ModifiedAt)
}

func TestUpsert_RejectsInvalidQuantity(t *testing.T) {
	f := newFixture(t, false)

	for _, qty := range []string{"", "   ", "abc", "0", "-1"} {
		_, err := f.ledger.Upsert(context.Background(), milk, qty)
		assert.True(t, IsValidationError(err), "qty %q", qty)
	}
	assert.Equal(t, 0, f.ledger.Len())
	assert.Equal(t, 0, f.store.Writes())
}

func TestUpsert_Unidentifiable(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.ledger.Upsert(context.Background(), catalog.Row{Price: "1"}, "1")
	assert.ErrorIs(t, err, ErrUnidentifiable)
	assert.Equal(t, 0, f.ledger.Len())
}

func TestUpsert_RevivesCancelledEntry(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.ledger.Upsert(ctx, bread, "1")
	require.NoError(t, err)
	require.NoError(t, f.ledger.Cancel(ctx, catalog.IdentityOf(bread)))

	_, err = f.ledger.Upsert(ctx, bread, "4")
	require.NoError(t, err)

	e, _ := f.ledger.Get(catalog.IdentityOf(bread))
	assert.Equal(t, StatusReceived, e.Status)
	assert.Equal(t, "4", e.Quantity)
}

func TestCancel_Visibility(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.ledger.Upsert(ctx, milk, "3")
	require.NoError(t, err)
	_, err = f.ledger.Upsert(ctx, bread, "1")
	require.NoError(t, err)

	key := catalog.IdentityOf(milk)
	require.NoError(t, f.ledger.Cancel(ctx, key))

	visible := f.ledger.List(false)
	require.Len(t, visible, 1)
	assert.Equal(t, catalog.IdentityOf(bread), visible[0].Key)

	all := f.ledger.List(true)
	require.Len(t, all, 2)
	e, ok := f.ledger.Get(key)
	require.True(t, ok)
	assert.Equal(t, StatusCancelled, e.Status)
	assert.Equal(t, "3", e.Quantity, "cancel keeps the quantity")
}

func TestCancel_NotFound(t *testing.T) {
	f := newFixture(t, false)
	assert.ErrorIs(t, f.ledger.Cancel(context.Background(), "primary::nope"), ErrNotFound)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.ledger.Upsert(ctx, salt, "1")
	require.NoError(t, err)

	require.NoError(t, f.ledger.Update(ctx, "name::Salt", "7"))
	e, _ := f.ledger.Get("name::Salt")
	assert.Equal(t, "7", e.Quantity)

	assert.ErrorIs(t, f.ledger.Update(ctx, "name::Pepper", "1"), ErrNotFound)
	assert.True(t, IsValidationError(f.ledger.Update(ctx, "name::Salt", "x")))
}

func TestHardDelete_Unauthorized(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.ledger.Upsert(ctx, milk, "3")
	require.NoError(t, err)
	writes := f.store.Writes()

	err = f.ledger.HardDelete(ctx, catalog.IdentityOf(milk))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, f.ledger.Len())
	assert.Equal(t, writes, f.store.Writes(), "no persistence on denied delete")

	assert.ErrorIs(t, f.ledger.ClearAll(ctx), ErrUnauthorized)
	assert.Equal(t, 1, f.ledger.Len())
}

func TestHardDelete_Authorized(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.ledger.Upsert(ctx, milk, "3")
	require.NoError(t, err)
	_, err = f.ledger.Upsert(ctx, bread, "1")
	require.NoError(t, err)

	require.NoError(t, f.ledger.HardDelete(ctx, catalog.IdentityOf(milk)))
	assert.Equal(t, 1, f.ledger.Len())
	assert.ErrorIs(t, f.ledger.HardDelete(ctx, catalog.IdentityOf(milk)), ErrNotFound)

	require.NoError(t, f.ledger.ClearAll(ctx))
	assert.Equal(t, 0, f.ledger.Len())
	assert.Equal(t, "{}", f.store.Snapshot()[store.KeyLedger])
}

func TestList_MostRecentFirst(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.ledger.Upsert(ctx, milk, "1")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.ledger.Upsert(ctx, bread, "1")
	require.NoError(t, err)
	// Same instant as bread: the later mutation still lists first.
	_, err = f.ledger.Upsert(ctx, salt, "1")
	require.NoError(t, err)

	keys := func() []catalog.Key {
		var out []catalog.Key
		for _, e := range f.ledger.List(false) {
			out = append(out, e.Key)
		}
		return out
	}
	assert.Equal(t, []catalog.Key{"name::Salt", "secondary::B-1", "primary::890123"}, keys())

	f.clock.Advance(time.Second)
	require.NoError(t, f.ledger.Update(ctx, "primary::890123", "9"))
	assert.Equal(t, []catalog.Key{"primary::890123", "name::Salt", "secondary::B-1"}, keys())
}

func TestPersistenceFailure_KeepsMutation(t *testing.T) {
	f := newFixture(t, false)
	f.store.FailWrites(true)

	_, err := f.ledger.Upsert(context.Background(), milk, "3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, testutil.ErrInjected)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "save", pe.Op)

	e, ok := f.ledger.Get(catalog.IdentityOf(milk))
	require.True(t, ok, "in-memory ledger stays authoritative")
	assert.Equal(t, "3", e.Quantity)
}

func TestRestore_RoundTrip(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.ledger.Upsert(ctx, milk, "3")
	require.NoError(t, err)
	_, err = f.ledger.Upsert(ctx, bread, "1.5")
	require.NoError(t, err)
	require.NoError(t, f.ledger.Cancel(ctx, catalog.IdentityOf(bread)))

	restored := New(f.store, nil, WithClock(f.clock))
	require.NoError(t, restored.Restore(ctx))

	assert.Equal(t, f.ledger.List(true), restored.List(true))
	assert.True(t, restored.HasPendingReceipts())

	// Sequence resumes past restored entries.
	_, err = restored.Upsert(ctx, salt, "2")
	require.NoError(t, err)
	assert.Equal(t, catalog.Key("name::Salt"), restored.List(false)[0].Key)
}

func TestRestore_MissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewMemStore()

	l := New(s, nil)
	require.NoError(t, l.Restore(ctx))
	assert.Equal(t, 0, l.Len())

	require.NoError(t, s.Set(ctx, store.KeyLedger, "{not json"))
	err := l.Restore(ctx)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 0, l.Len())
}

func TestRestore_LegacyEntryWithoutStatus(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewMemStore()
	require.NoError(t, s.Set(ctx, store.KeyLedger,
		`{"primary::1":{"row":{"name":"Tea","price":"","secondary_code":"","primary_code":"1"},"quantity":"2","modified_at":"2024-01-01T00:00:00Z"}}`))

	l := New(s, nil)
	require.NoError(t, l.Restore(ctx))

	e, ok := l.Get("primary::1")
	require.True(t, ok)
	assert.Equal(t, catalog.Key("primary::1"), e.Key, "key filled from map key")
	assert.True(t, e.Pending())
	assert.True(t, l.HasPendingReceipts())
}

func TestHasPendingReceipts(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	assert.False(t, f.ledger.HasPendingReceipts())

	_, err := f.ledger.Upsert(ctx, milk, "1")
	require.NoError(t, err)
	assert.True(t, f.ledger.HasPendingReceipts())

	require.NoError(t, f.ledger.Cancel(ctx, catalog.IdentityOf(milk)))
	assert.False(t, f.ledger.HasPendingReceipts())
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	entries := []Entry{
		{Key: "primary::890123", Row: milk, Quantity: "4", Status: StatusReceived, Seq: 7},
		{ID: "keep", Key: "name::Salt", Row: salt, Quantity: "1", Status: StatusCancelled, Seq: 3},
	}

	denied := newFixture(t, false)
	assert.ErrorIs(t, denied.ledger.Replace(ctx, entries), ErrUnauthorized)

	f := newFixture(t, true)
	_, err := f.ledger.Upsert(ctx, bread, "1")
	require.NoError(t, err)

	require.NoError(t, f.ledger.Replace(ctx, entries))
	assert.Equal(t, 2, f.ledger.Len())
	_, ok := f.ledger.Get(catalog.IdentityOf(bread))
	assert.False(t, ok)

	e, _ := f.ledger.Get("name::Salt")
	assert.Equal(t, EntryID("keep"), e.ID)
	e, _ = f.ledger.Get("primary::890123")
	assert.NotEmpty(t, e.ID)

	bad := []Entry{{Key: "primary::other", Row: milk, Quantity: "1"}}
	assert.Error(t, f.ledger.Replace(ctx, bad))
	assert.Equal(t, 2, f.ledger.Len(), "rejected import leaves ledger untouched")
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	var got []ChangeKind
	unsubscribe := f.ledger.Subscribe(func(c Change) { got = append(got, c.Kind) })

	_, err := f.ledger.Upsert(ctx, milk, "1")
	require.NoError(t, err)
	require.NoError(t, f.ledger.Cancel(ctx, catalog.IdentityOf(milk)))
	require.NoError(t, f.ledger.HardDelete(ctx, catalog.IdentityOf(milk)))
	require.NoError(t, f.ledger.ClearAll(ctx))

	unsubscribe()
	_, err = f.ledger.Upsert(ctx, milk, "1")
	require.NoError(t, err)

	assert.Equal(t, []ChangeKind{ChangeUpserted, ChangeCancelled, ChangeDeleted, ChangeCleared}, got)
}
