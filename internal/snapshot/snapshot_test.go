package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/ledger"
	"github.com/roach88/intake/internal/testutil"
)

type fakeAuth bool

func (a fakeAuth) Authorized() bool { return bool(a) }

func newLedger(t *testing.T, authorized bool) *ledger.Ledger {
	t.Helper()
	return ledger.New(testutil.NewMemStore(), fakeAuth(authorized),
		ledger.WithClock(testutil.NewManualClock(time.Time{})),
		ledger.WithIDGenerator(testutil.NewSequenceGenerator("")),
	)
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newLedger(t, false)
	_, err := src.Upsert(ctx, catalog.Row{Name: "Milk", Price: "10", PrimaryCode: "890123"}, "3")
	require.NoError(t, err)
	_, err = src.Upsert(ctx, catalog.Row{Name: "Bread", SecondaryCode: "B-1"}, "1.5")
	require.NoError(t, err)
	require.NoError(t, src.Cancel(ctx, "secondary::B-1"))

	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, Save(path, New(src, testutil.Epoch)))

	dst := newLedger(t, true)
	doc, err := Import(ctx, path, dst)
	require.NoError(t, err)
	assert.Equal(t, Version, doc.Version)
	assert.Equal(t, testutil.Epoch, doc.ExportedAt)
	assert.Equal(t, src.List(true), dst.List(true))
}

func TestImport_Unauthorized(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, Save(path, New(newLedger(t, false), testutil.Epoch)))

	_, err := Import(ctx, path, newLedger(t, false))
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
}

func TestNew_EmptyLedgerHasEmptyEntries(t *testing.T) {
	data, err := Marshal(New(newLedger(t, false), testutil.Epoch))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entries": []`)
	assert.NoError(t, Validate(data))
}

func TestValidate_Rejects(t *testing.T) {
	entry := `{"id":"e1","key":"primary::1","row":{"name":"Tea","price":"","secondary_code":"","primary_code":"1"},"quantity":%s,"modified_at":"2024-01-01T00:00:00Z"%s}`
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"version":`},
		{"wrong version", `{"version":2,"entries":[]}`},
		{"missing entries", `{"version":1}`},
		{"null entries", `{"version":1,"entries":null}`},
		{"bad quantity", `{"version":1,"entries":[` + fmt.Sprintf(entry, `"abc"`, "") + `]}`},
		{"numeric quantity", `{"version":1,"entries":[` + fmt.Sprintf(entry, `3`, "") + `]}`},
		{"bad status", `{"version":1,"entries":[` + fmt.Sprintf(entry, `"3"`, `,"status":"lost"`) + `]}`},
		{"unknown field", `{"version":1,"entries":[` + fmt.Sprintf(entry, `"3"`, `,"extra":true`) + `]}`},
		{"bad key", `{"version":1,"entries":[{"key":"sku::1","row":{"name":"","price":"","secondary_code":"","primary_code":""},"quantity":"1","modified_at":""}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.NotEmpty(t, ve.Problems)
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	doc := `{"version":1,"exported_at":"2024-01-01T00:00:00Z","entries":[
	  {"id":"e1","key":"primary::1","row":{"name":"Tea","price":"2","secondary_code":"","primary_code":"1"},
	   "quantity":"0.5","modified_at":"2024-01-01T00:00:00Z","status":"cancelled","seq":4}]}`
	require.NoError(t, Validate([]byte(doc)))

	parsed, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, parsed.Entries, 1)
	assert.Equal(t, ledger.StatusCancelled, parsed.Entries[0].Status)
	assert.Equal(t, int64(4), parsed.Entries[0].Seq)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
