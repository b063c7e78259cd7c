package export

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/ledger"
)

var at = time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)

func sampleEntries() []ledger.Entry {
	return []ledger.Entry{
		{Key: "primary::890123", Row: catalog.Row{Name: "Milk", Price: "10", PrimaryCode: "890123"}, Quantity: "3", ModifiedAt: at, Status: ledger.StatusReceived},
		{Key: "secondary::B-1", Row: catalog.Row{Name: "Bread | rye", Price: "1,250.50", SecondaryCode: "B-1"}, Quantity: "1.5", ModifiedAt: at},
		{Key: "name::Salt", Row: catalog.Row{Name: "Salt", Price: "n/a"}, Quantity: "2", ModifiedAt: at},
		{Key: "name::Gone", Row: catalog.Row{Name: "Gone", Price: "1"}, Quantity: "9", ModifiedAt: at, Status: ledger.StatusCancelled},
	}
}

func TestBuild(t *testing.T) {
	r, err := Build(sampleEntries(), "usd")
	require.NoError(t, err)

	assert.Equal(t, "USD", r.Currency)
	require.Len(t, r.Lines, 3, "cancelled entries are skipped")
	assert.True(t, r.TotalQuantity.Equal(decimal.RequireFromString("6.5")))
	// 10*3 + 1250.50*1.5
	assert.True(t, r.TotalValue.Equal(decimal.RequireFromString("1905.75")), r.TotalValue.String())

	assert.Equal(t, ledger.StatusReceived, r.Lines[1].Status, "unset status exports as received")
	assert.False(t, r.Lines[2].Priced)
	assert.Equal(t, "890123", r.Lines[0].Code())
	assert.Equal(t, "B-1", r.Lines[1].Code())
	assert.Equal(t, "", r.Lines[2].Code())
	assert.Equal(t, "2024-03-05 14:30", r.Lines[0].ReceivedAt)
}

func TestBuild_Empty(t *testing.T) {
	_, err := Build(nil, "")
	assert.ErrorIs(t, err, ErrNothingToExport)

	_, err = Build(sampleEntries()[3:], "")
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestBuild_UnknownCurrency(t *testing.T) {
	r, err := Build(sampleEntries(), "XYZ1")
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, r.Currency)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"10", "10", true},
		{" 1,250.50 ", "1250.5", true},
		{"$4.99", "4.99", true},
		{"", "0", false},
		{"n/a", "0", false},
	}
	for _, tt := range tests {
		got, ok := ParsePrice(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,905.75", FormatMoney(decimal.RequireFromString("1905.75"), "USD"))
	assert.Equal(t, "$10.00", FormatMoney(decimal.NewFromInt(10), "nope"))
}

func TestWriteXLSX(t *testing.T) {
	r, err := Build(sampleEntries(), "USD")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, r))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{SheetName}, wb.GetSheetList())
	rows, err := wb.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5, "header, three lines, total")
	assert.Equal(t, []string{"Name", "Price", "Description", "Barcode", "Quantity", "Line Total", "Received At"}, rows[0])
	assert.Equal(t, "Milk", rows[1][0])
	assert.Equal(t, "890123", rows[1][3])
	assert.Equal(t, "3", rows[1][4])
	assert.Equal(t, "30", rows[1][5])
	assert.Equal(t, "Total", rows[4][0])
	assert.Equal(t, "6.5", rows[4][4])
}

func TestSaveXLSX(t *testing.T) {
	r, err := Build(sampleEntries(), "USD")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), XLSXFilename)
	require.NoError(t, SaveXLSX(path, r))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestMarkdown_Layout(t *testing.T) {
	entries := make([]ledger.Entry, 0, 22)
	for i := range 22 {
		code := strings.Repeat("1", 3) + string(rune('0'+i%10))
		entries = append(entries, ledger.Entry{
			Row:      catalog.Row{Name: "Item", Price: "1", PrimaryCode: code},
			Quantity: "1", ModifiedAt: at,
		})
	}
	r, err := Build(entries, "USD")
	require.NoError(t, err)

	md, err := Markdown(r, PrintOptions{TextOnly: true})
	require.NoError(t, err)

	// 22 labels over 21-label pages: two tables.
	assert.Equal(t, 2, strings.Count(md, "| --- | --- | --- |"))
	assert.Contains(t, md, "22 items, total quantity 22, total value $22.00")
	assert.NotContains(t, md, "data:image/png")
}

func TestMarkdown_EscapesCells(t *testing.T) {
	r, err := Build(sampleEntries(), "USD")
	require.NoError(t, err)

	md, err := Markdown(r, PrintOptions{TextOnly: true})
	require.NoError(t, err)
	assert.Contains(t, md, `**Bread \| rye**`)
	assert.Contains(t, md, "Price: n/a")
	assert.Contains(t, md, "`B-1`")
}

func TestHTML(t *testing.T) {
	r, err := Build(sampleEntries(), "USD")
	require.NoError(t, err)

	page, err := HTML(r, PrintOptions{Title: "Delivery <42>"})
	require.NoError(t, err)

	s := string(page)
	assert.Contains(t, s, "<title>Delivery &lt;42&gt;</title>")
	assert.Contains(t, s, "<table>")
	assert.Contains(t, s, `src="data:image/png;base64,`)
	assert.Contains(t, s, "<strong>Milk</strong>")
	assert.Equal(t, 2, strings.Count(s, `src="data:image/png;base64,`), "Salt has no code")
}

func TestHTML_UnencodableCodeFallsBackToText(t *testing.T) {
	entries := []ledger.Entry{
		{Key: "primary::5901234123457", Row: catalog.Row{Name: "Flour", Price: "2", PrimaryCode: "5901234123457"}, Quantity: "1", ModifiedAt: at},
		{Key: "primary::890123", Row: catalog.Row{Name: "Milk", Price: "10", PrimaryCode: "890123"}, Quantity: "3", ModifiedAt: at},
	}
	r, err := Build(entries, "USD")
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	page, err := HTML(r, PrintOptions{Symbology: "ean", Logger: logger})
	require.NoError(t, err)

	s := string(page)
	assert.Equal(t, 1, strings.Count(s, `src="data:image/png;base64,`))
	assert.Contains(t, s, "<strong>Milk</strong>")
	assert.Contains(t, s, "<code>890123</code>")
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "code=890123")
}

func TestSaveHTML(t *testing.T) {
	r, err := Build(sampleEntries(), "USD")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), PrintFilename)
	require.NoError(t, SaveHTML(path, r, PrintOptions{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("<!DOCTYPE html>")))
}

func TestPreview(t *testing.T) {
	r, err := Build(sampleEntries(), "USD")
	require.NoError(t, err)

	out, err := Preview(r, "notty")
	require.NoError(t, err)
	assert.Contains(t, out, "Milk")
	assert.Contains(t, out, "890123")
}
