// Package export turns the receiving ledger into files: an xlsx workbook and
// a printable label sheet with barcodes.
package export

import (
	"errors"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/roach88/intake/internal/ledger"
)

// ErrNothingToExport is returned when there are no received entries.
var ErrNothingToExport = errors.New("nothing to export: the ledger has no received items")

// DefaultCurrency is used when none is configured.
const DefaultCurrency = money.USD

// Line is one exported item.
type Line struct {
	Name          string
	Price         string // as found in the catalog
	SecondaryCode string
	PrimaryCode   string
	Quantity      string
	Status        ledger.Status
	ReceivedAt    string

	UnitPrice decimal.Decimal
	Total     decimal.Decimal
	Priced    bool // Price parsed as a number
}

// Code returns the code printed on the label: the primary code, else the
// secondary one.
func (l Line) Code() string {
	if l.PrimaryCode != "" {
		return l.PrimaryCode
	}
	return l.SecondaryCode
}

// Report is the exportable view of a ledger listing.
type Report struct {
	Currency      string
	Lines         []Line
	TotalQuantity decimal.Decimal
	TotalValue    decimal.Decimal
}

// Build creates a report from entries, normally ledger.List(false).
// Cancelled entries are skipped. Returns ErrNothingToExport when nothing is
// left.
func Build(entries []ledger.Entry, currency string) (Report, error) {
	if currency == "" || money.GetCurrency(currency) == nil {
		currency = DefaultCurrency
	}
	r := Report{Currency: strings.ToUpper(currency)}

	for _, e := range entries {
		if e.Cancelled() {
			continue
		}
		l := Line{
			Name:          e.Row.Name,
			Price:         e.Row.Price,
			SecondaryCode: e.Row.SecondaryCode,
			PrimaryCode:   e.Row.PrimaryCode,
			Quantity:      e.Quantity,
			Status:        e.Status,
			ReceivedAt:    e.ModifiedAt.Format("2006-01-02 15:04"),
		}
		if l.Status == "" {
			l.Status = ledger.StatusReceived
		}
		qty := e.Amount()
		if p, ok := ParsePrice(e.Row.Price); ok {
			l.UnitPrice = p
			l.Total = p.Mul(qty)
			l.Priced = true
			r.TotalValue = r.TotalValue.Add(l.Total)
		}
		r.TotalQuantity = r.TotalQuantity.Add(qty)
		r.Lines = append(r.Lines, l)
	}
	if len(r.Lines) == 0 {
		return Report{}, ErrNothingToExport
	}
	return r, nil
}

// ParsePrice reads a catalog price, tolerating thousands separators and a
// leading currency symbol.
func ParsePrice(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '-' && r != '.'
	})
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatMoney formats amount in currency, e.g. "$1,234.50".
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

// Money formats amount in the report currency.
func (r Report) Money(amount decimal.Decimal) string {
	return FormatMoney(amount, r.Currency)
}

func (l Line) quantity() (float64, error) {
	d, err := decimal.NewFromString(l.Quantity)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
