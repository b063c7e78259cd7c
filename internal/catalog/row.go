package catalog

import (
	"fmt"
	"strings"
)

// Column names a semantic catalog column.
type Column int

const (
	ColumnName Column = iota
	ColumnPrice
	ColumnSecondaryCode
	ColumnPrimaryCode
)

func (c Column) String() string {
	switch c {
	case ColumnName:
		return "name"
	case ColumnPrice:
		return "price"
	case ColumnSecondaryCode:
		return "secondary_code"
	case ColumnPrimaryCode:
		return "primary_code"
	default:
		return "unknown"
	}
}

// ColumnMap maps semantic columns to 0-based positions in the source rows.
type ColumnMap struct {
	Name          int `json:"name" toml:"name"`
	Price         int `json:"price" toml:"price"`
	SecondaryCode int `json:"secondary_code" toml:"secondary_code"`
	PrimaryCode   int `json:"primary_code" toml:"primary_code"`
}

// DefaultColumns is the layout of the stock products sheet:
// name, price, secondary code, primary code.
func DefaultColumns() ColumnMap {
	return ColumnMap{Name: 0, Price: 1, SecondaryCode: 2, PrimaryCode: 3}
}

// Position returns the source position of c, or -1 for an unknown column.
func (m ColumnMap) Position(c Column) int {
	switch c {
	case ColumnName:
		return m.Name
	case ColumnPrice:
		return m.Price
	case ColumnSecondaryCode:
		return m.SecondaryCode
	case ColumnPrimaryCode:
		return m.PrimaryCode
	default:
		return -1
	}
}

// Validate rejects negative positions and columns mapped twice.
func (m ColumnMap) Validate() error {
	seen := make(map[int]Column, 4)
	for _, c := range []Column{ColumnName, ColumnPrice, ColumnSecondaryCode, ColumnPrimaryCode} {
		pos := m.Position(c)
		if pos < 0 {
			return fmt.Errorf("column %s: negative position %d", c, pos)
		}
		if other, dup := seen[pos]; dup {
			return fmt.Errorf("column %s: position %d already used by %s", c, pos, other)
		}
		seen[pos] = c
	}
	return nil
}

// Row is one catalog record with its semantic fields populated.
// Missing cells are empty strings.
type Row struct {
	Name          string `json:"name"`
	Price         string `json:"price"`
	SecondaryCode string `json:"secondary_code"`
	PrimaryCode   string `json:"primary_code"`
}

// Field returns the value of column c.
func (r Row) Field(c Column) string {
	switch c {
	case ColumnName:
		return r.Name
	case ColumnPrice:
		return r.Price
	case ColumnSecondaryCode:
		return r.SecondaryCode
	case ColumnPrimaryCode:
		return r.PrimaryCode
	default:
		return ""
	}
}

// IsBlank reports whether every field is empty after trimming.
func (r Row) IsBlank() bool {
	return strings.TrimSpace(r.Name) == "" &&
		strings.TrimSpace(r.Price) == "" &&
		strings.TrimSpace(r.SecondaryCode) == "" &&
		strings.TrimSpace(r.PrimaryCode) == ""
}

func rowFromCells(cells []string, m ColumnMap) Row {
	return Row{
		Name:          strings.TrimSpace(cellAt(cells, m.Name)),
		Price:         strings.TrimSpace(cellAt(cells, m.Price)),
		SecondaryCode: strings.TrimSpace(cellAt(cells, m.SecondaryCode)),
		PrimaryCode:   strings.TrimSpace(cellAt(cells, m.PrimaryCode)),
	}
}

func cellAt(cells []string, pos int) string {
	if pos < 0 || pos >= len(cells) {
		return ""
	}
	return cells[pos]
}
