// Package tabular reads spreadsheet-like files into rows of cells.
//
// Supported formats are picked by extension: .xlsx/.xlsm (first or named
// sheet), .csv and .tsv. Cells are returned as displayed text; no typing.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported catalog file format")

// Format identifies a tabular file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

// Options tune Read.
type Options struct {
	// Sheet selects an xlsx sheet by name. Empty means the first sheet.
	Sheet string
}

// FormatOf returns the format implied by the path extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Read loads every row of the file at path.
// Returns an error wrapping fs.ErrNotExist when the file is absent.
func Read(path string, opts Options) ([][]string, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f, format, opts)
}

// Decode reads rows in the given format from r.
func Decode(r io.Reader, format Format, opts Options) ([][]string, error) {
	switch format {
	case FormatXLSX:
		return decodeXLSX(r, opts.Sheet)
	case FormatCSV:
		return decodeDelimited(r, ',')
	case FormatTSV:
		return decodeDelimited(r, '\t')
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func decodeXLSX(r io.Reader, sheet string) ([][]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return [][]string{}, nil
		}
		sheet = sheets[0]
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if rows == nil {
		rows = [][]string{}
	}
	return rows, nil
}

func decodeDelimited(r io.Reader, comma rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read delimited rows: %w", err)
	}
	if rows == nil {
		rows = [][]string{}
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}
