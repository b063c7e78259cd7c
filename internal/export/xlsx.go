package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"
)

// XLSXFilename is the default workbook name.
const XLSXFilename = "selected_products.xlsx"

// SheetName is the worksheet holding the exported lines.
const SheetName = "selected"

var xlsxHeader = []any{"Name", "Price", "Description", "Barcode", "Quantity", "Line Total", "Received At"}

// WriteXLSX writes r as a single-sheet workbook.
func WriteXLSX(w io.Writer, r Report) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	rows := make([][]any, 0, len(r.Lines)+2)
	rows = append(rows, xlsxHeader)
	for _, l := range r.Lines {
		var total any = ""
		if l.Priced {
			total = l.Total.InexactFloat64()
		}
		rows = append(rows, []any{
			l.Name, l.Price, l.SecondaryCode, l.PrimaryCode,
			quantityCell(l), total, l.ReceivedAt,
		})
	}
	rows = append(rows, []any{"Total", "", "", "", r.TotalQuantity.InexactFloat64(), r.TotalValue.InexactFloat64(), ""})

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := wb.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook to path atomically.
func SaveXLSX(path string, r Report) error {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, r); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Barcodes stay text so leading zeros survive; quantities become numbers.
func quantityCell(l Line) any {
	if q, err := l.quantity(); err == nil {
		return q
	}
	return l.Quantity
}
