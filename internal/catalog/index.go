package catalog

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"unicode"
)

// HeaderMode controls how the first row is classified.
type HeaderMode int

const (
	// HeaderAuto inspects row 0 to decide whether it is a header.
	HeaderAuto HeaderMode = iota
	// HeaderAlways treats row 0 as a header.
	HeaderAlways
	// HeaderNever treats row 0 as data.
	HeaderNever
)

func (m HeaderMode) String() string {
	switch m {
	case HeaderAuto:
		return "auto"
	case HeaderAlways:
		return "always"
	case HeaderNever:
		return "never"
	default:
		return "unknown"
	}
}

// ParseHeaderMode parses "auto", "always" or "never".
func ParseHeaderMode(s string) (HeaderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return HeaderAuto, nil
	case "always":
		return HeaderAlways, nil
	case "never":
		return HeaderNever, nil
	default:
		return 0, fmt.Errorf("unknown header mode: %q", s)
	}
}

// Index is an immutable, loaded catalog.
type Index struct {
	cells     [][]string
	rows      []Row
	columns   ColumnMap
	dataStart int
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	columns ColumnMap
	header  HeaderMode
}

// WithColumns sets the column layout. Default: DefaultColumns().
func WithColumns(m ColumnMap) Option {
	return func(o *loadOptions) { o.columns = m }
}

// WithHeaderMode overrides header detection. Default: HeaderAuto.
func WithHeaderMode(h HeaderMode) Option {
	return func(o *loadOptions) { o.header = h }
}

// Empty returns an index with no rows.
func Empty() *Index {
	return &Index{columns: DefaultColumns()}
}

// Load builds an Index from raw rows, header row included.
// The input is copied; later changes to rows do not affect the Index.
func Load(rows [][]string, opts ...Option) *Index {
	o := loadOptions{columns: DefaultColumns(), header: HeaderAuto}
	for _, opt := range opts {
		opt(&o)
	}

	idx := &Index{
		cells:   make([][]string, len(rows)),
		rows:    make([]Row, len(rows)),
		columns: o.columns,
	}
	for i, r := range rows {
		idx.cells[i] = append([]string(nil), r...)
		idx.rows[i] = rowFromCells(r, o.columns)
	}
	idx.dataStart = detectDataStart(idx.cells, o.header)
	return idx
}

// detectDataStart returns 1 when row 0 looks like a header, else 0.
//
// In auto mode row 0 is a header when it has visible text, contains at least
// one letter (any script), and none of its cells is a plain number. The last
// condition keeps a header-less sheet whose first product has a numeric
// price from losing that product.
func detectDataStart(cells [][]string, mode HeaderMode) int {
	if len(cells) == 0 {
		return 0
	}
	switch mode {
	case HeaderAlways:
		return 1
	case HeaderNever:
		return 0
	}

	var hasVisible, hasLetter bool
	for _, cell := range cells[0] {
		trimmed := strings.TrimSpace(cell)
		if trimmed == "" {
			continue
		}
		hasVisible = true
		if isNumeric(trimmed) {
			return 0
		}
		for _, r := range trimmed {
			if unicode.IsLetter(r) {
				hasLetter = true
				break
			}
		}
	}
	if hasVisible && hasLetter {
		return 1
	}
	return 0
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// Len returns the number of rows, header included.
func (x *Index) Len() int {
	return len(x.rows)
}

// DataStart returns the index of the first data row (0 or 1).
func (x *Index) DataStart() int {
	return x.dataStart
}

// DataLen returns the number of rows after the header.
func (x *Index) DataLen() int {
	if len(x.rows) <= x.dataStart {
		return 0
	}
	return len(x.rows) - x.dataStart
}

// Columns returns the column layout used to build the index.
func (x *Index) Columns() ColumnMap {
	return x.columns
}

// Row returns row i. ok is false when i is out of range.
func (x *Index) Row(i int) (Row, bool) {
	if i < 0 || i >= len(x.rows) {
		return Row{}, false
	}
	return x.rows[i], true
}

// Cell returns the trimmed value of column c in row i.
// Short or missing rows yield "".
func (x *Index) Cell(i int, c Column) string {
	r, ok := x.Row(i)
	if !ok {
		return ""
	}
	return r.Field(c)
}

// Header returns row 0 when it was classified as a header.
func (x *Index) Header() (Row, bool) {
	if x.dataStart == 0 || len(x.rows) == 0 {
		return Row{}, false
	}
	return x.rows[0], true
}

// Rows yields data rows in catalog order, starting at DataStart.
func (x *Index) Rows() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i := x.dataStart; i < len(x.rows); i++ {
			if !yield(i, x.rows[i]) {
				return
			}
		}
	}
}

// Raw returns a copy of the source cells for row i.
func (x *Index) Raw(i int) []string {
	if i < 0 || i >= len(x.cells) {
		return nil
	}
	return append([]string(nil), x.cells[i]...)
}

// Snapshot is the persisted form of an Index.
type Snapshot struct {
	Columns   ColumnMap  `json:"columns"`
	DataStart int        `json:"data_start"`
	Rows      [][]string `json:"rows"`
}

// Snapshot returns the persisted form of x.
func (x *Index) Snapshot() Snapshot {
	rows := make([][]string, len(x.cells))
	for i, r := range x.cells {
		rows[i] = append([]string(nil), r...)
	}
	return Snapshot{Columns: x.columns, DataStart: x.dataStart, Rows: rows}
}

// FromSnapshot rebuilds an Index without re-running header detection.
func FromSnapshot(s Snapshot) *Index {
	mode := HeaderNever
	if s.DataStart > 0 {
		mode = HeaderAlways
	}
	return Load(s.Rows, WithColumns(s.Columns), WithHeaderMode(mode))
}
