package match

import (
	"strings"

	"github.com/roach88/intake/internal/catalog"
)

// Result is one deduplicated search hit.
type Result struct {
	Row         int         `json:"row"`
	Key         catalog.Key `json:"key"`
	IsDuplicate bool        `json:"is_duplicate"`
}

// HasDuplicates reports whether any result absorbed a duplicate row.
func HasDuplicates(results []Result) bool {
	for _, r := range results {
		if r.IsDuplicate {
			return true
		}
	}
	return false
}

// Engine searches one catalog.Index. Build a new Engine when the index is
// replaced.
type Engine struct {
	index  *catalog.Index
	fold   *folder
	folded []foldedRow
}

type foldedRow struct {
	name      string
	secondary string
	primary   string
	key       catalog.Key
}

// New prepares an Engine over idx. A nil idx behaves as an empty catalog.
func New(idx *catalog.Index) *Engine {
	if idx == nil {
		idx = catalog.Empty()
	}
	e := &Engine{
		index:  idx,
		fold:   newFolder(),
		folded: make([]foldedRow, idx.Len()),
	}
	for i, row := range idx.Rows() {
		e.folded[i] = foldedRow{
			name:      e.fold.fold(row.Name),
			secondary: e.fold.fold(row.SecondaryCode),
			primary:   e.fold.fold(row.PrimaryCode),
			key:       catalog.IdentityOf(row),
		}
	}
	return e
}

// Index returns the catalog being searched.
func (e *Engine) Index() *catalog.Index {
	return e.index
}

// SearchOption narrows Search.
type SearchOption func(*searchOptions)

type searchOptions struct {
	requireSecondary bool
}

// WithSecondaryCodeOnly drops rows that have no secondary code.
func WithSecondaryCodeOnly(on bool) SearchOption {
	return func(o *searchOptions) { o.requireSecondary = on }
}

// Search returns rows whose name, secondary code or primary code contains
// query, case-insensitively, one result per identity key in catalog order.
// An empty or whitespace-only query returns an empty result.
func (e *Engine) Search(query string, opts ...SearchOption) []Result {
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}

	results := []Result{}
	q := e.fold.fold(query)
	if q == "" {
		return results
	}

	seen := make(map[catalog.Key]int)
	for i := e.index.DataStart(); i < len(e.folded); i++ {
		f := e.folded[i]
		if f.key.Unidentifiable() {
			continue
		}
		if o.requireSecondary && f.secondary == "" {
			continue
		}
		if !strings.Contains(f.name, q) && !strings.Contains(f.secondary, q) && !strings.Contains(f.primary, q) {
			continue
		}
		if at, dup := seen[f.key]; dup {
			results[at].IsDuplicate = true
			continue
		}
		seen[f.key] = len(results)
		results = append(results, Result{Row: i, Key: f.key})
	}
	return results
}

// FindExact resolves value to a single row: exact primary code first, then
// exact secondary code, then the first name containing value.
func (e *Engine) FindExact(value string) (int, bool) {
	if row, ok := e.MatchesCode(value); ok {
		return row, true
	}

	q := e.fold.fold(value)
	if q == "" {
		return -1, false
	}
	for i := e.index.DataStart(); i < len(e.folded); i++ {
		if e.folded[i].name != "" && strings.Contains(e.folded[i].name, q) {
			return i, true
		}
	}
	return -1, false
}

// MatchesCode runs only the code phases of FindExact: exact primary code,
// then exact secondary code.
func (e *Engine) MatchesCode(value string) (int, bool) {
	v := exact(value)
	if v == "" {
		return -1, false
	}
	for _, c := range []catalog.Column{catalog.ColumnPrimaryCode, catalog.ColumnSecondaryCode} {
		for i, row := range e.index.Rows() {
			if exact(row.Field(c)) == v {
				return i, true
			}
		}
	}
	return -1, false
}
