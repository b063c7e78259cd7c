// Package match searches a catalog.Index.
//
// Search is a case-insensitive substring scan over name, secondary code and
// primary code, deduplicated by identity key: the first row for a key wins and
// later rows only mark it as a duplicate. An empty query matches nothing.
//
// FindExact is the lookup behind the exact-match fast path. It tries, in
// order, primary code equality, secondary code equality, then name substring,
// so a scanned barcode always outranks a product whose name happens to
// contain the same digits.
package match
