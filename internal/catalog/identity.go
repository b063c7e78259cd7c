package catalog

import "strings"

// Key is the dedup and upsert anchor derived from a Row.
type Key string

// Key namespaces.
const (
	PrimaryPrefix   = "primary::"
	SecondaryPrefix = "secondary::"
	NamePrefix      = "name::"
)

// Unidentifiable is the key of a row whose code and name fields are all empty.
const Unidentifiable Key = NamePrefix

// IdentityOf derives the identity of r: the primary code if present, else the
// secondary code, else the name. Values are trimmed before use.
func IdentityOf(r Row) Key {
	if code := strings.TrimSpace(r.PrimaryCode); code != "" {
		return Key(PrimaryPrefix + code)
	}
	if code := strings.TrimSpace(r.SecondaryCode); code != "" {
		return Key(SecondaryPrefix + code)
	}
	return Key(NamePrefix + strings.TrimSpace(r.Name))
}

// Unidentifiable reports whether k is the all-empty sentinel.
func (k Key) Unidentifiable() bool {
	return k == Unidentifiable
}

// Origin returns the field that produced k.
func (k Key) Origin() Column {
	switch {
	case strings.HasPrefix(string(k), PrimaryPrefix):
		return ColumnPrimaryCode
	case strings.HasPrefix(string(k), SecondaryPrefix):
		return ColumnSecondaryCode
	default:
		return ColumnName
	}
}

// Value returns k without its namespace.
func (k Key) Value() string {
	s := string(k)
	for _, p := range []string{PrimaryPrefix, SecondaryPrefix, NamePrefix} {
		if strings.HasPrefix(s, p) {
			return s[len(p):]
		}
	}
	return s
}

func (k Key) String() string {
	return string(k)
}
