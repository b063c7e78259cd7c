package match

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// folder lower-cases text for comparison.
// A cases.Caser keeps state between calls and is not safe for concurrent use;
// each Engine owns its own.
type folder struct {
	caser cases.Caser
}

func newFolder() *folder {
	return &folder{caser: cases.Lower(language.Und)}
}

// fold NFC-normalizes, trims and lower-cases s.
func (f *folder) fold(s string) string {
	return f.caser.String(norm.NFC.String(strings.TrimSpace(s)))
}

// exact normalizes a code for equality comparison. Codes are compared
// case-sensitively; only surrounding whitespace and Unicode form are ignored.
func exact(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
