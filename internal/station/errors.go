package station

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCatalogFile means the catalog file does not exist yet. It is
	// reported separately from a file that exists but cannot be read.
	ErrNoCatalogFile = errors.New("no catalog file available")

	// ErrNoMatch is returned when input matches no catalog row.
	ErrNoMatch = errors.New("no matching catalog row")

	// ErrBusy is returned when a prompt is already open.
	ErrBusy = errors.New("a receiving prompt is already open")

	// ErrNoResult is returned when a result index is out of range.
	ErrNoResult = errors.New("no such search result")
)

// CatalogLoadError reports a catalog file that could not be loaded.
// The previously loaded catalog stays in place.
type CatalogLoadError struct {
	Path string
	Err  error
}

func (e *CatalogLoadError) Error() string {
	return fmt.Sprintf("load catalog %s: %v", e.Path, e.Err)
}

func (e *CatalogLoadError) Unwrap() error {
	return e.Err
}

// IsCatalogLoadError returns true if err is or wraps a *CatalogLoadError.
func IsCatalogLoadError(err error) bool {
	var le *CatalogLoadError
	return errors.As(err, &le)
}
