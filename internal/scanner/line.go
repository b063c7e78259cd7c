package scanner

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"unicode"
)

// LineSource reads one code per line from a keyboard-wedge or serial
// scanner, or any other reader.
type LineSource struct {
	open func() (io.ReadCloser, error)
}

// NewDeviceSource reads from the device or file at path. The device is
// opened on Run and closed when Run returns.
func NewDeviceSource(path string) *LineSource {
	return &LineSource{open: func() (io.ReadCloser, error) { return os.Open(path) }}
}

// NewReaderSource reads from r. Run never closes r.
func NewReaderSource(r io.Reader) *LineSource {
	return &LineSource{open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil }}
}

// Run implements Source.
func (s *LineSource) Run(ctx context.Context, emit func(string)) error {
	rc, err := s.open()
	if err != nil {
		return err
	}

	// Close on cancellation so a blocked Read returns.
	stop := context.AfterFunc(ctx, func() { rc.Close() })
	defer func() {
		if stop() {
			rc.Close()
		}
	}()

	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if code, ok := Clean(sc.Text()); ok {
			emit(code)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return sc.Err()
}

// Clean strips control characters and surrounding whitespace from a raw
// scanner line. ok is false for lines that are only noise.
func Clean(raw string) (string, bool) {
	code := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	code = strings.TrimSpace(code)
	return code, code != ""
}
