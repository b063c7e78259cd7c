// Package barcode renders product codes as PNG barcode images.
package barcode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	bc "github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/ean"
	"github.com/boombuler/barcode/qr"
)

// Symbology names a barcode encoding.
type Symbology string

const (
	Code128 Symbology = "code128"
	Code39  Symbology = "code39"
	EAN     Symbology = "ean"
	QR      Symbology = "qr"
)

// Default sizes for printed labels, in pixels.
const (
	DefaultWidth  = 300
	DefaultHeight = 80
)

// ErrEmptyCode is returned when there is nothing to encode.
var ErrEmptyCode = errors.New("barcode: empty code")

// ParseSymbology validates a symbology name. Empty means Code128.
func ParseSymbology(s string) (Symbology, error) {
	switch sym := Symbology(strings.ToLower(strings.TrimSpace(s))); sym {
	case "":
		return Code128, nil
	case Code128, Code39, EAN, QR:
		return sym, nil
	default:
		return "", fmt.Errorf("unknown barcode symbology %q (want code128, code39, ean or qr)", s)
	}
}

// Render encodes code and scales it to width x height. QR codes are square
// and use the smaller of the two dimensions.
func Render(code string, sym Symbology, width, height int) (image.Image, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	var (
		img bc.Barcode
		err error
	)
	switch sym {
	case Code128, "":
		img, err = code128.Encode(code)
	case Code39:
		img, err = code39.Encode(strings.ToUpper(code), false, true)
	case EAN:
		img, err = ean.Encode(code)
	case QR:
		img, err = qr.Encode(code, qr.M, qr.Auto)
		width = min(width, height)
		height = width
	default:
		return nil, fmt.Errorf("unknown barcode symbology %q", sym)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s %q: %w", sym, code, err)
	}

	scaled, err := bc.Scale(img, width, height)
	if err != nil {
		return nil, fmt.Errorf("scale %s %q: %w", sym, code, err)
	}
	return scaled, nil
}

// PNG renders code and returns the PNG bytes.
func PNG(code string, sym Symbology, width, height int) ([]byte, error) {
	img, err := Render(code, sym, width, height)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI renders code as a data:image/png;base64 URI for embedding in HTML.
func DataURI(code string, sym Symbology, width, height int) (string, error) {
	data, err := PNG(code, sym, width, height)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
