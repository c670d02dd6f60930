package prediction

import (
	"fmt"
	"strings"

	"github.com/menta2k/visionflow/pkg/geometry"
)

// Mask is a binary region over the image grid, stored as a row-major bitmap
// of 0/1 bytes. Its dimensions always match the source image exactly.
type Mask struct {
	width  int
	height int
	bits   []uint8
}

// NewMask wraps a row-major width x height bitmap. Values other than 0 are
// treated as foreground.
func NewMask(width, height int, bits []uint8) (*Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, &ValidationError{Field: "mask_shape", Expected: "positive dimensions", Actual: fmt.Sprintf("%dx%d", width, height)}
	}
	if len(bits) != width*height {
		return nil, &ValidationError{
			Field:    "mask",
			Expected: fmt.Sprintf("%d cells for a %dx%d grid", width*height, width, height),
			Actual:   fmt.Sprintf("%d cells", len(bits)),
		}
	}
	normalized := make([]uint8, len(bits))
	for i, v := range bits {
		if v != 0 {
			normalized[i] = 1
		}
	}
	return &Mask{width: width, height: height, bits: normalized}, nil
}

// DecodeRLEMask decodes a run-length encoded bitmap string such as "5Z3N2Z"
// using the given character to bit mapping, e.g. {"Z": 0, "N": 1}.
func DecodeRLEMask(encoded string, encodingMap map[string]int, width, height int) (*Mask, error) {
	bits := make([]uint8, 0, width*height)
	runStart := -1
	for i := 0; i < len(encoded); i++ {
		c := encoded[i]
		if c >= '0' && c <= '9' {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart < 0 {
			return nil, &ValidationError{Field: "mask", Expected: "run length before symbol", Actual: fmt.Sprintf("%q at offset %d", c, i)}
		}
		value, ok := encodingMap[string(c)]
		if !ok {
			return nil, &ValidationError{Field: "mask", Expected: "symbol present in encoding map", Actual: string(c)}
		}
		runLen := 0
		for _, d := range encoded[runStart:i] {
			runLen = runLen*10 + int(d-'0')
		}
		bit := uint8(0)
		if value != 0 {
			bit = 1
		}
		bits = append(bits, bytesOf(bit, runLen)...)
		runStart = -1
	}
	if runStart >= 0 {
		return nil, &ValidationError{Field: "mask", Expected: "symbol after run length", Actual: strings.TrimSpace(encoded[runStart:])}
	}
	return NewMask(width, height, bits)
}

func bytesOf(v uint8, n int) []uint8 {
	out := make([]uint8, n)
	if v != 0 {
		for i := range out {
			out[i] = v
		}
	}
	return out
}

// Width returns the mask width in pixels.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height in pixels.
func (m *Mask) Height() int { return m.height }

// At reports whether the cell at (x, y) is foreground. Out-of-range
// coordinates are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.bits[y*m.width+x] != 0
}

// ForegroundPixels returns the number of foreground cells.
func (m *Mask) ForegroundPixels() int {
	n := 0
	for _, v := range m.bits {
		if v != 0 {
			n++
		}
	}
	return n
}

// ForegroundRatio returns the fraction of the grid that is foreground.
func (m *Mask) ForegroundRatio() float64 {
	return float64(m.ForegroundPixels()) / float64(m.width*m.height)
}

// Extent returns the minimal box covering all foreground cells. It fails
// with geometry.EmptyRegionError when the mask has no foreground.
func (m *Mask) Extent() (geometry.Box, error) {
	return geometry.MaskExtent(m.bits, m.width, m.height)
}
