package geometry

import "fmt"

// EmptyRegionError is returned by operations that require at least one
// foreground cell, such as deriving the extent box of a mask.
type EmptyRegionError struct {
	Op string
}

func (e *EmptyRegionError) Error() string {
	return fmt.Sprintf("%s: region has no foreground pixels", e.Op)
}

// MaskExtent returns the minimal axis-aligned box covering all non-zero
// cells of a row-major width x height bitmap. It fails with EmptyRegionError
// when every cell is background.
func MaskExtent(bits []uint8, width, height int) (Box, error) {
	if len(bits) != width*height {
		return Box{}, fmt.Errorf("bitmap length %d does not match %dx%d grid", len(bits), width, height)
	}
	minX, minY := width, height
	maxX, maxY := -1, -1
	for y := 0; y < height; y++ {
		row := bits[y*width : (y+1)*width]
		for x, v := range row {
			if v == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			maxY = y
		}
	}
	if maxX < 0 {
		return Box{}, &EmptyRegionError{Op: "mask extent"}
	}
	// The extent covers the full area of the outermost foreground pixels.
	return Box{
		XMin: float64(minX),
		YMin: float64(minY),
		XMax: float64(maxX + 1),
		YMax: float64(maxY + 1),
	}, nil
}
