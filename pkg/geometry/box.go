package geometry

import (
	"fmt"
	"image"
	"math"
)

// Box is an axis-aligned rectangle in pixel coordinates with origin at the
// top-left corner of the image. Coordinates are stored as floats so that
// sub-pixel positions survive conversions; XMin <= XMax and YMin <= YMax.
type Box struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// NewBox creates a Box and verifies the corner ordering invariant.
func NewBox(xmin, ymin, xmax, ymax float64) (Box, error) {
	if xmin > xmax || ymin > ymax {
		return Box{}, fmt.Errorf("inverted box corners: (%g,%g)-(%g,%g)", xmin, ymin, xmax, ymax)
	}
	return Box{XMin: xmin, YMin: ymin, XMax: xmax, YMax: ymax}, nil
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 {
	return b.XMax - b.XMin
}

// Height returns the vertical extent of the box.
func (b Box) Height() float64 {
	return b.YMax - b.YMin
}

// Area returns the area of the box in square pixels.
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// Center returns the center point of the box.
func (b Box) Center() (float64, float64) {
	return (b.XMin + b.XMax) / 2, (b.YMin + b.YMax) / 2
}

// Empty reports whether the box covers no area.
func (b Box) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// ClampTo restricts the box to the [0,width] x [0,height] pixel canvas.
func (b Box) ClampTo(width, height int) Box {
	w, h := float64(width), float64(height)
	return Box{
		XMin: clamp(b.XMin, 0, w),
		YMin: clamp(b.YMin, 0, h),
		XMax: clamp(b.XMax, 0, w),
		YMax: clamp(b.YMax, 0, h),
	}
}

// ToRect converts the box to an image.Rectangle, rounding to the nearest pixel.
func (b Box) ToRect() image.Rectangle {
	return image.Rect(
		int(math.Round(b.XMin)),
		int(math.Round(b.YMin)),
		int(math.Round(b.XMax)),
		int(math.Round(b.YMax)),
	)
}

// FromRect converts an image.Rectangle to a Box.
func FromRect(r image.Rectangle) Box {
	r = r.Canon()
	return Box{
		XMin: float64(r.Min.X),
		YMin: float64(r.Min.Y),
		XMax: float64(r.Max.X),
		YMax: float64(r.Max.Y),
	}
}

// Intersect returns the overlapping region of two boxes. The second return
// value is false when the boxes do not overlap.
func Intersect(a, b Box) (Box, bool) {
	out := Box{
		XMin: math.Max(a.XMin, b.XMin),
		YMin: math.Max(a.YMin, b.YMin),
		XMax: math.Min(a.XMax, b.XMax),
		YMax: math.Min(a.YMax, b.YMax),
	}
	if out.XMin >= out.XMax || out.YMin >= out.YMax {
		return Box{}, false
	}
	return out, true
}

// Union returns the minimal box covering both inputs.
func Union(a, b Box) Box {
	return Box{
		XMin: math.Min(a.XMin, b.XMin),
		YMin: math.Min(a.YMin, b.YMin),
		XMax: math.Max(a.XMax, b.XMax),
		YMax: math.Max(a.YMax, b.YMax),
	}
}

// IoU returns the intersection-over-union ratio of two boxes in [0,1].
func IoU(a, b Box) float64 {
	inter, ok := Intersect(a, b)
	if !ok {
		return 0
	}
	interArea := inter.Area()
	unionArea := a.Area() + b.Area() - interArea
	if unionArea <= 0 {
		return 0
	}
	return interArea / unionArea
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
