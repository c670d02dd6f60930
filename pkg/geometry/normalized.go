package geometry

// NormalizedBox is a bounding box expressed as fractions of the image width
// and height, independent of pixel resolution. All coordinates lie in [0,1]
// with the origin at the top-left corner.
type NormalizedBox struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// ToPixel converts the normalized box to pixel coordinates for an image of
// the given dimensions.
func (n NormalizedBox) ToPixel(width, height int) Box {
	w, h := float64(width), float64(height)
	return Box{
		XMin: n.XMin * w,
		YMin: n.YMin * h,
		XMax: n.XMax * w,
		YMax: n.YMax * h,
	}
}

// ToNormalized converts a pixel-space box to normalized coordinates for an
// image of the given dimensions. ToPixel(ToNormalized(b)) round-trips within
// floating point rounding.
func (b Box) ToNormalized(width, height int) NormalizedBox {
	w, h := float64(width), float64(height)
	return NormalizedBox{
		XMin: b.XMin / w,
		YMin: b.YMin / h,
		XMax: b.XMax / w,
		YMax: b.YMax / h,
	}
}
