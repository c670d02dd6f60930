// Package render composes predictions onto a copy of the source image as
// visual overlays: alpha-blended mask fills first, then box outlines, then
// label text, so text is never occluded. Rendering is deterministic: the
// same inputs always produce a byte-identical image.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/visionflow/pkg/geometry"
	"github.com/menta2k/visionflow/pkg/prediction"
)

// DimensionMismatchError reports that a prediction set's recorded image
// dimensions disagree with the actual input image. Rendering aborts rather
// than rescaling, since rescaling would silently corrupt coordinates.
type DimensionMismatchError struct {
	WantWidth  int
	WantHeight int
	GotWidth   int
	GotHeight  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("prediction set is for a %dx%d image, got %dx%d",
		e.WantWidth, e.WantHeight, e.GotWidth, e.GotHeight)
}

// Options controls how overlays are drawn.
type Options struct {
	// ShowLabels draws the class label next to each spatial prediction.
	ShowLabels bool

	// ShowScores appends the confidence score to the label text.
	ShowScores bool

	// MaskAlpha is the opacity of segmentation fills in [0,1].
	MaskAlpha float64

	// BoxThickness is the outline stroke width in pixels, at least 1.
	BoxThickness int

	// Colors maps labels to colors. When nil, a deterministic assignment is
	// derived from the sorted distinct labels of the prediction set.
	Colors ColorAssignment
}

// DefaultOptions returns the options used when callers have no preference.
func DefaultOptions() Options {
	return Options{
		ShowLabels:   true,
		ShowScores:   true,
		MaskAlpha:    0.5,
		BoxThickness: 2,
	}
}

var labelFace = basicfont.Face7x13

// Render draws the prediction set onto a copy of img and returns the copy.
// The caller's image is never mutated.
func Render(img image.Image, set *prediction.PredictionSet, opts Options) (*image.NRGBA, error) {
	bounds := img.Bounds()
	if bounds.Dx() != set.Width() || bounds.Dy() != set.Height() {
		return nil, &DimensionMismatchError{
			WantWidth:  set.Width(),
			WantHeight: set.Height(),
			GotWidth:   bounds.Dx(),
			GotHeight:  bounds.Dy(),
		}
	}
	if opts.MaskAlpha < 0 || opts.MaskAlpha > 1 {
		return nil, fmt.Errorf("mask alpha %g outside [0,1]", opts.MaskAlpha)
	}
	if opts.BoxThickness < 1 {
		return nil, fmt.Errorf("box thickness %d must be at least 1", opts.BoxThickness)
	}

	colors := opts.Colors
	if colors == nil {
		colors = AssignColors(set.Labels())
	}

	out := imaging.Clone(img)

	// Layer 1: mask fills.
	for _, p := range set.Predictions() {
		if p.Kind == prediction.KindSegmentation && p.Mask != nil {
			fillMask(out, p.Mask, colors[p.Label], opts.MaskAlpha)
		}
	}

	// Layer 2: box outlines.
	for _, p := range set.Predictions() {
		if box := spatialBox(p); box != nil {
			drawBox(out, *box, colors[p.Label], opts.BoxThickness)
		}
	}

	// Layer 3: label text.
	if opts.ShowLabels || opts.ShowScores {
		for _, p := range set.Predictions() {
			if box := spatialBox(p); box != nil {
				drawLabel(out, *box, labelText(p, opts), colors[p.Label])
			}
		}
	}

	return out, nil
}

// spatialBox returns the box to outline for a prediction: the predicted box
// for detections, the mask extent for segmentations, nil for classifications.
func spatialBox(p prediction.Prediction) *geometry.Box {
	switch p.Kind {
	case prediction.KindDetection, prediction.KindSegmentation:
		return p.Box
	case prediction.KindClassification:
		return nil
	default:
		return nil
	}
}

func labelText(p prediction.Prediction, opts Options) string {
	switch {
	case opts.ShowLabels && opts.ShowScores:
		return fmt.Sprintf("%s %.2f", p.Label, p.Score)
	case opts.ShowLabels:
		return p.Label
	case opts.ShowScores:
		return fmt.Sprintf("%.2f", p.Score)
	default:
		return ""
	}
}

// fillMask composites the mask color over every foreground pixel using
// standard alpha-over blending: out = alpha*color + (1-alpha)*background.
func fillMask(img *image.NRGBA, mask *prediction.Mask, c color.NRGBA, alpha float64) {
	w, h := mask.Width(), mask.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask.At(x, y) {
				continue
			}
			i := y*img.Stride + x*4
			img.Pix[i+0] = blend(c.R, img.Pix[i+0], alpha)
			img.Pix[i+1] = blend(c.G, img.Pix[i+1], alpha)
			img.Pix[i+2] = blend(c.B, img.Pix[i+2], alpha)
		}
	}
}

func blend(fg, bg uint8, alpha float64) uint8 {
	v := alpha*float64(fg) + (1-alpha)*float64(bg)
	return uint8(math.Round(clampF(v, 0, 255)))
}

func drawBox(img *image.NRGBA, box geometry.Box, c color.NRGBA, thickness int) {
	r := box.ToRect()
	x0, y0, x1, y1 := r.Min.X, r.Min.Y, r.Max.X, r.Max.Y
	for s := 0; s < thickness; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}

// drawLabel paints the text on a solid tag in the class color, anchored at
// the top-left corner of the box and clamped so it stays fully on canvas.
func drawLabel(img *image.NRGBA, box geometry.Box, text string, c color.NRGBA) {
	if text == "" {
		return
	}
	metrics := labelFace.Metrics()
	textW := font.MeasureString(labelFace, text).Ceil()
	const pad = 2
	tagW := textW + 2*pad
	tagH := metrics.Height.Ceil() + 2*pad

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	x := int(math.Round(box.XMin))
	y := int(math.Round(box.YMin))
	x = clampI(x, 0, w-tagW)
	y = clampI(y, 0, h-tagH)

	fillRect(img, x, y, x+tagW, y+tagH, c)

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelTextColor(c)),
		Face: labelFace,
		Dot: fixed.Point26_6{
			X: fixed.I(x + pad),
			Y: fixed.I(y+pad) + metrics.Ascent,
		},
	}
	d.DrawString(text)
}

// labelTextColor picks black or white text for contrast against the tag.
func labelTextColor(c color.NRGBA) color.NRGBA {
	// Perceived luminance, integer weights summing to 1000.
	luma := (299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000
	if luma > 140 {
		return color.NRGBA{0, 0, 0, 255}
	}
	return color.NRGBA{255, 255, 255, 255}
}

func fillRect(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	x0 = clampI(x0, 0, w)
	x1 = clampI(x1, 0, w)
	y0 = clampI(y0, 0, h)
	y1 = clampI(y1, 0, h)
	for y := y0; y < y1; y++ {
		i := y*img.Stride + x0*4
		for x := x0; x < x1; x++ {
			img.Pix[i+0] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
			i += 4
		}
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
