package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/menta2k/visionflow/pkg/geometry"
	"github.com/menta2k/visionflow/pkg/prediction"
)

// createTestImage creates a uniform gray test image
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{100, 100, 100, 255})
		}
	}
	return img
}

func detection(t *testing.T, id, label string, score float64, xmin, ymin, xmax, ymax float64) prediction.Prediction {
	t.Helper()
	box, err := geometry.NewBox(xmin, ymin, xmax, ymax)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return prediction.Prediction{ID: id, Kind: prediction.KindDetection, Label: label, Score: score, Box: &box}
}

func newSet(t *testing.T, w, h int, preds ...prediction.Prediction) *prediction.PredictionSet {
	t.Helper()
	set, err := prediction.NewPredictionSet(w, h, "", preds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return set
}

func TestAssignColorsStability(t *testing.T) {
	a := AssignColors([]string{"dog", "cat", "bird"})
	b := AssignColors([]string{"cat", "bird", "dog", "cat"})

	if !reflect.DeepEqual(a, b) {
		t.Errorf("same label set must yield the same assignment: %v vs %v", a, b)
	}

	// Sorted ascending: bird, cat, dog take the first three palette slots.
	if a["bird"] != palette[0] || a["cat"] != palette[1] || a["dog"] != palette[2] {
		t.Errorf("unexpected palette order: %v", a)
	}
}

func TestAssignColorsCyclesPalette(t *testing.T) {
	labels := make([]string, len(palette)+2)
	for i := range labels {
		labels[i] = string(rune('a' + i))
	}
	colors := AssignColors(labels)

	if colors[labels[len(palette)]] != palette[0] {
		t.Error("expected palette to cycle after exhaustion")
	}
}

func TestRenderDeterminism(t *testing.T) {
	img := createTestImage(100, 100)
	mask, err := prediction.DecodeRLEMask("3030Z40N6930Z", map[string]int{"Z": 0, "N": 1}, 100, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set := newSet(t, 100, 100,
		detection(t, "1", "cat", 0.92, 10, 10, 40, 40),
		detection(t, "2", "dog", 0.81, 20, 20, 50, 50),
		prediction.Prediction{ID: "3", Kind: prediction.KindSegmentation, Label: "defect", Score: 0.7, Mask: mask},
	)

	first, err := Render(img, set, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Render(img, set, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("rendering the same inputs twice must be byte-identical")
	}
}

func TestRenderDoesNotMutateInput(t *testing.T) {
	img := createTestImage(100, 100)
	before := append([]uint8(nil), img.Pix...)

	set := newSet(t, 100, 100, detection(t, "1", "cat", 0.92, 10, 10, 40, 40))
	if _, err := Render(img, set, DefaultOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(before, img.Pix) {
		t.Error("the caller's image buffer must never be mutated")
	}
}

func TestRenderOverlappingBoxesKeepBothOutlines(t *testing.T) {
	img := createTestImage(100, 100)
	set := newSet(t, 100, 100,
		detection(t, "1", "cat", 0.92, 10, 10, 40, 40),
		detection(t, "2", "dog", 0.81, 20, 20, 50, 50),
	)

	opts := Options{MaskAlpha: 0.5, BoxThickness: 1}
	out, err := Render(img, set, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	colors := AssignColors(set.Labels())
	catC, dogC := colors["cat"], colors["dog"]

	// Cat's top edge, outside the dog box.
	if got := out.NRGBAAt(15, 10); got != catC {
		t.Errorf("expected cat outline at (15,10), got %v", got)
	}
	// Cat's right edge inside the dog box area remains visible since the
	// overlay is non-destructive outlines only.
	if got := out.NRGBAAt(39, 25); got != catC {
		t.Errorf("expected cat outline at (39,25), got %v", got)
	}
	// Dog's top edge, drawn after cat per insertion order.
	if got := out.NRGBAAt(30, 20); got != dogC {
		t.Errorf("expected dog outline at (30,20), got %v", got)
	}
	// Dog's bottom edge.
	if got := out.NRGBAAt(30, 49); got != dogC {
		t.Errorf("expected dog outline at (30,49), got %v", got)
	}
}

func TestRenderMaskAlphaBlending(t *testing.T) {
	img := createTestImage(4, 4)
	mask, err := prediction.DecodeRLEMask("5Z1N10Z", map[string]int{"Z": 0, "N": 1}, 4, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set := newSet(t, 4, 4, prediction.Prediction{
		ID: "1", Kind: prediction.KindSegmentation, Label: "defect", Score: 0.7, Mask: mask,
	})

	opts := Options{
		MaskAlpha:    0.5,
		BoxThickness: 1,
		Colors:       ColorAssignment{"defect": color.NRGBA{230, 25, 75, 255}},
	}
	out, err := Render(img, set, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 0.5*color + 0.5*gray(100), rounded half away from zero.
	if got, want := out.NRGBAAt(1, 1), (color.NRGBA{165, 63, 88, 255}); got != want {
		t.Errorf("expected blended pixel %v at (1,1), got %v", want, got)
	}
	// Background pixels are untouched.
	if got, want := out.NRGBAAt(0, 0), (color.NRGBA{100, 100, 100, 255}); got != want {
		t.Errorf("expected untouched pixel %v at (0,0), got %v", want, got)
	}
}

func TestRenderDimensionMismatch(t *testing.T) {
	img := createTestImage(100, 100)
	set := newSet(t, 50, 50, detection(t, "1", "cat", 0.92, 10, 10, 40, 40))

	_, err := Render(img, set, DefaultOptions())
	if err == nil {
		t.Fatal("expected DimensionMismatchError")
	}
	var dimErr *DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError, got %T: %v", err, err)
	}
	if dimErr.WantWidth != 50 || dimErr.GotWidth != 100 {
		t.Errorf("unexpected error detail: %+v", dimErr)
	}
}

func TestRenderRejectsBadOptions(t *testing.T) {
	img := createTestImage(10, 10)
	set := newSet(t, 10, 10)

	if _, err := Render(img, set, Options{MaskAlpha: 1.5, BoxThickness: 1}); err == nil {
		t.Error("expected error for mask alpha above 1")
	}
	if _, err := Render(img, set, Options{MaskAlpha: 0.5, BoxThickness: 0}); err == nil {
		t.Error("expected error for zero box thickness")
	}
}

func TestRenderLabelStaysOnCanvas(t *testing.T) {
	img := createTestImage(60, 40)
	// Box hugging the bottom-right corner: the label tag must be clamped
	// inside the canvas instead of being cut off.
	set := newSet(t, 60, 40, detection(t, "1", "cat", 0.92, 50, 30, 59, 39))

	opts := DefaultOptions()
	out, err := Render(img, set, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Bounds().Dx() != 60 || out.Bounds().Dy() != 40 {
		t.Errorf("unexpected output dimensions %v", out.Bounds())
	}
}

func TestRenderClassificationDrawsNothing(t *testing.T) {
	img := createTestImage(20, 20)
	set := newSet(t, 20, 20, prediction.Prediction{
		ID: "1", Kind: prediction.KindClassification, Label: "ok", Score: 0.99,
	})

	out, err := Render(img, set, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out.Pix, createTestImage(20, 20).Pix) {
		t.Error("a classification-only set should leave the image untouched")
	}
}
