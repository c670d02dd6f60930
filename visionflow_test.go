package visionflow

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/visionflow/pkg/geometry"
	"github.com/menta2k/visionflow/pkg/parse"
	"github.com/menta2k/visionflow/pkg/prediction"
	"github.com/menta2k/visionflow/pkg/render"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{64, 64, 64, 255})
		}
	}
	return img
}

// stubPredictor returns a fixed detection sized to the input image.
type stubPredictor struct{}

func (stubPredictor) Predict(ctx context.Context, img image.Image) (*prediction.PredictionSet, *parse.Report, error) {
	b := img.Bounds()
	box := geometry.Box{XMin: 1, YMin: 1, XMax: float64(b.Dx()) - 1, YMax: float64(b.Dy()) - 1}
	set, err := prediction.NewPredictionSet(b.Dx(), b.Dy(), "stub", []prediction.Prediction{
		{ID: "1", Kind: prediction.KindDetection, Label: "cat", Score: 0.9, Box: &box},
	})
	if err != nil {
		return nil, nil, err
	}
	return set, &parse.Report{Entries: 1}, nil
}

func TestPredictAndRender(t *testing.T) {
	client := New(stubPredictor{})

	set, overlay, err := client.PredictAndRender(context.Background(), createTestImage(64, 48))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if set.Len() != 1 || set.At(0).Label != "cat" {
		t.Errorf("unexpected prediction set: len=%d", set.Len())
	}
	if overlay.Bounds().Dx() != 64 || overlay.Bounds().Dy() != 48 {
		t.Errorf("overlay dimensions %v do not match the input", overlay.Bounds())
	}
}

func TestNewWithOptions(t *testing.T) {
	opts := render.Options{ShowLabels: false, MaskAlpha: 0.3, BoxThickness: 1}
	client := NewWithOptions(stubPredictor{}, opts)

	_, overlay, err := client.PredictAndRender(context.Background(), createTestImage(32, 32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overlay == nil {
		t.Fatal("expected an overlay image")
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Error("GetVersion must report the package version")
	}
}
