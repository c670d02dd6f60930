// Package pipeline chains image processing operations as a sequence of
// steps. Each step consumes and produces a FrameSet, which typically holds a
// source image together with its predictions and derived overlay.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/menta2k/visionflow/pkg/imageio"
	"github.com/menta2k/visionflow/pkg/parse"
	"github.com/menta2k/visionflow/pkg/predict"
	"github.com/menta2k/visionflow/pkg/prediction"
	"github.com/menta2k/visionflow/pkg/render"
)

// Frame stores a main image, its predictions and any derived overlay image.
type Frame struct {
	// Image is the main image, typically set at the start of a pipeline.
	Image image.Image

	// Overlay is the rendered annotation image, set by OverlayPredictions.
	Overlay image.Image

	// Predictions holds the parsed inference results for Image.
	Predictions *prediction.PredictionSet

	// Report is the parse report of the last RunPredict call.
	Report *parse.Report

	// Metadata is an optional collection of frame metadata.
	Metadata map[string]string
}

// FrameSet is an ordered collection of frames. Most sets hold a single
// image, but steps may extract additional frames from the initial one.
type FrameSet struct {
	Frames []*Frame
}

// FromImage creates a FrameSet holding a single decoded image.
func FromImage(img image.Image, metadata map[string]string) *FrameSet {
	return &FrameSet{Frames: []*Frame{{Image: img, Metadata: metadata}}}
}

// FromFile creates a FrameSet from an image file.
func FromFile(path string) (*FrameSet, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return FromImage(img, map[string]string{"image_path": path}), nil
}

// IsEmpty reports whether the set holds no frames.
func (fs *FrameSet) IsEmpty() bool {
	return len(fs.Frames) == 0
}

// RunPredict runs the predictor on every frame and stores the results.
func (fs *FrameSet) RunPredict(ctx context.Context, predictor predict.Predictor) error {
	for i, frame := range fs.Frames {
		set, report, err := predictor.Predict(ctx, frame.Image)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		frame.Predictions = set
		frame.Report = report
	}
	return nil
}

// OverlayPredictions renders each frame's predictions onto a copy of its
// image and stores the result in Frame.Overlay. Frames without predictions
// are skipped.
func (fs *FrameSet) OverlayPredictions(opts render.Options) error {
	for i, frame := range fs.Frames {
		if frame.Predictions == nil {
			continue
		}
		overlay, err := render.Render(frame.Image, frame.Predictions, opts)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		frame.Overlay = overlay
	}
	return nil
}

// Resize scales every frame's image to the given dimensions. When one of
// width or height is zero the aspect ratio is preserved. Existing
// predictions keep the original dimensions, so resize before predicting.
func (fs *FrameSet) Resize(width, height int) *FrameSet {
	if width == 0 && height == 0 {
		return fs
	}
	for _, frame := range fs.Frames {
		frame.Image = imaging.Resize(frame.Image, width, height, imaging.Lanczos)
	}
	return fs
}

// Downsize resizes frames only when they are larger than the given
// dimensions.
func (fs *FrameSet) Downsize(width, height int) *FrameSet {
	if width == 0 && height == 0 {
		return fs
	}
	for _, frame := range fs.Frames {
		b := frame.Image.Bounds()
		if b.Dx() > width || b.Dy() > height {
			frame.Image = imaging.Resize(frame.Image, width, height, imaging.Lanczos)
		}
	}
	return fs
}

// SaveImages writes every frame to dir as PNG files named with the given
// prefix. When overlay is true the rendered overlay is written instead of
// the source image; frames without an overlay are skipped.
func (fs *FrameSet) SaveImages(dir, prefix string, overlay bool) error {
	for i, frame := range fs.Frames {
		img := frame.Image
		if overlay {
			if frame.Overlay == nil {
				continue
			}
			img = frame.Overlay
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", prefix, i))
		if err := imageio.Save(img, path, "png", 0, false); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// Apply runs a function over every frame and stores its result.
func (fs *FrameSet) Apply(fn func(*Frame) *Frame) *FrameSet {
	for i, frame := range fs.Frames {
		fs.Frames[i] = fn(frame)
	}
	return fs
}

// Filter keeps only the frames the function approves of.
func (fs *FrameSet) Filter(fn func(*Frame) bool) *FrameSet {
	kept := fs.Frames[:0]
	for _, frame := range fs.Frames {
		if fn(frame) {
			kept = append(kept, frame)
		}
	}
	fs.Frames = kept
	return fs
}

// ClassCounts returns how many predictions carry each label across all
// frames of the set.
func ClassCounts(fs *FrameSet) map[string]int {
	counts := make(map[string]int)
	for _, frame := range fs.Frames {
		if frame.Predictions == nil {
			continue
		}
		for label, n := range frame.Predictions.ClassCounts() {
			counts[label] += n
		}
	}
	return counts
}
