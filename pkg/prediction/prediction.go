package prediction

import (
	"github.com/menta2k/visionflow/pkg/geometry"
)

// Kind identifies the variant of a prediction. Consumers should switch over
// all kinds exhaustively so new variants surface at review time.
type Kind int

const (
	// KindClassification is a whole-image label with no spatial extent.
	KindClassification Kind = iota
	// KindDetection is a labeled bounding box.
	KindDetection
	// KindSegmentation is a labeled per-pixel mask.
	KindSegmentation
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindClassification:
		return "classification"
	case KindDetection:
		return "detection"
	case KindSegmentation:
		return "segmentation"
	default:
		return "unknown"
	}
}

// Prediction is a single model output for an image. The common fields are
// always populated; Box is set for detections (and for segmentations whose
// mask has a derivable extent), Mask only for segmentations.
type Prediction struct {
	// ID is a unique identifier for the prediction, assigned by the service
	// or generated at parse time.
	ID string `json:"id"`

	// Kind selects the variant.
	Kind Kind `json:"kind"`

	// Label is the predicted class name. Never empty.
	Label string `json:"label"`

	// Score is the confidence of the prediction in [0,1].
	Score float64 `json:"score"`

	// ClassID is the integer index of the label in the model's label book.
	ClassID int `json:"class_id"`

	// Box is the bounding box in pixel coordinates, nil for classifications.
	Box *geometry.Box `json:"box,omitempty"`

	// Mask is the segmentation bitmap, nil for other kinds.
	Mask *Mask `json:"-"`
}

// PixelCount returns the number of pixels covered by the prediction: the
// foreground pixel count for segmentations, the box area for detections and
// zero for classifications.
func (p Prediction) PixelCount() int {
	switch p.Kind {
	case KindSegmentation:
		if p.Mask != nil {
			return p.Mask.ForegroundPixels()
		}
		return 0
	case KindDetection:
		if p.Box != nil {
			return int(p.Box.Area())
		}
		return 0
	case KindClassification:
		return 0
	default:
		return 0
	}
}
