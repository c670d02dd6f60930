package prediction

import (
	"encoding/json"
	"fmt"
	"sort"
)

// PredictionSet is the ordered collection of all predictions for one image,
// together with the image dimensions they refer to. It is constructed once
// per inference response and read-only thereafter; insertion order is
// preserved so downstream rendering stays deterministic.
type PredictionSet struct {
	width     int
	height    int
	requestID string
	preds     []Prediction
	byLabel   map[string][]int
}

// NewPredictionSet validates the given predictions against the image
// dimensions and builds the set. Spatial coordinates must already be clamped
// to the canvas; masks must match the image dimensions exactly.
func NewPredictionSet(width, height int, requestID string, preds []Prediction) (*PredictionSet, error) {
	if width <= 0 || height <= 0 {
		return nil, &ValidationError{Field: "image dimensions", Expected: "positive width and height", Actual: fmt.Sprintf("%dx%d", width, height)}
	}
	for i, p := range preds {
		if err := validate(p, width, height); err != nil {
			return nil, fmt.Errorf("prediction %d: %w", i, err)
		}
	}
	s := &PredictionSet{
		width:     width,
		height:    height,
		requestID: requestID,
		preds:     append([]Prediction(nil), preds...),
		byLabel:   make(map[string][]int),
	}
	for i, p := range s.preds {
		s.byLabel[p.Label] = append(s.byLabel[p.Label], i)
	}
	return s, nil
}

func validate(p Prediction, width, height int) error {
	if p.Label == "" {
		return &ValidationError{Field: "label", Expected: "non-empty string", Actual: "empty"}
	}
	if p.Score < 0 || p.Score > 1 {
		return &ValidationError{Field: "score", Expected: "value in [0,1]", Actual: fmt.Sprintf("%g", p.Score)}
	}
	switch p.Kind {
	case KindClassification:
		if p.Box != nil || p.Mask != nil {
			return &ValidationError{Field: "kind", Expected: "no spatial fields on a classification", Actual: "box or mask present"}
		}
	case KindDetection:
		if p.Box == nil {
			return &ValidationError{Field: "box", Expected: "bounding box on a detection", Actual: "missing"}
		}
	case KindSegmentation:
		if p.Mask == nil {
			return &ValidationError{Field: "mask", Expected: "mask on a segmentation", Actual: "missing"}
		}
		if p.Mask.Width() != width || p.Mask.Height() != height {
			return &ValidationError{
				Field:    "mask_shape",
				Expected: fmt.Sprintf("%dx%d", width, height),
				Actual:   fmt.Sprintf("%dx%d", p.Mask.Width(), p.Mask.Height()),
			}
		}
	default:
		return &UnsupportedVariantError{Variant: p.Kind.String()}
	}
	if p.Box != nil {
		b := *p.Box
		if b.XMin < 0 || b.YMin < 0 || b.XMax > float64(width) || b.YMax > float64(height) {
			return &ValidationError{
				Field:    "box",
				Expected: fmt.Sprintf("coordinates within %dx%d", width, height),
				Actual:   fmt.Sprintf("(%g,%g)-(%g,%g)", b.XMin, b.YMin, b.XMax, b.YMax),
			}
		}
	}
	return nil
}

// Width returns the width of the image the predictions refer to.
func (s *PredictionSet) Width() int { return s.width }

// Height returns the height of the image the predictions refer to.
func (s *PredictionSet) Height() int { return s.height }

// RequestID returns the correlation id of the inference request, if any.
func (s *PredictionSet) RequestID() string { return s.requestID }

// Len returns the number of predictions in the set.
func (s *PredictionSet) Len() int { return len(s.preds) }

// At returns the prediction at index i in insertion order.
func (s *PredictionSet) At(i int) Prediction { return s.preds[i] }

// Predictions returns a copy of the predictions in insertion order.
func (s *PredictionSet) Predictions() []Prediction {
	return append([]Prediction(nil), s.preds...)
}

// ByLabel returns the predictions carrying the given label, in insertion order.
func (s *PredictionSet) ByLabel(label string) []Prediction {
	idx := s.byLabel[label]
	out := make([]Prediction, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.preds[i])
	}
	return out
}

// Labels returns the distinct labels present in the set, sorted ascending.
func (s *PredictionSet) Labels() []string {
	labels := make([]string, 0, len(s.byLabel))
	for label := range s.byLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// ClassCounts returns how many predictions carry each label.
func (s *PredictionSet) ClassCounts() map[string]int {
	counts := make(map[string]int, len(s.byLabel))
	for label, idx := range s.byLabel {
		counts[label] = len(idx)
	}
	return counts
}

// MarshalJSON serializes the set for downstream reporting. Masks are
// exported as their foreground pixel counts rather than full bitmaps.
func (s *PredictionSet) MarshalJSON() ([]byte, error) {
	type entry struct {
		ID         string        `json:"id"`
		Kind       string        `json:"kind"`
		Label      string        `json:"label"`
		Score      float64       `json:"score"`
		ClassID    int           `json:"class_id"`
		Box        *boxJSON      `json:"box,omitempty"`
		MaskPixels int           `json:"mask_pixels,omitempty"`
	}
	type setJSON struct {
		Width       int     `json:"width"`
		Height      int     `json:"height"`
		RequestID   string  `json:"request_id,omitempty"`
		Predictions []entry `json:"predictions"`
	}
	out := setJSON{Width: s.width, Height: s.height, RequestID: s.requestID}
	out.Predictions = make([]entry, 0, len(s.preds))
	for _, p := range s.preds {
		e := entry{
			ID:      p.ID,
			Kind:    p.Kind.String(),
			Label:   p.Label,
			Score:   p.Score,
			ClassID: p.ClassID,
		}
		if p.Box != nil {
			e.Box = &boxJSON{XMin: p.Box.XMin, YMin: p.Box.YMin, XMax: p.Box.XMax, YMax: p.Box.YMax}
		}
		if p.Mask != nil {
			e.MaskPixels = p.Mask.ForegroundPixels()
		}
		out.Predictions = append(out.Predictions, e)
	}
	return json.Marshal(out)
}

type boxJSON struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}
